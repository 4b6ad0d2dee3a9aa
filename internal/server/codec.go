package server

import (
	"encoding/json"
	"strconv"

	"codeberg.org/mutker/wwatcher/internal/store"
)

type item struct {
	TS   string `json:"ts"`
	RH   string `json:"rH"`
	Temp string `json:"temp"`
}

type response struct {
	Items []item `json:"items"`
}

// Encode renders samples, oldest first, as
// {"items":[{"ts":...,"rH":"45.67","temp":"21.50"},...]}.
func Encode(samples []store.Sample) ([]byte, error) {
	r := response{Items: make([]item, 0, len(samples))}
	for _, s := range samples {
		r.Items = append(r.Items, item{
			TS:   s.Timestamp,
			RH:   strconv.FormatFloat(s.Humidity, 'f', 2, 64),
			Temp: strconv.FormatFloat(s.Temperature, 'f', 2, 64),
		})
	}

	return json.Marshal(r)
}
