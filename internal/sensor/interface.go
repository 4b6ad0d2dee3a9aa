package sensor

// Reader reads one calibrated sample from both channels.
type Reader interface {
	Read() (Reading, error)
}

type (
	// Calibration converts a raw value: (raw + Offset) * Scale.
	Calibration struct {
		Scale, Offset float64
	}

	// Reading is one calibrated humidity/temperature pair.
	Reading struct {
		Humidity    float64
		Temperature float64
	}
)

// Apply returns the calibrated value of raw.
func (c Calibration) Apply(raw float64) float64 {
	return (raw + c.Offset) * c.Scale
}
