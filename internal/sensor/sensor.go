package sensor

import (
	"bufio"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"codeberg.org/mutker/wwatcher/internal/errors"
	"codeberg.org/mutker/wwatcher/internal/logger"
)

// IIO attribute names of the two channels.
const (
	HumidityPrefix    = "in_humidityrelative"
	TemperaturePrefix = "in_temp"

	scaleSuffix  = "_scale"
	offsetSuffix = "_offset"
	rawSuffix    = "_raw"
)

type Config struct {
	HumidityDevice    string
	TemperatureDevice string
}

// ReadValue reads a single floating point value from the first line of a
// sysfs attribute.
func ReadValue(path string) (float64, error) {
	errFactory := errors.New()

	f, err := os.Open(path)
	if err != nil {
		return 0, errFactory.WithData(ErrReadFailure, readError{Path: path, Error: err.Error()})
	}
	defer f.Close()

	line, err := bufio.NewReader(f).ReadString('\n')
	if err != nil && line == "" {
		return 0, errFactory.WithData(ErrReadFailure, readError{Path: path, Error: err.Error()})
	}

	value, err := strconv.ParseFloat(strings.TrimSpace(line), 64)
	if err != nil {
		return 0, errFactory.WithData(ErrReadFailure, readError{Path: path, Error: err.Error()})
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return 0, errFactory.WithData(ErrReadFailure, readError{Path: path, Error: "value is not finite"})
	}

	return value, nil
}

// Channel is one physical input with its calibration, read once.
type Channel struct {
	name        string
	rawPath     string
	calibration Calibration
}

// NewChannel reads the scale and offset attributes of prefix under dir.
// A missing or unparsable calibration value is an error.
func NewChannel(name, dir, prefix string) (*Channel, error) {
	errFactory := errors.New()

	scale, err := ReadValue(filepath.Join(dir, prefix+scaleSuffix))
	if err != nil {
		return nil, errFactory.Wrap(ErrCalibrationFailure, err)
	}

	offset, err := ReadValue(filepath.Join(dir, prefix+offsetSuffix))
	if err != nil {
		return nil, errFactory.Wrap(ErrCalibrationFailure, err)
	}

	c := &Channel{
		name:        name,
		rawPath:     filepath.Join(dir, prefix+rawSuffix),
		calibration: Calibration{Scale: scale, Offset: offset},
	}

	logger.Debug().
		Str("channel", name).
		Float64("scale", scale).
		Float64("offset", offset).
		Msg("Channel calibrated")

	return c, nil
}

func (c *Channel) Name() string { return c.name }

func (c *Channel) Calibration() Calibration { return c.calibration }

// Read returns the calibrated instantaneous value.
func (c *Channel) Read() (float64, error) {
	raw, err := ReadValue(c.rawPath)
	if err != nil {
		return 0, err
	}

	return c.calibration.Apply(raw), nil
}

// IIO reads the humidity and temperature channels of two IIO devices.
type IIO struct {
	humidity    *Channel
	temperature *Channel
}

// New calibrates both channels. It fails if any calibration value cannot
// be read.
func New(cfg Config) (*IIO, error) {
	humidity, err := NewChannel("humidity", cfg.HumidityDevice, HumidityPrefix)
	if err != nil {
		return nil, err
	}

	temperature, err := NewChannel("temperature", cfg.TemperatureDevice, TemperaturePrefix)
	if err != nil {
		return nil, err
	}

	return &IIO{humidity: humidity, temperature: temperature}, nil
}

// Read reads both channels. No partial reading is returned on failure.
func (s *IIO) Read() (Reading, error) {
	humidity, err := s.humidity.Read()
	if err != nil {
		return Reading{}, err
	}

	temperature, err := s.temperature.Read()
	if err != nil {
		return Reading{}, err
	}

	return Reading{Humidity: humidity, Temperature: temperature}, nil
}
