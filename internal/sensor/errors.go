package sensor

import "codeberg.org/mutker/wwatcher/internal/errors"

const (
	ErrReadFailure        = errors.ErrReadFailure
	ErrCalibrationFailure = errors.ErrCalibrationFailure
)

type readError struct {
	Path  string
	Error string
}
