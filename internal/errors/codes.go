package errors

// Common error codes
const (
	// System errors
	ErrInternal       ErrorCode = "internal_error"
	ErrAlreadyRunning ErrorCode = "already_running"

	// Configuration errors
	ErrInvalidConfig   ErrorCode = "invalid_configuration"
	ErrReadConfig      ErrorCode = "read_config_failed"
	ErrParseFlags      ErrorCode = "parse_flags_failed"
	ErrInvalidInterval ErrorCode = "invalid_interval"
	ErrInvalidCapacity ErrorCode = "invalid_capacity"
	ErrInvalidPort     ErrorCode = "invalid_port"

	// Logging errors
	ErrInvalidLogLevel ErrorCode = "invalid_log_level"

	// Lifecycle errors
	ErrShutdownFailed ErrorCode = "shutdown_failed"

	// Sensor errors
	ErrReadFailure        ErrorCode = "sensor_read_failed"
	ErrCalibrationFailure ErrorCode = "sensor_calibration_failed"

	// Persistence errors
	ErrPersistFailure ErrorCode = "checkpoint_failed"

	// Network errors
	ErrNetworkFailure ErrorCode = "network_failed"
)

// Common error messages
var errorMessages = map[ErrorCode]string{
	ErrInternal:           "Internal error occurred",
	ErrAlreadyRunning:     "Another instance is already running",
	ErrInvalidConfig:      "Invalid configuration",
	ErrReadConfig:         "Failed to read configuration",
	ErrParseFlags:         "Failed to parse command line",
	ErrInvalidInterval:    "Invalid sampling interval",
	ErrInvalidCapacity:    "Invalid sample capacity",
	ErrInvalidPort:        "Invalid port",
	ErrInvalidLogLevel:    "Invalid log level",
	ErrShutdownFailed:     "Shutdown failed",
	ErrReadFailure:        "Failed to read sensor",
	ErrCalibrationFailure: "Failed to read sensor calibration",
	ErrPersistFailure:     "Failed to persist samples",
	ErrNetworkFailure:     "Network operation failed",
}

// GetErrorMessage returns the message for a given error code
func GetErrorMessage(code ErrorCode) string {
	if msg, ok := errorMessages[code]; ok {
		return msg
	}

	return string(code)
}
