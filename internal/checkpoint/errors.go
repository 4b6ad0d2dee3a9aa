package checkpoint

import "codeberg.org/mutker/wwatcher/internal/errors"

const (
	// Configuration Errors
	ErrInvalidConfig = errors.ErrInvalidConfig
	ErrInvalidDBPath = errors.ErrorCode("checkpoint_invalid_db_path")

	// Schema Errors
	ErrSchemaInitFailed       = errors.ErrorCode("checkpoint_schema_init_failed")
	ErrSchemaValidationFailed = errors.ErrorCode("checkpoint_schema_validation_failed")
	ErrBackupFailed           = errors.ErrorCode("checkpoint_backup_failed")
	ErrTransactionFailed      = errors.ErrorCode("checkpoint_transaction_failed")

	// Storage Errors
	ErrPersistFailure = errors.ErrPersistFailure
	ErrStorageAccess  = errors.ErrorCode("checkpoint_storage_access_failed")
)
