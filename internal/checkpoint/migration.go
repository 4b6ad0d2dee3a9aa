package checkpoint

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"codeberg.org/mutker/wwatcher/internal/errors"
	"codeberg.org/mutker/wwatcher/internal/logger"
)

// backupDatabase copies a checkpoint with a foreign schema version next to
// it before the next Save replaces it.
func backupDatabase(ctx context.Context, db *sql.DB, dbPath string, version int, log logger.Logger) (string, error) {
	errFactory := errors.New()

	dir := filepath.Join(filepath.Dir(dbPath), backupDirName)
	if err := os.MkdirAll(dir, defaultDirPerm); err != nil {
		return "", errFactory.WithData(ErrBackupFailed, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_backup_dir",
			Path:  dir,
			Error: err.Error(),
		})
	}

	timestamp := time.Now().UTC().Format("20060102T150405Z")
	base := strings.TrimSuffix(filepath.Base(dbPath), filepath.Ext(dbPath))
	backupPath := filepath.Join(dir, fmt.Sprintf("%s_v%d_%s.db", base, version, timestamp))

	// VACUUM INTO requires no active transaction
	if _, err := db.ExecContext(ctx, "VACUUM INTO ?", backupPath); err != nil {
		return "", errFactory.WithData(ErrBackupFailed, struct {
			Phase string
			Path  string
			Error string
		}{
			Phase: "create_backup",
			Path:  backupPath,
			Error: err.Error(),
		})
	}

	log.Info().
		Str("path", backupPath).
		Int("version", version).
		Msg("Checkpoint backup created")

	return backupPath, nil
}

// validateSchema reports whether db carries the current schema. A foreign
// version is backed up first so that it survives the next Save.
func validateSchema(ctx context.Context, db *sql.DB, dbPath string, log logger.Logger) (bool, error) {
	version, err := schemaVersion(ctx, db)
	if err != nil {
		return false, err
	}

	log.Debug().
		Int("version", version).
		Int("expected", SchemaVersion).
		Msg("Checkpoint schema version")

	if version == SchemaVersion {
		return true, nil
	}

	if version != 0 {
		if _, err := backupDatabase(ctx, db, dbPath, version, log); err != nil {
			return false, err
		}
	}

	return false, nil
}
