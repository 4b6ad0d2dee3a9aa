package checkpoint

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/mutker/wwatcher/internal/errors"
	"codeberg.org/mutker/wwatcher/internal/logger"
	"codeberg.org/mutker/wwatcher/internal/store"

	_ "github.com/mattn/go-sqlite3"
)

type repository struct {
	cfg    Config
	logger logger.Logger
	mu     sync.Mutex
}

// New returns a sqlite backed Manager. Nothing is opened until the first
// Load or Save.
func New(cfg Config, log logger.Logger) (Manager, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	return &repository{cfg: cfg, logger: log}, nil
}

func (r *repository) Load(ctx context.Context) []store.Sample {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.cfg.DBPath); err != nil {
		r.logger.Debug().Str("path", r.cfg.DBPath).Msg("No checkpoint found, starting empty")
		return nil
	}

	samples, err := r.load(ctx)
	if err != nil {
		r.logger.Warn().Err(err).Str("path", r.cfg.DBPath).Msg("Ignoring unreadable checkpoint")
		return nil
	}

	r.logger.Info().
		Str("path", r.cfg.DBPath).
		Int("samples", len(samples)).
		Msg("Checkpoint restored")

	return samples
}

func (r *repository) load(ctx context.Context) ([]store.Sample, error) {
	errFactory := errors.New()

	db, err := sql.Open("sqlite3", r.cfg.DBPath)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer db.Close()

	current, err := validateSchema(ctx, db, r.cfg.DBPath, r.logger)
	if err != nil {
		return nil, err
	}
	if !current {
		return nil, errFactory.WithMessage(ErrSchemaValidationFailed, "checkpoint schema version is not current")
	}

	rows, err := db.QueryContext(ctx, selectSamplesSQL)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}
	defer rows.Close()

	var samples []store.Sample
	for rows.Next() {
		var s store.Sample
		if err := rows.Scan(&s.Timestamp, &s.Humidity, &s.Temperature); err != nil {
			return nil, errFactory.Wrap(ErrStorageAccess, err)
		}
		samples = append(samples, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errFactory.Wrap(ErrStorageAccess, err)
	}

	return samples, nil
}

// Save writes samples to a fresh database next to the checkpoint and
// renames it into place, so a crash mid-write leaves the previous
// checkpoint intact.
func (r *repository) Save(ctx context.Context, samples []store.Sample) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	errFactory := errors.New()

	if err := os.MkdirAll(filepath.Dir(r.cfg.DBPath), defaultDirPerm); err != nil {
		return errFactory.Wrap(ErrPersistFailure, err)
	}

	tmpPath := r.cfg.DBPath + tempSuffix
	if err := os.Remove(tmpPath); err != nil && !os.IsNotExist(err) {
		return errFactory.Wrap(ErrPersistFailure, err)
	}

	if err := r.write(ctx, tmpPath, samples); err != nil {
		os.Remove(tmpPath)
		return errFactory.Wrap(ErrPersistFailure, err)
	}

	if err := os.Rename(tmpPath, r.cfg.DBPath); err != nil {
		os.Remove(tmpPath)
		return errFactory.Wrap(ErrPersistFailure, err)
	}

	r.logger.Debug().
		Str("path", r.cfg.DBPath).
		Int("samples", len(samples)).
		Msg("Checkpoint written")

	return nil
}

func (r *repository) write(ctx context.Context, path string, samples []store.Sample) error {
	errFactory := errors.New()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return errFactory.Wrap(ErrStorageAccess, err)
	}
	defer db.Close()

	if err := InitSchema(ctx, db, r.logger); err != nil {
		return err
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				r.logger.Debug().Err(err).Msg("Failed to rollback checkpoint transaction")
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, insertSampleSQL)
	if err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	defer stmt.Close()

	for i, s := range samples {
		if _, err := stmt.ExecContext(ctx, i, s.Timestamp, s.Humidity, s.Temperature); err != nil {
			return errFactory.Wrap(ErrTransactionFailed, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrTransactionFailed, err)
	}
	committed = true

	return nil
}
