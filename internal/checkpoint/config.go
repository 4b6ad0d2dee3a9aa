package checkpoint

import "codeberg.org/mutker/wwatcher/internal/errors"

const (
	// File system permissions and paths
	defaultDirPerm = 0o755
	backupDirName  = "backups"
	tempSuffix     = ".tmp"
)

type Config struct {
	DBPath string
}

func (c Config) Validate() error {
	errFactory := errors.New()

	if c.DBPath == "" {
		return errFactory.New(ErrInvalidDBPath)
	}
	return nil
}
