package telemetry

import "github.com/amrinderguler/ilo-collector/internal/errors"

type Config struct {
	URI        string
	Database   string
	Collection string

	// Optional directory for a local JSON copy of every record.
	ArchiveDir string

	// Disabled in monitor mode: records are logged, never persisted.
	Enabled bool
}

func (c Config) Validate() error {
	errFactory := errors.New()
	if !c.Enabled {
		return nil
	}
	if c.URI == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "store connection string is required")
	}
	if c.Database == "" || c.Collection == "" {
		return errFactory.WithMessage(errors.ErrMissingConfig, "store database and collection are required")
	}

	return nil
}
