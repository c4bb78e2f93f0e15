package telemetry

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/amrinderguler/ilo-collector/internal/errors"
	"github.com/amrinderguler/ilo-collector/internal/redfish"
)

const (
	archiveDirPerm  = 0o755
	archiveFilePerm = 0o644
)

// archive keeps a local JSON copy of each record alongside the store write.
// Purely a diagnostic aid; failures never block persistence.
type archive struct {
	dir string
}

func newArchive(dir string) (*archive, error) {
	if err := os.MkdirAll(dir, archiveDirPerm); err != nil {
		return nil, errors.New().Wrap(ErrArchiveInit, err)
	}

	return &archive{dir: dir}, nil
}

func (a *archive) write(record *redfish.MetricRecord) error {
	errFactory := errors.New()

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return errFactory.Wrap(ErrArchiveWrite, err)
	}

	name := record.Timestamp.UTC().Format("20060102T150405.000000000Z") + ".json"
	if err := os.WriteFile(filepath.Join(a.dir, name), data, archiveFilePerm); err != nil {
		return errFactory.Wrap(ErrArchiveWrite, err)
	}

	return nil
}
