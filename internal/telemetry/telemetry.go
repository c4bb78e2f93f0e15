package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/amrinderguler/ilo-collector/internal/errors"
	"github.com/amrinderguler/ilo-collector/internal/logger"
	"github.com/amrinderguler/ilo-collector/internal/redfish"
)

type service struct {
	repo    Repository
	archive *archive
	runID   string
}

// NewSink builds the persistence sink. In monitor mode (cfg.Enabled false)
// it returns a no-op sink so the loop runs without a store.
func NewSink(ctx context.Context, cfg Config) (Sink, error) {
	errFactory := errors.New()

	if err := cfg.Validate(); err != nil {
		return nil, errFactory.Wrap(ErrInvalidConfig, err)
	}

	if !cfg.Enabled {
		logger.Debug().Msg("Persistence disabled, using no-op sink")
		return &noopSink{}, nil
	}

	repo, err := NewRepository(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &service{
		repo:  repo,
		runID: uuid.NewString(),
	}

	if cfg.ArchiveDir != "" {
		s.archive, err = newArchive(cfg.ArchiveDir)
		if err != nil {
			return nil, err
		}
		logger.Debug().Str("dir", cfg.ArchiveDir).Msg("Local record archive enabled")
	}

	logger.Debug().
		Str("database", cfg.Database).
		Str("collection", cfg.Collection).
		Str("run_id", s.runID).
		Msg("Persistence sink initialized")

	return s, nil
}

func (s *service) Store(ctx context.Context, record *redfish.MetricRecord) error {
	errFactory := errors.New()

	if record == nil {
		return errFactory.New(ErrInvalidRecord)
	}

	// The archive is written first so a store outage still leaves a local
	// trace of the sample.
	if s.archive != nil {
		if err := s.archive.write(record); err != nil {
			logger.Warn().Err(err).Msg("Failed to archive record locally")
		}
	}

	id, err := s.repo.Insert(ctx, newDocument(s.runID, record))
	if err != nil {
		return err
	}

	logger.Debug().
		Str("document_id", id).
		Time("collection_date", record.Timestamp).
		Msg("Record persisted")

	return nil
}

func (s *service) Close(ctx context.Context) error {
	return s.repo.Close(ctx)
}

// newDocument shapes the stored form of a record. The collection timestamp
// is stamped here when the record carries none.
func newDocument(runID string, record *redfish.MetricRecord) bson.M {
	collected := record.Timestamp
	if collected.IsZero() {
		collected = time.Now().UTC()
	}

	document := bson.M{
		"source":          record.Source,
		"run_id":          runID,
		"collection_date": collected,
		"partial":         record.Partial,
		"metrics":         record.Metrics,
	}
	if len(record.Failed) > 0 {
		document["failed_resources"] = record.Failed
	}

	return document
}

// noopSink serves monitor mode.
type noopSink struct{}

func (*noopSink) Store(_ context.Context, record *redfish.MetricRecord) error {
	if record != nil {
		logger.Info().
			Time("collection_date", record.Timestamp).
			Bool("partial", record.Partial).
			Interface("metrics", record.Metrics).
			Msg("Monitor mode, record not persisted")
	}

	return nil
}

func (*noopSink) Close(context.Context) error {
	return nil
}
