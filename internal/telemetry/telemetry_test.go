package telemetry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/amrinderguler/ilo-collector/internal/errors"
	"github.com/amrinderguler/ilo-collector/internal/logger"
	"github.com/amrinderguler/ilo-collector/internal/redfish"
)

func TestMain(m *testing.M) {
	logger.Init(false, true)
	os.Exit(m.Run())
}

func sampleRecord() *redfish.MetricRecord {
	return &redfish.MetricRecord{
		Timestamp: time.Date(2026, 8, 26, 12, 0, 0, 0, time.UTC),
		Source:    "https://ilo.test",
		Metrics: map[string]any{
			"system": map[string]any{"power_state": "On"},
		},
	}
}

func TestNewDocumentShape(t *testing.T) {
	record := sampleRecord()

	document := newDocument("run-1", record)

	assert.Equal(t, "https://ilo.test", document["source"])
	assert.Equal(t, "run-1", document["run_id"])
	assert.Equal(t, record.Timestamp, document["collection_date"])
	assert.Equal(t, false, document["partial"])
	assert.Equal(t, record.Metrics, document["metrics"])
	assert.NotContains(t, document, "failed_resources")
}

func TestNewDocumentCarriesFailedResources(t *testing.T) {
	record := sampleRecord()
	record.Partial = true
	record.Failed = []string{"thermal", "events"}

	document := newDocument("run-1", record)

	assert.Equal(t, true, document["partial"])
	assert.Equal(t, []string{"thermal", "events"}, document["failed_resources"])
}

func TestNewDocumentStampsMissingTimestamp(t *testing.T) {
	record := sampleRecord()
	record.Timestamp = time.Time{}

	document := newDocument("run-1", record)

	collected, ok := document["collection_date"].(time.Time)
	require.True(t, ok)
	assert.False(t, collected.IsZero(), "a record without a timestamp gets one at store time")
}

func TestArchiveWritesOneFilePerRecord(t *testing.T) {
	dir := t.TempDir()

	a, err := newArchive(filepath.Join(dir, "redfish_data"))
	require.NoError(t, err)

	record := sampleRecord()
	require.NoError(t, a.write(record))

	entries, err := os.ReadDir(filepath.Join(dir, "redfish_data"))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	data, err := os.ReadFile(filepath.Join(dir, "redfish_data", entries[0].Name()))
	require.NoError(t, err)

	var decoded redfish.MetricRecord
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, record.Source, decoded.Source)
	assert.True(t, record.Timestamp.Equal(decoded.Timestamp))
}

func TestMonitorModeSinkNeedsNoStore(t *testing.T) {
	sink, err := NewSink(context.Background(), Config{Enabled: false})
	require.NoError(t, err)

	require.NoError(t, sink.Store(context.Background(), sampleRecord()))
	require.NoError(t, sink.Close(context.Background()))
}

func TestConfigValidation(t *testing.T) {
	err := Config{Enabled: true}.Validate()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.ErrMissingConfig))

	err = Config{Enabled: true, URI: "mongodb://localhost:27017"}.Validate()
	require.Error(t, err)

	require.NoError(t, Config{
		Enabled:    true,
		URI:        "mongodb://localhost:27017",
		Database:   "redfish",
		Collection: "telemetry",
	}.Validate())

	require.NoError(t, Config{Enabled: false}.Validate())
}
