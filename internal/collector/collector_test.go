package collector

import (
	"context"
	"os"
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

var errFactory = apperrors.New()

type fakeSessions struct {
	errs        []error
	acquired    int
	invalidated int
}

func (f *fakeSessions) Acquire(context.Context) (*redfish.Session, error) {
	idx := f.acquired
	f.acquired++
	if idx < len(f.errs) && f.errs[idx] != nil {
		return nil, f.errs[idx]
	}

	return &redfish.Session{}, nil
}

func (f *fakeSessions) Invalidate() {
	f.invalidated++
}

type collectFunc func() (*redfish.MetricRecord, error)

type fakeSource struct {
	script []collectFunc
	calls  int
}

func (f *fakeSource) Collect(context.Context, *redfish.Session) (*redfish.MetricRecord, error) {
	idx := f.calls
	f.calls++
	if idx >= len(f.script) {
		idx = len(f.script) - 1
	}

	return f.script[idx]()
}

type fakeSink struct {
	stored []*redfish.MetricRecord
	err    error
}

func (f *fakeSink) Store(_ context.Context, record *redfish.MetricRecord) error {
	if f.err != nil {
		return f.err
	}
	f.stored = append(f.stored, record)

	return nil
}

func goodRecord() (*redfish.MetricRecord, error) {
	return &redfish.MetricRecord{
		Timestamp: time.Now().UTC(),
		Source:    "https://ilo.test",
		Metrics:   map[string]any{"system": map[string]any{"power_state": "On"}},
	}, nil
}

func TestNewRejectsInvalidInterval(t *testing.T) {
	_, err := New(&fakeSessions{}, &fakeSource{}, &fakeSink{}, 0)
	require.Error(t, err)
}

func TestAuthRejectionAtStartupIsFatalBeforeAnyRead(t *testing.T) {
	sessions := &fakeSessions{errs: []error{errFactory.New(redfish.ErrAuthRejected)}}
	source := &fakeSource{script: []collectFunc{goodRecord}}
	sink := &fakeSink{}

	c, err := New(sessions, source, sink, time.Minute)
	require.NoError(t, err)

	err = c.Run(context.Background())
	require.Error(t, err)
	assert.True(t, redfish.IsAuthRejected(err), "expected auth rejection to surface")
	assert.Zero(t, source.calls, "no metric read may happen after rejected credentials")
	assert.Empty(t, sink.stored)
}

func TestExpiredSessionRetriesExactlyOnce(t *testing.T) {
	sessions := &fakeSessions{}
	source := &fakeSource{script: []collectFunc{
		func() (*redfish.MetricRecord, error) {
			return nil, errFactory.New(redfish.ErrSessionExpired)
		},
		goodRecord,
	}}
	sink := &fakeSink{}

	c, err := New(sessions, source, sink, time.Minute)
	require.NoError(t, err)

	require.NoError(t, c.cycle(context.Background()))
	assert.Equal(t, 1, sessions.invalidated)
	assert.Equal(t, 2, sessions.acquired)
	assert.Equal(t, 2, source.calls)
	assert.Len(t, sink.stored, 1)
}

func TestSecondRefusalGivesUpOnCycleOnly(t *testing.T) {
	expired := func() (*redfish.MetricRecord, error) {
		return nil, errFactory.New(redfish.ErrSessionExpired)
	}
	sessions := &fakeSessions{}
	source := &fakeSource{script: []collectFunc{expired, expired}}
	sink := &fakeSink{}

	c, err := New(sessions, source, sink, time.Minute)
	require.NoError(t, err)

	require.NoError(t, c.cycle(context.Background()), "a refused retry costs the cycle, not the process")
	assert.Equal(t, 2, source.calls, "exactly one retry per cycle")
	assert.Equal(t, 1, sessions.invalidated)
	assert.Empty(t, sink.stored)
}

func TestReLoginRejectionIsFatal(t *testing.T) {
	sessions := &fakeSessions{errs: []error{nil, errFactory.New(redfish.ErrAuthRejected)}}
	source := &fakeSource{script: []collectFunc{
		func() (*redfish.MetricRecord, error) {
			return nil, errFactory.New(redfish.ErrSessionExpired)
		},
	}}

	c, err := New(sessions, source, &fakeSink{}, time.Minute)
	require.NoError(t, err)

	err = c.cycle(context.Background())
	require.Error(t, err)
	assert.True(t, redfish.IsAuthRejected(err))
}

func TestTransientFailureSkipsCycle(t *testing.T) {
	sessions := &fakeSessions{}
	source := &fakeSource{script: []collectFunc{
		func() (*redfish.MetricRecord, error) {
			return nil, errFactory.New(redfish.ErrUnreachable)
		},
	}}
	sink := &fakeSink{}

	c, err := New(sessions, source, sink, time.Minute)
	require.NoError(t, err)

	require.NoError(t, c.cycle(context.Background()))
	assert.Equal(t, 1, source.calls, "no in-cycle retry for transient failures")
	assert.Empty(t, sink.stored)
}

func TestPartialRecordIsStillPersisted(t *testing.T) {
	sessions := &fakeSessions{}
	source := &fakeSource{script: []collectFunc{
		func() (*redfish.MetricRecord, error) {
			record := &redfish.MetricRecord{
				Timestamp: time.Now().UTC(),
				Partial:   true,
				Failed:    []string{"thermal"},
				Metrics:   map[string]any{"system": map[string]any{}},
			}

			return record, errFactory.WithData(redfish.ErrPartialCollection, record.Failed)
		},
	}}
	sink := &fakeSink{}

	c, err := New(sessions, source, sink, time.Minute)
	require.NoError(t, err)

	require.NoError(t, c.cycle(context.Background()))
	require.Len(t, sink.stored, 1)
	assert.True(t, sink.stored[0].Partial)
}

func TestStateMachineSleepsBetweenCyclesAndIdlesOnShutdown(t *testing.T) {
	sessions := &fakeSessions{}
	source := &fakeSource{script: []collectFunc{goodRecord}}

	c, err := New(sessions, source, &fakeSink{}, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, StateIdle, c.state)

	require.NoError(t, c.cycle(context.Background()))
	assert.Equal(t, StateSleeping, c.state)

	// The next cycle re-enters through Idle, not straight into
	// Authenticating.
	require.NoError(t, c.cycle(context.Background()))
	assert.Equal(t, StateSleeping, c.state)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, c.Run(ctx))
	assert.Equal(t, StateIdle, c.state, "shutdown returns the machine to idle")
}

func TestStoreFailureDoesNotStopNextCycle(t *testing.T) {
	sessions := &fakeSessions{}
	source := &fakeSource{script: []collectFunc{goodRecord}}
	sink := &fakeSink{err: errFactory.New(apperrors.ErrOperationFailed)}

	c, err := New(sessions, source, sink, time.Minute)
	require.NoError(t, err)

	require.NoError(t, c.cycle(context.Background()))
	require.NoError(t, c.cycle(context.Background()))
	assert.Equal(t, 2, source.calls, "the loop keeps collecting after a write failure")
}

func TestRunSkipsFailedCycleAndResumesWithOrderedTimestamps(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sessions := &fakeSessions{}
	sink := &fakeSink{}
	source := &fakeSource{}
	source.script = []collectFunc{
		goodRecord,
		func() (*redfish.MetricRecord, error) {
			return nil, errFactory.New(redfish.ErrUnreachable)
		},
		func() (*redfish.MetricRecord, error) {
			defer cancel()
			return goodRecord()
		},
	}

	c, err := New(sessions, source, sink, 5*time.Millisecond)
	require.NoError(t, err)

	require.NoError(t, c.Run(ctx))
	require.Len(t, sink.stored, 2, "the timed-out cycle produces no document")
	assert.False(t, sink.stored[1].Timestamp.Before(sink.stored[0].Timestamp),
		"collection timestamps must be non-decreasing")
}
