package collector

import (
	"context"

	"github.com/amrinderguler/ilo-collector/internal/redfish"
)

// SessionSource yields a valid session for the target, re-authenticating as
// needed. Invalidate drops the cached session after the device refuses it.
type SessionSource interface {
	Acquire(ctx context.Context) (*redfish.Session, error)
	Invalidate()
}

// MetricSource collects one record using the given session.
type MetricSource interface {
	Collect(ctx context.Context, session *redfish.Session) (*redfish.MetricRecord, error)
}

// Sink persists one record. Failures are reported, never retried in-cycle.
type Sink interface {
	Store(ctx context.Context, record *redfish.MetricRecord) error
}
