package collector

import (
	"context"
	"time"

	"github.com/amrinderguler/ilo-collector/internal/errors"
	"github.com/amrinderguler/ilo-collector/internal/logger"
	"github.com/amrinderguler/ilo-collector/internal/redfish"
)

// Collector drives the poll-fetch-persist loop for one target. One Collector
// per target; sessions are never shared across loops.
type Collector struct {
	sessions SessionSource
	source   MetricSource
	sink     Sink
	interval time.Duration
	state    State
}

func New(sessions SessionSource, source MetricSource, sink Sink, interval time.Duration) (*Collector, error) {
	if interval <= 0 {
		return nil, errors.New().WithMessage(errors.ErrInvalidArgument, "collection interval must be positive")
	}

	return &Collector{
		sessions: sessions,
		source:   source,
		sink:     sink,
		interval: interval,
		state:    StateIdle,
	}, nil
}

// Run executes cycles until the context is cancelled. It returns nil on
// clean shutdown and an error only for failures that will not self-correct,
// which for this loop means rejected credentials.
func (c *Collector) Run(ctx context.Context) error {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	logger.Info().Dur("interval", c.interval).Msg("Collector started")

	// First cycle runs immediately; the ticker paces the rest.
	if err := c.cycle(ctx); err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			c.transition(StateIdle)
			logger.Info().Msg("Collector stopped")
			return nil
		case <-ticker.C:
			if err := c.cycle(ctx); err != nil {
				return err
			}
		}
	}
}

// cycle runs one pass of the state machine. A non-nil return halts the loop;
// everything transient is logged and absorbed so the next tick still fires.
func (c *Collector) cycle(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}

	c.transition(StateIdle)

	// A cycle must never outlive its own scheduling period.
	ctx, cancel := context.WithTimeout(ctx, c.interval)
	defer cancel()

	started := time.Now()

	c.transition(StateAuthenticating)
	session, err := c.sessions.Acquire(ctx)
	if err != nil {
		if redfish.IsAuthRejected(err) {
			return err
		}
		c.skip(err, started)
		return nil
	}

	c.transition(StateCollecting)
	record, err := c.source.Collect(ctx, session)
	if err != nil && redfish.IsSessionExpired(err) {
		// The device stopped honoring the session mid-cycle. Re-login and
		// retry exactly once; a second refusal costs this cycle only.
		c.sessions.Invalidate()

		c.transition(StateAuthenticating)
		session, err = c.sessions.Acquire(ctx)
		if err != nil {
			if redfish.IsAuthRejected(err) {
				return err
			}
			c.skip(err, started)
			return nil
		}

		c.transition(StateCollecting)
		record, err = c.source.Collect(ctx, session)
	}

	if err != nil {
		if !redfish.IsPartial(err) {
			c.skip(err, started)
			return nil
		}
		logger.Warn().
			Err(err).
			Msg("Cycle completed with partial telemetry")
	}

	c.transition(StatePersisting)
	if err := c.sink.Store(ctx, record); err != nil {
		logger.Error().
			Err(err).
			Msg("Failed to persist record, sample dropped")
	} else {
		logger.Info().
			Time("collected_at", record.Timestamp).
			Bool("partial", record.Partial).
			Dur("elapsed", time.Since(started)).
			Msg("Cycle complete")
	}

	c.transition(StateSleeping)

	return nil
}

func (c *Collector) skip(err error, started time.Time) {
	logger.Warn().
		Err(err).
		Dur("elapsed", time.Since(started)).
		Msg("Cycle skipped, retrying at next tick")
	c.transition(StateSleeping)
}

func (c *Collector) transition(next State) {
	if next == c.state {
		return
	}
	logger.Debug().
		Str("from", c.state.String()).
		Str("to", next.String()).
		Msg("State transition")
	c.state = next
}
