package redfish

import (
	"context"
	"time"

	"github.com/stmcginnis/gofish/common"

	"github.com/amrinderguler/ilo-collector/internal/errors"
	"github.com/amrinderguler/ilo-collector/internal/logger"
)

// eventLogLimit bounds how many event log entries a record carries. The iLO
// event log grows unbounded; dashboards only care about the recent tail.
const eventLogLimit = 10

// iLO exposes its own event log under the manager resource. The path is
// vendor-specific which is why it is read raw instead of through typed
// resources.
const eventLogPath = "/LogServices/IEL/Entries"

// Fetcher reads the fixed resource set from an authenticated session and
// normalizes it into a MetricRecord.
type Fetcher struct {
	cfg Config
}

func NewFetcher(cfg Config) *Fetcher {
	return &Fetcher{cfg: cfg}
}

// Collect issues the per-cycle reads. An authorization refusal aborts the
// collection immediately so the caller can re-authenticate; any other
// per-resource failure degrades the record instead of discarding the cycle.
func (f *Fetcher) Collect(ctx context.Context, session *Session) (*MetricRecord, error) {
	errFactory := errors.New()

	record := &MetricRecord{
		Timestamp: time.Now().UTC(),
		Source:    f.cfg.Endpoint(),
		Metrics:   map[string]any{},
	}

	resources := []struct {
		name string
		read func(context.Context, *Session) (any, error)
	}{
		{"system", f.readSystem},
		{"thermal", f.readThermal},
		{"power", f.readPower},
		{"manager", f.readManager},
		{"events", f.readEventLog},
	}

	for _, resource := range resources {
		if err := ctx.Err(); err != nil {
			return nil, errFactory.Wrap(ErrUnreachable, err)
		}

		value, err := resource.read(ctx, session)
		if err != nil {
			if IsSessionExpired(err) || IsAuthRejected(err) {
				return nil, err
			}
			logger.Warn().
				Str("resource", resource.name).
				Err(err).
				Msg("Resource read failed, continuing cycle")
			record.Failed = append(record.Failed, resource.name)
			continue
		}
		record.Metrics[resource.name] = value
	}

	if len(record.Metrics) == 0 {
		return nil, errFactory.WithData(ErrNoData, record.Failed)
	}
	if len(record.Failed) > 0 {
		record.Partial = true
		return record, errFactory.WithData(ErrPartialCollection, record.Failed)
	}

	return record, nil
}

func (f *Fetcher) readSystem(_ context.Context, session *Session) (any, error) {
	errFactory := errors.New()

	systems, err := session.Service().Systems()
	if err != nil {
		return nil, wrapRead("system", err)
	}
	if len(systems) == 0 {
		return nil, errFactory.WithMessage(ErrResourceRead, "device exposes no computer systems")
	}

	system := systems[0]

	return map[string]any{
		"hostname":        system.HostName,
		"manufacturer":    system.Manufacturer,
		"model":           system.Model,
		"serial_number":   system.SerialNumber,
		"bios_version":    system.BIOSVersion,
		"power_state":     string(system.PowerState),
		"health":          statusFields(system.Status),
		"memory_gib":      float64(system.MemorySummary.TotalSystemMemoryGiB),
		"memory_health":   statusFields(system.MemorySummary.Status),
		"processor_count": system.ProcessorSummary.Count,
		"processor_model": system.ProcessorSummary.Model,
	}, nil
}

func (f *Fetcher) readThermal(_ context.Context, session *Session) (any, error) {
	chassis, err := session.Service().Chassis()
	if err != nil {
		return nil, wrapRead("thermal", err)
	}

	temperatures := []map[string]any{}
	fans := []map[string]any{}
	for _, enclosure := range chassis {
		thermal, err := enclosure.Thermal()
		if err != nil {
			return nil, wrapRead("thermal", err)
		}
		if thermal == nil {
			continue
		}

		for _, sensor := range thermal.Temperatures {
			temperatures = append(temperatures, map[string]any{
				"name":            sensor.Name,
				"reading_celsius": float64(sensor.ReadingCelsius),
				"health":          statusFields(sensor.Status),
			})
		}
		for _, fan := range thermal.Fans {
			fans = append(fans, map[string]any{
				"name":    fan.Name,
				"reading": float64(fan.Reading),
				"units":   string(fan.ReadingUnits),
				"health":  statusFields(fan.Status),
			})
		}
	}

	return map[string]any{
		"temperatures": temperatures,
		"fans":         fans,
	}, nil
}

func (f *Fetcher) readPower(_ context.Context, session *Session) (any, error) {
	chassis, err := session.Service().Chassis()
	if err != nil {
		return nil, wrapRead("power", err)
	}

	controls := []map[string]any{}
	supplies := []map[string]any{}
	for _, enclosure := range chassis {
		power, err := enclosure.Power()
		if err != nil {
			return nil, wrapRead("power", err)
		}
		if power == nil {
			continue
		}

		for _, control := range power.PowerControl {
			controls = append(controls, map[string]any{
				"name":           control.Name,
				"consumed_watts": float64(control.PowerConsumedWatts),
				"capacity_watts": float64(control.PowerCapacityWatts),
			})
		}
		for _, supply := range power.PowerSupplies {
			supplies = append(supplies, map[string]any{
				"name":   supply.Name,
				"model":  supply.Model,
				"health": statusFields(supply.Status),
			})
		}
	}

	return map[string]any{
		"controls": controls,
		"supplies": supplies,
	}, nil
}

func (f *Fetcher) readManager(_ context.Context, session *Session) (any, error) {
	errFactory := errors.New()

	managers, err := session.Service().Managers()
	if err != nil {
		return nil, wrapRead("manager", err)
	}
	if len(managers) == 0 {
		return nil, errFactory.WithMessage(ErrResourceRead, "device exposes no managers")
	}

	manager := managers[0]

	return map[string]any{
		"firmware_version": manager.FirmwareVersion,
		"manager_type":     string(manager.ManagerType),
		"uuid":             manager.UUID,
		"health":           statusFields(manager.Status),
	}, nil
}

func (f *Fetcher) readEventLog(_ context.Context, session *Session) (any, error) {
	errFactory := errors.New()

	managers, err := session.Service().Managers()
	if err != nil {
		return nil, wrapRead("events", err)
	}
	if len(managers) == 0 {
		return nil, errFactory.WithMessage(ErrResourceRead, "device exposes no managers")
	}

	payload, err := session.Get(managers[0].ODataID + eventLogPath)
	if err != nil {
		return nil, wrapRead("events", err)
	}

	return eventEntries(payload, eventLogLimit), nil
}

func statusFields(status common.Status) map[string]any {
	return map[string]any{
		"state":  string(status.State),
		"health": string(status.Health),
	}
}

func wrapRead(resource string, err error) error {
	return errors.New().Wrap(classify(err), err).WithData(resource)
}
