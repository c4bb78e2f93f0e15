package redfish

import (
	"time"

	"github.com/amrinderguler/ilo-collector/internal/logger"
)

// MetricRecord is one normalized telemetry snapshot. Built once per cycle by
// the Fetcher and immutable afterwards; the sink's copy is the durable one.
type MetricRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Source    string         `json:"source"`
	Partial   bool           `json:"partial"`
	Failed    []string       `json:"failed_resources,omitempty"`
	Metrics   map[string]any `json:"metrics"`
}

// Device payloads vary by model and firmware, so field access never assumes
// presence or type. A missing field is omitted; a present field of the wrong
// type is dropped with a warning.

func stringField(payload map[string]any, key string) (string, bool) {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return "", false
	}
	value, ok := raw.(string)
	if !ok {
		warnFieldType(key, raw)
		return "", false
	}

	return value, true
}

func numberField(payload map[string]any, key string) (float64, bool) {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return 0, false
	}
	switch value := raw.(type) {
	case float64:
		return value, true
	case float32:
		return float64(value), true
	case int:
		return float64(value), true
	case int64:
		return float64(value), true
	default:
		warnFieldType(key, raw)
		return 0, false
	}
}

func mapField(payload map[string]any, key string) (map[string]any, bool) {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return nil, false
	}
	value, ok := raw.(map[string]any)
	if !ok {
		warnFieldType(key, raw)
		return nil, false
	}

	return value, true
}

func sliceField(payload map[string]any, key string) ([]any, bool) {
	raw, ok := payload[key]
	if !ok || raw == nil {
		return nil, false
	}
	value, ok := raw.([]any)
	if !ok {
		warnFieldType(key, raw)
		return nil, false
	}

	return value, true
}

func warnFieldType(key string, raw any) {
	logger.Warn().
		Str("field", key).
		Interface("value", raw).
		Msg("Unexpected field type in device payload, dropping field")
}

// eventEntries extracts the newest entries from a Redfish log collection
// payload. Entries that are not objects are skipped; fields inside an entry
// are all optional.
func eventEntries(payload map[string]any, limit int) []map[string]any {
	members, ok := sliceField(payload, "Members")
	if !ok {
		return nil
	}

	// Members are ordered oldest first on iLO; take from the tail.
	start := 0
	if len(members) > limit {
		start = len(members) - limit
	}

	entries := make([]map[string]any, 0, len(members)-start)
	for _, raw := range members[start:] {
		member, ok := raw.(map[string]any)
		if !ok {
			continue
		}

		entry := map[string]any{}
		if severity, ok := stringField(member, "Severity"); ok {
			entry["severity"] = severity
		}
		if message, ok := stringField(member, "Message"); ok {
			entry["message"] = message
		}
		if created, ok := stringField(member, "Created"); ok {
			entry["created"] = created
		}
		if len(entry) == 0 {
			continue
		}
		entries = append(entries, entry)
	}

	return entries
}
