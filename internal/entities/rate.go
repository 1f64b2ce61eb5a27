package entities

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// PairKey builds the snapshot key for an ordered currency pair, e.g. "BTC_USD".
func PairKey(from, to string) string {
	return from + "_" + to
}

func SplitPairKey(key string) (from, to string) {
	parts := strings.SplitN(key, "_", 2)
	if len(parts) != 2 {
		return key, ""
	}
	return parts[0], parts[1]
}

// ProviderMeta is the observability payload every provider must report
// alongside a rate: request latency and raw response status are mandatory.
type ProviderMeta struct {
	RawID        string `json:"raw_id"`
	RequestMS    int64  `json:"request_ms"`
	StatusCode   int    `json:"status_code"`
	ETag         string `json:"etag,omitempty"`
	UsedFallback bool   `json:"used_fallback"`
}

// RateInfo is one normalized provider observation for a pair.
type RateInfo struct {
	Rate   float64      `json:"rate"`
	Source string       `json:"source"`
	Meta   ProviderMeta `json:"meta"`
}

type SnapshotEntry struct {
	Rate      float64   `json:"rate"`
	UpdatedAt time.Time `json:"updated_at"`
	Source    string    `json:"source"`
}

// Snapshot is the current-rate document: one entry per pair plus top-level
// refresh metadata. It marshals to the flat on-disk layout
// {"BTC_USD": {...}, ..., "last_refresh": ..., "source": ...}.
type Snapshot struct {
	Pairs       map[string]SnapshotEntry
	LastRefresh time.Time
	Source      string
}

func NewSnapshot() Snapshot {
	return Snapshot{Pairs: make(map[string]SnapshotEntry)}
}

func (s Snapshot) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(s.Pairs)+2)
	for key, entry := range s.Pairs {
		doc[key] = entry
	}
	doc["last_refresh"] = s.LastRefresh
	doc["source"] = s.Source
	return json.Marshal(doc)
}

func (s *Snapshot) UnmarshalJSON(data []byte) error {
	raw := make(map[string]json.RawMessage)
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	s.Pairs = make(map[string]SnapshotEntry, len(raw))
	for key, value := range raw {
		switch key {
		case "last_refresh":
			if err := json.Unmarshal(value, &s.LastRefresh); err != nil {
				return err
			}
		case "source":
			if err := json.Unmarshal(value, &s.Source); err != nil {
				return err
			}
		default:
			var entry SnapshotEntry
			if err := json.Unmarshal(value, &entry); err != nil {
				return err
			}
			s.Pairs[key] = entry
		}
	}

	return nil
}

// HistoryEntry is one immutable audit record; id is unique per (pair, cycle).
type HistoryEntry struct {
	ID           string       `json:"id"`
	FromCurrency string       `json:"from_currency"`
	ToCurrency   string       `json:"to_currency"`
	Rate         float64      `json:"rate"`
	Timestamp    time.Time    `json:"timestamp"`
	Source       string       `json:"source"`
	Meta         ProviderMeta `json:"meta"`
}

func HistoryID(from, to string, at time.Time) string {
	return fmt.Sprintf("%s_%s_%s", from, to, at.UTC().Format(time.RFC3339Nano))
}

// UpdateReport is the transient outcome of one aggregation cycle. A non-empty
// Errors list alongside a non-zero TotalRates is a partial success, not a
// failure.
type UpdateReport struct {
	TotalRates  int       `json:"total_rates"`
	LastRefresh time.Time `json:"last_refresh"`
	Errors      []string  `json:"errors"`
}
