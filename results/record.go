// Package results persists finished runs: a SQLite record store for
// queries and aggregation, CSV append-export for spreadsheets, and
// zstd-compressed JSONL step traces for replay.
package results

import "time"

// OutcomeCancelled marks a run interrupted before reaching a terminal
// simulation status.
const OutcomeCancelled = "cancelled"

// RunRecord is one finished run as stored by the results layer. Scenario is
// empty for generated worlds; Seed is zero for scenario worlds.
type RunRecord struct {
	RunID           string    `json:"run_id"`
	Scenario        string    `json:"scenario,omitempty"`
	Policy          string    `json:"policy"`
	Seed            int64     `json:"seed,omitempty"`
	Score           int       `json:"score"`
	Steps           int       `json:"steps"`
	Deliveries      int       `json:"deliveries"`
	TotalDeliveries int       `json:"total_deliveries"`
	Outcome         string    `json:"outcome"`
	CreatedAt       time.Time `json:"created_at"`
}
