// Package metrics records execution time, token consumption, and estimated
// cost per specialist call. The recorder is write-only from the evaluation
// core's perspective; the query surface serves dashboards downstream.
package metrics

import (
	"sync"
	"time"

	"github.com/bidpanel/bidpanel/internal/models"
)

// Record is one specialist call's resource accounting.
type Record struct {
	Role       models.Role            `json:"role"`
	Model      string                 `json:"model"`
	DurationMs int64                  `json:"duration_ms"`
	Tokens     int                    `json:"tokens"`
	CostUSD    float64                `json:"cost_usd"`
	Success    bool                   `json:"success"`
	Category   models.FailureCategory `json:"category,omitempty"`
	At         time.Time              `json:"at"`
}

// RoleSummary aggregates all recorded calls for one role.
type RoleSummary struct {
	Role          models.Role `json:"role"`
	Calls         int         `json:"calls"`
	Failures      int         `json:"failures"`
	SuccessRate   float64     `json:"success_rate"`
	AvgDurationMs float64     `json:"avg_duration_ms"`
	P95DurationMs float64     `json:"p95_duration_ms"`
	TotalTokens   int         `json:"total_tokens"`
	TotalCostUSD  float64     `json:"total_cost_usd"`
}

// Summary is the read-only aggregate view across all records.
type Summary struct {
	Calls            int                            `json:"calls"`
	Failures         int                            `json:"failures"`
	SuccessRate      float64                        `json:"success_rate"`
	AvgDurationMs    float64                        `json:"avg_duration_ms"`
	StdDevDurationMs float64                        `json:"stddev_duration_ms"`
	TotalTokens      int                            `json:"total_tokens"`
	TotalCostUSD     float64                        `json:"total_cost_usd"`
	PerRole          map[models.Role]RoleSummary    `json:"per_role"`
	ByCategory       map[models.FailureCategory]int `json:"by_category"`
}

// Recorder accumulates records. Safe for concurrent use.
type Recorder struct {
	mu      sync.Mutex
	records []Record
	now     func() time.Time
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{now: time.Now}
}

// Record appends one call record. A zero At is stamped with the current time.
func (r *Recorder) Record(rec Record) {
	if rec.At.IsZero() {
		rec.At = r.now().UTC()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Records returns a copy of all recorded entries in insertion order.
func (r *Recorder) Records() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Record, len(r.records))
	copy(out, r.records)
	return out
}

// Summarize computes the aggregate view over everything recorded so far.
func (r *Recorder) Summarize() Summary {
	records := r.Records()

	s := Summary{
		PerRole:    make(map[models.Role]RoleSummary),
		ByCategory: make(map[models.FailureCategory]int),
	}
	if len(records) == 0 {
		return s
	}

	durations := make([]float64, 0, len(records))
	perRoleDurations := make(map[models.Role][]float64)

	for _, rec := range records {
		s.Calls++
		s.TotalTokens += rec.Tokens
		s.TotalCostUSD += rec.CostUSD
		durations = append(durations, float64(rec.DurationMs))

		rs := s.PerRole[rec.Role]
		rs.Role = rec.Role
		rs.Calls++
		rs.TotalTokens += rec.Tokens
		rs.TotalCostUSD += rec.CostUSD
		perRoleDurations[rec.Role] = append(perRoleDurations[rec.Role], float64(rec.DurationMs))

		if !rec.Success {
			s.Failures++
			rs.Failures++
			if rec.Category != "" {
				s.ByCategory[rec.Category]++
			}
		}
		s.PerRole[rec.Role] = rs
	}

	s.SuccessRate = float64(s.Calls-s.Failures) / float64(s.Calls)
	s.AvgDurationMs = Mean(durations)
	s.StdDevDurationMs = StdDev(durations)

	for role, rs := range s.PerRole {
		d := perRoleDurations[role]
		rs.SuccessRate = float64(rs.Calls-rs.Failures) / float64(rs.Calls)
		rs.AvgDurationMs = Mean(d)
		rs.P95DurationMs = Percentile(d, 95)
		s.PerRole[role] = rs
	}

	return s
}
