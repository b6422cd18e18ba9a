package master

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"

	"yqhp/systest/pkg/types"
	"yqhp/systest/pkg/utils"
)

// maxTrackableMs bounds the worker wall time histogram (one week).
const maxTrackableMs = 7 * 24 * 3600 * 1000

// Summary is the machine-readable record of a run.
type Summary struct {
	RunID          string                 `json:"run_id"`
	Started        time.Time              `json:"started"`
	Finished       time.Time              `json:"finished"`
	DurationMs     int64                  `json:"duration_ms"`
	Verdict        types.Verdict          `json:"verdict"`
	Line           string                 `json:"summary"`
	ExitCode       int                    `json:"exit_code"`
	Aggregate      *types.AggregateResult `json:"aggregate"`
	Workers        []WorkerSummary        `json:"workers"`
	WorkerDuration DurationStats          `json:"worker_duration"`
	Errors         []string               `json:"errors,omitempty"`
}

// WorkerSummary describes one worker of the run.
type WorkerSummary struct {
	Index      int               `json:"index"`
	Published  bool              `json:"published"`
	Slot       *types.ResultSlot `json:"slot,omitempty"`
	DurationMs int64             `json:"duration_ms"`
}

// DurationStats are percentiles of the worker wall times in milliseconds.
// They show how unbalanced the static shards were.
type DurationStats struct {
	MinMs  int64   `json:"min_ms"`
	MaxMs  int64   `json:"max_ms"`
	MeanMs float64 `json:"mean_ms"`
	P50Ms  int64   `json:"p50_ms"`
	P90Ms  int64   `json:"p90_ms"`
	P99Ms  int64   `json:"p99_ms"`
}

// NewSummary builds the summary of a run and its orchestration error.
func NewSummary(res *RunResult, err error) *Summary {
	s := &Summary{
		RunID:      res.RunID,
		Started:    res.Started,
		Finished:   res.Finished,
		DurationMs: res.Finished.Sub(res.Started).Milliseconds(),
		Aggregate:  res.Aggregate,
		Line:       SummaryLine(res.Aggregate),
		ExitCode:   ExitCode(res.Aggregate, err),
		Workers:    make([]WorkerSummary, 0, res.Slots.Len()),
	}
	if res.Aggregate != nil {
		s.Verdict = res.Aggregate.Verdict
	}

	for i := 0; i < res.Slots.Len(); i++ {
		w := WorkerSummary{Index: i}
		if i < len(res.Durations) {
			w.DurationMs = res.Durations[i].Milliseconds()
		}
		if slot, ok := res.Slots.Get(i); ok {
			w.Published = true
			w.Slot = &slot
		}
		s.Workers = append(s.Workers, w)
	}
	s.WorkerDuration = durationStats(res.Durations)

	if err != nil {
		if joined, ok := err.(interface{ Unwrap() []error }); ok {
			for _, e := range joined.Unwrap() {
				s.Errors = append(s.Errors, e.Error())
			}
		} else {
			s.Errors = append(s.Errors, err.Error())
		}
	}
	return s
}

func durationStats(durations []time.Duration) DurationStats {
	if len(durations) == 0 {
		return DurationStats{}
	}
	h := hdrhistogram.New(1, maxTrackableMs, 3)
	for _, d := range durations {
		_ = h.RecordValue(min(d.Milliseconds(), maxTrackableMs))
	}
	return DurationStats{
		MinMs:  h.Min(),
		MaxMs:  h.Max(),
		MeanMs: h.Mean(),
		P50Ms:  h.ValueAtQuantile(50),
		P90Ms:  h.ValueAtQuantile(90),
		P99Ms:  h.ValueAtQuantile(99),
	}
}

// WriteFile stores the summary as indented JSON.
func (s *Summary) WriteFile(path string) error {
	data, err := utils.ToJSONPretty(s)
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create summary dir: %w", err)
		}
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
