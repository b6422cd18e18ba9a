package types

// Shard status values stored in ResultSlot.Status.
const (
	StatusFailure = 0
	StatusSuccess = 1
)

// ResultSlot is the fixed four-field record a worker publishes exactly once.
// Total counts every test of the worker's run, skipped ones included.
type ResultSlot struct {
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
	Status  int `json:"status"`
}

// EmptySlot is the slot of a worker whose shard has no tests.
func EmptySlot() ResultSlot {
	return ResultSlot{Status: StatusSuccess}
}

// OK reports whether the shard succeeded.
func (s ResultSlot) OK() bool {
	return s.Status == StatusSuccess
}

// Valid checks the slot shape: non-negative counters,
// skipped+failed <= total and a known status value.
func (s ResultSlot) Valid() bool {
	if s.Skipped < 0 || s.Failed < 0 || s.Total < 0 {
		return false
	}
	if s.Skipped+s.Failed > s.Total {
		return false
	}
	return s.Status == StatusSuccess || s.Status == StatusFailure
}

// Verdict is the final decision for a whole run.
type Verdict string

const (
	// VerdictSuccess means every shard succeeded and not everything was skipped.
	VerdictSuccess Verdict = "SUCCESS"
	// VerdictFailure covers failed tests, failed shards and all-skipped runs.
	VerdictFailure Verdict = "FAILURE"
)

// AggregateResult is derived once from all slots after every worker exited.
type AggregateResult struct {
	Skipped       int     `json:"skipped"`
	Failed        int     `json:"failed"`
	Total         int     `json:"total"`
	AllOK         bool    `json:"all_ok"`
	AllSkipped    bool    `json:"all_skipped"`
	PercentPassed int     `json:"percent_passed"`
	Verdict       Verdict `json:"verdict"`
	Workers       int     `json:"workers"`
}

// Success reports whether the verdict is SUCCESS.
func (r *AggregateResult) Success() bool {
	return r != nil && r.Verdict == VerdictSuccess
}

// Ran returns the number of tests that were not skipped.
func (r *AggregateResult) Ran() int {
	return r.Total - r.Skipped
}
