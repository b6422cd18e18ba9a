package types

import (
	"fmt"
	"time"
)

// Suite describes the report produced by one worker.
type Suite struct {
	RunID   string    `json:"run_id"`
	Key     ShardKey  `json:"key"`
	Started time.Time `json:"started"`
}

// Name returns the suite name, e.g. "systemtests-3".
func (s Suite) Name() string {
	return fmt.Sprintf("systemtests-%d", s.Key.Index)
}

// Tally counts the outcomes of a worker's run.
type Tally struct {
	Passed  int `json:"passed"`
	Failed  int `json:"failed"`
	Skipped int `json:"skipped"`
	Crashed int `json:"crashed"`
}

// Add counts one result. Unknown outcomes count as crashed.
func (t *Tally) Add(o Outcome) {
	switch o {
	case OutcomePassed:
		t.Passed++
	case OutcomeFailed:
		t.Failed++
	case OutcomeSkipped:
		t.Skipped++
	default:
		t.Crashed++
	}
}

// Total returns the number of counted results.
func (t Tally) Total() int {
	return t.Passed + t.Failed + t.Skipped + t.Crashed
}

// Slot converts the tally into the published four-field record.
// Crashed tests count as failed.
func (t Tally) Slot() ResultSlot {
	slot := ResultSlot{
		Skipped: t.Skipped,
		Failed:  t.Failed + t.Crashed,
		Total:   t.Total(),
		Status:  StatusSuccess,
	}
	if slot.Failed > 0 {
		slot.Status = StatusFailure
	}
	return slot
}
