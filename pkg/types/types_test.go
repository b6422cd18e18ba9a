package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShardKey(t *testing.T) {
	assert.NoError(t, ShardKey{Index: 0, Count: 1}.Validate())
	assert.NoError(t, ShardKey{Index: 3, Count: 4}.Validate())
	assert.Error(t, ShardKey{Index: 4, Count: 4}.Validate())
	assert.Error(t, ShardKey{Index: -1, Count: 4}.Validate())
	assert.Error(t, ShardKey{Index: 0, Count: 0}.Validate())
	assert.Equal(t, "2/5", ShardKey{Index: 2, Count: 5}.String())
}

func TestFilters(t *testing.T) {
	tc := TestCase{Name: "SANSReductionTest", ExcludeInPR: true}

	assert.True(t, Filters{}.Selected(tc))
	assert.True(t, Filters{Include: "SANS"}.Selected(tc))
	assert.False(t, Filters{Include: "ISIS"}.Selected(tc))
	assert.False(t, Filters{Exclude: "Reduction"}.Selected(tc))
	assert.False(t, Filters{Include: "SANS", Exclude: "Test"}.Selected(tc))

	assert.False(t, Filters{}.PRExcluded(tc))
	assert.True(t, Filters{ExcludeInPR: true}.PRExcluded(tc))
	assert.False(t, Filters{ExcludeInPR: true}.PRExcluded(TestCase{Name: "x"}))
}

func TestTallySlot(t *testing.T) {
	var tally Tally
	for _, o := range []Outcome{OutcomePassed, OutcomePassed, OutcomeSkipped, OutcomeFailed, OutcomeCrashed, Outcome("weird")} {
		tally.Add(o)
	}
	assert.Equal(t, Tally{Passed: 2, Skipped: 1, Failed: 1, Crashed: 2}, tally)
	assert.Equal(t, 6, tally.Total())

	slot := tally.Slot()
	assert.Equal(t, ResultSlot{Skipped: 1, Failed: 3, Total: 6, Status: StatusFailure}, slot)
	assert.True(t, slot.Valid())
	assert.False(t, slot.OK())

	assert.Equal(t, EmptySlot(), Tally{}.Slot())
	assert.Equal(t, ResultSlot{Skipped: 2, Total: 2, Status: StatusSuccess}, Tally{Skipped: 2}.Slot())
}

func TestResultSlotValid(t *testing.T) {
	assert.True(t, EmptySlot().Valid())
	assert.True(t, EmptySlot().OK())
	assert.False(t, ResultSlot{Total: 1, Skipped: 1, Failed: 1}.Valid())
	assert.False(t, ResultSlot{Total: -1}.Valid())
	assert.False(t, ResultSlot{Status: 2}.Valid())
}

func TestCaseResult(t *testing.T) {
	r := NewCaseResult("A")
	assert.Equal(t, OutcomePassed, r.Outcome)
	assert.False(t, r.Outcome.CountsAsFailure())

	r.Crash("boom")
	assert.True(t, r.Outcome.CountsAsFailure())
	assert.Equal(t, "boom", r.Message)

	assert.False(t, NewCaseResult("B").Skip("x").Outcome.CountsAsFailure())
	assert.True(t, NewCaseResult("C").Fail("x").Outcome.CountsAsFailure())
}

func TestAggregateResult(t *testing.T) {
	var nilResult *AggregateResult
	assert.False(t, nilResult.Success())

	r := &AggregateResult{Total: 10, Skipped: 3, Verdict: VerdictSuccess}
	assert.True(t, r.Success())
	assert.Equal(t, 7, r.Ran())
}

func TestSuiteName(t *testing.T) {
	assert.Equal(t, "systemtests-3", Suite{Key: ShardKey{Index: 3, Count: 4}}.Name())
}
