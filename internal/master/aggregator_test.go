package master

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"yqhp/systest/pkg/types"
)

func ok(total, failed, skipped int) types.ResultSlot {
	s := types.ResultSlot{Total: total, Failed: failed, Skipped: skipped, Status: types.StatusSuccess}
	if failed > 0 {
		s.Status = types.StatusFailure
	}
	return s
}

func TestAggregateOneFailureOutOfTen(t *testing.T) {
	res := Aggregate([]types.ResultSlot{ok(5, 0, 0), ok(5, 1, 0)})

	assert.Equal(t, 10, res.Total)
	assert.Equal(t, 1, res.Failed)
	assert.Equal(t, 0, res.Skipped)
	assert.False(t, res.AllOK)
	assert.Equal(t, types.VerdictFailure, res.Verdict)
	assert.Equal(t, 90, res.PercentPassed)
	assert.Equal(t, "90% tests passed, 1 tests failed out of 10 (0 skipped)", SummaryLine(res))
	assert.Equal(t, 1, ExitCode(res, nil))
}

func TestAggregateAllSkipped(t *testing.T) {
	slots := []types.ResultSlot{ok(1, 0, 1), ok(1, 0, 1), ok(1, 0, 1), ok(1, 0, 1)}
	res := Aggregate(slots)

	assert.Equal(t, 4, res.Skipped)
	assert.Equal(t, 4, res.Total)
	assert.True(t, res.AllOK)
	assert.True(t, res.AllSkipped)
	assert.Equal(t, types.VerdictFailure, res.Verdict)
	assert.Equal(t, "All tests were skipped", SummaryLine(res))
	assert.Equal(t, 1, ExitCode(res, nil))
}

func TestAggregateEmptyCorpus(t *testing.T) {
	res := Aggregate([]types.ResultSlot{types.EmptySlot()})

	assert.Equal(t, 0, res.Total)
	assert.True(t, res.AllSkipped)
	assert.Equal(t, 0, res.PercentPassed)
	assert.Equal(t, types.VerdictFailure, res.Verdict)
	assert.Equal(t, "All tests were skipped", SummaryLine(res))
}

func TestAggregateSuccess(t *testing.T) {
	res := Aggregate([]types.ResultSlot{ok(3, 0, 1), ok(2, 0, 0), types.EmptySlot()})

	assert.Equal(t, types.VerdictSuccess, res.Verdict)
	assert.Equal(t, 100, res.PercentPassed)
	assert.Equal(t, 3, res.Workers)
	assert.Equal(t, "100% tests passed, 0 tests failed out of 4 (1 skipped)", SummaryLine(res))
	assert.Equal(t, 0, ExitCode(res, nil))
	assert.Equal(t, 1, ExitCode(res, errors.New("worker 2 vanished")))
}

func TestAggregateStatusWithoutFailures(t *testing.T) {
	// A shard may fail without failed tests, e.g. when its report could not be written.
	res := Aggregate([]types.ResultSlot{ok(2, 0, 0), {Total: 2, Status: types.StatusFailure}})
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, types.VerdictFailure, res.Verdict)
	assert.Equal(t, 100, res.PercentPassed)
}

func TestPercentPassed(t *testing.T) {
	tests := []struct {
		failed, total, skipped int
		want                   int
	}{
		{0, 10, 0, 100},
		{1, 10, 0, 90},
		{1, 3, 0, 67},
		{2, 3, 0, 33},
		{1, 8, 0, 88},
		{1, 400, 0, 100},
		{1, 300, 0, 100}, // rounds, 99.67 does not truncate to 99
		{3, 8, 0, 62},
		{5, 10, 5, 0},
		{0, 0, 0, 0},
		{0, 5, 5, 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PercentPassed(tt.failed, tt.total, tt.skipped), "%+v", tt)
	}
}

func TestVerdict(t *testing.T) {
	assert.Equal(t, types.VerdictSuccess, Verdict(true, false))
	assert.Equal(t, types.VerdictFailure, Verdict(false, false))
	assert.Equal(t, types.VerdictFailure, Verdict(true, true))
	assert.Equal(t, types.VerdictFailure, Verdict(false, true))
}

func TestSummaryLineNil(t *testing.T) {
	assert.Equal(t, "All tests were skipped", SummaryLine(nil))
	assert.Equal(t, 1, ExitCode(nil, nil))
}
