package master

import (
	"fmt"
	"math"

	"yqhp/systest/pkg/types"
)

// Aggregate sums the slots and reduces their status with AND.
// A run where every test was skipped, including the empty run, fails.
func Aggregate(slots []types.ResultSlot) *types.AggregateResult {
	res := &types.AggregateResult{
		AllOK:   true,
		Workers: len(slots),
	}
	for _, s := range slots {
		res.Skipped += s.Skipped
		res.Failed += s.Failed
		res.Total += s.Total
		res.AllOK = res.AllOK && s.OK()
	}
	res.AllSkipped = res.Skipped == res.Total
	res.PercentPassed = PercentPassed(res.Failed, res.Total, res.Skipped)
	res.Verdict = Verdict(res.AllOK, res.AllSkipped)
	return res
}

// Verdict decides the run outcome.
func Verdict(allOK, allSkipped bool) types.Verdict {
	if allSkipped || !allOK {
		return types.VerdictFailure
	}
	return types.VerdictSuccess
}

// PercentPassed returns round(100 * (1 - failed/(total-skipped))), using
// round-half-to-even. It rounds rather than truncates, so 1 failure in 300
// reports 100% where truncation would report 99%. It returns 0 when no
// test ran.
func PercentPassed(failed, total, skipped int) int {
	ran := total - skipped
	if ran <= 0 {
		return 0
	}
	return int(math.RoundToEven(100 * (1 - float64(failed)/float64(ran))))
}

// SummaryLine renders the human-readable result of a run.
func SummaryLine(res *types.AggregateResult) string {
	if res == nil || res.AllSkipped {
		return "All tests were skipped"
	}
	return fmt.Sprintf("%d%% tests passed, %d tests failed out of %d (%d skipped)",
		res.PercentPassed, res.Failed, res.Ran(), res.Skipped)
}

// ExitCode maps a run to the process exit code: 0 on SUCCESS, 1 otherwise,
// including any orchestration error.
func ExitCode(res *types.AggregateResult, err error) int {
	if err != nil || !res.Success() {
		return 1
	}
	return 0
}
