package types

import "time"

// Outcome is the classification of a single test run.
type Outcome string

const (
	// OutcomePassed indicates the test passed.
	OutcomePassed Outcome = "passed"
	// OutcomeFailed indicates the test ran and did not pass.
	OutcomeFailed Outcome = "failed"
	// OutcomeSkipped indicates the test did not run to completion.
	OutcomeSkipped Outcome = "skipped"
	// OutcomeCrashed indicates the test could not be run or blew up.
	// 崩溃的测试按失败计数。
	OutcomeCrashed Outcome = "crashed"
)

// CountsAsFailure reports whether the outcome increments the failed counter.
func (o Outcome) CountsAsFailure() bool {
	return o == OutcomeFailed || o == OutcomeCrashed
}

// CaseResult contains the result of one test case.
type CaseResult struct {
	Name     string        `json:"name"`
	Outcome  Outcome       `json:"outcome"`
	Duration time.Duration `json:"duration"`
	Output   string        `json:"output,omitempty"`
	Message  string        `json:"message,omitempty"`
}

// NewCaseResult 创建一个初始状态为 passed 的结果。
func NewCaseResult(name string) *CaseResult {
	return &CaseResult{Name: name, Outcome: OutcomePassed}
}

// Skip 标记测试为跳过。
func (r *CaseResult) Skip(reason string) *CaseResult {
	r.Outcome = OutcomeSkipped
	r.Message = reason
	return r
}

// Fail 标记测试为失败。
func (r *CaseResult) Fail(reason string) *CaseResult {
	r.Outcome = OutcomeFailed
	r.Message = reason
	return r
}

// Crash 标记测试为崩溃。
func (r *CaseResult) Crash(reason string) *CaseResult {
	r.Outcome = OutcomeCrashed
	r.Message = reason
	return r
}
