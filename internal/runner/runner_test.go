package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/systest/pkg/types"
)

func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.sh")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func shRunner() *ExecRunner {
	return NewExecRunner("/bin/sh")
}

func TestExecRunnerPassed(t *testing.T) {
	tc := types.TestCase{Name: "ok", Path: writeScript(t, "echo hello\nexit 0\n")}
	res := shRunner().Run(context.Background(), tc)

	assert.Equal(t, types.OutcomePassed, res.Outcome)
	assert.Equal(t, "ok", res.Name)
	assert.Contains(t, res.Output, "hello")
	assert.Greater(t, res.Duration, time.Duration(0))
}

func TestExecRunnerFailed(t *testing.T) {
	tc := types.TestCase{Name: "bad", Path: writeScript(t, "echo broken >&2\nexit 3\n")}
	res := shRunner().Run(context.Background(), tc)

	assert.Equal(t, types.OutcomeFailed, res.Outcome)
	assert.Equal(t, "exit code 3", res.Message)
	assert.Contains(t, res.Output, "broken")
}

func TestExecRunnerSkipExitCode(t *testing.T) {
	tc := types.TestCase{Name: "skip", Path: writeScript(t, "exit 77\n")}
	res := shRunner().Run(context.Background(), tc)
	assert.Equal(t, types.OutcomeSkipped, res.Outcome)

	r := shRunner()
	r.SkipExitCode = 0
	res = r.Run(context.Background(), tc)
	assert.Equal(t, types.OutcomeFailed, res.Outcome)
}

func TestExecRunnerArgsAndEnv(t *testing.T) {
	script := writeScript(t, `[ "$1" = "--fast" ] || exit 1
[ "$SYSTEST_DATA_PATHS" = "/data" ] || exit 2
exit 0
`)
	r := shRunner()
	r.Env = map[string]string{"SYSTEST_DATA_PATHS": "/data"}

	res := r.Run(context.Background(), types.TestCase{Name: "args", Path: script, Args: []string{"--fast"}})
	assert.Equal(t, types.OutcomePassed, res.Outcome, res.Output)
}

func TestExecRunnerExecArgs(t *testing.T) {
	script := writeScript(t, "exit 0\n")
	r := NewExecRunner("/bin/sh", "-e")
	res := r.Run(context.Background(), types.TestCase{Name: "e", Path: script})
	assert.Equal(t, types.OutcomePassed, res.Outcome)
}

func TestExecRunnerMissingExecutable(t *testing.T) {
	r := NewExecRunner(filepath.Join(t.TempDir(), "no-such-binary"))
	res := r.Run(context.Background(), types.TestCase{Name: "missing", Path: "x"})

	assert.Equal(t, types.OutcomeCrashed, res.Outcome)
	assert.True(t, res.Outcome.CountsAsFailure())
}

func TestExecRunnerTimeout(t *testing.T) {
	tc := types.TestCase{Name: "slow", Path: writeScript(t, "exec sleep 10\n"), Timeout: 100 * time.Millisecond}
	start := time.Now()
	res := shRunner().Run(context.Background(), tc)

	assert.Equal(t, types.OutcomeCrashed, res.Outcome)
	assert.Contains(t, res.Message, "timed out")
	assert.Less(t, time.Since(start), 8*time.Second)
}

func TestExecRunnerInterrupted(t *testing.T) {
	tc := types.TestCase{Name: "slow", Path: writeScript(t, "exec sleep 10\n")}
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	res := shRunner().Run(ctx, tc)
	assert.Equal(t, types.OutcomeSkipped, res.Outcome)
	assert.Equal(t, "interrupted", res.Message)
}

func TestExecRunnerFailureDuringInterrupt(t *testing.T) {
	// the test traps the interrupt and still reports its own failure
	script := writeScript(t, "trap 'kill $! 2>/dev/null; exit 1' INT\nsleep 10 >/dev/null 2>&1 &\nwait\n")
	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()

	res := shRunner().Run(ctx, types.TestCase{Name: "trapped", Path: script})
	assert.Equal(t, types.OutcomeFailed, res.Outcome)
	assert.Equal(t, "exit code 1", res.Message)
}

func TestExecRunnerCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := shRunner().Run(ctx, types.TestCase{Name: "never", Path: "x"})
	assert.Equal(t, types.OutcomeSkipped, res.Outcome)
	assert.Zero(t, res.Duration)
}

func TestSafeRecoversPanic(t *testing.T) {
	r := Safe(FuncRunner(func(context.Context, types.TestCase) types.CaseResult {
		panic("boom")
	}))
	res := r.Run(context.Background(), types.TestCase{Name: "p"})

	assert.Equal(t, types.OutcomeCrashed, res.Outcome)
	assert.Equal(t, "p", res.Name)
	assert.Contains(t, res.Message, "boom")
}

func TestSafePassesThrough(t *testing.T) {
	r := Safe(FuncRunner(func(_ context.Context, tc types.TestCase) types.CaseResult {
		return *types.NewCaseResult(tc.Name).Fail("nope")
	}))
	res := r.Run(context.Background(), types.TestCase{Name: "f"})
	assert.Equal(t, types.OutcomeFailed, res.Outcome)
	assert.Equal(t, "nope", res.Message)
}

func TestTailBuffer(t *testing.T) {
	b := &tailBuffer{limit: 8}
	_, _ = b.Write([]byte("abcd"))
	assert.Equal(t, "abcd", b.String())

	_, _ = b.Write([]byte("efghij"))
	assert.True(t, strings.HasSuffix(b.String(), "cdefghij"))
	assert.True(t, strings.HasPrefix(b.String(), "..."))

	b = &tailBuffer{limit: 4}
	n, _ := b.Write([]byte("0123456789"))
	assert.Equal(t, 10, n)
	assert.Equal(t, "...\n6789", b.String())
}
