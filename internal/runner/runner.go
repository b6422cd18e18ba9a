package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"time"

	"yqhp/systest/pkg/types"
	"yqhp/systest/pkg/utils"
)

const (
	// DefaultSkipExitCode follows the automake convention for skipped tests.
	DefaultSkipExitCode = 77

	// maxOutput bounds the captured output kept per test (tail is kept).
	maxOutput = 64 * 1024

	// stopGrace is how long a test may take to exit after SIGINT.
	stopGrace = 5 * time.Second
)

// TestRunner runs one test and classifies the outcome.
// Implementations must not return until the test has stopped.
type TestRunner interface {
	Run(ctx context.Context, tc types.TestCase) types.CaseResult
}

// FuncRunner adapts a function to TestRunner.
type FuncRunner func(ctx context.Context, tc types.TestCase) types.CaseResult

// Run implements TestRunner.
func (f FuncRunner) Run(ctx context.Context, tc types.TestCase) types.CaseResult {
	return f(ctx, tc)
}

// ExecRunner runs each test in its own child process.
type ExecRunner struct {
	// Executable is the interpreter or driver, e.g. python3.
	Executable string
	// ExecArgs are inserted before the test path.
	ExecArgs []string
	// SkipExitCode marks a test as skipped. Zero disables it.
	SkipExitCode int
	// Timeout bounds a single test. Zero means no limit.
	Timeout time.Duration
	// Env is added to the inherited environment.
	Env map[string]string
	// Dir is the working directory of the test process.
	Dir string
}

// NewExecRunner creates a runner with the default skip exit code.
func NewExecRunner(executable string, execArgs ...string) *ExecRunner {
	return &ExecRunner{
		Executable:   executable,
		ExecArgs:     execArgs,
		SkipExitCode: DefaultSkipExitCode,
	}
}

// Run implements TestRunner.
func (r *ExecRunner) Run(ctx context.Context, tc types.TestCase) types.CaseResult {
	result := types.NewCaseResult(tc.Name)
	if err := ctx.Err(); err != nil {
		return *result.Skip("interrupted before start")
	}

	timeout := r.Timeout
	if tc.Timeout > 0 {
		timeout = tc.Timeout
	}

	cmdCtx := ctx
	var cancel context.CancelFunc
	if timeout > 0 {
		cmdCtx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		cmdCtx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	args := make([]string, 0, len(r.ExecArgs)+1+len(tc.Args))
	args = append(args, r.ExecArgs...)
	args = append(args, tc.Path)
	args = append(args, tc.Args...)

	cmd := exec.CommandContext(cmdCtx, r.Executable, args...)
	cmd.Env = r.environ()
	cmd.Dir = r.Dir
	// Interrupt first so the test can clean up, kill after stopGrace.
	cmd.Cancel = func() error {
		return cmd.Process.Signal(os.Interrupt)
	}
	cmd.WaitDelay = stopGrace

	output := &tailBuffer{limit: maxOutput}
	cmd.Stdout = output
	cmd.Stderr = output

	start := time.Now()
	err := cmd.Run()
	result.Duration = time.Since(start)
	result.Output = output.String()

	// A test that exited on its own keeps its verdict even if an interrupt
	// arrived meanwhile, only a test stopped by a signal counts as interrupted.
	var exitErr *exec.ExitError
	exited := errors.As(err, &exitErr) && exitErr.Exited()
	switch {
	case err == nil:
	case ctx.Err() == nil && errors.Is(cmdCtx.Err(), context.DeadlineExceeded):
		result.Crash(fmt.Sprintf("timed out after %s", timeout))
	case exited && r.SkipExitCode != 0 && exitErr.ExitCode() == r.SkipExitCode:
		result.Skip("skipped by test")
	case exited:
		result.Fail(fmt.Sprintf("exit code %d", exitErr.ExitCode()))
	case ctx.Err() != nil:
		result.Skip("interrupted")
	case exitErr != nil:
		result.Crash(fmt.Sprintf("terminated: %v", err))
	default:
		result.Crash(fmt.Sprintf("failed to run %s: %v", r.Executable, err))
	}
	return *result
}

func (r *ExecRunner) environ() []string {
	env := os.Environ()
	keys := make([]string, 0, len(r.Env))
	for k := range r.Env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, r.Env[k]))
	}
	return env
}

// Safe wraps a runner so that a panic becomes a crashed result.
func Safe(r TestRunner) TestRunner {
	return FuncRunner(func(ctx context.Context, tc types.TestCase) (res types.CaseResult) {
		err := utils.SafeCall(func() error {
			res = r.Run(ctx, tc)
			return nil
		})
		if err != nil {
			res = *types.NewCaseResult(tc.Name).Crash(err.Error())
		}
		return res
	})
}

// tailBuffer keeps the last limit bytes written to it.
type tailBuffer struct {
	buf       bytes.Buffer
	limit     int
	truncated bool
}

func (b *tailBuffer) Write(p []byte) (int, error) {
	n := len(p)
	if len(p) >= b.limit {
		b.buf.Reset()
		b.buf.Write(p[len(p)-b.limit:])
		b.truncated = true
		return n, nil
	}
	if over := b.buf.Len() + len(p) - b.limit; over > 0 {
		b.buf.Next(over)
		b.truncated = true
	}
	b.buf.Write(p)
	return n, nil
}

func (b *tailBuffer) String() string {
	if b.truncated {
		return "...\n" + b.buf.String()
	}
	return b.buf.String()
}
