package slave

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"yqhp/systest/internal/config"
	"yqhp/systest/internal/reporter"
	"yqhp/systest/internal/reporter/file"
	"yqhp/systest/internal/runner"
	"yqhp/systest/pkg/types"
)

func corpusOf(names ...string) types.Corpus {
	c := make(types.Corpus, len(names))
	for i, n := range names {
		c[i] = types.TestCase{Name: n, Path: n + ".py", Position: i}
	}
	return c
}

// outcomeRunner returns the outcome registered for a test name, passed otherwise.
func outcomeRunner(outcomes map[string]types.Outcome) runner.TestRunner {
	return runner.FuncRunner(func(_ context.Context, tc types.TestCase) types.CaseResult {
		res := types.NewCaseResult(tc.Name)
		if o, ok := outcomes[tc.Name]; ok {
			res.Outcome = o
		}
		return *res
	})
}

func TestWorkerCountsOutcomes(t *testing.T) {
	w := &Worker{
		Key:    types.ShardKey{Index: 0, Count: 1},
		Corpus: corpusOf("A", "B", "C", "D", "E"),
		Runner: outcomeRunner(map[string]types.Outcome{
			"B": types.OutcomeFailed,
			"C": types.OutcomeSkipped,
			"D": types.OutcomeCrashed,
		}),
		Logger: zaptest.NewLogger(t),
	}

	slot := w.Run(context.Background())
	assert.Equal(t, types.ResultSlot{Skipped: 1, Failed: 2, Total: 5, Status: types.StatusFailure}, slot)
}

func TestWorkerRunsOnlyItsShard(t *testing.T) {
	var ran []string
	w := &Worker{
		Key:    types.ShardKey{Index: 1, Count: 2},
		Corpus: corpusOf("T0", "T1", "T2", "T3", "T4"),
		Runner: runner.FuncRunner(func(_ context.Context, tc types.TestCase) types.CaseResult {
			ran = append(ran, tc.Name)
			return *types.NewCaseResult(tc.Name)
		}),
	}

	slot := w.Run(context.Background())
	assert.Equal(t, []string{"T1", "T3"}, ran)
	assert.Equal(t, types.ResultSlot{Total: 2, Status: types.StatusSuccess}, slot)
}

func TestWorkerEmptyShard(t *testing.T) {
	w := &Worker{
		Key:    types.ShardKey{Index: 3, Count: 4},
		Corpus: corpusOf("A", "B"),
		Runner: outcomeRunner(nil),
	}
	assert.Equal(t, types.EmptySlot(), w.Run(context.Background()))
}

func TestWorkerFilters(t *testing.T) {
	corpus := corpusOf("SANSFast", "SANSSlow", "ISISPowder", "SANSLong")
	corpus[3].ExcludeInPR = true

	var ran atomic.Int32
	w := &Worker{
		Key:     types.ShardKey{Index: 0, Count: 1},
		Corpus:  corpus,
		Filters: types.Filters{Include: "SANS", Exclude: "Slow", ExcludeInPR: true},
		Runner: runner.FuncRunner(func(_ context.Context, tc types.TestCase) types.CaseResult {
			ran.Add(1)
			return *types.NewCaseResult(tc.Name)
		}),
	}

	slot := w.Run(context.Background())
	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t, types.ResultSlot{Skipped: 1, Total: 2, Status: types.StatusSuccess}, slot)
}

func TestWorkerInterruptedMidRun(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	w := &Worker{
		Key:    types.ShardKey{Index: 0, Count: 1},
		Corpus: corpusOf("A", "B", "C", "D"),
		Runner: runner.FuncRunner(func(ctx context.Context, tc types.TestCase) types.CaseResult {
			res := types.NewCaseResult(tc.Name)
			if tc.Name == "B" {
				cancel()
				return *res.Skip("interrupted")
			}
			return *res
		}),
	}

	slot := w.Run(ctx)
	assert.Equal(t, types.ResultSlot{Skipped: 3, Total: 4, Status: types.StatusSuccess}, slot)
}

func TestWorkerCancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	w := &Worker{
		Key:    types.ShardKey{Index: 0, Count: 1},
		Corpus: corpusOf("A", "B"),
		Runner: runner.FuncRunner(func(context.Context, types.TestCase) types.CaseResult {
			t.Fatal("runner must not be called")
			return types.CaseResult{}
		}),
	}
	slot := w.Run(ctx)
	assert.Equal(t, types.ResultSlot{Skipped: 2, Total: 2, Status: types.StatusSuccess}, slot)
}

func TestWorkerRunnerPanic(t *testing.T) {
	w := &Worker{
		Key:    types.ShardKey{Index: 0, Count: 1},
		Corpus: corpusOf("A", "B"),
		Runner: runner.FuncRunner(func(_ context.Context, tc types.TestCase) types.CaseResult {
			if tc.Name == "A" {
				panic("runner bug")
			}
			return *types.NewCaseResult(tc.Name)
		}),
	}
	slot := w.Run(context.Background())
	assert.Equal(t, types.ResultSlot{Failed: 1, Total: 2, Status: types.StatusFailure}, slot)
}

func TestWorkerInvalidKey(t *testing.T) {
	w := &Worker{Key: types.ShardKey{Index: 2, Count: 2}, Corpus: corpusOf("A"), Runner: outcomeRunner(nil)}
	slot := w.Run(context.Background())
	assert.False(t, slot.OK())
	assert.True(t, slot.Valid())

	w = &Worker{Key: types.ShardKey{Index: 0, Count: 1}, Corpus: corpusOf("A")}
	assert.False(t, w.Run(context.Background()).OK())
}

func TestWorkerWritesReport(t *testing.T) {
	dir := t.TempDir()
	manager := reporter.NewManager(nil)
	require.NoError(t, manager.AddReporter(file.NewJUnitReporter(&file.Config{Dir: dir, Prefix: "TEST-systemtests"})))

	w := &Worker{
		Key:       types.ShardKey{Index: 1, Count: 3},
		Corpus:    corpusOf("A", "B", "C", "D", "E"),
		Runner:    outcomeRunner(map[string]types.Outcome{"B": types.OutcomeFailed}),
		Reporters: manager,
		RunID:     "run",
	}
	slot := w.Run(context.Background())
	assert.Equal(t, types.ResultSlot{Failed: 1, Total: 2, Status: types.StatusFailure}, slot)
	assert.FileExists(t, filepath.Join(dir, "TEST-systemtests-1.xml"))
}

func TestWorkerFlushesAfterEachResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "TEST-systemtests-0.xml")
	manager := reporter.NewManager(nil)
	require.NoError(t, manager.AddReporter(file.NewJUnitReporter(&file.Config{Dir: dir, Prefix: "TEST-systemtests"})))

	var partial atomic.Value
	w := &Worker{
		Key:    types.ShardKey{Index: 0, Count: 1},
		Corpus: corpusOf("first", "second"),
		Runner: runner.FuncRunner(func(_ context.Context, tc types.TestCase) types.CaseResult {
			if tc.Name == "second" {
				data, _ := os.ReadFile(path)
				partial.Store(string(data))
			}
			return *types.NewCaseResult(tc.Name)
		}),
		Reporters: manager,
	}
	w.Run(context.Background())

	written, _ := partial.Load().(string)
	assert.Contains(t, written, `name="first"`, "the report is on disk before the next test starts")
	assert.NotContains(t, written, `name="second"`)
}

func TestWorkerReportFailureFailsShard(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	manager := reporter.NewManager(nil)
	require.NoError(t, manager.AddReporter(file.NewJUnitReporter(&file.Config{Dir: blocker, Prefix: "p"})))

	w := &Worker{
		Key:       types.ShardKey{Index: 0, Count: 1},
		Corpus:    corpusOf("A"),
		Runner:    outcomeRunner(nil),
		Reporters: manager,
	}
	slot := w.Run(context.Background())
	assert.Equal(t, 1, slot.Total)
	assert.Equal(t, 0, slot.Failed)
	assert.False(t, slot.OK())
}

func TestNewFromConfig(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Report.Dir = dir
	cfg.Report.Format = config.FormatJSON
	cfg.Run.ShardStrategy = config.ShardBlock

	var console bytes.Buffer
	w, err := NewFromConfig(cfg, types.ShardKey{Index: 0, Count: 2}, corpusOf("A", "B", "C"), Options{
		RunID:   "r",
		Console: &console,
		Runner:  outcomeRunner(nil),
	})
	require.NoError(t, err)
	assert.Equal(t, "block", w.Strategy.Name())
	assert.Equal(t, 2, w.Reporters.GetReporterCount())

	slot := w.Run(context.Background())
	assert.Equal(t, types.ResultSlot{Total: 2, Status: types.StatusSuccess}, slot)
	assert.FileExists(t, filepath.Join(dir, "TEST-systemtests-0.json"))
	assert.Contains(t, console.String(), "PASSED")
}

func TestNewFromConfigExecRunner(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Runner.Executable = "/bin/sh"
	cfg.Runner.DataPaths = "/data"
	cfg.Report.Dir = t.TempDir()

	w, err := NewFromConfig(cfg, types.ShardKey{Index: 0, Count: 1}, nil, Options{})
	require.NoError(t, err)
	exec, ok := w.Runner.(*runner.ExecRunner)
	require.True(t, ok)
	assert.Equal(t, "/bin/sh", exec.Executable)
	assert.Equal(t, "/data", exec.Env["SYSTEST_DATA_PATHS"])
	assert.Equal(t, 1, w.Reporters.GetReporterCount())
}

func TestNewFromConfigErrors(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := NewFromConfig(cfg, types.ShardKey{Index: 1, Count: 1}, nil, Options{})
	assert.Error(t, err)

	cfg.Run.ShardStrategy = "hash"
	_, err = NewFromConfig(cfg, types.ShardKey{Index: 0, Count: 1}, nil, Options{})
	assert.Error(t, err)

	cfg = config.DefaultConfig()
	cfg.Report.Format = "html"
	_, err = NewFromConfig(cfg, types.ShardKey{Index: 0, Count: 1}, nil, Options{})
	assert.Error(t, err)
}

func ExampleWorker_Run() {
	w := &Worker{
		Key:    types.ShardKey{Index: 0, Count: 2},
		Corpus: corpusOf("A", "B", "C"),
		Runner: outcomeRunner(map[string]types.Outcome{"C": types.OutcomeFailed}),
	}
	slot := w.Run(context.Background())
	fmt.Println(slot.Total, slot.Failed, slot.OK())
	// Output: 2 1 false
}
