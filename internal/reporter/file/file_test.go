package file

import (
	"context"
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"yqhp/systest/pkg/types"
)

func suite(index int) types.Suite {
	return types.Suite{
		RunID:   "3f1c",
		Key:     types.ShardKey{Index: index, Count: 4},
		Started: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func results() []*types.CaseResult {
	passed := types.NewCaseResult("Passing")
	passed.Duration = 1500 * time.Millisecond
	passed.Output = "all good"
	failed := types.NewCaseResult("Failing").Fail("exit code 1")
	failed.Output = "Traceback"
	crashed := types.NewCaseResult("Crashing").Crash("timed out after 1s")
	skipped := types.NewCaseResult("Skipping").Skip("interrupted")
	return []*types.CaseResult{passed, failed, crashed, skipped}
}

func feed(t *testing.T, r interface {
	Init(context.Context, types.Suite) error
	Report(context.Context, *types.CaseResult) error
	Close(context.Context) error
}, index int) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, r.Init(ctx, suite(index)))
	for _, res := range results() {
		require.NoError(t, r.Report(ctx, res))
	}
	require.NoError(t, r.Close(ctx))
}

func readJUnit(t *testing.T, path string) junitSuites {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc junitSuites
	require.NoError(t, xml.Unmarshal(data, &doc))
	return doc
}

func TestConfigFromMap(t *testing.T) {
	cfg := ConfigFromMap(nil)
	assert.Equal(t, ".", cfg.Dir)
	assert.Equal(t, "TEST-systemtests", cfg.Prefix)

	cfg = ConfigFromMap(map[string]any{"dir": "/out", "prefix": "p", "show_skipped": true})
	assert.Equal(t, filepath.Join("/out", "p-7.xml"), cfg.Path(7, "xml"))
	assert.True(t, cfg.ShowSkipped)
}

func TestJUnitReporter(t *testing.T) {
	dir := t.TempDir()
	r := NewJUnitReporter(&Config{Dir: dir, Prefix: "TEST-systemtests"})
	feed(t, r, 2)

	assert.Equal(t, filepath.Join(dir, "TEST-systemtests-2.xml"), r.Path())
	doc := readJUnit(t, r.Path())
	require.Len(t, doc.Suites, 1)
	s := doc.Suites[0]

	assert.Equal(t, "systemtests-2", s.Name)
	assert.Equal(t, 4, s.Tests)
	assert.Equal(t, 1, s.Failures)
	assert.Equal(t, 1, s.Errors)
	assert.Equal(t, 1, s.Skipped)
	assert.Equal(t, "2026-01-02T03:04:05Z", s.Timestamp)

	require.Len(t, s.Cases, 3, "skipped tests are hidden by default")
	assert.Equal(t, "Passing", s.Cases[0].Name)
	assert.Equal(t, "1.500", s.Cases[0].Time)
	require.NotNil(t, s.Cases[1].Failure)
	assert.Equal(t, "exit code 1", s.Cases[1].Failure.Message)
	assert.Equal(t, "Traceback", s.Cases[1].Failure.Body)
	require.NotNil(t, s.Cases[2].Error)

	props := map[string]string{}
	for _, p := range s.Properties {
		props[p.Name] = p.Value
	}
	assert.Equal(t, "3f1c", props["run_id"])
	assert.Equal(t, "2/4", props["shard"])
}

func TestJUnitReporterShowSkipped(t *testing.T) {
	r := NewJUnitReporter(&Config{Dir: t.TempDir(), Prefix: "x", ShowSkipped: true})
	feed(t, r, 0)

	s := readJUnit(t, r.Path()).Suites[0]
	require.Len(t, s.Cases, 4)
	require.NotNil(t, s.Cases[3].Skipped)
	assert.Equal(t, "interrupted", s.Cases[3].Skipped.Message)
}

func TestJUnitReporterEmptyShard(t *testing.T) {
	r := NewJUnitReporter(&Config{Dir: t.TempDir(), Prefix: "x"})
	ctx := context.Background()
	require.NoError(t, r.Init(ctx, suite(3)))
	require.NoError(t, r.Close(ctx))

	s := readJUnit(t, r.Path()).Suites[0]
	assert.Equal(t, 0, s.Tests)
	assert.Empty(t, s.Cases)
}

func TestJUnitReporterLifecycleErrors(t *testing.T) {
	r := NewJUnitReporter(&Config{Dir: t.TempDir(), Prefix: "x"})
	ctx := context.Background()

	assert.Error(t, r.Report(ctx, types.NewCaseResult("A")))
	assert.NoError(t, r.Flush(ctx))
	require.NoError(t, r.Init(ctx, suite(0)))
	assert.Error(t, r.Init(ctx, suite(0)))
}

func TestJSONReporter(t *testing.T) {
	dir := t.TempDir()
	r := NewJSONReporter(&Config{Dir: filepath.Join(dir, "nested"), Prefix: "TEST-systemtests"})
	feed(t, r, 1)

	data, err := os.ReadFile(filepath.Join(dir, "nested", "TEST-systemtests-1.json"))
	require.NoError(t, err)
	var doc JSONDocument
	require.NoError(t, sonic.Unmarshal(data, &doc))

	assert.Equal(t, "systemtests-1", doc.Suite)
	assert.Equal(t, "3f1c", doc.RunID)
	assert.Equal(t, types.Tally{Passed: 1, Failed: 1, Crashed: 1, Skipped: 1}, doc.Tally)
	assert.Equal(t, types.ResultSlot{Skipped: 1, Failed: 2, Total: 4, Status: types.StatusFailure}, doc.Slot)
	assert.Len(t, doc.Cases, 3)
}
