package slave

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"yqhp/systest/internal/reporter"
	"yqhp/systest/internal/runner"
	"yqhp/systest/internal/shard"
	"yqhp/systest/pkg/types"
)

// 跳过原因。
const (
	ReasonInterrupted = "interrupted"
	ReasonExcludedPR  = "excluded in pull requests"
)

// Worker 运行一个分片。
type Worker struct {
	// Key 是此 worker 的编号和 worker 总数。
	Key types.ShardKey
	// Corpus 是完整的测试语料，每个 worker 独立计算。
	Corpus types.Corpus
	// Filters 对所有 worker 相同。
	Filters types.Filters
	// Strategy 决定分片规则，nil 表示 modulo。
	Strategy shard.Strategy
	// Runner 执行单个测试。
	Runner runner.TestRunner
	// Reporters 接收每个测试结果并写出报告产物，可为 nil。
	Reporters *reporter.Manager
	// RunID 标识本次运行，写入报告。
	RunID string
	// Logger 可为 nil。
	Logger *zap.Logger
}

// Run 执行分片并返回 ResultSlot。它总是返回一个合法的 slot:
// 分片参数非法时返回 total=0 的失败 slot。
func (w *Worker) Run(ctx context.Context) types.ResultSlot {
	log := w.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.Stringer("worker", w.Key))

	assigned, err := shard.Assign(w.Corpus, w.Key, w.Strategy)
	if err != nil {
		log.Error("invalid shard", zap.Error(err))
		return types.ResultSlot{Status: types.StatusFailure}
	}
	if w.Runner == nil {
		log.Error("worker has no test runner")
		return types.ResultSlot{Status: types.StatusFailure}
	}

	run, filtered := shard.ApplyFilters(assigned, w.Filters)
	log.Debug("shard assigned",
		zap.Int("assigned", len(assigned)),
		zap.Int("filtered", len(filtered)),
		zap.Int("run", len(run)))

	// 报告 I/O 不随中断取消，部分结果同样需要落盘。
	reportCtx := context.WithoutCancel(ctx)
	reportFailed := false
	if w.Reporters != nil && w.Reporters.GetReporterCount() == 0 {
		log.Warn("worker has no reporters, results are only counted")
	}
	if w.Reporters != nil {
		suite := types.Suite{RunID: w.RunID, Key: w.Key, Started: time.Now()}
		if err := w.Reporters.Start(reportCtx, suite); err != nil {
			log.Error("failed to start reporters", zap.Error(err))
			reportFailed = true
		}
	}

	safe := runner.Safe(w.Runner)
	var tally types.Tally
	for _, tc := range run {
		res := w.runOne(ctx, safe, tc)
		tally.Add(res.Outcome)

		if res.Outcome.CountsAsFailure() {
			log.Warn("test failed", zap.String("test", tc.Name), zap.String("outcome", string(res.Outcome)), zap.String("message", res.Message))
		} else {
			log.Debug("test finished", zap.String("test", tc.Name), zap.String("outcome", string(res.Outcome)), zap.Duration("duration", res.Duration))
		}

		if w.Reporters != nil {
			if err := w.Reporters.Report(reportCtx, &res); err != nil {
				log.Error("failed to report result", zap.String("test", tc.Name), zap.Error(err))
				reportFailed = true
			}
			// 每个结果后落盘，worker 被强杀时留下部分报告
			if err := w.Reporters.Flush(reportCtx); err != nil {
				log.Error("failed to flush report", zap.String("test", tc.Name), zap.Error(err))
				reportFailed = true
			}
		}
	}

	if w.Reporters != nil {
		if err := w.Reporters.Close(reportCtx); err != nil {
			log.Error("failed to write report", zap.Error(err))
			reportFailed = true
		}
	}

	slot := tally.Slot()
	if reportFailed {
		slot.Status = types.StatusFailure
	}
	log.Info("worker finished",
		zap.Int("total", slot.Total),
		zap.Int("failed", slot.Failed),
		zap.Int("skipped", slot.Skipped),
		zap.Bool("ok", slot.OK()),
		zap.Bool("interrupted", ctx.Err() != nil))
	return slot
}

func (w *Worker) runOne(ctx context.Context, r runner.TestRunner, tc types.TestCase) types.CaseResult {
	if w.Filters.PRExcluded(tc) {
		return *types.NewCaseResult(tc.Name).Skip(ReasonExcludedPR)
	}
	if ctx.Err() != nil {
		return *types.NewCaseResult(tc.Name).Skip(ReasonInterrupted)
	}
	res := r.Run(ctx, tc)
	if res.Name == "" {
		res.Name = tc.Name
	}
	if res.Outcome == "" {
		res.Outcome = types.OutcomeCrashed
		res.Message = fmt.Sprintf("runner returned no outcome for %s", tc.Name)
	}
	return res
}
