package slave

import (
	"io"

	"go.uber.org/zap"

	"yqhp/systest/internal/config"
	"yqhp/systest/internal/reporter"
	"yqhp/systest/internal/runner"
	"yqhp/systest/internal/shard"
	"yqhp/systest/pkg/types"
)

// Options 是从配置构建 worker 时的额外参数。
type Options struct {
	RunID string
	// Console 接收逐个测试的输出行，nil 表示不输出。
	Console io.Writer
	Logger  *zap.Logger
	// Runner 覆盖配置中的可执行程序，测试中使用。
	Runner runner.TestRunner
}

// NewFromConfig 按配置构建 worker: 分片策略、测试执行器和报告器。
func NewFromConfig(cfg *config.Config, key types.ShardKey, corpus types.Corpus, opts Options) (*Worker, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	strategy, err := shard.ByName(cfg.Run.ShardStrategy)
	if err != nil {
		return nil, err
	}

	testRunner := opts.Runner
	if testRunner == nil {
		testRunner = &runner.ExecRunner{
			Executable:   cfg.Runner.Executable,
			ExecArgs:     cfg.Runner.ExecArgs,
			SkipExitCode: cfg.Runner.SkipExitCode,
			Timeout:      cfg.Runner.TestTimeout,
			Env:          cfg.TestEnv(),
		}
	}

	reporters, err := newReporters(cfg, opts.Console)
	if err != nil {
		return nil, err
	}

	return &Worker{
		Key:       key,
		Corpus:    corpus,
		Filters:   cfg.Filters(),
		Strategy:  strategy,
		Runner:    testRunner,
		Reporters: reporters,
		RunID:     opts.RunID,
		Logger:    opts.Logger,
	}, nil
}

func newReporters(cfg *config.Config, console io.Writer) (*reporter.Manager, error) {
	registry, err := reporter.NewDefaultRegistry()
	if err != nil {
		return nil, err
	}
	manager := reporter.NewManager(registry)

	configs := []*reporter.ReporterConfig{
		{
			Type:    reporter.ReporterTypeConsole,
			Enabled: console != nil,
			Config: map[string]any{
				"writer":       console,
				"show_skipped": cfg.Report.ShowSkipped,
			},
		},
		{
			Type:    reporter.ReporterType(cfg.Report.Format),
			Enabled: true,
			Config: map[string]any{
				"dir":          cfg.Report.Dir,
				"prefix":       cfg.Report.Prefix,
				"show_skipped": cfg.Report.ShowSkipped,
			},
		},
	}
	for _, rc := range configs {
		if err := manager.AddReporterFromConfig(rc); err != nil {
			return nil, err
		}
	}
	return manager, nil
}
