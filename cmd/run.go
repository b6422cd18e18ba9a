package cmd

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/duke-git/lancet/v2/slice"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"yqhp/systest/internal/config"
	"yqhp/systest/internal/corpus"
	"yqhp/systest/internal/master"
	"yqhp/systest/internal/reporter"
	"yqhp/systest/internal/slave"
	"yqhp/systest/pkg/logger"
	"yqhp/systest/pkg/types"
)

func newRunCmd(opts *rootOptions) *cobra.Command {
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "并行运行系统测试",
		Long: `发现测试语料，启动 N 个 worker 分别运行自己的分片，
等待所有 worker 结束后打印汇总并以 0 (SUCCESS) 或 1 (FAILURE) 退出。

所有测试都被跳过(包括没有发现任何测试)视为失败。`,
		Example: `  # 4 个 worker 运行全部测试
  systest run -j 4

  # 只运行名称包含 SANS 的测试，排除 Slow
  systest run -j 8 -R SANS -E Slow

  # pull request 构建，输出汇总 JSON
  systest run -j 8 --exclude-in-pull-requests --out-json summary.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSystemTests(cmd, opts)
		},
	}

	flags := runCmd.Flags()
	def := config.DefaultConfig()
	addSelectionFlags(flags)
	flags.StringP("executable", "x", def.Runner.Executable, "运行每个测试的可执行程序")
	flags.StringP("exec-args", "a", "", "传给可执行程序的参数 (空白分隔)")
	flags.Duration("test-timeout", 0, "单个测试的超时时间 (0 表示不限)")
	flags.Int("skip-exit-code", def.Runner.SkipExitCode, "表示测试被跳过的退出码")
	flags.StringP("loglevel", "l", def.Runner.LogLevel, "传给测试的日志级别")
	flags.StringP("datapaths", "d", "", "传给测试的数据搜索路径")
	flags.StringP("savedir", "s", "", "传给测试的输出目录")
	flags.String("isolation", def.Run.Isolation, "worker 隔离方式 (process, goroutine)")
	flags.Duration("worker-timeout", 0, "worker 看门狗超时，到期后 worker 提前收尾 (0 表示不限)")
	flags.Duration("join-grace", def.Run.JoinGrace, "看门狗或中断后等待 worker 退出的时间")
	flags.String("report-dir", def.Report.Dir, "报告文件目录 (默认为 --savedir，未设置时为当前目录)")
	flags.String("format", def.Report.Format, fmt.Sprintf("报告格式 (%s)", strings.Join(reportFormats(), ", ")))
	flags.Bool("showskipped", false, "在报告中列出被跳过的测试")
	flags.String("out-json", "", "输出汇总 JSON 到文件")

	return runCmd
}

func runSystemTests(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(opts, cmd.Flags())
	if err != nil {
		return err
	}
	log := newLogger(cfg, "master")
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tests, err := corpus.New(cfg.Corpus.Path, cfg.Corpus.Pattern).Discover(ctx)
	if err != nil {
		return fmt.Errorf("发现测试失败: %w", err)
	}

	out := cmd.OutOrStdout()
	runID := uuid.NewString()
	if !opts.quiet {
		printRunInfo(out, cfg, runID, len(tests))
	}

	launcher, err := newLauncher(cmd, opts, cfg, tests, runID, log)
	if err != nil {
		return err
	}
	orchestrator := &master.Orchestrator{
		Workers:       cfg.Run.Parallel,
		Launcher:      launcher,
		WorkerTimeout: cfg.Run.WorkerTimeout,
		RunID:         runID,
		Logger:        log,
	}

	res, runErr := orchestrator.Run(ctx)
	if res == nil {
		return runErr
	}
	if runErr != nil {
		log.Error("orchestration failed", zap.Error(runErr))
	}
	if ctx.Err() != nil {
		log.Warn("run was interrupted, remaining tests were skipped")
	}

	code := master.ExitCode(res.Aggregate, runErr)
	fmt.Fprintln(out)
	if missing := master.MissingWorkers(runErr); len(missing) > 0 {
		fmt.Fprintf(out, "%d worker(s) did not report: %v\n", len(missing), missing)
	}
	fmt.Fprintln(out, master.SummaryLine(res.Aggregate))
	fmt.Fprintf(out, "All tests passed? %v\n", code == 0)

	if cfg.Report.SummaryJSON != "" {
		if err := master.NewSummary(res, runErr).WriteFile(cfg.Report.SummaryJSON); err != nil {
			log.Error("failed to write summary", zap.String("path", cfg.Report.SummaryJSON), zap.Error(err))
			code = 1
		} else if !opts.quiet {
			fmt.Fprintf(out, "Summary written to %s\n", cfg.Report.SummaryJSON)
		}
	}

	if code != 0 {
		return &ExitError{Code: code}
	}
	return nil
}

// newLauncher 按隔离方式构建 worker 启动器
func newLauncher(cmd *cobra.Command, opts *rootOptions, cfg *config.Config, tests types.Corpus, runID string, log *zap.Logger) (master.Launcher, error) {
	// 所有 worker 共享同一个 stderr，写入需要串行化
	stderr := zapcore.Lock(zapcore.AddSync(cmd.ErrOrStderr()))
	var console io.Writer
	if !opts.quiet {
		console = stderr
	}

	if cfg.Run.Isolation == config.IsolationGoroutine {
		return &master.InProcessLauncher{
			NewWorker: func(key types.ShardKey) (*slave.Worker, error) {
				return slave.NewFromConfig(cfg, key, tests, slave.Options{
					RunID:   runID,
					Console: console,
					Logger:  log,
				})
			},
			JoinGrace: cfg.Run.JoinGrace,
			Logger:    log,
		}, nil
	}

	resolved, err := cfg.Serialize()
	if err != nil {
		return nil, fmt.Errorf("序列化配置失败: %w", err)
	}
	args := []string{"worker", "--config", "-", "--run-id", runID}
	if opts.quiet {
		args = append(args, "--quiet")
	}
	return &master.ProcessLauncher{
		Args:      args,
		Config:    resolved,
		Stderr:    stderr,
		JoinGrace: cfg.Run.JoinGrace,
		Logger:    log,
	}, nil
}

func printRunInfo(w io.Writer, cfg *config.Config, runID string, tests int) {
	fmt.Fprintf(w, Banner, Version)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  run id:     %s\n", runID)
	fmt.Fprintf(w, "  tests:      %d (%s)\n", tests, cfg.Corpus.Path)
	fmt.Fprintf(w, "  workers:    %d (%s, %s)\n", cfg.Run.Parallel, cfg.Run.ShardStrategy, cfg.Run.Isolation)
	fmt.Fprintf(w, "  executable: %s\n", cfg.Runner.Executable)
	if cfg.Run.Include != "" {
		fmt.Fprintf(w, "  include:    %s\n", cfg.Run.Include)
	}
	if cfg.Run.Exclude != "" {
		fmt.Fprintf(w, "  exclude:    %s\n", cfg.Run.Exclude)
	}
	fmt.Fprintf(w, "  reports:    %s/%s-<worker>.%s\n", cfg.Report.Dir, cfg.Report.Prefix, reportExt(cfg.Report.Format))
	fmt.Fprintln(w)
}

// reportFormats 列出已注册的文件报告器类型
func reportFormats() []string {
	registry, err := reporter.NewDefaultRegistry()
	if err != nil {
		return []string{config.FormatJUnit, config.FormatJSON}
	}
	files := slice.Filter(registry.ListTypes(), func(_ int, t reporter.ReporterType) bool {
		return t != reporter.ReporterTypeConsole
	})
	return slice.Map(files, func(_ int, t reporter.ReporterType) string {
		return string(t)
	})
}

func reportExt(format string) string {
	if format == config.FormatJSON {
		return "json"
	}
	return "xml"
}
