package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"yqhp/systest/internal/config"
	"yqhp/systest/internal/corpus"
	"yqhp/systest/internal/master"
	"yqhp/systest/internal/slave"
	"yqhp/systest/pkg/logger"
	"yqhp/systest/pkg/types"
	"yqhp/systest/pkg/utils"
)

var errDrainRequested = errors.New("orchestrator requested drain")

type workerOptions struct {
	index    int
	count    int
	runID    string
	cancelFD int
}

// newWorkerCmd 创建内部使用的 worker 子命令。
// 配置从 --config 读取("-" 表示 stdin)，不再叠加环境变量和 flags，
// 保证与 orchestrator 解析出的配置完全一致。
// stdout 只输出一行结果帧。
func newWorkerCmd(opts *rootOptions) *cobra.Command {
	wopts := &workerOptions{}
	workerCmd := &cobra.Command{
		Use:    "worker",
		Short:  "运行单个分片 (内部命令)",
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorker(cmd, opts, wopts)
		},
	}

	flags := workerCmd.Flags()
	flags.IntVar(&wopts.index, "index", 0, "worker 编号")
	flags.IntVar(&wopts.count, "count", 1, "worker 总数")
	flags.StringVar(&wopts.runID, "run-id", "", "运行 ID")
	flags.IntVar(&wopts.cancelFD, "cancel-fd", -1, "取消管道的文件描述符，管道关闭即收尾")
	return workerCmd
}

func runWorker(cmd *cobra.Command, opts *rootOptions, wopts *workerOptions) error {
	key := types.ShardKey{Index: wopts.index, Count: wopts.count}
	if err := key.Validate(); err != nil {
		return err
	}

	// 先接管中断信号: 之后的任何中断都只让 worker 收尾，结果帧照常发布
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := watchCancelPipe(ctx, wopts.cancelFD)
	defer cancel()

	cfg, err := readResolvedConfig(cmd.InOrStdin(), opts.cfgFile)
	if err != nil {
		return err
	}
	opts.applyLogLevel(cfg)
	log := newLogger(cfg, "worker").With(zap.Int("pid", os.Getpid()))
	defer logger.Sync()

	// 发现不随中断取消: 被中断的 worker 仍需知道自己的分片，才能把它报告为全部跳过
	tests, err := corpus.New(cfg.Corpus.Path, cfg.Corpus.Pattern).Discover(context.WithoutCancel(ctx))
	if err != nil {
		return fmt.Errorf("发现测试失败: %w", err)
	}

	var console io.Writer
	if !opts.quiet {
		console = cmd.ErrOrStderr()
	}
	w, err := slave.NewFromConfig(cfg, key, tests, slave.Options{
		RunID:   wopts.runID,
		Console: console,
		Logger:  log,
	})
	if err != nil {
		return err
	}

	slot := w.Run(ctx)
	return master.WriteFrame(cmd.OutOrStdout(), key, slot)
}

// watchCancelPipe 在 fd 对应的管道关闭或出错时取消 ctx。fd < 0 表示没有管道。
func watchCancelPipe(ctx context.Context, fd int) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancelCause(ctx)
	stop := func() { cancel(context.Canceled) }
	if fd < 0 {
		return ctx, stop
	}
	pipe := os.NewFile(uintptr(fd), "cancel")
	if pipe == nil {
		cancel(fmt.Errorf("invalid cancel fd %d", fd))
		return ctx, stop
	}
	utils.SafeGoWithCallback(func() {
		defer pipe.Close()
		_, _ = io.Copy(io.Discard, pipe)
		cancel(errDrainRequested)
	}, func(*utils.PanicError) {
		cancel(errDrainRequested)
	})
	return ctx, stop
}

func readResolvedConfig(stdin io.Reader, path string) (*config.Config, error) {
	var (
		data []byte
		err  error
	)
	switch path {
	case "":
		return nil, fmt.Errorf("worker 需要 --config")
	case "-":
		data, err = io.ReadAll(stdin)
	default:
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("读取配置失败: %w", err)
	}

	cfg, err := config.ParseConfig(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("配置无效: %w", err)
	}
	return cfg, nil
}
