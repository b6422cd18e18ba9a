// Package cmd 提供 systest CLI 的命令实现
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const (
	// Version 是当前版本号
	Version = "0.1.0"
	// Banner 是启动时显示的标题
	Banner = `
   ___ _   _ ___ _____ ___ ___ _____
  / __| \ / / __|_   _| __/ __|_   _|  systest %s
  \__ \ V /\__ \ | | | _|\__ \ | |
  |___/ |_| |___/ |_| |___|___/ |_|
`
)

// rootOptions 是所有子命令共享的全局 flags
type rootOptions struct {
	cfgFile string
	debug   bool
	quiet   bool
}

// ExitError 携带进程退出码，摘要已经打印过，不再输出错误信息
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

// NewRootCmd 创建根命令，每次调用返回独立的命令树
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "systest",
		Short: "并行系统测试执行器",
		Long: `systest 把系统测试语料按确定的规则分成 N 个互不相交的分片，
每个分片由一个独立的 worker 进程运行，最后汇总所有 worker 的
跳过/失败/总数/状态，给出唯一的结论和退出码。`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "配置文件路径")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "启用调试日志")
	root.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "静默模式")

	root.CompletionOptions.DisableDefaultCmd = true
	root.SetVersionTemplate(fmt.Sprintf(Banner, Version) + "\n")

	root.AddCommand(newRunCmd(opts))
	root.AddCommand(newWorkerCmd(opts))
	root.AddCommand(newListCmd(opts))
	return root
}

// Execute 执行根命令并返回进程退出码
func Execute() int {
	return ExecuteArgs(os.Args[1:])
}

// ExecuteArgs 使用给定参数执行根命令
func ExecuteArgs(args []string) int {
	root := NewRootCmd()
	root.SetArgs(args)
	return exitCode(root, root.Execute())
}

func exitCode(root *cobra.Command, err error) int {
	if err == nil {
		return 0
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	return 1
}
