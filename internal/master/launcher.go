package master

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"yqhp/systest/internal/slave"
	"yqhp/systest/pkg/types"
	"yqhp/systest/pkg/utils"
)

// Launcher starts one worker and blocks until it has terminated.
// It returns the worker's slot or an orchestration error, never both.
// Cancelling ctx asks the worker to drain; it still publishes a slot.
type Launcher interface {
	Launch(ctx context.Context, key types.ShardKey) (types.ResultSlot, error)
}

// LauncherFunc adapts a function to Launcher.
type LauncherFunc func(ctx context.Context, key types.ShardKey) (types.ResultSlot, error)

// Launch implements Launcher.
func (f LauncherFunc) Launch(ctx context.Context, key types.ShardKey) (types.ResultSlot, error) {
	return f(ctx, key)
}

// WorkerFactory builds the worker for a shard key.
type WorkerFactory func(key types.ShardKey) (*slave.Worker, error)

// InProcessLauncher runs each worker in a goroutine of the current process.
// Tests share the process but each runs in its own child process when the
// worker uses an ExecRunner.
type InProcessLauncher struct {
	NewWorker WorkerFactory
	// JoinGrace bounds the wait after ctx is done. Zero waits forever.
	JoinGrace time.Duration
	Logger    *zap.Logger
}

type launchResult struct {
	slot types.ResultSlot
	err  error
}

// Launch implements Launcher.
func (l *InProcessLauncher) Launch(ctx context.Context, key types.ShardKey) (types.ResultSlot, error) {
	if l.NewWorker == nil {
		return types.ResultSlot{}, fmt.Errorf("%w: no worker factory", ErrWorkerStart)
	}
	w, err := l.NewWorker(key)
	if err != nil {
		return types.ResultSlot{}, fmt.Errorf("%w: %v", ErrWorkerStart, err)
	}

	done := make(chan launchResult, 1)
	utils.SafeGoWithCallback(func() {
		done <- launchResult{slot: w.Run(ctx)}
	}, func(p *utils.PanicError) {
		if l.Logger != nil {
			l.Logger.Error("worker panicked",
				zap.Stringer("worker", key),
				zap.Any("panic", p.Value),
				zap.ByteString("stack", p.Stack))
		}
		done <- launchResult{err: fmt.Errorf("%w: %v", ErrSlotMissing, p)}
	})

	select {
	case res := <-done:
		return res.slot, res.err
	case <-ctx.Done():
	}

	if l.JoinGrace <= 0 {
		res := <-done
		return res.slot, res.err
	}
	timer := time.NewTimer(l.JoinGrace)
	defer timer.Stop()
	select {
	case res := <-done:
		return res.slot, res.err
	case <-timer.C:
		return types.ResultSlot{}, ErrWorkerTimeout
	}
}
