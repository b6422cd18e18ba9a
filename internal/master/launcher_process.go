package master

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	"yqhp/systest/pkg/types"
)

// CancelFD is the descriptor of the cancel pipe in the worker process.
const CancelFD = 3

// ProcessLauncher runs each worker as a child process, by default the
// current executable. The child receives the resolved configuration on
// stdin and its shard key as flags, and writes exactly one Frame on stdout:
//
//	<executable> <Args...> --index <i> --count <N> --cancel-fd 3
//
// Descriptor 3 is the read end of a pipe the launcher holds open while the
// worker may keep running. Closing it is the drain request, so a worker that
// is still starting up cannot be killed by it the way a signal would.
type ProcessLauncher struct {
	// Executable defaults to os.Executable().
	Executable string
	// Args select the worker command, e.g. ["worker", "--config", "-"].
	Args []string
	// Config is written to the child's stdin.
	Config []byte
	// Env is the child environment, nil inherits the current one.
	Env []string
	// Stderr receives the worker's logs and console output.
	Stderr io.Writer
	// JoinGrace is how long a worker may drain after the cancel pipe is
	// closed before it is killed. Zero waits forever.
	JoinGrace time.Duration
	Logger    *zap.Logger
}

// Launch implements Launcher.
func (l *ProcessLauncher) Launch(ctx context.Context, key types.ShardKey) (types.ResultSlot, error) {
	log := l.Logger
	if log == nil {
		log = zap.NewNop()
	}
	log = log.With(zap.Stringer("worker", key))

	exe := l.Executable
	if exe == "" {
		self, err := os.Executable()
		if err != nil {
			return types.ResultSlot{}, fmt.Errorf("%w: %v", ErrWorkerStart, err)
		}
		exe = self
	}

	cancelR, cancelW, err := os.Pipe()
	if err != nil {
		return types.ResultSlot{}, fmt.Errorf("%w: cancel pipe: %v", ErrWorkerStart, err)
	}
	defer cancelW.Close()

	args := append(slices.Clone(l.Args),
		"--index", strconv.Itoa(key.Index),
		"--count", strconv.Itoa(key.Count),
		"--cancel-fd", strconv.Itoa(CancelFD))
	cmd := exec.Command(exe, args...)
	cmd.ExtraFiles = []*os.File{cancelR}
	cmd.Stdin = bytes.NewReader(l.Config)
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = l.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	cmd.Env = l.Env

	err = cmd.Start()
	_ = cancelR.Close()
	if err != nil {
		return types.ResultSlot{}, fmt.Errorf("%w: %v", ErrWorkerStart, err)
	}
	log.Debug("worker started", zap.Int("pid", cmd.Process.Pid))

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- cmd.Wait()
	}()

	var waitErr error
	killed := false
	select {
	case waitErr = <-waitDone:
	case <-ctx.Done():
		log.Info("asking worker to drain", zap.Int("pid", cmd.Process.Pid), zap.Error(context.Cause(ctx)))
		_ = cancelW.Close()

		var grace <-chan time.Time
		if l.JoinGrace > 0 {
			timer := time.NewTimer(l.JoinGrace)
			defer timer.Stop()
			grace = timer.C
		}
		select {
		case waitErr = <-waitDone:
		case <-grace:
			log.Warn("killing worker after join grace", zap.Duration("grace", l.JoinGrace))
			_ = cmd.Process.Kill()
			killed = true
			waitErr = <-waitDone
		}
	}

	slot, err := ReadFrame(stdout.Bytes(), key)
	if err == nil {
		if waitErr != nil {
			log.Warn("worker exited abnormally after publishing its slot", zap.Error(waitErr))
		}
		return slot, nil
	}
	if killed {
		return types.ResultSlot{}, ErrWorkerTimeout
	}
	if waitErr != nil {
		return types.ResultSlot{}, fmt.Errorf("%w (%v)", err, waitErr)
	}
	return types.ResultSlot{}, err
}
