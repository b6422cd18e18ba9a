package master

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"yqhp/systest/pkg/types"
)

// Orchestrator launches a fixed pool of workers and joins them.
type Orchestrator struct {
	// Workers is the worker count N, at least 1.
	Workers  int
	Launcher Launcher
	// WorkerTimeout triggers a drain of each worker after this long.
	// Zero disables the watchdog.
	WorkerTimeout time.Duration
	// RunID defaults to a random UUID.
	RunID  string
	Logger *zap.Logger
}

// RunResult is everything known about a finished run.
type RunResult struct {
	RunID     string
	Started   time.Time
	Finished  time.Time
	Slots     *Slots
	Durations []time.Duration
	Aggregate *types.AggregateResult
}

// Run launches one worker per index, waits for all of them and aggregates
// their slots. Workers that did not publish a slot are reported as
// joined *WorkerError values, the aggregate is still computed from the
// published slots and its verdict is forced to FAILURE.
func (o *Orchestrator) Run(ctx context.Context) (*RunResult, error) {
	if o.Workers < 1 {
		return nil, fmt.Errorf("worker count must be at least 1, got %d", o.Workers)
	}
	if o.Launcher == nil {
		return nil, errors.New("orchestrator has no launcher")
	}
	log := o.Logger
	if log == nil {
		log = zap.NewNop()
	}

	res := &RunResult{
		RunID:     o.RunID,
		Started:   time.Now(),
		Slots:     NewSlots(o.Workers),
		Durations: make([]time.Duration, o.Workers),
	}
	if res.RunID == "" {
		res.RunID = uuid.NewString()
	}
	log = log.With(zap.String("run_id", res.RunID))
	log.Info("starting workers", zap.Int("workers", o.Workers))

	errs := make([]error, o.Workers)
	var g errgroup.Group
	for i := 0; i < o.Workers; i++ {
		i := i
		key := types.ShardKey{Index: i, Count: o.Workers}
		g.Go(func() error {
			errs[i] = o.launch(ctx, key, res, log)
			return errs[i]
		})
	}
	_ = g.Wait()

	res.Finished = time.Now()
	published, missing := res.Slots.Collect()
	res.Aggregate = Aggregate(published)
	res.Aggregate.Workers = o.Workers
	if len(missing) > 0 {
		res.Aggregate.AllOK = false
		res.Aggregate.Verdict = types.VerdictFailure
		log.Error("workers did not publish a result slot", zap.Ints("workers", missing))
	}

	log.Info("run finished",
		zap.String("verdict", string(res.Aggregate.Verdict)),
		zap.Int("total", res.Aggregate.Total),
		zap.Int("failed", res.Aggregate.Failed),
		zap.Int("skipped", res.Aggregate.Skipped),
		zap.Duration("elapsed", res.Finished.Sub(res.Started)))
	return res, errors.Join(errs...)
}

func (o *Orchestrator) launch(ctx context.Context, key types.ShardKey, res *RunResult, log *zap.Logger) error {
	if o.WorkerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, o.WorkerTimeout, fmt.Errorf("worker %s exceeded %s", key, o.WorkerTimeout))
		defer cancel()
	}

	start := time.Now()
	slot, err := o.Launcher.Launch(ctx, key)
	res.Durations[key.Index] = time.Since(start)
	if err != nil {
		log.Error("worker failed", zap.Stringer("worker", key), zap.Error(err))
		return &WorkerError{Index: key.Index, Err: err}
	}
	if err := res.Slots.Publish(key.Index, slot); err != nil {
		return &WorkerError{Index: key.Index, Err: fmt.Errorf("%w: %v", ErrSlotMissing, err)}
	}
	log.Debug("worker joined",
		zap.Stringer("worker", key),
		zap.Int("total", slot.Total),
		zap.Int("failed", slot.Failed),
		zap.Int("skipped", slot.Skipped),
		zap.Bool("ok", slot.OK()))
	return nil
}
