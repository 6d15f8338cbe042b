package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/staff-service/internal/service"
)

// Sweeper is the lifecycle operation the probation sweeper drives.
type Sweeper interface {
	SweepProbation(ctx context.Context) (service.SweepResult, error)
}

// SweepRecorder receives sweep outcomes.
type SweepRecorder interface {
	RecordSweep(completed, failed int)
}

// ProbationSweeper periodically promotes members whose probation has ended.
type ProbationSweeper struct {
	sweeper  Sweeper
	recorder SweepRecorder
	interval time.Duration
	logger   *zap.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// NewProbationSweeper builds a sweeper running every interval; non-positive intervals
// default to one hour.
func NewProbationSweeper(sweeper Sweeper, recorder SweepRecorder, interval time.Duration, logger *zap.Logger) *ProbationSweeper {
	if interval <= 0 {
		interval = time.Hour
	}
	return &ProbationSweeper{sweeper: sweeper, recorder: recorder, interval: interval, logger: logger}
}

// Start runs a sweep immediately and then every interval until Stop or ctx is done.
// Calling Start twice is a no-op.
func (p *ProbationSweeper) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}
	ctx, p.cancel = context.WithCancel(ctx)
	p.done = make(chan struct{})
	go p.loop(ctx, p.done)
}

// Stop halts the loop and waits for an in-flight sweep to return.
func (p *ProbationSweeper) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (p *ProbationSweeper) loop(ctx context.Context, done chan struct{}) {
	defer close(done)
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			p.RunOnce(ctx)
			timer.Reset(p.interval)
		}
	}
}

// RunOnce performs a single sweep and reports its outcome.
func (p *ProbationSweeper) RunOnce(ctx context.Context) service.SweepResult {
	started := time.Now()
	result, err := p.sweeper.SweepProbation(ctx)
	if p.recorder != nil {
		p.recorder.RecordSweep(result.Completed, result.Failed)
	}
	fields := []zap.Field{
		zap.Int("due", result.Due),
		zap.Int("completed", result.Completed),
		zap.Int("failed", result.Failed),
		zap.Duration("elapsed", time.Since(started)),
	}
	switch {
	case err != nil:
		p.logger.Error("probation sweep failed", append(fields, zap.Error(err))...)
	case result.Due > 0:
		p.logger.Info("probation sweep", fields...)
	default:
		p.logger.Debug("probation sweep", fields...)
	}
	return result
}
