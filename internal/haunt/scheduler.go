package haunt

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/shadowscript/internal/errors"
)

// StartRandomMutations haunts a random registered file after every uniformly
// random delay in [minDelay, maxDelay) until ctx is cancelled or Stop is called.
func (e *Engine) StartRandomMutations(ctx context.Context, minDelay, maxDelay time.Duration) error {
	if minDelay < 0 || maxDelay < minDelay || maxDelay == 0 {
		return errors.NewInvalidRequest("mutation interval requires 0 <= min <= max and max > 0")
	}

	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.cancel != nil {
		return errors.NewInvalidRequest("random mutations already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel
	e.runID++
	id := e.runID
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		defer e.finishRun(id, cancel)
		for {
			timer := time.NewTimer(e.delay(minDelay, maxDelay))
			select {
			case <-runCtx.Done():
				timer.Stop()
				return
			case <-timer.C:
			}
			e.mutateRandom(runCtx)
		}
	}()

	e.logger.Info("random mutations started", zap.Duration("min", minDelay), zap.Duration("max", maxDelay))
	return nil
}

// Stop cancels the scheduler and waits for it to exit. Safe to call when not running.
func (e *Engine) Stop() {
	e.runMu.Lock()
	cancel := e.cancel
	e.cancel = nil
	e.runMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	e.wg.Wait()
}

// finishRun clears the run state when the loop exits on its own, so a
// cancelled parent context does not leave the engine marked running.
func (e *Engine) finishRun(id uint64, cancel context.CancelFunc) {
	cancel()
	e.runMu.Lock()
	defer e.runMu.Unlock()
	if e.runID == id {
		e.cancel = nil
	}
}

// Running reports whether the scheduler is active.
func (e *Engine) Running() bool {
	e.runMu.Lock()
	defer e.runMu.Unlock()
	return e.cancel != nil
}

func (e *Engine) delay(minDelay, maxDelay time.Duration) time.Duration {
	if maxDelay <= minDelay {
		return minDelay
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return minDelay + time.Duration(e.rng.Int64N(int64(maxDelay-minDelay)))
}

func (e *Engine) mutateRandom(ctx context.Context) {
	e.mu.Lock()
	if len(e.registered) == 0 {
		e.mu.Unlock()
		return
	}
	path := e.pickLocked()
	e.mu.Unlock()

	if _, err := e.TriggerMutation(ctx, path); err != nil {
		e.logger.Warn("random mutation failed", zap.String("path", path), zap.Error(err))
	}
}
