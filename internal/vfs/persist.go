package vfs

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hpungsan/shadowscript/internal/errors"
	"github.com/hpungsan/shadowscript/internal/metrics"
)

// StorageKey is the single key the tree is persisted under.
const StorageKey = "shadowscript_fs"

// load rehydrates the tree from storage. A missing or undecodable document
// yields nil so the caller starts from an empty root.
func (f *FS) load(ctx context.Context) (*Node, error) {
	data, found, err := f.kv.Get(ctx, f.key)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	root, err := Decode(data)
	if err != nil {
		f.logger.Error("failed to load filesystem from storage, starting fresh",
			zap.String("key", f.key), zap.Error(err))
		return nil, nil
	}
	return root, nil
}

// afterMutationLocked checks the quota and, if within it, restarts the
// debounce timer. Over quota the in-memory change stands but nothing is
// scheduled, and the caller gets QUOTA_EXCEEDED.
func (f *FS) afterMutationLocked() error {
	metrics.SetUsage(f.usage)
	if f.usage > f.quota {
		f.logger.Warn("storage quota exceeded",
			zap.Int64("usage_bytes", f.usage), zap.Int64("quota_bytes", f.quota))
		return errors.NewQuotaExceeded(f.quota, f.usage)
	}
	f.scheduleSaveLocked()
	return nil
}

func (f *FS) scheduleSaveLocked() {
	f.dirty = true
	if f.closed {
		return
	}
	f.stopTimerLocked()
	gen := f.gen
	f.timer = time.AfterFunc(f.debounce, func() { f.saveFromTimer(gen) })
}

// stopTimerLocked cancels a pending save. Bumping gen also disarms a
// callback that already fired and is waiting on the mutex.
func (f *FS) stopTimerLocked() {
	f.gen++
	if f.timer != nil {
		f.timer.Stop()
		f.timer = nil
	}
}

func (f *FS) saveFromTimer(gen uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.gen {
		return
	}
	f.timer = nil
	if err := f.persistLocked(context.Background()); err != nil {
		f.saveErr = err
		f.logger.Error("debounced save failed", zap.Error(err))
		return
	}
	f.saveErr = nil
}

// persistLocked writes the tree to storage. The write happens under the
// mutex so a save never races a newer one.
func (f *FS) persistLocked(ctx context.Context) error {
	if f.usage > f.quota {
		err := errors.NewQuotaExceeded(f.quota, f.usage)
		metrics.RecordPersist(err)
		return err
	}
	data, err := Encode(f.root)
	if err != nil {
		err = errors.NewInternal(fmt.Errorf("failed to encode filesystem: %w", err))
		metrics.RecordPersist(err)
		return err
	}
	if err := f.kv.Set(ctx, f.key, data); err != nil {
		metrics.RecordPersist(err)
		if errors.Is(err, errors.ErrStorageUnavailable) {
			return err
		}
		return errors.NewStorageUnavailable(err)
	}
	metrics.RecordPersist(nil)
	f.dirty = false
	f.logger.Debug("filesystem persisted", zap.Int("bytes", len(data)))
	return nil
}

// Flush cancels any pending debounced save and persists immediately.
func (f *FS) Flush(ctx context.Context) (err error) {
	defer func() { metrics.RecordFSOp("flush", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	f.stopTimerLocked()
	err = f.persistLocked(ctx)
	f.saveErr = err
	return err
}

// SaveErr returns the error of the most recent persistence attempt, if it failed.
func (f *FS) SaveErr() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveErr
}

// Pending reports whether in-memory changes have not been persisted yet.
func (f *FS) Pending() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dirty
}

// Close persists outstanding changes and stops the debounce timer.
// The storage backend is owned by the caller and left open.
func (f *FS) Close(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return nil
	}
	f.stopTimerLocked()
	f.closed = true
	if !f.dirty {
		return nil
	}
	return f.persistLocked(ctx)
}
