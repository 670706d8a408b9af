// Package haunt implements the content mutation engine: a registry of
// hauntable files, randomized byte-level mutations and the triggers that
// fire them.
package haunt

import (
	"context"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/hpungsan/shadowscript/internal/errors"
	"github.com/hpungsan/shadowscript/internal/metrics"
	"github.com/hpungsan/shadowscript/internal/vfs"
)

// Trigger probabilities.
const (
	CommandProbability = 0.2
	GhostProbability   = 0.3
)

// Filesystem is the subset of the virtual filesystem the engine needs.
type Filesystem interface {
	MutateFile(ctx context.Context, path string, transform func(content string) string) error
	OnCreate(fn func(path string)) (unsubscribe func())
}

// Globber lists file paths matching a pattern.
type Globber interface {
	Glob(ctx context.Context, pattern string) ([]string, error)
}

// LogEntry records one applied mutation.
type LogEntry struct {
	Path      string `json:"path"`
	Timestamp int64  `json:"timestamp"`
	Kind      Kind   `json:"type"`
}

// Engine owns the haunting registry and mutation log.
type Engine struct {
	fs     Filesystem
	logger *zap.Logger
	now    func() time.Time

	mu         sync.Mutex
	rng        *rand.Rand
	registered map[string]struct{}
	log        []LogEntry
	unsubs     []func()

	runMu  sync.Mutex
	cancel context.CancelFunc
	runID  uint64
	wg     sync.WaitGroup
}

// Option configures an Engine.
type Option func(*Engine)

// WithRand sets the random source. Tests pass a seeded one.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// WithClock overrides the time source for log timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLogger sets the logger. Nil means no logging.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New returns an engine mutating files through fs.
func New(fs Filesystem, opts ...Option) *Engine {
	e := &Engine{
		fs:         fs,
		logger:     zap.NewNop(),
		now:        time.Now,
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		registered: make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RegisterFile marks path as hauntable. Registering twice is a no-op.
func (e *Engine) RegisterFile(path string) {
	e.mu.Lock()
	e.registered[vfs.Clean(path)] = struct{}{}
	n := len(e.registered)
	e.mu.Unlock()
	metrics.SetHauntedFiles(n)
}

// UnregisterFile removes path from the registry. Missing paths are ignored.
func (e *Engine) UnregisterFile(path string) {
	e.mu.Lock()
	delete(e.registered, vfs.Clean(path))
	n := len(e.registered)
	e.mu.Unlock()
	metrics.SetHauntedFiles(n)
}

// IsRegistered reports whether path is hauntable.
func (e *Engine) IsRegistered(path string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	_, ok := e.registered[vfs.Clean(path)]
	return ok
}

// RegisteredFiles returns the hauntable paths in ascending order.
func (e *Engine) RegisteredFiles() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	paths := make([]string, 0, len(e.registered))
	for p := range e.registered {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// MutationLog returns a copy of the log, oldest first.
func (e *Engine) MutationLog() []LogEntry {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]LogEntry, len(e.log))
	copy(out, e.log)
	return out
}

// TriggerMutation applies one randomly chosen mutation to a registered file.
// It fails with NOT_REGISTERED before touching the filesystem; read and
// write failures surface as the filesystem reports them. The read and the
// write happen atomically, so concurrent writers are never overwritten with
// stale content.
func (e *Engine) TriggerMutation(ctx context.Context, path string) (Kind, error) {
	clean := vfs.Clean(path)
	if !e.IsRegistered(clean) {
		return "", errors.NewNotRegistered(clean)
	}

	var kind Kind
	err := e.fs.MutateFile(ctx, clean, func(content string) string {
		e.mu.Lock()
		defer e.mu.Unlock()
		kind = Kinds[e.rng.IntN(len(Kinds))]
		return Apply(kind, e.rng, content)
	})
	if err != nil {
		e.logger.Error("failed to haunt file", zap.String("path", clean), zap.Error(err))
		return "", err
	}

	e.mu.Lock()
	e.log = append(e.log, LogEntry{Path: clean, Timestamp: e.now().UnixMilli(), Kind: kind})
	e.mu.Unlock()

	metrics.RecordMutation(string(kind))
	e.logger.Debug("file haunted", zap.String("path", clean), zap.String("kind", string(kind)))
	return kind, nil
}

// OnCommandExecution haunts a random registered file with probability 0.2.
// It returns the haunted path, or "" when nothing fired.
func (e *Engine) OnCommandExecution(ctx context.Context, command string) (string, error) {
	path, ok := e.roll(CommandProbability)
	if !ok {
		return "", nil
	}
	e.logger.Info("command triggered haunting", zap.String("command", command), zap.String("path", path))
	_, err := e.TriggerMutation(ctx, path)
	return path, err
}

// OnGhostInteraction haunts a random registered file with probability 0.3.
// It returns the haunted path, or "" when nothing fired.
func (e *Engine) OnGhostInteraction(ctx context.Context, interaction string) (string, error) {
	path, ok := e.roll(GhostProbability)
	if !ok {
		return "", nil
	}
	e.logger.Info("ghost interaction triggered haunting", zap.String("interaction", interaction), zap.String("path", path))
	_, err := e.TriggerMutation(ctx, path)
	return path, err
}

// roll draws against p and, on success, picks a random registered file.
func (e *Engine) roll(p float64) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.rng.Float64() >= p || len(e.registered) == 0 {
		return "", false
	}
	return e.pickLocked(), true
}

func (e *Engine) pickLocked() string {
	paths := make([]string, 0, len(e.registered))
	for p := range e.registered {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths[e.rng.IntN(len(paths))]
}

// OnFileCreated subscribes cb to successful file creations. Panics in cb are
// recovered by the filesystem and never reach the writer.
func (e *Engine) OnFileCreated(cb func(path string)) {
	unsub := e.fs.OnCreate(cb)
	e.mu.Lock()
	e.unsubs = append(e.unsubs, unsub)
	e.mu.Unlock()
}

// AutoRegister registers every newly created file whose path matches one of
// the doublestar patterns.
func (e *Engine) AutoRegister(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return errors.NewInvalidRequest("invalid haunt pattern: " + p)
		}
	}
	pats := append([]string(nil), patterns...)
	e.OnFileCreated(func(path string) {
		if matchAny(pats, path) {
			e.RegisterFile(path)
		}
	})
	return nil
}

// RegisterMatching registers existing files matching the patterns and
// returns how many paths were added.
func (e *Engine) RegisterMatching(ctx context.Context, g Globber, patterns []string) (int, error) {
	added := 0
	for _, pattern := range patterns {
		paths, err := g.Glob(ctx, pattern)
		if err != nil {
			return added, err
		}
		for _, p := range paths {
			if !e.IsRegistered(p) {
				e.RegisterFile(p)
				added++
			}
		}
	}
	return added, nil
}

func matchAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// Close stops the scheduler and drops creation subscriptions.
func (e *Engine) Close() {
	e.Stop()
	e.mu.Lock()
	unsubs := e.unsubs
	e.unsubs = nil
	e.mu.Unlock()
	for _, u := range unsubs {
		u()
	}
}
