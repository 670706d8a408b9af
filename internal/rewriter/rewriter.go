// Package rewriter turns plain messages into "haunted" ones by composing
// randomized text passes chosen by intensity, while keeping the result
// readable.
package rewriter

import (
	"math"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/hpungsan/shadowscript/internal/config"
	"github.com/hpungsan/shadowscript/internal/metrics"
)

const (
	// MinSimilarity is the readability floor a rewrite must keep.
	MinSimilarity = 0.8
	// MinLengthRatio short-circuits to the fallback when lengths diverge.
	MinLengthRatio = 0.7
	// FallbackIntensity is the letter-substitution intensity of the fallback.
	FallbackIntensity = 0.3

	slowRewrite = 100 * time.Millisecond
)

type cacheKey struct {
	message   string
	intensity float64
}

type cacheEntry struct {
	result string
	at     time.Time
}

// Rewriter rewrites messages and memoizes results per (message, intensity).
// It is safe for concurrent use.
type Rewriter struct {
	mu         sync.Mutex
	rng        *rand.Rand
	cache      map[cacheKey]cacheEntry
	ttl        time.Duration
	maxEntries int

	now    func() time.Time
	logger *zap.Logger
}

// Option configures a Rewriter.
type Option func(*Rewriter)

func WithRand(r *rand.Rand) Option { return func(rw *Rewriter) { rw.rng = r } }

func WithClock(now func() time.Time) Option { return func(rw *Rewriter) { rw.now = now } }

func WithLogger(l *zap.Logger) Option {
	return func(rw *Rewriter) {
		if l != nil {
			rw.logger = l
		}
	}
}

// WithCache sets the result TTL and the maximum number of cached entries.
func WithCache(ttl time.Duration, maxEntries int) Option {
	return func(rw *Rewriter) {
		rw.ttl = ttl
		rw.maxEntries = maxEntries
	}
}

// OptionsFromConfig maps config values to options.
func OptionsFromConfig(cfg *config.Config) []Option {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return []Option{WithCache(cfg.RewriteCacheTTL(), cfg.RewriteCacheMax)}
}

// New returns a Rewriter with a 60s, 100-entry cache unless overridden.
func New(opts ...Option) *Rewriter {
	defaults := config.DefaultConfig()
	rw := &Rewriter{
		rng:        rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		cache:      make(map[cacheKey]cacheEntry),
		ttl:        defaults.RewriteCacheTTL(),
		maxEntries: defaults.RewriteCacheMax,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(rw)
	}
	if rw.maxEntries < 2 {
		rw.maxEntries = 2
	}
	return rw
}

// Rewrite transforms message at an intensity drawn uniformly from [0,1).
// Each call draws afresh and bypasses the cache.
func (rw *Rewriter) Rewrite(message string) string {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	intensity := rw.rng.Float64()
	return rw.transformLocked(message, intensity)
}

// RewriteAt transforms message at the given intensity, clamped to [0,1].
// Repeated calls within the cache TTL return the same result.
func (rw *Rewriter) RewriteAt(message string, intensity float64) string {
	intensity = clamp(intensity)
	key := cacheKey{message: message, intensity: intensity}

	rw.mu.Lock()
	defer rw.mu.Unlock()

	now := rw.now()
	if e, ok := rw.cache[key]; ok && now.Sub(e.at) < rw.ttl {
		metrics.RecordRewrite("cache_hit", 0)
		return e.result
	}

	result := rw.transformLocked(message, intensity)
	rw.storeLocked(key, result, now)
	return result
}

// ClearCache drops every cached rewrite.
func (rw *Rewriter) ClearCache() {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	rw.cache = make(map[cacheKey]cacheEntry)
}

// CacheLen returns the number of cached entries.
func (rw *Rewriter) CacheLen() int {
	rw.mu.Lock()
	defer rw.mu.Unlock()
	return len(rw.cache)
}

func (rw *Rewriter) transformLocked(message string, intensity float64) string {
	start := time.Now()

	result := message
	for _, p := range selectPasses(rw.rng, intensity) {
		result = applyPass(rw.rng, p, result, intensity)
	}

	outcome := "rewritten"
	if !readable(message, result) {
		result = letterSubstitution(rw.rng, message, FallbackIntensity)
		outcome = "fallback"
	}

	elapsed := time.Since(start)
	metrics.RecordRewrite(outcome, elapsed)
	if elapsed > slowRewrite {
		rw.logger.Warn("slow message rewrite",
			zap.Duration("elapsed", elapsed), zap.Int("chars", len(message)))
	}
	return result
}

// storeLocked inserts a result, evicting expired entries and then the oldest
// half when the cache is full.
func (rw *Rewriter) storeLocked(key cacheKey, result string, now time.Time) {
	if len(rw.cache) >= rw.maxEntries {
		for k, e := range rw.cache {
			if now.Sub(e.at) >= rw.ttl {
				delete(rw.cache, k)
			}
		}
		if len(rw.cache) >= rw.maxEntries {
			keys := make([]cacheKey, 0, len(rw.cache))
			for k := range rw.cache {
				keys = append(keys, k)
			}
			sort.Slice(keys, func(i, j int) bool {
				return rw.cache[keys[i]].at.Before(rw.cache[keys[j]].at)
			})
			for _, k := range keys[:len(keys)-rw.maxEntries/2] {
				delete(rw.cache, k)
			}
		}
	}
	rw.cache[key] = cacheEntry{result: result, at: now}
}

// readable applies the length-ratio short-circuit and the similarity floor.
func readable(original, transformed string) bool {
	a, b := len([]rune(original)), len([]rune(transformed))
	longer := max(a, b)
	if longer == 0 {
		return true
	}
	if float64(min(a, b))/float64(longer) < MinLengthRatio {
		return false
	}
	if len(squash(original)) == 0 {
		return true
	}
	return Similarity(original, transformed) >= MinSimilarity
}

// Similarity compares original and transformed position by position,
// ignoring whitespace and case, and divides the matches by the original's
// non-whitespace length.
func Similarity(original, transformed string) float64 {
	o, t := squash(original), squash(transformed)
	if len(o) == 0 {
		return 1
	}
	n := min(len(o), len(t))
	matches := 0
	for i := 0; i < n; i++ {
		if o[i] == t[i] {
			matches++
		}
	}
	return float64(matches) / float64(len(o))
}

// squash drops whitespace and lower-cases.
func squash(s string) []rune {
	out := make([]rune, 0, len(s))
	for _, r := range strings.ToLower(s) {
		if !unicode.IsSpace(r) {
			out = append(out, r)
		}
	}
	return out
}

func clamp(intensity float64) float64 {
	if math.IsNaN(intensity) || intensity < 0 {
		return 0
	}
	if intensity > 1 {
		return 1
	}
	return intensity
}
