package ghostpaint

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/hpungsan/shadowscript/internal/errors"
	"github.com/hpungsan/shadowscript/internal/vfs"
)

// Dir holds the saved artworks.
const Dir = vfs.GhostPaintDir

// FormatVersion is written into every artwork file.
const FormatVersion = "1.0"

// Artwork is the saved form of a canvas.
type Artwork struct {
	Canvas
	Timestamp int64  `json:"timestamp"`
	Version   string `json:"version"`
}

// Filesystem is the subset of the virtual filesystem the store uses.
type Filesystem interface {
	Exists(ctx context.Context, path string) (bool, error)
	CreateDirectory(ctx context.Context, path string) error
	CreateFile(ctx context.Context, path, content string) error
	ReadFile(ctx context.Context, path string) (string, error)
	UpdateFile(ctx context.Context, path, content string) error
	ListDirectory(ctx context.Context, path string) ([]vfs.Entry, error)
}

// Store saves and loads artworks under Dir.
type Store struct {
	fs     Filesystem
	now    func() time.Time
	logger *zap.Logger

	mu  sync.Mutex
	rng *rand.Rand
}

// Option configures a Store.
type Option func(*Store)

func WithRand(r *rand.Rand) Option { return func(s *Store) { s.rng = r } }

func WithClock(now func() time.Time) Option { return func(s *Store) { s.now = now } }

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewStore returns a store on fs.
func NewStore(fs Filesystem, opts ...Option) *Store {
	s := &Store{
		fs:     fs,
		now:    time.Now,
		logger: zap.NewNop(),
		rng:    rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save writes c to /ghostpaint/artwork_<ms>.json and returns the path.
func (s *Store) Save(ctx context.Context, c *Canvas) (string, error) {
	if err := c.Validate(); err != nil {
		return "", errors.NewInvalidRequest(err.Error())
	}
	ok, err := s.fs.Exists(ctx, Dir)
	if err != nil {
		return "", err
	}
	if !ok {
		if err := s.fs.CreateDirectory(ctx, Dir); err != nil {
			return "", err
		}
	}

	ts := s.now().UnixMilli()
	art := Artwork{Canvas: *c, Timestamp: ts, Version: FormatVersion}
	data, err := sonic.ConfigStd.MarshalIndent(art, "", "  ")
	if err != nil {
		return "", errors.NewInternal(err)
	}
	path := fmt.Sprintf("%s/artwork_%d.json", Dir, ts)
	if err := s.fs.CreateFile(ctx, path, string(data)); err != nil {
		return "", err
	}
	return path, nil
}

// List returns artwork entries, most recently modified first.
func (s *Store) List(ctx context.Context) ([]vfs.Entry, error) {
	entries, err := s.fs.ListDirectory(ctx, Dir)
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var arts []vfs.Entry
	for _, e := range entries {
		if e.Type == vfs.TypeFile && strings.HasPrefix(e.Name, "artwork_") && strings.HasSuffix(e.Name, ".json") {
			arts = append(arts, e)
		}
	}
	sort.SliceStable(arts, func(i, j int) bool { return arts[i].Modified > arts[j].Modified })
	return arts, nil
}

// Load reads the artwork at path.
func (s *Store) Load(ctx context.Context, path string) (*Artwork, error) {
	content, err := s.fs.ReadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	var art Artwork
	if err := sonic.ConfigStd.UnmarshalFromString(content, &art); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("artwork %s is corrupted: %v", path, err))
	}
	if err := art.Validate(); err != nil {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("artwork %s is corrupted: %v", path, err))
	}
	return &art, nil
}

// LoadLatest reads the most recently modified artwork. It fails with
// NOT_FOUND when none has been saved.
func (s *Store) LoadLatest(ctx context.Context) (*Artwork, error) {
	arts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	if len(arts) == 0 {
		return nil, errors.NewNotFound(Dir + "/artwork_*.json")
	}
	return s.Load(ctx, arts[0].Path)
}

// CorruptLatest lets the ghost flip a pixel or two of the latest artwork and
// writes it back. It returns the artwork path and the number of pixels
// touched; with no artwork, or a blank one, nothing is written.
func (s *Store) CorruptLatest(ctx context.Context) (string, int, error) {
	arts, err := s.List(ctx)
	if err != nil || len(arts) == 0 {
		return "", 0, err
	}
	path := arts[0].Path
	art, err := s.Load(ctx, path)
	if err != nil {
		return path, 0, err
	}

	s.mu.Lock()
	n := art.Corrupt(s.rng)
	s.mu.Unlock()
	if n == 0 {
		return path, 0, nil
	}

	data, err := sonic.ConfigStd.MarshalIndent(art, "", "  ")
	if err != nil {
		return path, 0, errors.NewInternal(err)
	}
	if err := s.fs.UpdateFile(ctx, path, string(data)); err != nil {
		return path, 0, err
	}
	s.logger.Debug("artwork corrupted", zap.String("path", path), zap.Int("pixels", n))
	return path, n, nil
}

// RunCorruption calls CorruptLatest after every uniformly random delay in
// [minDelay, maxDelay) until ctx is done. Failures are logged.
func (s *Store) RunCorruption(ctx context.Context, minDelay, maxDelay time.Duration) error {
	for {
		timer := time.NewTimer(s.delay(minDelay, maxDelay))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
		if path, _, err := s.CorruptLatest(ctx); err != nil {
			s.logger.Warn("artwork corruption failed", zap.String("path", path), zap.Error(err))
		}
	}
}

func (s *Store) delay(minDelay, maxDelay time.Duration) time.Duration {
	if maxDelay <= minDelay {
		return minDelay
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return minDelay + time.Duration(s.rng.Int64N(int64(maxDelay-minDelay)))
}
