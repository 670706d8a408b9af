package vfs

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/hpungsan/shadowscript/internal/config"
	"github.com/hpungsan/shadowscript/internal/errors"
	"github.com/hpungsan/shadowscript/internal/metrics"
	"github.com/hpungsan/shadowscript/internal/storage"
)

// FS is the virtual filesystem. All tree access is path-mediated and
// serialized by a single mutex.
type FS struct {
	mu    sync.Mutex
	root  *Node
	usage int64
	cache *readCache

	kv       storage.KV
	key      string
	quota    int64
	debounce time.Duration
	timer    *time.Timer
	gen      uint64
	dirty    bool
	closed   bool
	saveErr  error

	obsMu     sync.Mutex
	observers map[int]func(path string)
	nextObs   int

	logger *zap.Logger
	now    func() time.Time
}

// Option configures an FS.
type Option func(*FS)

// WithLogger sets the logger. Nil means no logging.
func WithLogger(l *zap.Logger) Option {
	return func(f *FS) {
		if l != nil {
			f.logger = l
		}
	}
}

// WithClock overrides the time source used for timestamps and cache expiry.
func WithClock(now func() time.Time) Option {
	return func(f *FS) { f.now = now }
}

// WithQuota sets the maximum total file content in bytes.
func WithQuota(bytes int64) Option {
	return func(f *FS) { f.quota = bytes }
}

// WithDebounce sets the persistence debounce window.
func WithDebounce(d time.Duration) Option {
	return func(f *FS) { f.debounce = d }
}

// WithReadCacheTTL sets how long read results stay cached. Zero disables the cache.
func WithReadCacheTTL(d time.Duration) Option {
	return func(f *FS) { f.cache = newReadCache(d) }
}

// WithStorageKey overrides the key the tree is persisted under.
func WithStorageKey(key string) Option {
	return func(f *FS) { f.key = key }
}

// OptionsFromConfig maps config values to options.
func OptionsFromConfig(cfg *config.Config) []Option {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return []Option{
		WithQuota(cfg.StorageQuotaBytes),
		WithDebounce(cfg.SaveDebounce()),
		WithReadCacheTTL(cfg.ReadCacheTTL()),
	}
}

// New builds a filesystem backed by kv, rehydrating any persisted tree.
func New(ctx context.Context, kv storage.KV, opts ...Option) (*FS, error) {
	defaults := config.DefaultConfig()
	f := &FS{
		kv:        kv,
		key:       StorageKey,
		quota:     defaults.StorageQuotaBytes,
		debounce:  defaults.SaveDebounce(),
		cache:     newReadCache(defaults.ReadCacheTTL()),
		observers: make(map[int]func(string)),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}

	root, err := f.load(ctx)
	if err != nil {
		return nil, err
	}
	if root == nil {
		root = newDirectory("/", f.nowMS())
	}
	f.root = root
	f.usage = root.contentSize()
	metrics.SetUsage(f.usage)
	return f, nil
}

func (f *FS) nowMS() int64 {
	return f.now().UnixMilli()
}

// CreateFile adds a new file. The parent must exist and no sibling may share its name.
func (f *FS) CreateFile(ctx context.Context, path, content string) (err error) {
	defer func() { metrics.RecordFSOp("create_file", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := Clean(path)

	f.mu.Lock()
	inserted, err := f.insertLocked(path, func(name string, now int64) *Node {
		return newFile(name, content, now)
	})
	if inserted {
		f.usage += int64(len(content))
		err = f.afterMutationLocked()
	}
	f.mu.Unlock()

	if inserted && err == nil {
		f.notifyCreate(clean)
	}
	return err
}

// CreateDirectory adds an empty directory under the same rules as CreateFile.
func (f *FS) CreateDirectory(ctx context.Context, path string) (err error) {
	defer func() { metrics.RecordFSOp("create_directory", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	inserted, err := f.insertLocked(path, newDirectory)
	if inserted {
		err = f.afterMutationLocked()
	}
	return err
}

func (f *FS) insertLocked(path string, build func(name string, now int64) *Node) (bool, error) {
	parts := Split(path)
	if len(parts) == 0 {
		return false, errors.NewInvalidPath(path, "path has no name")
	}
	parent := resolveParent(f.root, parts)
	if parent == nil {
		return false, errors.NewParentNotFound(path)
	}
	name := parts[len(parts)-1]
	if _, exists := parent.Children[name]; exists {
		return false, errors.NewAlreadyExists(Clean(path))
	}

	now := f.nowMS()
	parent.Children[name] = build(name, now)
	parent.Modified = now
	return true, nil
}

// ReadFile returns a file's content, served from the read cache while fresh.
func (f *FS) ReadFile(ctx context.Context, path string) (content string, err error) {
	defer func() { metrics.RecordFSOp("read_file", err) }()
	if err := ctx.Err(); err != nil {
		return "", err
	}
	clean := Clean(path)

	f.mu.Lock()
	defer f.mu.Unlock()

	now := f.now()
	if cached, ok := f.cache.get(clean, now); ok {
		metrics.RecordReadCacheHit()
		return cached, nil
	}

	node := resolve(f.root, Split(path))
	if node == nil {
		return "", errors.NewNotFound(clean)
	}
	if node.IsDir() {
		return "", errors.NewWrongType(clean, "file")
	}
	f.cache.put(clean, node.Content, now)
	return node.Content, nil
}

// UpdateFile replaces a file's content and evicts it from the read cache.
func (f *FS) UpdateFile(ctx context.Context, path, content string) (err error) {
	defer func() { metrics.RecordFSOp("update_file", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := Clean(path)

	f.mu.Lock()
	defer f.mu.Unlock()

	node := resolve(f.root, Split(path))
	if node == nil {
		return errors.NewNotFound(clean)
	}
	if node.IsDir() {
		return errors.NewWrongType(clean, "file")
	}

	f.usage += int64(len(content)) - node.Size
	node.setContent(content, f.nowMS())
	f.cache.evict(clean)
	return f.afterMutationLocked()
}

// MutateFile replaces a file's content with transform(current content) under
// a single lock hold, so no other write can land between the read and the
// update. transform must not call back into the filesystem.
func (f *FS) MutateFile(ctx context.Context, path string, transform func(content string) string) (err error) {
	defer func() { metrics.RecordFSOp("mutate_file", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	clean := Clean(path)

	f.mu.Lock()
	defer f.mu.Unlock()

	node := resolve(f.root, Split(path))
	if node == nil {
		return errors.NewNotFound(clean)
	}
	if node.IsDir() {
		return errors.NewWrongType(clean, "file")
	}

	content := transform(node.Content)
	f.usage += int64(len(content)) - node.Size
	node.setContent(content, f.nowMS())
	f.cache.evict(clean)
	return f.afterMutationLocked()
}

// DeleteFile removes an entry (a directory goes with everything under it).
// The root cannot be deleted.
func (f *FS) DeleteFile(ctx context.Context, path string) (err error) {
	defer func() { metrics.RecordFSOp("delete", err) }()
	if err := ctx.Err(); err != nil {
		return err
	}
	parts := Split(path)
	if len(parts) == 0 {
		return errors.NewInvalidPath(path, "cannot delete root directory")
	}
	clean := Clean(path)

	f.mu.Lock()
	defer f.mu.Unlock()

	parent := resolveParent(f.root, parts)
	if parent == nil {
		return errors.NewParentNotFound(clean)
	}
	name := parts[len(parts)-1]
	child, ok := parent.Children[name]
	if !ok {
		return errors.NewNotFound(clean)
	}

	delete(parent.Children, name)
	parent.Modified = f.nowMS()
	f.usage -= child.contentSize()
	f.cache.evict(clean)
	return f.afterMutationLocked()
}

// ListDirectory returns the direct children of a directory sorted by name.
func (f *FS) ListDirectory(ctx context.Context, path string) (entries []Entry, err error) {
	defer func() { metrics.RecordFSOp("list", err) }()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	clean := Clean(path)

	f.mu.Lock()
	defer f.mu.Unlock()

	node := resolve(f.root, Split(path))
	if node == nil {
		return nil, errors.NewNotFound(clean)
	}
	if !node.IsDir() {
		return nil, errors.NewWrongType(clean, "directory")
	}

	entries = make([]Entry, 0, len(node.Children))
	for _, name := range node.sortedNames() {
		entries = append(entries, node.Children[name].entry(Join(clean, name)))
	}
	return entries, nil
}

// Exists reports whether path resolves. The error is non-nil only when ctx is done.
func (f *FS) Exists(ctx context.Context, path string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return resolve(f.root, Split(path)) != nil, nil
}

// Stat describes the node at path.
func (f *FS) Stat(ctx context.Context, path string) (Entry, error) {
	if err := ctx.Err(); err != nil {
		return Entry{}, err
	}
	clean := Clean(path)

	f.mu.Lock()
	defer f.mu.Unlock()

	node := resolve(f.root, Split(path))
	if node == nil {
		return Entry{}, errors.NewNotFound(clean)
	}
	return node.entry(clean), nil
}

// Usage returns the total size of all file content in bytes.
func (f *FS) Usage() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.usage
}

// Quota returns the configured content limit in bytes.
func (f *FS) Quota() int64 {
	return f.quota
}

// ClearCache empties the read cache.
func (f *FS) ClearCache() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cache.clear()
}

// Walk visits every entry below the root depth-first in name order.
// fn runs without the filesystem lock held, on a snapshot of the entries.
func (f *FS) Walk(ctx context.Context, fn func(Entry) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	var entries []Entry
	collect(f.root, "/", &entries)
	f.mu.Unlock()

	for _, e := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(e); err != nil {
			return err
		}
	}
	return nil
}

func collect(dir *Node, dirPath string, out *[]Entry) {
	for _, name := range dir.sortedNames() {
		child := dir.Children[name]
		p := Join(dirPath, name)
		*out = append(*out, child.entry(p))
		if child.IsDir() {
			collect(child, p, out)
		}
	}
}

// Glob returns the paths of files matching a doublestar pattern such as
// "/home/**/*.txt".
func (f *FS) Glob(ctx context.Context, pattern string) ([]string, error) {
	if !doublestar.ValidatePattern(pattern) {
		return nil, errors.NewInvalidRequest("invalid glob pattern: " + pattern)
	}
	var matches []string
	err := f.Walk(ctx, func(e Entry) error {
		if e.Type != TypeFile {
			return nil
		}
		if ok, _ := doublestar.Match(pattern, e.Path); ok {
			matches = append(matches, e.Path)
		}
		return nil
	})
	return matches, err
}

// Export returns the persisted encoding of the current tree.
func (f *FS) Export(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	data, err := Encode(f.root)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return data, nil
}

// Restore replaces the whole tree with a decoded document, clears the read
// cache and schedules a save. Quota rules apply as for any other mutation.
func (f *FS) Restore(ctx context.Context, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	root, err := Decode(data)
	if err != nil {
		return errors.NewInvalidRequest(err.Error())
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.root = root
	f.usage = root.contentSize()
	f.cache.clear()
	return f.afterMutationLocked()
}

// OnCreate registers fn to be called after each successful file creation.
// It returns a function that unregisters fn.
func (f *FS) OnCreate(fn func(path string)) (unsubscribe func()) {
	f.obsMu.Lock()
	defer f.obsMu.Unlock()
	id := f.nextObs
	f.nextObs++
	f.observers[id] = fn
	return func() {
		f.obsMu.Lock()
		defer f.obsMu.Unlock()
		delete(f.observers, id)
	}
}

// notifyCreate runs observers outside the filesystem lock. Panics are logged
// and never reach the writer.
func (f *FS) notifyCreate(path string) {
	f.obsMu.Lock()
	ids := make([]int, 0, len(f.observers))
	for id := range f.observers {
		ids = append(ids, id)
	}
	fns := make([]func(string), 0, len(ids))
	slices.Sort(ids)
	for _, id := range ids {
		fns = append(fns, f.observers[id])
	}
	f.obsMu.Unlock()

	for _, fn := range fns {
		func() {
			defer func() {
				if r := recover(); r != nil {
					f.logger.Error("create observer panicked", zap.String("path", path), zap.Any("panic", r))
				}
			}()
			fn(path)
		}()
	}
}
