package vfs

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hpungsan/shadowscript/internal/errors"
	"github.com/hpungsan/shadowscript/internal/storage"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.UnixMilli(1_700_000_000_000)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// countingKV counts physical writes.
type countingKV struct {
	*storage.Memory
	sets atomic.Int32
}

func (c *countingKV) Set(ctx context.Context, key string, value []byte) error {
	c.sets.Add(1)
	return c.Memory.Set(ctx, key, value)
}

func newTestFS(t *testing.T, opts ...Option) (*FS, *countingKV) {
	t.Helper()
	kv := &countingKV{Memory: storage.NewMemory()}
	opts = append([]Option{WithDebounce(time.Hour)}, opts...)
	fs, err := New(context.Background(), kv, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { fs.Close(context.Background()) })
	return fs, kv
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}

func TestCreateReadRoundTrip(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	if err := fs.CreateDirectory(ctx, "/home"); err != nil {
		t.Fatalf("CreateDirectory() error = %v", err)
	}

	tests := []struct{ path, content string }{
		{"/top.txt", "top"},
		{"/home/a.txt", "alpha\nbeta"},
		{"home/empty", ""},
		{"/home/ghost.txt", "👻 ░▒▓█ boo"},
	}
	for _, tt := range tests {
		if err := fs.CreateFile(ctx, tt.path, tt.content); err != nil {
			t.Fatalf("CreateFile(%q) error = %v", tt.path, err)
		}
		got, err := fs.ReadFile(ctx, tt.path)
		if err != nil {
			t.Fatalf("ReadFile(%q) error = %v", tt.path, err)
		}
		if got != tt.content {
			t.Errorf("ReadFile(%q) = %q, want %q", tt.path, got, tt.content)
		}
	}
}

func TestCreateFile_ParentMissing(t *testing.T) {
	fs, _ := newTestFS(t)

	err := fs.CreateFile(context.Background(), "/a/b.txt", "x")
	if !errors.Is(err, errors.ErrParentNotFound) {
		t.Errorf("CreateFile(/a/b.txt) error = %v, want PARENT_NOT_FOUND", err)
	}
}

func TestCreateFile_ParentIsFile(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateFile(ctx, "/f", "x")

	err := fs.CreateFile(ctx, "/f/g", "y")
	if !errors.Is(err, errors.ErrParentNotFound) {
		t.Errorf("error = %v, want PARENT_NOT_FOUND", err)
	}
}

func TestCreate_AlreadyExists(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()

	if err := fs.CreateFile(ctx, "/x.txt", "one"); err != nil {
		t.Fatalf("first CreateFile() error = %v", err)
	}
	if err := fs.CreateFile(ctx, "/x.txt", "two"); !errors.Is(err, errors.ErrAlreadyExists) {
		t.Errorf("second CreateFile() error = %v, want ALREADY_EXISTS", err)
	}
	if err := fs.CreateDirectory(ctx, "/x.txt"); !errors.Is(err, errors.ErrAlreadyExists) {
		t.Errorf("CreateDirectory over file error = %v, want ALREADY_EXISTS", err)
	}

	got, _ := fs.ReadFile(ctx, "/x.txt")
	if got != "one" {
		t.Errorf("content = %q, want one", got)
	}
}

func TestCreate_InvalidPath(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()

	for _, p := range []string{"", "/", "/./", "  "} {
		if err := fs.CreateFile(ctx, p, "x"); !errors.Is(err, errors.ErrInvalidPath) {
			t.Errorf("CreateFile(%q) error = %v, want INVALID_PATH", p, err)
		}
		if err := fs.CreateDirectory(ctx, p); !errors.Is(err, errors.ErrInvalidPath) {
			t.Errorf("CreateDirectory(%q) error = %v, want INVALID_PATH", p, err)
		}
	}
}

func TestCreate_BumpsParentModified(t *testing.T) {
	clock := newFakeClock()
	fs, _ := newTestFS(t, WithClock(clock.Now))
	ctx := context.Background()

	_ = fs.CreateDirectory(ctx, "/home")
	before, _ := fs.Stat(ctx, "/home")

	clock.Advance(time.Second)
	_ = fs.CreateFile(ctx, "/home/a", "x")
	after, _ := fs.Stat(ctx, "/home")
	if after.Modified != before.Modified+1000 {
		t.Errorf("parent modified = %d, want %d", after.Modified, before.Modified+1000)
	}

	// Writes to a grandchild do not touch the grandparent.
	_ = fs.CreateDirectory(ctx, "/home/sub")
	mid, _ := fs.Stat(ctx, "/home")
	clock.Advance(time.Second)
	_ = fs.CreateFile(ctx, "/home/sub/deep", "x")
	final, _ := fs.Stat(ctx, "/home")
	if final.Modified != mid.Modified {
		t.Errorf("grandparent modified changed: %d -> %d", mid.Modified, final.Modified)
	}
}

func TestReadFile_Errors(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateDirectory(ctx, "/dir")

	if _, err := fs.ReadFile(ctx, "/missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing error = %v, want NOT_FOUND", err)
	}
	if _, err := fs.ReadFile(ctx, "/dir"); !errors.Is(err, errors.ErrWrongType) {
		t.Errorf("directory error = %v, want WRONG_TYPE", err)
	}
	if _, err := fs.ReadFile(ctx, "/"); !errors.Is(err, errors.ErrWrongType) {
		t.Errorf("root error = %v, want WRONG_TYPE", err)
	}
}

func TestReadFile_CacheTTL(t *testing.T) {
	clock := newFakeClock()
	fs, _ := newTestFS(t, WithClock(clock.Now), WithReadCacheTTL(5*time.Second))
	ctx := context.Background()
	_ = fs.CreateFile(ctx, "/f", "v1")

	if got, _ := fs.ReadFile(ctx, "/f"); got != "v1" {
		t.Fatalf("ReadFile() = %q", got)
	}

	// Change the node behind the cache's back.
	fs.mu.Lock()
	resolve(fs.root, Split("/f")).Content = "v2"
	fs.mu.Unlock()

	if got, _ := fs.ReadFile(ctx, "f"); got != "v1" {
		t.Errorf("fresh cached read = %q, want v1 (key is the cleaned path)", got)
	}

	clock.Advance(5 * time.Second)
	if got, _ := fs.ReadFile(ctx, "/f"); got != "v2" {
		t.Errorf("expired read = %q, want v2", got)
	}
}

func TestUpdateFile_EvictsCache(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateFile(ctx, "/f", "old")
	_, _ = fs.ReadFile(ctx, "/f")

	if err := fs.UpdateFile(ctx, "/f", "new content"); err != nil {
		t.Fatalf("UpdateFile() error = %v", err)
	}
	got, _ := fs.ReadFile(ctx, "/f")
	if got != "new content" {
		t.Errorf("ReadFile() after update = %q", got)
	}
	st, _ := fs.Stat(ctx, "/f")
	if st.Size != int64(len("new content")) {
		t.Errorf("size = %d", st.Size)
	}
}

func TestUpdateFile_Errors(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateDirectory(ctx, "/dir")

	if err := fs.UpdateFile(ctx, "/missing", "x"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing error = %v, want NOT_FOUND", err)
	}
	if err := fs.UpdateFile(ctx, "/dir", "x"); !errors.Is(err, errors.ErrWrongType) {
		t.Errorf("directory error = %v, want WRONG_TYPE", err)
	}
}

func TestDeleteFile(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateFile(ctx, "/leaf", "x")

	if err := fs.DeleteFile(ctx, "/leaf"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if ok, _ := fs.Exists(ctx, "/leaf"); ok {
		t.Error("Exists() after delete = true")
	}
	if _, err := fs.ReadFile(ctx, "/leaf"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("ReadFile() after delete error = %v", err)
	}
	if err := fs.DeleteFile(ctx, "/leaf"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("second DeleteFile() error = %v, want NOT_FOUND", err)
	}
}

func TestDeleteFile_Root(t *testing.T) {
	fs, _ := newTestFS(t)
	for _, p := range []string{"/", "", "/./"} {
		if err := fs.DeleteFile(context.Background(), p); err == nil {
			t.Errorf("DeleteFile(%q) should fail", p)
		}
	}
}

func TestDeleteFile_DirectoryEvictsDescendants(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateDirectory(ctx, "/d")
	_ = fs.CreateFile(ctx, "/d/f", "cached")
	_, _ = fs.ReadFile(ctx, "/d/f")

	if err := fs.DeleteFile(ctx, "/d"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if _, err := fs.ReadFile(ctx, "/d/f"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("ReadFile() of removed descendant error = %v", err)
	}
	if fs.Usage() != 0 {
		t.Errorf("Usage() = %d, want 0", fs.Usage())
	}
}

func TestListDirectory(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateDirectory(ctx, "/home")
	for _, name := range []string{"zeta.txt", "alpha.txt", "Mid", "beta"} {
		_ = fs.CreateFile(ctx, "/home/"+name, name)
	}
	_ = fs.CreateDirectory(ctx, "/home/sub")

	entries, err := fs.ListDirectory(ctx, "/home/")
	if err != nil {
		t.Fatalf("ListDirectory() error = %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("len = %d, want 5", len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if entries[i-1].Name >= entries[i].Name {
			t.Errorf("not sorted: %q before %q", entries[i-1].Name, entries[i].Name)
		}
	}
	for _, e := range entries {
		if e.Path != "/home/"+e.Name {
			t.Errorf("path = %q", e.Path)
		}
		if e.Name == "sub" {
			if e.Type != TypeDirectory || e.Size != 0 {
				t.Errorf("sub = %+v", e)
			}
		} else if e.Size != int64(len(e.Name)) {
			t.Errorf("%s size = %d", e.Name, e.Size)
		}
	}

	root, _ := fs.ListDirectory(ctx, "/")
	if len(root) != 1 || root[0].Path != "/home" {
		t.Errorf("root listing = %+v", root)
	}
}

func TestListDirectory_Errors(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateFile(ctx, "/f", "x")

	if _, err := fs.ListDirectory(ctx, "/missing"); !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("missing error = %v", err)
	}
	if _, err := fs.ListDirectory(ctx, "/f"); !errors.Is(err, errors.ErrWrongType) {
		t.Errorf("file error = %v", err)
	}
}

func TestExists(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateDirectory(ctx, "/d")

	for path, want := range map[string]bool{"/": true, "/d": true, "d/": true, "/nope": false, "/d/x": false} {
		got, err := fs.Exists(ctx, path)
		if err != nil || got != want {
			t.Errorf("Exists(%q) = %v, %v; want %v", path, got, err, want)
		}
	}
}

func TestDebouncedSave_Coalesces(t *testing.T) {
	fs, kv := newTestFS(t, WithDebounce(30*time.Millisecond))
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		if err := fs.CreateFile(ctx, "/f"+string(rune('a'+i)), "x"); err != nil {
			t.Fatalf("CreateFile() error = %v", err)
		}
	}
	waitFor(t, func() bool { return kv.sets.Load() >= 1 })
	time.Sleep(80 * time.Millisecond)
	if n := kv.sets.Load(); n != 1 {
		t.Errorf("physical writes = %d, want 1", n)
	}
	if fs.Pending() {
		t.Error("Pending() = true after save")
	}
}

func TestFlush_CancelsPendingSave(t *testing.T) {
	fs, kv := newTestFS(t, WithDebounce(40*time.Millisecond))
	ctx := context.Background()
	_ = fs.CreateFile(ctx, "/f", "x")

	if err := fs.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if n := kv.sets.Load(); n != 1 {
		t.Fatalf("writes after Flush = %d, want 1", n)
	}
	time.Sleep(100 * time.Millisecond)
	if n := kv.sets.Load(); n != 1 {
		t.Errorf("writes after debounce window = %d, want 1", n)
	}
}

func TestPersistAndReload(t *testing.T) {
	kv := storage.NewMemory()
	ctx := context.Background()

	fs, err := New(ctx, kv)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	_ = fs.CreateDirectory(ctx, "/home")
	_ = fs.CreateFile(ctx, "/home/a.txt", "persisted")
	if err := fs.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	fs.Close(ctx)

	reloaded, err := New(ctx, kv)
	if err != nil {
		t.Fatalf("New() reload error = %v", err)
	}
	defer reloaded.Close(ctx)
	got, err := reloaded.ReadFile(ctx, "/home/a.txt")
	if err != nil || got != "persisted" {
		t.Errorf("ReadFile() = %q, %v", got, err)
	}
	if reloaded.Usage() != int64(len("persisted")) {
		t.Errorf("Usage() = %d", reloaded.Usage())
	}
}

func TestNew_CorruptStorageStartsFresh(t *testing.T) {
	kv := storage.NewMemory()
	ctx := context.Background()
	_ = kv.Set(ctx, StorageKey, []byte("not json"))

	fs, err := New(ctx, kv)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	entries, _ := fs.ListDirectory(ctx, "/")
	if len(entries) != 0 {
		t.Errorf("entries = %v, want empty root", entries)
	}
}

func TestNew_StorageUnavailable(t *testing.T) {
	kv := storage.NewMemory()
	kv.FailWith(stderrors.New("offline"))

	if _, err := New(context.Background(), kv); !errors.Is(err, errors.ErrStorageUnavailable) {
		t.Errorf("New() error = %v, want STORAGE_UNAVAILABLE", err)
	}
}

func TestQuotaExceeded(t *testing.T) {
	fs, kv := newTestFS(t, WithQuota(10))
	ctx := context.Background()

	if err := fs.CreateFile(ctx, "/small", "12345"); err != nil {
		t.Fatalf("CreateFile(small) error = %v", err)
	}
	err := fs.CreateFile(ctx, "/big", "1234567890")
	if !errors.Is(err, errors.ErrQuotaExceeded) {
		t.Fatalf("CreateFile(big) error = %v, want QUOTA_EXCEEDED", err)
	}

	// The mutation stands in memory.
	if got, _ := fs.ReadFile(ctx, "/big"); got != "1234567890" {
		t.Errorf("big content = %q", got)
	}
	if err := fs.Flush(ctx); !errors.Is(err, errors.ErrQuotaExceeded) {
		t.Errorf("Flush() error = %v, want QUOTA_EXCEEDED", err)
	}
	if n := kv.sets.Load(); n != 0 {
		t.Errorf("physical writes = %d, want 0", n)
	}

	// Freeing space makes the tree durable again.
	if err := fs.DeleteFile(ctx, "/big"); err != nil {
		t.Fatalf("DeleteFile() error = %v", err)
	}
	if err := fs.Flush(ctx); err != nil {
		t.Errorf("Flush() after delete error = %v", err)
	}
}

func TestFlush_StorageFailure(t *testing.T) {
	fs, kv := newTestFS(t, WithDebounce(10*time.Millisecond))
	ctx := context.Background()
	kv.FailWith(stderrors.New("disk full"))

	_ = fs.CreateFile(ctx, "/f", "x")
	waitFor(t, func() bool { return fs.SaveErr() != nil })
	if !errors.Is(fs.SaveErr(), errors.ErrStorageUnavailable) {
		t.Errorf("SaveErr() = %v", fs.SaveErr())
	}
	if err := fs.Flush(ctx); !errors.Is(err, errors.ErrStorageUnavailable) {
		t.Errorf("Flush() error = %v, want STORAGE_UNAVAILABLE", err)
	}

	kv.FailWith(nil)
	if err := fs.Flush(ctx); err != nil {
		t.Errorf("Flush() after recovery error = %v", err)
	}
	if fs.SaveErr() != nil {
		t.Errorf("SaveErr() after recovery = %v", fs.SaveErr())
	}
}

func TestOnCreate(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()

	var got []string
	unsubscribe := fs.OnCreate(func(path string) { got = append(got, path) })
	fs.OnCreate(func(string) { panic("listener bug") })

	_ = fs.CreateDirectory(ctx, "/d")
	if err := fs.CreateFile(ctx, "d//a.txt", "x"); err != nil {
		t.Fatalf("CreateFile() error = %v (observer panic must not reach the writer)", err)
	}
	_ = fs.CreateFile(ctx, "/d/a.txt", "again") // fails, no notification
	_ = fs.UpdateFile(ctx, "/d/a.txt", "y")

	if len(got) != 1 || got[0] != "/d/a.txt" {
		t.Errorf("notifications = %v, want [/d/a.txt]", got)
	}

	unsubscribe()
	_ = fs.CreateFile(ctx, "/d/b.txt", "x")
	if len(got) != 1 {
		t.Errorf("notified after unsubscribe: %v", got)
	}
}

func TestWalkAndGlob(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateDirectory(ctx, "/home")
	_ = fs.CreateDirectory(ctx, "/home/notes")
	_ = fs.CreateFile(ctx, "/home/b.txt", "b")
	_ = fs.CreateFile(ctx, "/home/notes/a.md", "a")
	_ = fs.CreateFile(ctx, "/root.txt", "r")

	var paths []string
	_ = fs.Walk(ctx, func(e Entry) error {
		paths = append(paths, e.Path)
		return nil
	})
	want := []string{"/home", "/home/b.txt", "/home/notes", "/home/notes/a.md", "/root.txt"}
	if len(paths) != len(want) {
		t.Fatalf("Walk() = %v, want %v", paths, want)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Errorf("Walk()[%d] = %s, want %s", i, paths[i], want[i])
		}
	}

	matches, err := fs.Glob(ctx, "/home/**/*.md")
	if err != nil || len(matches) != 1 || matches[0] != "/home/notes/a.md" {
		t.Errorf("Glob(md) = %v, %v", matches, err)
	}
	all, _ := fs.Glob(ctx, "/**")
	if len(all) != 3 {
		t.Errorf("Glob(/**) = %v, want 3 files", all)
	}
	if _, err := fs.Glob(ctx, "/[unclosed"); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Glob(bad) error = %v", err)
	}
}

func TestExportRestore(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateFile(ctx, "/keep", "kept")
	data, err := fs.Export(ctx)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}

	_ = fs.UpdateFile(ctx, "/keep", "changed")
	_ = fs.CreateFile(ctx, "/extra", "x")

	if err := fs.Restore(ctx, data); err != nil {
		t.Fatalf("Restore() error = %v", err)
	}
	if got, _ := fs.ReadFile(ctx, "/keep"); got != "kept" {
		t.Errorf("ReadFile(/keep) = %q", got)
	}
	if ok, _ := fs.Exists(ctx, "/extra"); ok {
		t.Error("/extra survived restore")
	}
	if err := fs.Restore(ctx, []byte("garbage")); !errors.Is(err, errors.ErrInvalidRequest) {
		t.Errorf("Restore(garbage) error = %v", err)
	}
}

func TestCancelledContext(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := fs.CreateFile(ctx, "/f", "x"); !stderrors.Is(err, context.Canceled) {
		t.Errorf("CreateFile() error = %v", err)
	}
	if _, err := fs.Exists(ctx, "/"); !stderrors.Is(err, context.Canceled) {
		t.Errorf("Exists() error = %v", err)
	}
}

func TestOperationsAreFast(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateDirectory(ctx, "/bulk")

	start := time.Now()
	for i := 0; i < 200; i++ {
		p := "/bulk/file" + string(rune('A'+i%26)) + string(rune('a'+i/26))
		_ = fs.CreateFile(ctx, p, "content")
		_, _ = fs.ReadFile(ctx, p)
	}
	_, _ = fs.ListDirectory(ctx, "/bulk")
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("200 create+read took %v, want < 500ms", elapsed)
	}
}

func TestConcurrentAccess(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateDirectory(ctx, "/c")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := "/c/" + string(rune('a'+i))
			_ = fs.CreateFile(ctx, p, "x")
			for j := 0; j < 50; j++ {
				_ = fs.UpdateFile(ctx, p, "y")
				_, _ = fs.ReadFile(ctx, p)
				_, _ = fs.ListDirectory(ctx, "/c")
			}
		}(i)
	}
	wg.Wait()

	entries, _ := fs.ListDirectory(ctx, "/c")
	if len(entries) != 8 {
		t.Errorf("entries = %d, want 8", len(entries))
	}
	if fs.Usage() != 8 {
		t.Errorf("Usage() = %d, want 8", fs.Usage())
	}
}

func TestMutateFile(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = fs.CreateDirectory(ctx, "/d")
	if err := fs.CreateFile(ctx, "/d/f.txt", "before"); err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}
	if _, err := fs.ReadFile(ctx, "/d/f.txt"); err != nil { // warm the cache
		t.Fatalf("ReadFile() error = %v", err)
	}

	var seen string
	err := fs.MutateFile(ctx, "d//f.txt", func(content string) string {
		seen = content
		return content + " after"
	})
	if err != nil {
		t.Fatalf("MutateFile() error = %v", err)
	}
	if seen != "before" {
		t.Errorf("transform saw %q, want %q", seen, "before")
	}
	if got, _ := fs.ReadFile(ctx, "/d/f.txt"); got != "before after" {
		t.Errorf("content = %q, want %q", got, "before after")
	}
	if got := fs.Usage(); got != int64(len("before after")) {
		t.Errorf("Usage() = %d", got)
	}

	tests := []struct {
		name string
		path string
		want errors.ErrorCode
	}{
		{"missing file", "/d/none.txt", errors.ErrNotFound},
		{"directory", "/d", errors.ErrWrongType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			called := false
			err := fs.MutateFile(ctx, tt.path, func(c string) string { called = true; return c })
			if !errors.Is(err, tt.want) {
				t.Errorf("MutateFile(%s) error = %v, want %s", tt.path, err, tt.want)
			}
			if called {
				t.Error("transform called for a failed resolve")
			}
		})
	}
}

func TestMutateFile_NoLostUpdates(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	if err := fs.CreateFile(ctx, "/counter", ""); err != nil {
		t.Fatalf("CreateFile() error = %v", err)
	}

	const writers = 50
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fs.MutateFile(ctx, "/counter", func(c string) string { return c + "x" }); err != nil {
				t.Errorf("MutateFile() error = %v", err)
			}
		}()
	}
	wg.Wait()

	if got, _ := fs.ReadFile(ctx, "/counter"); len(got) != writers {
		t.Errorf("len(content) = %d, want %d", len(got), writers)
	}
}

func TestOnCreate_NotCalledOverQuota(t *testing.T) {
	fs, _ := newTestFS(t, WithQuota(4))
	ctx := context.Background()

	var got []string
	fs.OnCreate(func(path string) { got = append(got, path) })

	_ = fs.CreateFile(ctx, "/ok", "1234")
	err := fs.CreateFile(ctx, "/over", "5")
	if !errors.Is(err, errors.ErrQuotaExceeded) {
		t.Fatalf("CreateFile(over) error = %v, want QUOTA_EXCEEDED", err)
	}
	if len(got) != 1 || got[0] != "/ok" {
		t.Errorf("notifications = %v, want [/ok]", got)
	}
}
