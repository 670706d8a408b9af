package vfs

import (
	"context"
	"testing"
)

func TestSeed(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()

	first, err := IsFirstBoot(ctx, fs)
	if err != nil || !first {
		t.Fatalf("IsFirstBoot() = %v, %v; want true", first, err)
	}
	if err := Seed(ctx, fs); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	for _, p := range []string{"/home", "/deadmail", "/ghostpaint", "/home/welcome.txt", "/home/about.txt"} {
		if ok, _ := fs.Exists(ctx, p); !ok {
			t.Errorf("%s missing after Seed", p)
		}
	}
	for _, p := range []string{"/deadmail/.inbox", "/ghostpaint/.artworks"} {
		if got, _ := fs.ReadFile(ctx, p); got != "[]" {
			t.Errorf("%s = %q, want []", p, got)
		}
	}

	first, _ = IsFirstBoot(ctx, fs)
	if first {
		t.Error("IsFirstBoot() after Seed = true")
	}
}

func TestSeed_Idempotent(t *testing.T) {
	fs, _ := newTestFS(t)
	ctx := context.Background()
	_ = Seed(ctx, fs)
	_ = fs.UpdateFile(ctx, "/home/about.txt", "customised")

	if err := Seed(ctx, fs); err != nil {
		t.Fatalf("second Seed() error = %v", err)
	}
	if got, _ := fs.ReadFile(ctx, "/home/about.txt"); got != "customised" {
		t.Errorf("about.txt = %q, Seed must not overwrite", got)
	}
}
