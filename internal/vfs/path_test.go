package vfs

import (
	"reflect"
	"testing"
)

func TestSplit(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"/", []string{}},
		{"", []string{}},
		{"/home/welcome.txt", []string{"home", "welcome.txt"}},
		{"home//notes/", []string{"home", "notes"}},
		{"/./home/./a", []string{"home", "a"}},
		{"/ home / a b ", []string{"home", "a b"}},
		{"/  /x", []string{"x"}},
	}
	for _, tt := range tests {
		got := Split(tt.in)
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("Split(%q) = %#v, want %#v", tt.in, got, tt.want)
		}
	}
}

func TestClean(t *testing.T) {
	tests := map[string]string{
		"":              "/",
		"/":             "/",
		"home":          "/home",
		"/home/":        "/home",
		"//home/./a.md": "/home/a.md",
	}
	for in, want := range tests {
		if got := Clean(in); got != want {
			t.Errorf("Clean(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestJoin(t *testing.T) {
	if got := Join("/", "a"); got != "/a" {
		t.Errorf("Join(/, a) = %q", got)
	}
	if got := Join("/home", "a"); got != "/home/a" {
		t.Errorf("Join(/home, a) = %q", got)
	}
}

func TestResolve(t *testing.T) {
	root := newDirectory("/", 1)
	home := newDirectory("home", 1)
	root.Children["home"] = home
	home.Children["a.txt"] = newFile("a.txt", "hi", 1)

	if resolve(root, nil) != root {
		t.Error("empty parts should resolve to root")
	}
	if n := resolve(root, []string{"home", "a.txt"}); n == nil || n.Content != "hi" {
		t.Errorf("resolve(home/a.txt) = %v", n)
	}
	if resolve(root, []string{"home", "a.txt", "deeper"}) != nil {
		t.Error("walking through a file should fail")
	}
	if resolve(root, []string{"nope"}) != nil {
		t.Error("missing segment should fail")
	}
	if resolveParent(root, []string{"home", "a.txt", "x"}) != nil {
		t.Error("file parent should not resolve as a directory")
	}
	if resolveParent(root, nil) != nil {
		t.Error("root has no parent")
	}
	if resolveParent(root, []string{"top"}) != root {
		t.Error("parent of a top-level name is root")
	}
}
