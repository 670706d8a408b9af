package vfs

import (
	"encoding/json"
	"strings"
	"testing"
)

func sampleTree() *Node {
	root := newDirectory("/", 100)
	home := newDirectory("home", 200)
	root.Children["home"] = home
	home.Children["a.txt"] = newFile("a.txt", "alpha", 300)
	home.Children["empty"] = newFile("empty", "", 400)
	root.Children["tmp"] = newDirectory("tmp", 500)
	return root
}

func TestEncode_Layout(t *testing.T) {
	data, err := Encode(sampleTree())
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("output is not JSON: %v", err)
	}
	if doc["type"] != "directory" || doc["name"] != "/" {
		t.Errorf("root = %v", doc)
	}
	if _, ok := doc["version"]; ok {
		t.Error("persisted form must not carry a version field")
	}

	children, ok := doc["children"].(map[string]any)
	if !ok {
		t.Fatalf("children is %T, want object", doc["children"])
	}
	home := children["home"].(map[string]any)
	file := home["children"].(map[string]any)["a.txt"].(map[string]any)
	for _, key := range []string{"name", "type", "content", "size", "created", "modified", "mimeType"} {
		if _, ok := file[key]; !ok {
			t.Errorf("file missing key %q", key)
		}
	}
	if _, ok := file["children"]; ok {
		t.Error("file must not carry children")
	}
	if file["mimeType"] != MimeTextPlain {
		t.Errorf("mimeType = %v", file["mimeType"])
	}

	// Empty directories still serialize an (empty) children object.
	tmp := children["tmp"].(map[string]any)
	if c, ok := tmp["children"].(map[string]any); !ok || len(c) != 0 {
		t.Errorf("tmp children = %v", tmp["children"])
	}
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	original := sampleTree()
	data, err := Encode(original)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	a := decoded.Children["home"].Children["a.txt"]
	if a.Content != "alpha" || a.Size != 5 || a.Created != 300 || a.MimeType != MimeTextPlain {
		t.Errorf("a.txt = %+v", a)
	}
	if decoded.Children["home"].Children["empty"].Content != "" {
		t.Error("empty file content changed")
	}
	if !decoded.Children["tmp"].IsDir() || len(decoded.Children["tmp"].Children) != 0 {
		t.Error("tmp should decode as an empty directory")
	}
	if decoded.contentSize() != original.contentSize() {
		t.Errorf("contentSize = %d, want %d", decoded.contentSize(), original.contentSize())
	}
}

func TestDecode_MissingChildren(t *testing.T) {
	root, err := Decode([]byte(`{"name":"/","type":"directory","created":1,"modified":1}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if root.Children == nil || len(root.Children) != 0 {
		t.Errorf("children = %v, want empty map", root.Children)
	}
}

func TestDecode_RecomputesSize(t *testing.T) {
	root, err := Decode([]byte(`{"name":"/","type":"directory","children":{"f":{"name":"f","type":"file","content":"abc","size":99}}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if got := root.Children["f"].Size; got != 3 {
		t.Errorf("size = %d, want 3", got)
	}
}

func TestDecode_Errors(t *testing.T) {
	tests := map[string]string{
		"not json":     `{{{`,
		"file root":    `{"name":"f","type":"file","content":"x"}`,
		"unknown type": `{"name":"/","type":"directory","children":{"x":{"type":"symlink"}}}`,
		"null child":   `{"name":"/","type":"directory","children":{"x":null}}`,
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Decode([]byte(input)); err == nil {
				t.Error("Decode() should fail")
			} else if !strings.Contains(err.Error(), "decode") {
				t.Errorf("error = %v", err)
			}
		})
	}
}
