// Package vfs implements the in-memory hierarchical filesystem: path
// resolution, CRUD operations, a short-lived read cache, and debounced
// persistence of the whole tree to a key-value store.
package vfs

import "sort"

// NodeType distinguishes files from directories.
type NodeType string

const (
	TypeFile      NodeType = "file"
	TypeDirectory NodeType = "directory"
)

// MimeTextPlain is the only MIME hint files carry.
const MimeTextPlain = "text/plain"

// Node is one entry of the tree. Directories own their children; there are
// no parent references, parents are found by re-walking from the root.
type Node struct {
	Name     string
	Type     NodeType
	Content  string
	Size     int64
	Created  int64 // Unix ms
	Modified int64 // Unix ms
	MimeType string
	Children map[string]*Node
}

// Entry describes a node as seen by callers.
type Entry struct {
	Name     string   `json:"name"`
	Path     string   `json:"path"`
	Type     NodeType `json:"type"`
	Size     int64    `json:"size"`
	Modified int64    `json:"modified"`
}

func newDirectory(name string, now int64) *Node {
	return &Node{
		Name:     name,
		Type:     TypeDirectory,
		Children: make(map[string]*Node),
		Created:  now,
		Modified: now,
	}
}

func newFile(name, content string, now int64) *Node {
	return &Node{
		Name:     name,
		Type:     TypeFile,
		Content:  content,
		Size:     int64(len(content)),
		Created:  now,
		Modified: now,
		MimeType: MimeTextPlain,
	}
}

// IsDir reports whether n is a directory.
func (n *Node) IsDir() bool {
	return n.Type == TypeDirectory
}

// setContent replaces the content and keeps Size consistent with it.
func (n *Node) setContent(content string, now int64) {
	n.Content = content
	n.Size = int64(len(content))
	n.Modified = now
}

// contentSize sums the sizes of every file under n.
func (n *Node) contentSize() int64 {
	if !n.IsDir() {
		return n.Size
	}
	var total int64
	for _, child := range n.Children {
		total += child.contentSize()
	}
	return total
}

// sortedNames returns the child names of a directory in ascending order.
func (n *Node) sortedNames() []string {
	names := make([]string, 0, len(n.Children))
	for name := range n.Children {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (n *Node) entry(path string) Entry {
	e := Entry{
		Name:     n.Name,
		Path:     path,
		Type:     n.Type,
		Modified: n.Modified,
	}
	if !n.IsDir() {
		e.Size = n.Size
	}
	return e
}
