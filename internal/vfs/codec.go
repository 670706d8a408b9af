package vfs

import (
	"fmt"

	"github.com/bytedance/sonic"
)

// persisted is the on-disk shape of a node. Directories carry Children,
// files carry Content, Size and MimeType.
type persisted struct {
	Name     string                `json:"name"`
	Type     NodeType              `json:"type"`
	Children map[string]*persisted `json:"children,omitempty"`
	Content  string                `json:"content"`
	Size     int64                 `json:"size"`
	Created  int64                 `json:"created"`
	Modified int64                 `json:"modified"`
	MimeType string                `json:"mimeType"`
}

type persistedFile struct {
	Name     string   `json:"name"`
	Type     NodeType `json:"type"`
	Content  string   `json:"content"`
	Size     int64    `json:"size"`
	Created  int64    `json:"created"`
	Modified int64    `json:"modified"`
	MimeType string   `json:"mimeType"`
}

type persistedDirectory struct {
	Name     string         `json:"name"`
	Type     NodeType       `json:"type"`
	Children map[string]any `json:"children"`
	Created  int64          `json:"created"`
	Modified int64          `json:"modified"`
}

// Encode serializes the tree rooted at root.
func Encode(root *Node) ([]byte, error) {
	if root == nil || !root.IsDir() {
		return nil, fmt.Errorf("encode: root must be a directory")
	}
	return sonic.ConfigStd.Marshal(toPersisted(root))
}

func toPersisted(n *Node) any {
	if !n.IsDir() {
		return persistedFile{
			Name:     n.Name,
			Type:     TypeFile,
			Content:  n.Content,
			Size:     n.Size,
			Created:  n.Created,
			Modified: n.Modified,
			MimeType: n.MimeType,
		}
	}
	children := make(map[string]any, len(n.Children))
	for name, child := range n.Children {
		children[name] = toPersisted(child)
	}
	return persistedDirectory{
		Name:     n.Name,
		Type:     TypeDirectory,
		Children: children,
		Created:  n.Created,
		Modified: n.Modified,
	}
}

// Decode rebuilds a tree from its persisted form. The root must be a directory.
func Decode(data []byte) (*Node, error) {
	var p persisted
	if err := sonic.ConfigStd.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	root, err := fromPersisted(&p, p.Name)
	if err != nil {
		return nil, err
	}
	if !root.IsDir() {
		return nil, fmt.Errorf("decode: root is a %s", root.Type)
	}
	if root.Name == "" {
		root.Name = "/"
	}
	return root, nil
}

// fromPersisted converts p, naming the node after the key it was stored under.
func fromPersisted(p *persisted, name string) (*Node, error) {
	if p == nil {
		return nil, fmt.Errorf("decode: null node %q", name)
	}
	switch p.Type {
	case TypeFile:
		mime := p.MimeType
		if mime == "" {
			mime = MimeTextPlain
		}
		return &Node{
			Name:     name,
			Type:     TypeFile,
			Content:  p.Content,
			Size:     int64(len(p.Content)),
			Created:  p.Created,
			Modified: p.Modified,
			MimeType: mime,
		}, nil
	case TypeDirectory:
		dir := &Node{
			Name:     name,
			Type:     TypeDirectory,
			Children: make(map[string]*Node, len(p.Children)),
			Created:  p.Created,
			Modified: p.Modified,
		}
		for key, child := range p.Children {
			n, err := fromPersisted(child, key)
			if err != nil {
				return nil, err
			}
			dir.Children[key] = n
		}
		return dir, nil
	default:
		return nil, fmt.Errorf("decode: node %q has unknown type %q", name, p.Type)
	}
}
