package vfs

import "strings"

// Split turns a slash-delimited path into its non-empty segments. Empty
// segments and "." are discarded and each segment is trimmed of whitespace.
func Split(path string) []string {
	raw := strings.Split(path, "/")
	parts := make([]string, 0, len(raw))
	for _, p := range raw {
		p = strings.TrimSpace(p)
		if p == "" || p == "." {
			continue
		}
		parts = append(parts, p)
	}
	return parts
}

// Clean returns the canonical form of path: "/" followed by its segments.
func Clean(path string) string {
	return "/" + strings.Join(Split(path), "/")
}

// Join appends name to a canonical directory path.
func Join(dir, name string) string {
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}

// resolve walks parts from root. It returns nil when a segment is missing or
// an intermediate segment is a file. No parts resolves to root.
func resolve(root *Node, parts []string) *Node {
	current := root
	for _, part := range parts {
		if !current.IsDir() {
			return nil
		}
		next, ok := current.Children[part]
		if !ok {
			return nil
		}
		current = next
	}
	return current
}

// resolveParent resolves every segment but the last and requires a directory.
func resolveParent(root *Node, parts []string) *Node {
	if len(parts) == 0 {
		return nil
	}
	parent := resolve(root, parts[:len(parts)-1])
	if parent == nil || !parent.IsDir() {
		return nil
	}
	return parent
}
