// internal/manifest/tree.go
package manifest

import (
	"fmt"
	"sort"
	"strings"
)

// Node is a file or directory in a Tree. Directory sizes are the sum of
// the files beneath them.
type Node struct {
	ID       string    `json:"id"`
	ParentID string    `json:"parentId"`
	Name     string    `json:"name"`
	Type     EntryType `json:"type"`
	Size     int64     `json:"size"`

	children []*Node
}

// Tree links mapped entries into parent/child edges. The root has id "".
type Tree struct {
	root  *Node
	nodes map[string]*Node
}

// ConflictError reports a path used both as a file and as a directory, or
// a file listed twice.
type ConflictError struct {
	ID string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("path %s is used more than once", e.ID)
}

// BuildTree assembles mapped files and directories into a tree.
// Directories implied only by a file's parent id are created as needed.
func BuildTree(files []FileEntry, dirs []DirectoryEntry) (*Tree, error) {
	root := &Node{Type: EntryDirectory}
	t := &Tree{root: root, nodes: map[string]*Node{"": root}}

	for _, d := range dirs {
		if _, err := t.ensureDir(d.ID); err != nil {
			return nil, err
		}
	}

	for _, f := range files {
		if _, ok := t.nodes[f.ID]; ok {
			return nil, &ConflictError{ID: f.ID}
		}
		parent, err := t.ensureDir(f.ParentID)
		if err != nil {
			return nil, err
		}
		n := &Node{ID: f.ID, ParentID: f.ParentID, Name: f.Name, Type: EntryFile, Size: f.Size}
		parent.children = append(parent.children, n)
		t.nodes[f.ID] = n
	}

	sumSizes(root)
	return t, nil
}

func (t *Tree) ensureDir(id string) (*Node, error) {
	if n, ok := t.nodes[id]; ok {
		if n.Type != EntryDirectory {
			return nil, &ConflictError{ID: id}
		}
		return n, nil
	}

	parentID := ParentID(id)
	parent, err := t.ensureDir(parentID)
	if err != nil {
		return nil, err
	}
	n := &Node{
		ID:       id,
		ParentID: parentID,
		Name:     id[strings.LastIndexByte(id, '/')+1:],
		Type:     EntryDirectory,
	}
	parent.children = append(parent.children, n)
	t.nodes[id] = n
	return n, nil
}

func sumSizes(n *Node) int64 {
	if n.Type == EntryFile {
		return n.Size
	}
	var total int64
	for _, c := range n.children {
		total = addSize(total, sumSizes(c))
	}
	n.Size = total
	return total
}

// Get returns the node with the given id.
func (t *Tree) Get(id string) (*Node, bool) {
	n, ok := t.nodes[id]
	return n, ok
}

// Len is the number of nodes, excluding the root.
func (t *Tree) Len() int {
	return len(t.nodes) - 1
}

// Children lists the nodes directly under id: directories first, then
// files, each group ordered by name.
func (t *Tree) Children(id string) []*Node {
	n, ok := t.nodes[id]
	if !ok {
		return nil
	}
	out := make([]*Node, len(n.children))
	copy(out, n.children)
	sort.Slice(out, func(i, j int) bool {
		if out[i].Type != out[j].Type {
			return out[i].Type == EntryDirectory
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Walk visits every node depth-first in Children order. depth is 0 for
// entries at the collection root. Returning an error stops the walk.
func (t *Tree) Walk(fn func(n *Node, depth int) error) error {
	return t.walk("", 0, fn)
}

func (t *Tree) walk(id string, depth int, fn func(n *Node, depth int) error) error {
	for _, c := range t.Children(id) {
		if err := fn(c, depth); err != nil {
			return err
		}
		if c.Type == EntryDirectory {
			if err := t.walk(c.ID, depth+1, fn); err != nil {
				return err
			}
		}
	}
	return nil
}
