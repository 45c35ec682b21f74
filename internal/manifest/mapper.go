// internal/manifest/mapper.go
package manifest

import (
	"strings"
)

// orderedIndex deduplicates keys while remembering first-seen order.
type orderedIndex[V any] struct {
	keys   []string
	values map[string]V
}

func newOrderedIndex[V any]() *orderedIndex[V] {
	return &orderedIndex[V]{values: make(map[string]V)}
}

func (o *orderedIndex[V]) get(key string) (V, bool) {
	v, ok := o.values[key]
	return v, ok
}

func (o *orderedIndex[V]) set(key string, v V) {
	if _, ok := o.values[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.values[key] = v
}

func (o *orderedIndex[V]) list() []V {
	out := make([]V, 0, len(o.keys))
	for _, k := range o.keys {
		out = append(out, o.values[k])
	}
	return out
}

// MapToFiles flattens the manifest into one entry per distinct file path.
// Sizes of tokens sharing a path are summed.
func MapToFiles(m Manifest) []FileEntry {
	files := newOrderedIndex[FileEntry]()
	for _, s := range m.Streams {
		streamDir := joinID("", s.Dir())
		for _, t := range s.FileTokens {
			if t.Path == "." {
				// empty directory marker
				continue
			}
			sub, name := splitPath(t.Path)
			parent := joinID(streamDir, sub)
			id := parent + "/" + name

			entry, ok := files.get(id)
			if !ok {
				entry = FileEntry{ParentID: parent, ID: id, Name: name, Type: EntryFile}
			}
			entry.Size = addSize(entry.Size, t.Length)
			files.set(id, entry)
		}
	}
	return files.list()
}

// TotalSize sums the sizes of files, saturating at math.MaxInt64.
func TotalSize(files []FileEntry) int64 {
	var total int64
	for _, f := range files {
		total = addSize(total, f.Size)
	}
	return total
}

// MapToDirectories lists every directory named by a non-root stream,
// including its ancestors, each once and parents first.
func MapToDirectories(m Manifest) []DirectoryEntry {
	dirs := newOrderedIndex[DirectoryEntry]()
	for _, s := range m.Streams {
		dir := s.Dir()
		if dir == "" {
			continue
		}
		parent := ""
		for _, seg := range strings.Split(dir, "/") {
			id := parent + "/" + seg
			if _, ok := dirs.get(id); !ok {
				dirs.set(id, DirectoryEntry{ParentID: parent, ID: id, Name: seg, Type: EntryDirectory})
			}
			parent = id
		}
	}
	return dirs.list()
}

// joinID appends a relative path to a directory id. Both "" and "/x"
// style ids are accepted for dir; the root is "".
func joinID(dir, rel string) string {
	if rel == "" {
		return dir
	}
	return dir + "/" + rel
}

// splitPath splits "a/b/c" into "a/b" and "c".
func splitPath(p string) (string, string) {
	i := strings.LastIndexByte(p, '/')
	if i < 0 {
		return "", p
	}
	return p[:i], p[i+1:]
}

// ParentID returns the id of the directory containing id.
func ParentID(id string) string {
	i := strings.LastIndexByte(id, '/')
	if i <= 0 {
		return ""
	}
	return id[:i]
}
