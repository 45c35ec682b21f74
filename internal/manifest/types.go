// internal/manifest/types.go
package manifest

import (
	"math"
	"strings"
)

// RootStream is the stream name of the collection root.
const RootStream = "."

// Manifest is an ordered sequence of streams, one per manifest line.
type Manifest struct {
	Streams []Stream `json:"streams"`
}

// Stream is one manifest line: a directory, its blocks, and the file
// segments stored in those blocks.
type Stream struct {
	Name       string      `json:"name"` // "." for root, otherwise "./a/b"
	Locators   []Locator   `json:"locators"`
	FileTokens []FileToken `json:"file_tokens"`
}

// Locator references one content-addressed block.
type Locator struct {
	Raw  string `json:"raw"`
	Hash string `json:"hash"`
	Size int64  `json:"size"`
}

// FileToken maps Length bytes starting at Position in the stream's
// concatenated blocks to the file at Path.
type FileToken struct {
	Position int64  `json:"position"`
	Length   int64  `json:"length"`
	Path     string `json:"path"`
}

type EntryType string

const (
	EntryFile      EntryType = "file"
	EntryDirectory EntryType = "directory"
)

// FileEntry is one file of a mapped manifest.
type FileEntry struct {
	ParentID string    `json:"parentId"`
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Type     EntryType `json:"type"`
}

// DirectoryEntry is one directory of a mapped manifest.
type DirectoryEntry struct {
	ParentID string    `json:"parentId"`
	ID       string    `json:"id"`
	Name     string    `json:"name"`
	Type     EntryType `json:"type"`
}

// Stripped returns the locator without hints.
func (l Locator) Stripped() string {
	return l.Hash + "+" + formatInt(l.Size)
}

// Dir returns the stream's directory path relative to the collection root:
// "" for the root stream, "c/user" for "./c/user".
func (s Stream) Dir() string {
	if s.Name == RootStream {
		return ""
	}
	return strings.TrimPrefix(s.Name, "./")
}

// Size is the total byte length of the stream's blocks.
func (s Stream) Size() int64 {
	var total int64
	for _, l := range s.Locators {
		total = addSize(total, l.Size)
	}
	return total
}


// addSize adds two non-negative sizes, saturating at math.MaxInt64.
func addSize(a, b int64) int64 {
	if b > math.MaxInt64-a {
		return math.MaxInt64
	}
	return a + b
}
