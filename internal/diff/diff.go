// internal/diff/diff.go
package diff

import (
	"fmt"
	"sort"
	"strings"

	"keeptree/internal/manifest"

	difflib "github.com/pmezard/go-difflib/difflib"
)

// Resize is a file present in both manifests with a different size.
type Resize struct {
	ID      string `json:"id"`
	OldSize int64  `json:"old_size"`
	NewSize int64  `json:"new_size"`
}

// Result lists the changes between two manifest versions by entry id.
type Result struct {
	Added       []manifest.FileEntry      `json:"added"`
	Removed     []manifest.FileEntry      `json:"removed"`
	Resized     []Resize                  `json:"resized"`
	AddedDirs   []manifest.DirectoryEntry `json:"added_dirs"`
	RemovedDirs []manifest.DirectoryEntry `json:"removed_dirs"`
	Stats       struct {
		Additions int `json:"additions"`
		Deletions int `json:"deletions"`
		Changes   int `json:"changes"`
	} `json:"stats"`
}

// Empty reports whether the two manifests list the same entries.
func (r Result) Empty() bool {
	return r.Stats.Changes == 0
}

// Compare maps both manifests and reports what changed from old to new.
// Added entries follow new's order, removed entries follow old's.
func Compare(old, new manifest.Manifest) Result {
	var r Result

	oldFiles := manifest.MapToFiles(old)
	newFiles := manifest.MapToFiles(new)
	oldSizes := make(map[string]int64, len(oldFiles))
	for _, f := range oldFiles {
		oldSizes[f.ID] = f.Size
	}
	newIDs := make(map[string]bool, len(newFiles))
	for _, f := range newFiles {
		newIDs[f.ID] = true
		size, ok := oldSizes[f.ID]
		switch {
		case !ok:
			r.Added = append(r.Added, f)
		case size != f.Size:
			r.Resized = append(r.Resized, Resize{ID: f.ID, OldSize: size, NewSize: f.Size})
		}
	}
	for _, f := range oldFiles {
		if !newIDs[f.ID] {
			r.Removed = append(r.Removed, f)
		}
	}

	oldDirs := manifest.MapToDirectories(old)
	newDirs := manifest.MapToDirectories(new)
	oldDirIDs := make(map[string]bool, len(oldDirs))
	for _, d := range oldDirs {
		oldDirIDs[d.ID] = true
	}
	newDirIDs := make(map[string]bool, len(newDirs))
	for _, d := range newDirs {
		newDirIDs[d.ID] = true
		if !oldDirIDs[d.ID] {
			r.AddedDirs = append(r.AddedDirs, d)
		}
	}
	for _, d := range oldDirs {
		if !newDirIDs[d.ID] {
			r.RemovedDirs = append(r.RemovedDirs, d)
		}
	}

	r.Stats.Additions = len(r.Added) + len(r.AddedDirs)
	r.Stats.Deletions = len(r.Removed) + len(r.RemovedDirs)
	r.Stats.Changes = r.Stats.Additions + r.Stats.Deletions + len(r.Resized)
	return r
}

// Listing renders a manifest as sorted lines: "id/" for directories and
// "id<TAB>size" for files.
func Listing(m manifest.Manifest) string {
	var lines []string
	for _, d := range manifest.MapToDirectories(m) {
		lines = append(lines, d.ID+"/\n")
	}
	for _, f := range manifest.MapToFiles(m) {
		lines = append(lines, fmt.Sprintf("%s\t%d\n", f.ID, f.Size))
	}
	sort.Strings(lines)
	return strings.Join(lines, "")
}

// Unified renders a unified diff of the two manifests' listings. It
// returns "" when the listings are identical.
func Unified(oldName, newName string, old, new manifest.Manifest, context int) (string, error) {
	if context <= 0 {
		context = 3
	}
	u := difflib.UnifiedDiff{
		A:        difflib.SplitLines(Listing(old)),
		B:        difflib.SplitLines(Listing(new)),
		FromFile: oldName,
		ToFile:   newName,
		Context:  context,
	}
	s, err := difflib.GetUnifiedDiffString(u)
	if err != nil {
		return "", fmt.Errorf("rendering diff: %w", err)
	}
	return s, nil
}
