package catalog

import (
	"sync"

	"keeptree/internal/collection"
	"keeptree/internal/manifest"
	"keeptree/internal/safe"

	"github.com/dgraph-io/badger/v4"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// DirName is the catalog directory created under the workspace root.
const DirName = ".keeptree"

// Catalog keeps named collections of manifests and serves their mapped
// listings.
type Catalog struct {
	Root        string
	DB          *badger.DB
	Safe        *safe.Safe
	Collections collection.Box
	Logger      *zap.Logger

	listings *lru.Cache[string, *Listing]
	strict   bool
	ownsDB   bool
	mu       sync.Mutex // serializes writes
}

// Options configures a Catalog.
type Options struct {
	ListingCacheSize int
	Strict           bool
	Safe             safe.Options
}

// Listing is a parsed manifest with its mapped entries. Listings are
// shared through the cache and must not be modified.
type Listing struct {
	Manifest         manifest.Manifest         `json:"-"`
	PortableDataHash string                    `json:"portable_data_hash"`
	Files            []manifest.FileEntry      `json:"files"`
	Directories      []manifest.DirectoryEntry `json:"directories"`
}

// Stats summarizes the listing for storage on its collection.
func (l *Listing) Stats() collection.Stats {
	st := collection.Stats{
		Streams:     len(l.Manifest.Streams),
		Files:       len(l.Files),
		Directories: len(l.Directories),
		Size:        manifest.TotalSize(l.Files),
	}
	return st
}

// Tree links the listing's entries.
func (l *Listing) Tree() (*manifest.Tree, error) {
	return manifest.BuildTree(l.Files, l.Directories)
}
