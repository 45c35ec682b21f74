// internal/catalog/catalog.go
package catalog

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"keeptree/internal/collection"
	collectionStorage "keeptree/internal/collection/storage"
	"keeptree/internal/diff"
	"keeptree/internal/errors"
	"keeptree/internal/manifest"
	"keeptree/internal/metrics"
	"keeptree/internal/safe"
	"keeptree/internal/storage"
	"keeptree/shared/utils"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// Initialize creates the catalog directories under root.
func Initialize(root string) error {
	dirs := []string{
		filepath.Join(root, DirName, "db"),
		filepath.Join(root, DirName, "manifests"),
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

// Open opens (creating if needed) the catalog stored under root.
func Open(root string, opts Options, logger *zap.Logger) (*Catalog, error) {
	absPath, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("getting absolute path for root %s: %w", root, err)
	}
	if err := Initialize(absPath); err != nil {
		return nil, fmt.Errorf("initializing directories: %w", err)
	}

	dir := filepath.Join(absPath, DirName)
	dbOpts := badger.DefaultOptions(filepath.Join(dir, "db")).
		WithLoggingLevel(badger.WARNING)
	dbOpts.Logger = nil // Disable logging noise

	db, err := badger.Open(dbOpts)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	opts.Safe.Root = filepath.Join(dir, "manifests")
	contentSafe, err := safe.New(db, opts.Safe)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing manifest safe: %w", err)
	}

	c, err := New(db, contentSafe, collectionStorage.NewStore(db), opts, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	c.Root = absPath
	c.ownsDB = true
	return c, nil
}

// New assembles a catalog from already opened parts. Close does not
// close db.
func New(db *badger.DB, s *safe.Safe, box collection.Box, opts Options, logger *zap.Logger) (*Catalog, error) {
	if opts.ListingCacheSize <= 0 {
		opts.ListingCacheSize = 128
	}
	listings, err := lru.New[string, *Listing](opts.ListingCacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating listing cache: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Catalog{
		DB:          db,
		Safe:        s,
		Collections: box,
		Logger:      logger,
		listings:    listings,
		strict:      opts.Strict,
	}, nil
}

// Build parses and maps manifest text. With strict set, file tokens must
// also fit inside their stream's blocks.
func Build(text string, strict bool) (*Listing, error) {
	start := time.Now()
	m, err := manifest.Parse(text)
	if err == nil && strict {
		err = m.Validate()
	}
	metrics.RecordParse(time.Since(start), err)
	if err != nil {
		return nil, err
	}

	return &Listing{
		Manifest:         m,
		PortableDataHash: m.PortableDataHash(),
		Files:            manifest.MapToFiles(m),
		Directories:      manifest.MapToDirectories(m),
	}, nil
}

// Parse builds a listing with the catalog's strictness.
func (c *Catalog) Parse(text string) (*Listing, error) {
	return Build(text, c.strict)
}

// Import stores text as a new collection.
func (c *Catalog) Import(name, text string) (*collection.Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.create(name, "", text)
}

func (c *Catalog) create(name, source, text string) (*collection.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.ValidationError("name is required", nil)
	}

	listing, err := c.Parse(text)
	if err != nil {
		return nil, err
	}

	hash, err := c.Safe.Store([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("storing manifest: %w", err)
	}
	c.listings.Add(hash, listing)

	coll := &collection.Collection{
		ID:               uuid.New().String(),
		Name:             name,
		PortableDataHash: listing.PortableDataHash,
		ManifestHash:     hash,
		Source:           source,
		Stats:            listing.Stats(),
	}
	if err := c.Collections.Create(coll); err != nil {
		c.release(hash)
		return nil, fmt.Errorf("creating collection: %w", err)
	}

	c.Logger.Info("imported collection",
		zap.String("id", coll.ID),
		zap.String("name", coll.Name),
		zap.String("pdh", coll.PortableDataHash),
		zap.Int("files", coll.Stats.Files),
	)
	c.refreshCount()
	return coll, nil
}

// Replace installs text as the next version of collection id. Identical
// text leaves the collection untouched.
func (c *Catalog) Replace(id, text string) (*collection.Collection, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	coll, _, err := c.replace(id, text)
	return coll, err
}

func (c *Catalog) replace(id, text string) (*collection.Collection, bool, error) {
	coll, err := c.Collections.Get(id)
	if err != nil {
		return nil, false, err
	}
	if utils.HashContent([]byte(text)) == coll.ManifestHash {
		return coll, false, nil
	}

	listing, err := c.Parse(text)
	if err != nil {
		return nil, false, err
	}

	hash, err := c.Safe.Store([]byte(text))
	if err != nil {
		return nil, false, fmt.Errorf("storing manifest: %w", err)
	}
	c.listings.Add(hash, listing)

	oldHash := coll.ManifestHash
	coll.ManifestHash = hash
	coll.PortableDataHash = listing.PortableDataHash
	coll.Stats = listing.Stats()
	coll.Version++
	if err := c.Collections.Update(coll); err != nil {
		c.release(hash)
		return nil, false, fmt.Errorf("updating collection: %w", err)
	}
	c.release(oldHash)

	c.Logger.Info("replaced collection manifest",
		zap.String("id", coll.ID),
		zap.Int("version", coll.Version),
		zap.String("pdh", coll.PortableDataHash),
	)
	return coll, true, nil
}

// Sync imports text for source, or replaces the manifest of the
// collection previously imported from it. The bool reports whether
// anything changed.
func (c *Catalog) Sync(source, name, text string) (*collection.Collection, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	existing, err := c.Collections.FindBySource(source)
	if stderrors.Is(err, storage.ErrNotFound) {
		coll, err := c.create(name, source, text)
		return coll, err == nil, err
	}
	if err != nil {
		return nil, false, err
	}
	return c.replace(existing.ID, text)
}

func (c *Catalog) Get(id string) (*collection.Collection, error) {
	return c.Collections.Get(id)
}

func (c *Catalog) List() ([]*collection.Collection, error) {
	return c.Collections.List()
}

func (c *Catalog) Count() (int, error) {
	return c.Collections.Count()
}

// FindByPortableDataHash lists the collections whose manifests describe
// the same content as pdh.
func (c *Catalog) FindByPortableDataHash(pdh string) ([]*collection.Collection, error) {
	return c.Collections.FindByPortableDataHash(pdh)
}

// Delete removes the collection and releases its manifest text.
func (c *Catalog) Delete(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	coll, err := c.Collections.Get(id)
	if err != nil {
		return err
	}
	if err := c.Collections.Delete(id); err != nil {
		return fmt.Errorf("deleting collection: %w", err)
	}
	c.release(coll.ManifestHash)

	c.Logger.Info("deleted collection", zap.String("id", id))
	c.refreshCount()
	return nil
}

// ManifestText returns the stored manifest text of collection id.
func (c *Catalog) ManifestText(id string) (string, error) {
	coll, err := c.Collections.Get(id)
	if err != nil {
		return "", err
	}
	text, err := c.Safe.Get(coll.ManifestHash)
	if err != nil {
		return "", fmt.Errorf("loading manifest %s: %w", coll.ManifestHash, err)
	}
	return string(text), nil
}

// Listing returns the mapped entries of collection id.
func (c *Catalog) Listing(id string) (*Listing, error) {
	coll, err := c.Collections.Get(id)
	if err != nil {
		return nil, err
	}

	if l, ok := c.listings.Get(coll.ManifestHash); ok {
		metrics.RecordListingCache(true)
		return l, nil
	}
	metrics.RecordListingCache(false)

	text, err := c.Safe.Get(coll.ManifestHash)
	if err != nil {
		return nil, fmt.Errorf("loading manifest %s: %w", coll.ManifestHash, err)
	}
	// Stored text already passed Build once; never reject it on read.
	l, err := Build(string(text), false)
	if err != nil {
		return nil, fmt.Errorf("parsing stored manifest %s: %w", coll.ManifestHash, err)
	}
	c.listings.Add(coll.ManifestHash, l)
	return l, nil
}

// Tree links the entries of collection id.
func (c *Catalog) Tree(id string) (*manifest.Tree, error) {
	l, err := c.Listing(id)
	if err != nil {
		return nil, err
	}
	return l.Tree()
}

// Diff compares collection id against candidate manifest text.
func (c *Catalog) Diff(id, text string) (diff.Result, error) {
	current, err := c.Listing(id)
	if err != nil {
		return diff.Result{}, err
	}
	next, err := c.Parse(text)
	if err != nil {
		return diff.Result{}, err
	}
	return diff.Compare(current.Manifest, next.Manifest), nil
}

// Close releases the database when the catalog opened it.
func (c *Catalog) Close() error {
	if c == nil || !c.ownsDB || c.DB == nil {
		return nil
	}
	if err := c.DB.Close(); err != nil {
		return fmt.Errorf("closing database: %w", err)
	}
	return nil
}

func (c *Catalog) release(hash string) {
	if err := c.Safe.Release(hash); err != nil {
		c.Logger.Warn("releasing manifest", zap.String("hash", hash), zap.Error(err))
	}
}

func (c *Catalog) refreshCount() {
	n, err := c.Collections.Count()
	if err != nil {
		c.Logger.Warn("counting collections", zap.Error(err))
		return
	}
	metrics.SetCollections(n)
}
