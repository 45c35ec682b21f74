// internal/collection/storage/store.go
package storage

import (
	"fmt"
	"sort"
	"time"

	"keeptree/internal/collection"
	"keeptree/internal/storage"

	"github.com/dgraph-io/badger/v4"
)

// Store handles all collection storage operations
type Store struct {
	store *storage.BadgerStore
}

func NewStore(db *badger.DB) *Store {
	return &Store{
		store: storage.NewBadgerStore(db, "collection"),
	}
}

// collectionEntity wraps collection.Collection to implement storage.Entity
type collectionEntity struct {
	*collection.Collection
}

func (c *collectionEntity) GetID() string {
	return c.ID
}

func validate(c *collection.Collection) error {
	if c.ID == "" {
		return fmt.Errorf("id is required")
	}
	if c.Name == "" {
		return fmt.Errorf("name is required")
	}
	if c.ManifestHash == "" {
		return fmt.Errorf("manifest hash is required")
	}
	return nil
}

func (s *Store) Create(c *collection.Collection) error {
	if err := validate(c); err != nil {
		return fmt.Errorf("invalid collection: %w", err)
	}

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.UpdatedAt.IsZero() {
		c.UpdatedAt = c.CreatedAt
	}
	if c.Version == 0 {
		c.Version = 1
	}

	return s.store.Create(&collectionEntity{Collection: c})
}

func (s *Store) Get(id string) (*collection.Collection, error) {
	entity := collectionEntity{Collection: &collection.Collection{}}
	if err := s.store.Get(id, &entity); err != nil {
		return nil, fmt.Errorf("getting collection: %w", err)
	}
	return entity.Collection, nil
}

func (s *Store) Update(c *collection.Collection) error {
	if err := validate(c); err != nil {
		return fmt.Errorf("invalid collection: %w", err)
	}

	c.UpdatedAt = time.Now()
	return s.store.Update(&collectionEntity{Collection: c})
}

func (s *Store) Delete(id string) error {
	return s.store.Delete(id)
}

// List returns all collections, oldest first.
func (s *Store) List() ([]*collection.Collection, error) {
	var entities []collectionEntity
	if err := s.store.List(&entities); err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}

	collections := make([]*collection.Collection, len(entities))
	for i, entity := range entities {
		collections[i] = entity.Collection
	}
	sort.SliceStable(collections, func(i, j int) bool {
		return collections[i].CreatedAt.Before(collections[j].CreatedAt)
	})
	return collections, nil
}

func (s *Store) Count() (int, error) {
	n, err := s.store.Count()
	if err != nil {
		return 0, fmt.Errorf("counting collections: %w", err)
	}
	return n, nil
}

// FindBySource returns the collection imported from source.
func (s *Store) FindBySource(source string) (*collection.Collection, error) {
	if source == "" {
		return nil, fmt.Errorf("source is required")
	}

	collections, err := s.List()
	if err != nil {
		return nil, err
	}
	for _, c := range collections {
		if c.Source == source {
			return c, nil
		}
	}
	return nil, fmt.Errorf("collection with source %s: %w", source, storage.ErrNotFound)
}

// FindByPortableDataHash returns every collection with the given content.
func (s *Store) FindByPortableDataHash(pdh string) ([]*collection.Collection, error) {
	collections, err := s.List()
	if err != nil {
		return nil, err
	}

	var result []*collection.Collection
	for _, c := range collections {
		if c.PortableDataHash == pdh {
			result = append(result, c)
		}
	}
	return result, nil
}
