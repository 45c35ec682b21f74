package collection

import (
	"time"
)

// Collection is a named, versioned manifest held by the catalog.
type Collection struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	PortableDataHash string    `json:"portable_data_hash"`
	ManifestHash     string    `json:"manifest_hash"` // safe key of the manifest text
	Source           string    `json:"source,omitempty"`
	Version          int       `json:"version"`
	Stats            Stats     `json:"stats"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// Stats summarizes the mapped manifest.
type Stats struct {
	Streams     int   `json:"streams"`
	Files       int   `json:"files"`
	Directories int   `json:"directories"`
	Size        int64 `json:"size"`
}

// Box defines the interface for collection storage operations
type Box interface {
	Create(c *Collection) error
	Get(id string) (*Collection, error)
	Update(c *Collection) error
	Delete(id string) error
	List() ([]*Collection, error)
	Count() (int, error)

	FindBySource(source string) (*Collection, error)
	FindByPortableDataHash(pdh string) ([]*Collection, error)
}
