package shared

import (
	"keeptree/internal/manifest"
)

// ManifestRequest carries manifest text to parse, replace or compare.
type ManifestRequest struct {
	ManifestText string `json:"manifest_text"`
}

// CreateCollectionRequest is the body of POST /api/collections.
type CreateCollectionRequest struct {
	Name         string `json:"name"`
	ManifestText string `json:"manifest_text"`
}

// ParseResponse is the stateless parse result.
type ParseResponse struct {
	PortableDataHash string                    `json:"portable_data_hash"`
	Streams          int                       `json:"streams"`
	Files            []manifest.FileEntry      `json:"files"`
	Directories      []manifest.DirectoryEntry `json:"directories"`
}

// Health reports server liveness.
type Health struct {
	Status      string `json:"status"`
	Collections int    `json:"collections"`
}
