// internal/api/handlers.go
package api

import (
	"encoding/json"
	"net/http"
	"strings"

	"keeptree/internal/catalog"
	"keeptree/internal/collection"
	"keeptree/internal/diff"
	"keeptree/internal/errors"
	"keeptree/internal/logging"
	shared "keeptree/shared/types"

	"go.uber.org/zap"
)

// MaxBodySize bounds request bodies; manifests larger than this are
// rejected.
const MaxBodySize = 64 << 20

// Catalog is the part of *catalog.Catalog the handlers use.
type Catalog interface {
	Parse(text string) (*catalog.Listing, error)
	Import(name, text string) (*collection.Collection, error)
	Replace(id, text string) (*collection.Collection, error)
	Get(id string) (*collection.Collection, error)
	List() ([]*collection.Collection, error)
	Count() (int, error)
	FindByPortableDataHash(pdh string) ([]*collection.Collection, error)
	Delete(id string) error
	ManifestText(id string) (string, error)
	Listing(id string) (*catalog.Listing, error)
	Diff(id, text string) (diff.Result, error)
}

type CollectionHandler struct {
	catalog Catalog
	logger  *logging.Logger
}

func NewCollectionHandler(c Catalog, logger *logging.Logger) *CollectionHandler {
	if logger == nil {
		logger = logging.Nop()
	}
	return &CollectionHandler{catalog: c, logger: logger}
}

// Register adds the manifest and collection routes to mux.
func (h *CollectionHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /health", h.Health)
	mux.HandleFunc("POST /api/manifests/parse", h.Parse)

	mux.HandleFunc("POST /api/collections", h.Create)
	mux.HandleFunc("GET /api/collections", h.List)
	mux.HandleFunc("GET /api/collections/{id}", h.Get)
	mux.HandleFunc("PUT /api/collections/{id}", h.Update)
	mux.HandleFunc("DELETE /api/collections/{id}", h.Delete)
	mux.HandleFunc("GET /api/collections/{id}/files", h.Files)
	mux.HandleFunc("GET /api/collections/{id}/directories", h.Directories)
	mux.HandleFunc("GET /api/collections/{id}/manifest", h.Manifest)
	mux.HandleFunc("POST /api/collections/{id}/diff", h.Diff)
}

func (h *CollectionHandler) Health(w http.ResponseWriter, r *http.Request) {
	n, err := h.catalog.Count()
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, shared.Health{Status: "ok", Collections: n})
}

// Parse maps manifest text without storing it.
func (h *CollectionHandler) Parse(w http.ResponseWriter, r *http.Request) {
	var req shared.ManifestRequest
	if !h.decode(w, r, &req) {
		return
	}

	l, err := h.catalog.Parse(req.ManifestText)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, shared.ParseResponse{
		PortableDataHash: l.PortableDataHash,
		Streams:          len(l.Manifest.Streams),
		Files:            nonNil(l.Files),
		Directories:      nonNil(l.Directories),
	})
}

func (h *CollectionHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req shared.CreateCollectionRequest
	if !h.decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		h.fail(w, r, errors.ValidationError("name is required", nil))
		return
	}

	c, err := h.catalog.Import(req.Name, req.ManifestText)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// List returns every collection, or with ?pdh= only those holding that
// content.
func (h *CollectionHandler) List(w http.ResponseWriter, r *http.Request) {
	var (
		all []*collection.Collection
		err error
	)
	if pdh := r.URL.Query().Get("pdh"); pdh != "" {
		all, err = h.catalog.FindByPortableDataHash(pdh)
	} else {
		all, err = h.catalog.List()
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(all))
}

func (h *CollectionHandler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.catalog.Get(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

// Update replaces the collection's manifest text.
func (h *CollectionHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req shared.ManifestRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.catalog.Replace(r.PathValue("id"), req.ManifestText)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (h *CollectionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.Delete(r.PathValue("id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *CollectionHandler) Files(w http.ResponseWriter, r *http.Request) {
	l, err := h.catalog.Listing(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(l.Files))
}

func (h *CollectionHandler) Directories(w http.ResponseWriter, r *http.Request) {
	l, err := h.catalog.Listing(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(l.Directories))
}

// Manifest returns the stored manifest text verbatim.
func (h *CollectionHandler) Manifest(w http.ResponseWriter, r *http.Request) {
	text, err := h.catalog.ManifestText(r.PathValue("id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte(text))
}

func (h *CollectionHandler) Diff(w http.ResponseWriter, r *http.Request) {
	var req shared.ManifestRequest
	if !h.decode(w, r, &req) {
		return
	}

	res, err := h.catalog.Diff(r.PathValue("id"), req.ManifestText)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *CollectionHandler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, MaxBodySize)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.fail(w, r, errors.ValidationError("invalid request body", err.Error()))
		return false
	}
	return true
}

func (h *CollectionHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	e := errors.FromError(err)
	log := h.logger.WithRequestID(r.Context())
	if e.Code >= http.StatusInternalServerError {
		log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	} else {
		log.Debug("request rejected", zap.String("path", r.URL.Path), zap.Error(err))
	}
	errors.Write(w, e)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
