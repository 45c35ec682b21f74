package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"keeptree/internal/catalog"
	"keeptree/internal/collection"
	"keeptree/internal/diff"
	"keeptree/internal/manifest"
	shared "keeptree/shared/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	sampleManifest = ". 930625b054ce894ac40596c3f5a0d947+33 0:0:a 0:0:b 0:33:output.txt\n" +
		"./c d41d8cd98f00b204e9800998ecf8427e+0 0:0:d\n"
	nextManifest = ". 930625b054ce894ac40596c3f5a0d947+33 0:33:output.txt\n"
)

func setupServer(t *testing.T) (*httptest.Server, *catalog.Catalog) {
	c, err := catalog.Open(t.TempDir(), catalog.Options{}, nil)
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	mux := http.NewServeMux()
	NewCollectionHandler(c, nil).Register(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv, c
}

func do(t *testing.T, method, url string, body any) *http.Response {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestParse(t *testing.T) {
	srv, _ := setupServer(t)

	tests := []struct {
		name       string
		text       string
		wantStatus int
		wantFiles  int
	}{
		{name: "sample", text: sampleManifest, wantStatus: http.StatusOK, wantFiles: 4},
		{name: "empty", text: "", wantStatus: http.StatusOK, wantFiles: 0},
		{name: "malformed", text: ". 0:0:a\nbroken\n", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, "POST", srv.URL+"/api/manifests/parse", shared.ManifestRequest{ManifestText: tt.text})
			assert.Equal(t, tt.wantStatus, resp.StatusCode)
			if tt.wantStatus != http.StatusOK {
				return
			}

			var got shared.ParseResponse
			decodeBody(t, resp, &got)
			assert.Len(t, got.Files, tt.wantFiles)
			assert.NotNil(t, got.Directories)
			assert.NotEmpty(t, got.PortableDataHash)
		})
	}
}

func TestParse_ErrorDetails(t *testing.T) {
	srv, _ := setupServer(t)

	resp := do(t, "POST", srv.URL+"/api/manifests/parse", shared.ManifestRequest{ManifestText: ". 0:0:a\nbroken\n"})
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var body struct {
		Type    string `json:"type"`
		Code    int    `json:"code"`
		Details struct {
			Line int    `json:"line"`
			Text string `json:"text"`
		} `json:"details"`
	}
	decodeBody(t, resp, &body)
	assert.Equal(t, "VALIDATION", body.Type)
	assert.Equal(t, http.StatusBadRequest, body.Code)
	assert.Equal(t, 2, body.Details.Line)
	assert.Equal(t, "broken", body.Details.Text)
}

func TestParse_InvalidBody(t *testing.T) {
	srv, _ := setupServer(t)

	resp, err := http.Post(srv.URL+"/api/manifests/parse", "application/json", bytes.NewBufferString("{"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCollectionLifecycle(t *testing.T) {
	srv, _ := setupServer(t)
	base := srv.URL + "/api/collections"

	resp := do(t, "POST", base, shared.CreateCollectionRequest{Name: "sample", ManifestText: sampleManifest})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created collection.Collection
	decodeBody(t, resp, &created)
	require.NotEmpty(t, created.ID)
	item := base + "/" + created.ID

	t.Run("Get", func(t *testing.T) {
		resp := do(t, "GET", item, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got collection.Collection
		decodeBody(t, resp, &got)
		assert.Equal(t, "sample", got.Name)
		assert.Equal(t, 4, got.Stats.Files)
	})

	t.Run("List", func(t *testing.T) {
		resp := do(t, "GET", base, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got []collection.Collection
		decodeBody(t, resp, &got)
		assert.Len(t, got, 1)
	})

	t.Run("Files", func(t *testing.T) {
		resp := do(t, "GET", item+"/files", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got []manifest.FileEntry
		decodeBody(t, resp, &got)
		require.Len(t, got, 4)
		assert.Equal(t, manifest.FileEntry{ParentID: "/c", ID: "/c/d", Name: "d", Size: 0, Type: manifest.EntryFile}, got[3])
	})

	t.Run("Directories", func(t *testing.T) {
		resp := do(t, "GET", item+"/directories", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got []manifest.DirectoryEntry
		decodeBody(t, resp, &got)
		require.Len(t, got, 1)
		assert.Equal(t, "/c", got[0].ID)
	})

	t.Run("Manifest", func(t *testing.T) {
		resp := do(t, "GET", item+"/manifest", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Contains(t, resp.Header.Get("Content-Type"), "text/plain")
		var buf bytes.Buffer
		_, err := buf.ReadFrom(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, sampleManifest, buf.String())
	})

	t.Run("Diff", func(t *testing.T) {
		resp := do(t, "POST", item+"/diff", shared.ManifestRequest{ManifestText: nextManifest})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got diff.Result
		decodeBody(t, resp, &got)
		assert.Len(t, got.Removed, 3)
		assert.Len(t, got.RemovedDirs, 1)
		assert.Empty(t, got.Added)
	})

	t.Run("Update", func(t *testing.T) {
		resp := do(t, "PUT", item, shared.ManifestRequest{ManifestText: nextManifest})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var got collection.Collection
		decodeBody(t, resp, &got)
		assert.Equal(t, 2, got.Version)
		assert.Equal(t, 1, got.Stats.Files)
	})

	t.Run("Delete", func(t *testing.T) {
		resp := do(t, "DELETE", item, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = do(t, "GET", item, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestList_ByPortableDataHash(t *testing.T) {
	srv, c := setupServer(t)
	first, err := c.Import("first", sampleManifest)
	require.NoError(t, err)
	_, err = c.Import("copy", sampleManifest)
	require.NoError(t, err)
	_, err = c.Import("other", nextManifest)
	require.NoError(t, err)

	resp := do(t, "GET", srv.URL+"/api/collections?pdh="+url.QueryEscape(first.PortableDataHash), nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got []collection.Collection
	decodeBody(t, resp, &got)
	require.Len(t, got, 2)
	for _, c := range got {
		assert.Equal(t, first.PortableDataHash, c.PortableDataHash)
	}

	resp = do(t, "GET", srv.URL+"/api/collections?pdh=d41d8cd98f00b204e9800998ecf8427e%2B0", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	decodeBody(t, resp, &got)
	assert.Empty(t, got)
}

func TestCreate_Validation(t *testing.T) {
	srv, _ := setupServer(t)

	tests := []struct {
		name string
		body shared.CreateCollectionRequest
	}{
		{name: "missing name", body: shared.CreateCollectionRequest{ManifestText: sampleManifest}},
		{name: "bad manifest", body: shared.CreateCollectionRequest{Name: "x", ManifestText: "nope\n"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := do(t, "POST", srv.URL+"/api/collections", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		})
	}
}

func TestUnknownCollection(t *testing.T) {
	srv, _ := setupServer(t)

	for _, path := range []string{"", "/files", "/directories", "/manifest"} {
		resp := do(t, "GET", srv.URL+"/api/collections/missing"+path, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode, path)
	}
	resp := do(t, "DELETE", srv.URL+"/api/collections/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHealth(t *testing.T) {
	srv, c := setupServer(t)
	_, err := c.Import("one", sampleManifest)
	require.NoError(t, err)

	resp := do(t, "GET", srv.URL+"/health", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got shared.Health
	decodeBody(t, resp, &got)
	assert.Equal(t, "ok", got.Status)
	assert.Equal(t, 1, got.Collections)
}
