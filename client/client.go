// client/client.go
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"keeptree/internal/collection"
	"keeptree/internal/diff"
	"keeptree/internal/errors"
	"keeptree/internal/manifest"
	shared "keeptree/shared/types"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: time.Second * 10,
		},
	}
}

// Manifest operations
func (c *Client) Parse(text string) (*shared.ParseResponse, error) {
	var result shared.ParseResponse
	err := c.do("POST", "/api/manifests/parse", shared.ManifestRequest{ManifestText: text}, http.StatusOK, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Collection operations
func (c *Client) CreateCollection(name, text string) (*collection.Collection, error) {
	var result collection.Collection
	req := shared.CreateCollectionRequest{Name: name, ManifestText: text}
	if err := c.do("POST", "/api/collections", req, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ListCollections() ([]*collection.Collection, error) {
	var result []*collection.Collection
	if err := c.do("GET", "/api/collections", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// FindByPortableDataHash lists the collections holding content pdh.
func (c *Client) FindByPortableDataHash(pdh string) ([]*collection.Collection, error) {
	var result []*collection.Collection
	path := "/api/collections?pdh=" + url.QueryEscape(pdh)
	if err := c.do("GET", path, nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) GetCollection(id string) (*collection.Collection, error) {
	var result collection.Collection
	if err := c.do("GET", collectionPath(id, ""), nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) ReplaceManifest(id, text string) (*collection.Collection, error) {
	var result collection.Collection
	req := shared.ManifestRequest{ManifestText: text}
	if err := c.do("PUT", collectionPath(id, ""), req, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) DeleteCollection(id string) error {
	return c.do("DELETE", collectionPath(id, ""), nil, http.StatusNoContent, nil)
}

func (c *Client) Files(id string) ([]manifest.FileEntry, error) {
	var result []manifest.FileEntry
	if err := c.do("GET", collectionPath(id, "files"), nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) Directories(id string) ([]manifest.DirectoryEntry, error) {
	var result []manifest.DirectoryEntry
	if err := c.do("GET", collectionPath(id, "directories"), nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// ManifestText fetches the stored manifest of collection id.
func (c *Client) ManifestText(id string) (string, error) {
	resp, err := c.httpClient.Get(c.baseURL + collectionPath(id, "manifest"))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", decodeError(resp)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading manifest: %w", err)
	}
	return string(body), nil
}

func (c *Client) Diff(id, text string) (*diff.Result, error) {
	var result diff.Result
	req := shared.ManifestRequest{ManifestText: text}
	if err := c.do("POST", collectionPath(id, "diff"), req, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *Client) do(method, path string, body any, want int, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(method, c.baseURL+path, &buf)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// decodeError turns an error response into an *errors.Error, falling
// back to the status line when the body is not one.
func decodeError(resp *http.Response) error {
	var e errors.Error
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Message == "" {
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if e.Code == 0 {
		e.Code = resp.StatusCode
	}
	return &e
}

func collectionPath(id, sub string) string {
	p := "/api/collections/" + url.PathEscape(id)
	if sub != "" {
		p += "/" + sub
	}
	return p
}
