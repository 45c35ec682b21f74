package main

import (
	"keeptree/client"
	"keeptree/internal/catalog"
	"keeptree/internal/collection"
	"keeptree/internal/diff"
	"keeptree/internal/manifest"
)

// backend is the collection store a command talks to: the local catalog
// or a server.
type backend interface {
	Import(name, text string) (*collection.Collection, error)
	Replace(id, text string) (*collection.Collection, error)
	List() ([]*collection.Collection, error)
	FindByPortableDataHash(pdh string) ([]*collection.Collection, error)
	Get(id string) (*collection.Collection, error)
	Delete(id string) error
	Files(id string) ([]manifest.FileEntry, error)
	Directories(id string) ([]manifest.DirectoryEntry, error)
	ManifestText(id string) (string, error)
	Diff(id, text string) (diff.Result, error)
	Close() error
}

type localBackend struct {
	*catalog.Catalog
}

func (b localBackend) Files(id string) ([]manifest.FileEntry, error) {
	l, err := b.Listing(id)
	if err != nil {
		return nil, err
	}
	return l.Files, nil
}

func (b localBackend) Directories(id string) ([]manifest.DirectoryEntry, error) {
	l, err := b.Listing(id)
	if err != nil {
		return nil, err
	}
	return l.Directories, nil
}

type remoteBackend struct {
	*client.Client
}

func newRemote(url string) remoteBackend {
	return remoteBackend{client.New(url)}
}

func (b remoteBackend) Import(name, text string) (*collection.Collection, error) {
	return b.CreateCollection(name, text)
}

func (b remoteBackend) Replace(id, text string) (*collection.Collection, error) {
	return b.ReplaceManifest(id, text)
}

func (b remoteBackend) Diff(id, text string) (diff.Result, error) {
	r, err := b.Client.Diff(id, text)
	if err != nil {
		return diff.Result{}, err
	}
	return *r, nil
}

func (b remoteBackend) List() ([]*collection.Collection, error) {
	return b.ListCollections()
}

func (b remoteBackend) Get(id string) (*collection.Collection, error) {
	return b.GetCollection(id)
}

func (b remoteBackend) Delete(id string) error {
	return b.DeleteCollection(id)
}

func (b remoteBackend) Close() error {
	return nil
}
