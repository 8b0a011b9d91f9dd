package store

import (
	"context"
	"github.com/freerahn/stockblog/lib/post"
)

// --------------------------------------------------------------------------
// Storage Backend
// --------------------------------------------------------------------------

// BackendKind names the remote the blog reconciles with
type BackendKind string

const (
	KindLocalCache  BackendKind = "local"
	KindRemoteFile  BackendKind = "file"
	KindRemoteTable BackendKind = "table"
)

// ParseBackendKind parses a configured backend name
func ParseBackendKind(s string) (BackendKind, error) {
	switch BackendKind(s) {
	case KindLocalCache, KindRemoteFile, KindRemoteTable:
		return BackendKind(s), nil
	default:
		return "", NewError(RetCUnsupportedOperation, "unknown backend "+s+" (must be local, file or table)")
	}
}

// Feature represents backend capabilities as bit flags
type Feature uint64

const (
	FeatureFetch  Feature = 1 << iota // The whole collection can be read
	FeaturePush                       // The collection can be written
	FeatureRemove                     // Single posts can be deleted remotely
)

// IBackend is the remote side of the blog. It is selected once from configuration;
// callers check SupportsFeature instead of the kind.
type IBackend interface {
	// Kind returns which variant this backend is.
	Kind() BackendKind
	// SupportsFeature checks if the backend supports the given features (combine with |).
	SupportsFeature(feature Feature) bool
	// Fetch reads the whole remote collection.
	Fetch(ctx context.Context) ([]post.Post, error)
	// Push writes the given collection (or, for tables, upserts every post in it).
	Push(ctx context.Context, posts []post.Post) error
	// Remove deletes a single post remotely.
	Remove(ctx context.Context, id string) error
}

// localCache is the backend of a blog without a remote
type localCache struct{}

// NewLocalCache returns a backend that supports nothing. Reconciliation against it is a no-op.
func NewLocalCache() IBackend {
	return localCache{}
}

func (localCache) Kind() BackendKind { return KindLocalCache }

func (localCache) SupportsFeature(Feature) bool { return false }

func (localCache) Fetch(context.Context) ([]post.Post, error) {
	return nil, NewError(RetCUnsupportedOperation, "local cache has no remote to fetch from")
}

func (localCache) Push(context.Context, []post.Post) error {
	return NewError(RetCUnsupportedOperation, "local cache has no remote to push to")
}

func (localCache) Remove(context.Context, string) error {
	return NewError(RetCUnsupportedOperation, "local cache has no remote to remove from")
}
