package store

import (
	"context"
	"fmt"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/google/go-cmp/cmp"
	"testing"
)

func TestSortLatest(t *testing.T) {
	posts := []post.Post{
		{ID: "a", CreatedAt: "2024-01-01T00:00:00Z"},
		{ID: "bad1", CreatedAt: "whenever"},
		{ID: "c", CreatedAt: "2024-03-01T00:00:00Z"},
		{ID: "b1", CreatedAt: "2024-02-01T00:00:00Z"},
		{ID: "bad2", CreatedAt: ""},
		{ID: "b2", CreatedAt: "2024-02-01T00:00:00.000Z"},
	}

	SortLatest(posts)

	var got []string
	for _, p := range posts {
		got = append(got, p.ID)
	}
	want := []string{"c", "b1", "b2", "a", "bad1", "bad2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Unexpected order (-want +got):\n%s", diff)
	}
}

func TestLatestLimit(t *testing.T) {
	var posts []post.Post
	for i := 1; i <= 5; i++ {
		posts = append(posts, post.Post{ID: fmt.Sprint(i), CreatedAt: fmt.Sprintf("2024-01-0%dT00:00:00Z", i)})
	}

	tests := []struct {
		limit int
		want  int
	}{
		{0, 5}, {-1, 5}, {3, 3}, {10, 5},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit=%d", tt.limit), func(t *testing.T) {
			got := Latest(posts, tt.limit)
			if len(got) != tt.want {
				t.Errorf("Expected %d posts, got %d", tt.want, len(got))
			}
			if got[0].ID != "5" {
				t.Errorf("Expected newest first, got %s", got[0].ID)
			}
		})
	}

	if posts[0].ID != "1" {
		t.Errorf("Latest must not reorder its input")
	}
	if got := Latest(nil, 3); got == nil || len(got) != 0 {
		t.Errorf("Expected empty non-nil result, got %#v", got)
	}
}

func TestIsCode(t *testing.T) {
	err := fmt.Errorf("while saving: %w", WrapError(RetCStorageFailure, "quota", fmt.Errorf("full")))
	if !IsCode(err, RetCStorageFailure) {
		t.Errorf("Expected StorageFailure through wrapping")
	}
	if IsCode(err, RetCNotFound) {
		t.Errorf("Unexpected NotFound")
	}
	if IsCode(fmt.Errorf("plain"), RetCStorageFailure) {
		t.Errorf("Plain errors carry no code")
	}
	if s := err.Error(); s != "while saving: StoreError (code StorageFailure): quota: full" {
		t.Errorf("Unexpected message %q", s)
	}
}

func TestLocalCacheSupportsNothing(t *testing.T) {
	b := NewLocalCache()
	if b.Kind() != KindLocalCache {
		t.Errorf("Unexpected kind %s", b.Kind())
	}
	for _, f := range []Feature{FeatureFetch, FeaturePush, FeatureRemove} {
		if b.SupportsFeature(f) {
			t.Errorf("Local cache must not support %d", f)
		}
	}
	if _, err := b.Fetch(context.Background()); !IsCode(err, RetCUnsupportedOperation) {
		t.Errorf("Expected UnsupportedOperation, got %v", err)
	}
}

func TestParseBackendKind(t *testing.T) {
	for _, s := range []string{"local", "file", "table"} {
		if k, err := ParseBackendKind(s); err != nil || string(k) != s {
			t.Errorf("ParseBackendKind(%q) = %q, %v", s, k, err)
		}
	}
	if _, err := ParseBackendKind("firebase"); err == nil {
		t.Errorf("Expected error for unknown backend")
	}
}
