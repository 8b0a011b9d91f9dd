package client

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/store"
	"github.com/freerahn/stockblog/remote/common"
	"github.com/freerahn/stockblog/remote/serializer"
	httptransport "github.com/freerahn/stockblog/remote/transport/http"
	"github.com/google/go-cmp/cmp"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

var samplePosts = []post.Post{
	{ID: "1", Title: "first", Content: "a", Author: "investa", CreatedAt: "2024-01-01T00:00:00.000Z", UpdatedAt: "2024-01-01T00:00:00.000Z"},
	{ID: "2", Title: "second", Content: "b", Author: "investa", StockSymbol: "079160", StockName: "CJ CGV", CreatedAt: "2024-01-02T00:00:00.000Z", UpdatedAt: "2024-01-02T00:00:00.000Z"},
}

func blogConfig(snapshotURL, api, table string, token string) common.BlogConfig {
	return common.BlogConfig{
		SnapshotURL: snapshotURL,
		GitHub: common.GitHubConfig{
			API:    api,
			Owner:  "freerahn",
			Repo:   "stock_blog",
			Path:   "public/posts.json",
			Branch: "main",
			Token:  token,
		},
		TableEndpoint: table,
		Timeout:       2 * time.Second,
		Retries:       1,
	}
}

func newSnapshot(t *testing.T, config common.BlogConfig) store.IBackend {
	t.Helper()
	b, err := NewSnapshotBackend(config, httptransport.NewHttpClientTransport(), httptransport.NewHttpClientTransport(), serializer.NewJSONSerializer())
	if err != nil {
		t.Fatalf("NewSnapshotBackend failed: %v", err)
	}
	return b
}

// --------------------------------------------------------------------------
// Remote file
// --------------------------------------------------------------------------

func TestSnapshotFetch(t *testing.T) {
	data, _ := serializer.NewJSONSerializer().Serialize(samplePosts)
	var query string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.RawQuery
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	b := newSnapshot(t, blogConfig(srv.URL+"/public/posts.json", srv.URL, "", ""))
	if !b.SupportsFeature(store.FeatureFetch|store.FeaturePush) || b.SupportsFeature(store.FeatureRemove) {
		t.Errorf("Unexpected feature set")
	}

	posts, err := b.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if diff := cmp.Diff(samplePosts, posts); diff != "" {
		t.Errorf("Unexpected posts (-want +got):\n%s", diff)
	}
	if query == "" {
		t.Errorf("Expected cache-busting query parameter")
	}
}

func TestSnapshotFetchFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"NotFound", http.StatusNotFound, "404: Not Found"},
		{"ServerError", http.StatusInternalServerError, ""},
		{"NotJSON", http.StatusOK, "<html>rate limited</html>"},
		{"Object", http.StatusOK, `{"posts":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := newSnapshot(t, blogConfig(srv.URL, srv.URL, "", "")).Fetch(context.Background())
			if !store.IsCode(err, store.RetCRemoteFetchFailure) {
				t.Errorf("Expected RemoteFetchFailure, got %v", err)
			}
		})
	}
}

// fakeGitHub records contents API calls
type fakeGitHub struct {
	mu      sync.Mutex
	sha     string // empty means the file does not exist
	puts    []contentsRequest
	headers []http.Header
	reject  bool
}

func (f *fakeGitHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.headers = append(f.headers, r.Header.Clone())

	if r.URL.Path != "/repos/freerahn/stock_blog/contents/public/posts.json" {
		http.NotFound(w, r)
		return
	}
	switch r.Method {
	case http.MethodGet:
		if r.URL.Query().Get("ref") != "main" {
			http.Error(w, "missing ref", http.StatusBadRequest)
			return
		}
		if f.sha == "" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"sha": f.sha, "path": "public/posts.json"})
	case http.MethodPut:
		if f.reject {
			http.Error(w, `{"message":"sha does not match"}`, http.StatusConflict)
			return
		}
		var req contentsRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.puts = append(f.puts, req)
		f.sha = "updated"
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"content":{}}`))
	}
}

func TestSnapshotPush(t *testing.T) {
	gh := &fakeGitHub{sha: "abc123"}
	srv := httptest.NewServer(gh)
	defer srv.Close()

	b := newSnapshot(t, blogConfig(srv.URL, srv.URL, "", "ghp_token"))
	b.(*snapshotBackend).now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

	if err := b.Push(context.Background(), samplePosts); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	if len(gh.puts) != 1 {
		t.Fatalf("Expected one upload, got %d", len(gh.puts))
	}
	put := gh.puts[0]
	if put.SHA != "abc123" || put.Branch != "main" {
		t.Errorf("Unexpected sha/branch %q/%q", put.SHA, put.Branch)
	}
	if put.Message != "Update posts.json - 2024-05-01T12:00:00.000Z" {
		t.Errorf("Unexpected commit message %q", put.Message)
	}
	content, err := base64.StdEncoding.DecodeString(put.Content)
	if err != nil {
		t.Fatalf("Content is not base64: %v", err)
	}
	want, _ := serializer.NewJSONSerializer().Serialize(samplePosts)
	if string(content) != string(want) {
		t.Errorf("Uploaded content mismatch:\n%s", content)
	}
	for _, h := range gh.headers {
		if h.Get("Authorization") != "token ghp_token" || h.Get("Accept") != "application/vnd.github.v3+json" {
			t.Errorf("Unexpected headers %v", h)
		}
	}
}

func TestSnapshotPushCreatesFile(t *testing.T) {
	gh := &fakeGitHub{}
	srv := httptest.NewServer(gh)
	defer srv.Close()

	if err := newSnapshot(t, blogConfig(srv.URL, srv.URL, "", "tok")).Push(context.Background(), samplePosts); err != nil {
		t.Fatalf("Push failed: %v", err)
	}
	if len(gh.puts) != 1 || gh.puts[0].SHA != "" {
		t.Errorf("Expected one upload without sha, got %+v", gh.puts)
	}
}

func TestSnapshotPushFailures(t *testing.T) {
	gh := &fakeGitHub{sha: "abc", reject: true}
	srv := httptest.NewServer(gh)
	defer srv.Close()

	err := newSnapshot(t, blogConfig(srv.URL, srv.URL, "", "tok")).Push(context.Background(), samplePosts)
	if !store.IsCode(err, store.RetCRemotePushFailure) {
		t.Errorf("Expected RemotePushFailure, got %v", err)
	}

	err = newSnapshot(t, blogConfig(srv.URL, srv.URL, "", "")).Push(context.Background(), samplePosts)
	if !store.IsCode(err, store.RetCNoCredential) {
		t.Errorf("Expected NoCredential, got %v", err)
	}

	err = newSnapshot(t, blogConfig(srv.URL, srv.URL, "", "tok")).Remove(context.Background(), "1")
	if !store.IsCode(err, store.RetCUnsupportedOperation) {
		t.Errorf("Expected UnsupportedOperation, got %v", err)
	}
}

// --------------------------------------------------------------------------
// Remote table
// --------------------------------------------------------------------------

// fakeTable is a minimal posts service
type fakeTable struct {
	mu      sync.Mutex
	posts   map[string]post.Post
	deletes []string
	failOn  string
}

func (f *fakeTable) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		list := make([]post.Post, 0, len(f.posts))
		for _, p := range f.posts {
			list = append(list, p)
		}
		store.SortLatest(list)
		_ = json.NewEncoder(w).Encode(list)
	case http.MethodPost:
		var p post.Post
		_ = json.NewDecoder(r.Body).Decode(&p)
		if p.ID == f.failOn {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		f.posts[p.ID] = p
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		id := r.URL.Query().Get("id")
		f.deletes = append(f.deletes, id)
		if _, ok := f.posts[id]; !ok {
			http.NotFound(w, r)
			return
		}
		delete(f.posts, id)
	}
}

func TestTableBackend(t *testing.T) {
	table := &fakeTable{posts: map[string]post.Post{}}
	srv := httptest.NewServer(table)
	defer srv.Close()

	b, err := NewTableBackend(blogConfig("", "", srv.URL+"/", ""), httptransport.NewHttpClientTransport(), serializer.NewJSONSerializer())
	if err != nil {
		t.Fatalf("NewTableBackend failed: %v", err)
	}
	if b.Kind() != store.KindRemoteTable || !b.SupportsFeature(store.FeatureFetch|store.FeaturePush|store.FeatureRemove) {
		t.Errorf("Unexpected kind or features")
	}

	ctx := context.Background()
	if err := b.Push(ctx, samplePosts); err != nil {
		t.Fatalf("Push failed: %v", err)
	}

	posts, err := b.Fetch(ctx)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != "2" {
		t.Errorf("Expected both posts newest first, got %+v", posts)
	}

	if err := b.Remove(ctx, "1"); err != nil {
		t.Errorf("Remove failed: %v", err)
	}
	if err := b.Remove(ctx, "missing"); err != nil {
		t.Errorf("Removing an unknown post should succeed: %v", err)
	}
	if diff := cmp.Diff([]string{"1", "missing"}, table.deletes); diff != "" {
		t.Errorf("Unexpected deletes (-want +got):\n%s", diff)
	}

	table.failOn = "1"
	if err := b.Push(ctx, samplePosts); !store.IsCode(err, store.RetCRemotePushFailure) {
		t.Errorf("Expected RemotePushFailure, got %v", err)
	}
	if _, ok := table.posts["1"]; ok {
		t.Errorf("Failed push should not have stored post 1")
	}
}

func TestTableBackendNeedsEndpoint(t *testing.T) {
	if _, err := NewTableBackend(blogConfig("", "", " , ", ""), httptransport.NewHttpClientTransport(), serializer.NewJSONSerializer()); err == nil {
		t.Errorf("Expected error without endpoint")
	}
	if diff := cmp.Diff([]string{"http://a", "http://b"}, splitEndpoints("http://a/, http://b")); diff != "" {
		t.Errorf("Unexpected endpoints (-want +got):\n%s", diff)
	}
}
