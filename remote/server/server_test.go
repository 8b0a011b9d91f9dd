package server

import (
	"bytes"
	"context"
	"encoding/json"
	"github.com/freerahn/stockblog/lib/db/engines/maple"
	"github.com/freerahn/stockblog/lib/post"
	"github.com/freerahn/stockblog/lib/stats"
	"github.com/freerahn/stockblog/lib/table"
	"github.com/freerahn/stockblog/lib/table/sqltable"
	"github.com/freerahn/stockblog/remote/common"
	"github.com/freerahn/stockblog/remote/serializer"
	httptransport "github.com/freerahn/stockblog/remote/transport/http"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type fixture struct {
	srv     *httptest.Server
	table   table.ITable
	tracker *stats.Tracker
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	tbl, err := sqltable.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	tracker := stats.NewTracker(maple.NewMapleDB(maple.DefaultOptions()))
	s := NewServer(common.ServerConfig{Endpoint: ":0"}, httptransport.NewHttpServerTransport(), tbl, tracker)

	// fixed clock for created posts
	for _, a := range s.adapters {
		if pa, ok := a.(*postsAdapterImpl); ok {
			pa.now = func() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }
		}
	}

	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		srv.Close()
		_ = tbl.Close()
	})
	return &fixture{srv: srv, table: tbl, tracker: tracker}
}

func (f *fixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, f.srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest failed: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func TestCreateAndList(t *testing.T) {
	f := newFixture(t)

	resp, body := f.do(t, http.MethodPost, "/posts", `{"title":"CJ CGV","content":"<p>hi</p>","stockSymbol":"079160","stockName":"CJ CGV"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.StatusCode, body)
	}
	var created successResponse
	_ = json.Unmarshal(body, &created)
	if !created.Success || created.ID != "1714564800000" {
		t.Errorf("Unexpected create response %s", body)
	}

	// a pushed copy keeps its timestamps
	f.do(t, http.MethodPost, "/posts", `{"id":"old","title":"t","content":"c","createdAt":"2023-01-01T00:00:00.000Z","updatedAt":"2023-02-01T00:00:00.000Z"}`)

	resp, body = f.do(t, http.MethodGet, "/posts", "")
	if resp.StatusCode != http.StatusOK || resp.Header.Get("Cache-Control") != "no-store" {
		t.Fatalf("Unexpected list response %d %v", resp.StatusCode, resp.Header)
	}
	posts, err := serializer.NewJSONSerializer().Deserialize(body)
	if err != nil {
		t.Fatalf("List is not a post array: %v", err)
	}
	if len(posts) != 2 || posts[0].ID != "1714564800000" || posts[1].UpdatedAt != "2023-02-01T00:00:00.000Z" {
		t.Errorf("Unexpected posts %+v", posts)
	}
	if posts[0].Author != post.DefaultAuthor || posts[0].CreatedAt != "2024-05-01T12:00:00.000Z" {
		t.Errorf("Defaults not applied: %+v", posts[0])
	}
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	for _, body := range []string{`{"title":"only title"}`, `{"content":"only content"}`, `not json`} {
		if resp, _ := f.do(t, http.MethodPost, "/posts", body); resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400 for %s, got %d", body, resp.StatusCode)
		}
	}
}

func TestGetCountsView(t *testing.T) {
	f := newFixture(t)
	_ = f.table.Upsert(context.Background(), post.Post{ID: "1", Title: "t", Content: "c", CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"})

	resp, body := f.do(t, http.MethodGet, "/posts/1", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"id":"1"`) {
		t.Fatalf("Unexpected response %d %s", resp.StatusCode, body)
	}
	if resp, _ = f.do(t, http.MethodGet, "/posts/missing", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
	if n := f.tracker.Get().Views["1"]; n != 1 {
		t.Errorf("Expected one view, got %d", n)
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	_ = f.table.Upsert(context.Background(), post.Post{ID: "1", Title: "t", Content: "c", Tags: []string{"a"}, CreatedAt: "2024-01-01T00:00:00.000Z", UpdatedAt: "2024-01-01T00:00:00.000Z"})

	resp, body := f.do(t, http.MethodPut, "/posts/1", `{"title":"new title"}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", resp.StatusCode, body)
	}
	p, _, _ := f.table.Get(context.Background(), "1")
	if p.Title != "new title" || p.Content != "c" || len(p.Tags) != 1 {
		t.Errorf("Unexpected post after update %+v", p)
	}
	if p.UpdatedAt != "2024-05-01T12:00:00.000Z" || p.CreatedAt != "2024-01-01T00:00:00.000Z" {
		t.Errorf("Unexpected timestamps %s / %s", p.CreatedAt, p.UpdatedAt)
	}

	if resp, _ := f.do(t, http.MethodPut, "/posts/missing", `{"title":"x"}`); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
	if resp, _ := f.do(t, http.MethodPut, "/posts/1", `{"content":""}`); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty content, got %d", resp.StatusCode)
	}
}

func TestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	for _, id := range []string{"1", "2"} {
		_ = f.table.Upsert(ctx, post.Post{ID: id, Title: "t", Content: "c", CreatedAt: "2024-01-01T00:00:00Z", UpdatedAt: "2024-01-01T00:00:00Z"})
	}
	// fill the list cache
	f.do(t, http.MethodGet, "/posts", "")

	if resp, _ := f.do(t, http.MethodDelete, "/posts?id=1", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if resp, _ := f.do(t, http.MethodDelete, "/posts/2", ""); resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200, got %d", resp.StatusCode)
	}
	if resp, _ := f.do(t, http.MethodDelete, "/posts/2", ""); resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
	if resp, _ := f.do(t, http.MethodDelete, "/posts", ""); resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 without id, got %d", resp.StatusCode)
	}

	_, body := f.do(t, http.MethodGet, "/posts", "")
	if strings.TrimSpace(string(body)) != "[]" {
		t.Errorf("Stale list after delete: %s", body)
	}
}

// stallingTable holds the first List after it read the table until resume is closed
type stallingTable struct {
	table.ITable
	stall  atomic.Bool
	listed chan struct{}
	resume chan struct{}
}

func (s *stallingTable) List(ctx context.Context) ([]post.Post, error) {
	posts, err := s.ITable.List(ctx)
	if s.stall.CompareAndSwap(true, false) {
		s.listed <- struct{}{}
		<-s.resume
	}
	return posts, err
}

func TestListNotCachedAcrossWrite(t *testing.T) {
	inner, err := sqltable.Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer inner.Close()

	tbl := &stallingTable{ITable: inner, listed: make(chan struct{}, 1), resume: make(chan struct{})}
	tbl.stall.Store(true)

	mux := http.NewServeMux()
	NewPostsAdapter(tbl, nil, serializer.NewJSONSerializer()).Register(mux)
	srv := httptest.NewServer(mux)
	defer srv.Close()
	f := &fixture{srv: srv, table: tbl}

	// a list that read the table before the write
	done := make(chan error, 1)
	go func() {
		resp, err := http.Get(srv.URL + "/posts")
		if err == nil {
			_ = resp.Body.Close()
		}
		done <- err
	}()
	<-tbl.listed

	resp, body := f.do(t, http.MethodPost, "/posts", `{"id":"1","title":"t","content":"c"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d: %s", resp.StatusCode, body)
	}

	close(tbl.resume)
	if err := <-done; err != nil {
		t.Fatalf("Stalled list failed: %v", err)
	}

	_, body = f.do(t, http.MethodGet, "/posts", "")
	var posts []post.Post
	if err := json.Unmarshal(body, &posts); err != nil {
		t.Fatalf("Invalid list response %s: %v", body, err)
	}
	if len(posts) != 1 || posts[0].ID != "1" {
		t.Errorf("List served a result from before the write: %s", body)
	}
}

func TestStatsAndCORS(t *testing.T) {
	f := newFixture(t)

	resp, _ := f.do(t, http.MethodOptions, "/posts", "")
	if resp.StatusCode != http.StatusNoContent || resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Errorf("Unexpected preflight response %d %v", resp.StatusCode, resp.Header)
	}

	f.do(t, http.MethodGet, "/", "")
	f.do(t, http.MethodGet, "/", "")
	resp, body := f.do(t, http.MethodGet, "/stats", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	var s statsResponse
	if err := json.Unmarshal(body, &s); err != nil {
		t.Fatalf("Invalid stats response: %v", err)
	}
	if s.TotalVisitors != 2 {
		t.Errorf("Expected 2 visitors, got %s", body)
	}

	resp, body = f.do(t, http.MethodGet, "/metrics", "")
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), "blog_http_requests_total") {
		t.Errorf("Unexpected metrics output:\n%s", body)
	}
}
