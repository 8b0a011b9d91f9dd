package http

import (
	"context"
	"github.com/freerahn/stockblog/remote/common"
	"github.com/freerahn/stockblog/remote/transport"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func connect(t *testing.T, retries int, endpoints ...string) transport.IClientTransport {
	t.Helper()
	tr := NewHttpClientTransport()
	if err := tr.Connect(common.ClientConfig{Endpoints: endpoints, TimeoutSecond: 2, RetryCount: retries}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = tr.Close() })
	return tr
}

func TestSendBuildsRequest(t *testing.T) {
	var got *http.Request
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	tr := connect(t, 1, srv.URL+"/api")
	resp, err := tr.Send(context.Background(), transport.Request{
		Method:  http.MethodPost,
		Path:    "/posts",
		Query:   map[string][]string{"id": {"42"}},
		Header:  http.Header{"Authorization": {"token abc"}},
		Body:    []byte(`{"title":"t"}`),
		NoCache: true,
	})
	if err != nil {
		t.Fatalf("Send failed: %v", err)
	}

	if !resp.OK() || resp.StatusCode != http.StatusCreated || string(resp.Body) != `{"success":true}` {
		t.Errorf("Unexpected response %d %s", resp.StatusCode, resp.Body)
	}
	if got.Method != http.MethodPost || got.URL.Path != "/api/posts" {
		t.Errorf("Unexpected request %s %s", got.Method, got.URL.Path)
	}
	if got.URL.Query().Get("id") != "42" || got.URL.Query().Get("t") == "" {
		t.Errorf("Expected id and cache-busting parameter, got %s", got.URL.RawQuery)
	}
	if got.Header.Get("Cache-Control") != "no-cache" || got.Header.Get("Pragma") != "no-cache" {
		t.Errorf("Missing no-cache headers: %v", got.Header)
	}
	if got.Header.Get("Authorization") != "token abc" || got.Header.Get("Content-Type") != "application/json" {
		t.Errorf("Unexpected headers: %v", got.Header)
	}
	if string(body) != `{"title":"t"}` {
		t.Errorf("Unexpected body %s", body)
	}
}

func TestSendReturnsNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	resp, err := connect(t, 3, srv.URL).Send(context.Background(), transport.Request{})
	if err != nil {
		t.Fatalf("Non-2xx must not be an error: %v", err)
	}
	if resp.OK() || resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404, got %d", resp.StatusCode)
	}
}

func TestSendRetriesNextEndpoint(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		_, _ = w.Write([]byte("[]"))
	}))
	defer srv.Close()

	// the first endpoint refuses connections
	dead := httptest.NewServer(http.NotFoundHandler())
	deadURL := dead.URL
	dead.Close()

	resp, err := connect(t, 2, deadURL, srv.URL).Send(context.Background(), transport.Request{})
	if err != nil {
		t.Fatalf("Expected retry to reach the live endpoint: %v", err)
	}
	if string(resp.Body) != "[]" || hits.Load() != 1 {
		t.Errorf("Unexpected response %s after %d hits", resp.Body, hits.Load())
	}

	if _, err := connect(t, 1, deadURL).Send(context.Background(), transport.Request{}); err == nil {
		t.Errorf("Expected error for unreachable endpoint")
	}
}

func TestSendHonoursContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := connect(t, 3, srv.URL).Send(ctx, transport.Request{}); err == nil {
		t.Errorf("Expected error after context deadline")
	}
}

func TestConnectValidatesEndpoints(t *testing.T) {
	tr := NewHttpClientTransport()
	if err := tr.Connect(common.ClientConfig{}); err == nil {
		t.Errorf("Expected error without endpoints")
	}
	if err := tr.Connect(common.ClientConfig{Endpoints: []string{"not a url"}}); err == nil {
		t.Errorf("Expected error for endpoint without scheme")
	}
	if _, err := NewHttpClientTransport().Send(context.Background(), transport.Request{}); err == nil {
		t.Errorf("Expected error before Connect")
	}
}
