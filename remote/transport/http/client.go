package http

import (
	"bytes"
	"context"
	"fmt"
	"github.com/freerahn/stockblog/remote/common"
	"github.com/freerahn/stockblog/remote/transport"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// maxBodyBytes bounds how much of a response is read
const maxBodyBytes = 32 << 20

func NewHttpClientTransport() transport.IClientTransport {
	return &httpClientTransport{}
}

type httpClientTransport struct {
	serverURLs []*url.URL
	client     *http.Client
	counter    uint32
	retryCount int
	now        func() time.Time
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IClientTransport)
// --------------------------------------------------------------------------

func (t *httpClientTransport) Connect(config common.ClientConfig) error {
	if len(config.Endpoints) == 0 {
		return fmt.Errorf("http transport needs at least one endpoint")
	}

	// Parse each server URL
	parsedURLs := make([]*url.URL, len(config.Endpoints))
	for i, server := range config.Endpoints {
		parsedURL, err := url.Parse(server)
		if err != nil {
			return err
		}
		if parsedURL.Scheme == "" || parsedURL.Host == "" {
			return fmt.Errorf("invalid endpoint %q: scheme and host are required", server)
		}
		parsedURLs[i] = parsedURL
	}

	// Create client with default transport
	client := &http.Client{
		Timeout: time.Duration(config.TimeoutSecond) * time.Second,
		Transport: &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	// Set the client and server URLs
	t.client = client
	t.serverURLs = parsedURLs
	t.counter = 0
	t.retryCount = config.RetryCount
	t.now = time.Now

	// No error
	return nil
}

func (t *httpClientTransport) Send(ctx context.Context, req transport.Request) (*transport.Response, error) {
	// Check if the transport is initialized
	if t.client == nil {
		return nil, fmt.Errorf("http transport not initialized")
	}

	attempts := t.retryCount
	if attempts < 1 {
		attempts = 1
	}

	// Send the request (with retries), moving to the next endpoint on failure
	var lastErr error
	for i := 0; i < attempts; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		resp, err := t.do(ctx, t.nextURL(), req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		Logger.Debugf("%s %s attempt %d/%d failed: %v", req.Method, req.Path, i+1, attempts, err)
	}
	return nil, lastErr
}

func (t *httpClientTransport) Close() error {
	// Close the client
	if t.client != nil {
		t.client.CloseIdleConnections()
	}

	// Reset the client and server URLs
	t.client = nil
	t.serverURLs = nil

	return nil
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// nextURL selects the next server via round-robin
func (t *httpClientTransport) nextURL() *url.URL {
	idx := (atomic.AddUint32(&t.counter, 1) - 1) % uint32(len(t.serverURLs))
	return t.serverURLs[idx]
}

// buildURL joins the endpoint with the request path and query
func (t *httpClientTransport) buildURL(base *url.URL, req transport.Request) string {
	u := *base
	if req.Path != "" {
		// req.Path is already escaped, keep escaped segments like %2F intact
		raw := strings.TrimRight(u.EscapedPath(), "/") + "/" + strings.TrimLeft(req.Path, "/")
		if p, err := url.PathUnescape(raw); err == nil {
			u.Path, u.RawPath = p, raw
		} else {
			u.Path, u.RawPath = strings.TrimRight(u.Path, "/")+"/"+strings.TrimLeft(req.Path, "/"), ""
		}
	}
	q := u.Query()
	for k, vs := range req.Query {
		for _, v := range vs {
			q.Add(k, v)
		}
	}
	if req.NoCache {
		q.Set("t", strconv.FormatInt(t.now().UnixMilli(), 10))
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// do performs a single attempt
func (t *httpClientTransport) do(ctx context.Context, base *url.URL, req transport.Request) (*transport.Response, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if req.Body != nil {
		body = bytes.NewReader(req.Body)
	}

	// Create the request
	httpRequest, err := http.NewRequestWithContext(ctx, method, t.buildURL(base, req), body)
	if err != nil {
		return nil, err
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpRequest.Header.Add(k, v)
		}
	}
	if req.NoCache {
		httpRequest.Header.Set("Cache-Control", "no-cache")
		httpRequest.Header.Set("Pragma", "no-cache")
	}
	if req.Body != nil && httpRequest.Header.Get("Content-Type") == "" {
		httpRequest.Header.Set("Content-Type", "application/json")
	}

	httpResponse, err := t.client.Do(httpRequest)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := httpResponse.Body.Close(); err != nil {
			Logger.Errorf("Failed to close response body: %v", err)
		}
	}()

	// Read the response body
	data, err := io.ReadAll(io.LimitReader(httpResponse.Body, maxBodyBytes))
	if err != nil {
		return nil, err
	}

	return &transport.Response{
		StatusCode: httpResponse.StatusCode,
		Status:     httpResponse.Status,
		Header:     httpResponse.Header,
		Body:       data,
	}, nil
}
