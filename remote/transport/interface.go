package transport

import (
	"context"
	"github.com/freerahn/stockblog/remote/common"
	"net/http"
	"net/url"
)

// --------------------------------------------------------------------------
// Messages
// --------------------------------------------------------------------------

// Request is a single HTTP call relative to one of the configured endpoints
type Request struct {
	Method string
	Path   string // escaped path appended to the endpoint, may be empty
	Query  url.Values
	Header http.Header
	Body   []byte

	// NoCache asks intermediaries for a fresh copy and adds a t=<unix-ms> query parameter
	NoCache bool
}

// Response is a fully read HTTP response. Non-2xx responses are returned as well.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// OK reports whether the status code is 2xx
func (r *Response) OK() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// IServerTransport serves an http.Handler until the context is cancelled
type IServerTransport interface {
	// RegisterHandler registers the handler for all incoming requests
	RegisterHandler(handler http.Handler)
	// Listen starts the transport layer and blocks until ctx is done or the server fails
	Listen(ctx context.Context, config common.ServerConfig) error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IClientTransport is the interface for the HTTP client transport
type IClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends a request to the next endpoint and returns the response
	Send(ctx context.Context, req Request) (resp *Response, err error)
	// Close closes the transport connection
	Close() error
}
