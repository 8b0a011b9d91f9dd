package server

import (
	"net/http"
)

// IServerAdapter exposes one resource of the server.
// Register adds the adapter's routes to mux (Go 1.22 method and wildcard patterns).
type IServerAdapter interface {
	Register(mux *http.ServeMux)
}
