package client

import (
	"fmt"
	"github.com/freerahn/stockblog/lib/store"
	"github.com/freerahn/stockblog/remote/transport"
	"github.com/lni/dragonboat/v4/logger"
	"strings"
)

var (
	Logger = logger.GetLogger("remote")
)

// maxErrorBody bounds how much of a failed response ends up in an error message
const maxErrorBody = 200

// statusError turns a non-2xx response into a store error with the given code
func statusError(code store.RetCode, what string, resp *transport.Response) *store.Error {
	body := strings.TrimSpace(string(resp.Body))
	if len(body) > maxErrorBody {
		body = body[:maxErrorBody] + "..."
	}
	if body == "" {
		return store.NewError(code, fmt.Sprintf("%s: http %s", what, resp.Status))
	}
	return store.NewError(code, fmt.Sprintf("%s: http %s: %s", what, resp.Status, body))
}

// splitEndpoints splits a comma separated endpoint list
func splitEndpoints(s string) []string {
	var endpoints []string
	for _, e := range strings.Split(s, ",") {
		if e = strings.TrimSpace(e); e != "" {
			endpoints = append(endpoints, strings.TrimRight(e, "/"))
		}
	}
	return endpoints
}
