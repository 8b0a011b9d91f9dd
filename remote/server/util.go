package server

import (
	"encoding/json"
	"fmt"
	"github.com/VictoriaMetrics/metrics"
	"net/http"
)

// maxRequestBody bounds the size of a posted post
const maxRequestBody = 8 << 20

// errorResponse is the body of every failed request
type errorResponse struct {
	Error string `json:"error"`
}

// successResponse is the body of a successful write
type successResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		Logger.Errorf("failed to encode response: %v", err)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		Logger.Debugf("failed to write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

// countRequest counts a handled request per route
func countRequest(route string, status int) {
	metrics.GetOrCreateCounter(fmt.Sprintf(`blog_http_requests_total{route=%q,code="%d"}`, route, status)).Inc()
}

// corsMiddleware allows the blog frontend on any origin and answers preflight requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
