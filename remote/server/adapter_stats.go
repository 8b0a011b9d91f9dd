package server

import (
	"github.com/VictoriaMetrics/metrics"
	"github.com/freerahn/stockblog/lib/stats"
	"net/http"
	"time"
)

// NewStatsAdapter serves the visitor statistics, the root endpoint (which counts a
// visitor) and the Prometheus metrics
func NewStatsAdapter(tracker *stats.Tracker) IServerAdapter {
	return &statsAdapterImpl{tracker: tracker, now: time.Now}
}

type statsAdapterImpl struct {
	tracker *stats.Tracker
	now     func() time.Time
}

// statsResponse is the body of GET /stats
type statsResponse struct {
	stats.Stats
	TotalVisitors int      `json:"totalVisitors"`
	TotalViews    int      `json:"totalViews"`
	TopPosts      []string `json:"topPosts"`
}

func (a *statsAdapterImpl) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", a.root)
	mux.HandleFunc("GET /stats", a.stats)
	mux.HandleFunc("GET /metrics", func(w http.ResponseWriter, r *http.Request) {
		metrics.WritePrometheus(w, true)
	})
}

func (a *statsAdapterImpl) root(w http.ResponseWriter, r *http.Request) {
	if err := a.tracker.RecordVisitor(a.now()); err != nil {
		Logger.Warningf("failed to count visitor: %v", err)
	}
	countRequest("root", http.StatusOK)
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (a *statsAdapterImpl) stats(w http.ResponseWriter, r *http.Request) {
	s := a.tracker.Get()
	countRequest("stats", http.StatusOK)
	writeJSON(w, http.StatusOK, statsResponse{
		Stats:         s,
		TotalVisitors: s.TotalVisitors(),
		TotalViews:    s.TotalViews(),
		TopPosts:      s.TopPosts(10),
	})
}
