package server

import (
	"context"
	"github.com/freerahn/stockblog/lib/stats"
	"github.com/freerahn/stockblog/lib/table"
	"github.com/freerahn/stockblog/remote/common"
	"github.com/freerahn/stockblog/remote/serializer"
	"github.com/freerahn/stockblog/remote/transport"
	"github.com/lni/dragonboat/v4/logger"
	"net/http"
)

var Logger = logger.GetLogger("server")

// NewServer creates the posts REST service
//
// Usage:
//
//	s := server.NewServer(
//		*config,
//		http.NewHttpServerTransport(),
//		tbl,
//		stats.NewTracker(db),
//	)
//
//	if err := s.Serve(ctx); err != nil {
//		panic(err)
//	}
func NewServer(
	config common.ServerConfig,
	transport transport.IServerTransport,
	tbl table.ITable,
	tracker *stats.Tracker,
) *Server {
	Logger.Infof("Created posts server")
	Logger.Infof(config.String())

	return &Server{
		config:    config,
		transport: transport,
		adapters: []IServerAdapter{
			NewPostsAdapter(tbl, tracker, serializer.NewJSONSerializer()),
			NewStatsAdapter(tracker),
		},
	}
}

// Server routes the posts and stats resources over a server transport
type Server struct {
	config    common.ServerConfig
	transport transport.IServerTransport
	adapters  []IServerAdapter
}

// Handler returns the routes of all adapters behind the CORS middleware
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	for _, adapter := range s.adapters {
		adapter.Register(mux)
	}
	return corsMiddleware(mux)
}

// Serve registers the handler with the transport and blocks until ctx is done
func (s *Server) Serve(ctx context.Context) error {
	s.transport.RegisterHandler(s.Handler())
	return s.transport.Listen(ctx, s.config)
}
