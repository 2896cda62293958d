package httpsrv

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

type Server struct {
	srv    *http.Server
	router *http.ServeMux
}

type ServerOptions struct {
	MetricsHandler http.Handler
	MetricsPath    string
	Health         HealthFunc
}

func NewServer(addr string, opts ServerOptions) *Server {
	router := http.NewServeMux()

	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}

	router.Handle("GET /health", healthHandler(opts.Health))

	if opts.MetricsHandler != nil {
		router.Handle("GET "+opts.MetricsPath, opts.MetricsHandler)
	}

	return &Server{
		srv:    srv,
		router: router,
	}
}

func (s *Server) ListenAddr() string {
	return s.srv.Addr
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.srv.Addr)
	if err != nil {
		return err
	}

	return s.Serve(ln)
}

// Serve accepts connections on ln until Shutdown is called.
func (s *Server) Serve(ln net.Listener) error {
	err := s.srv.Serve(ln)

	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
