package metrics

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ErrEmptyAddress indicates a server without a listen address.
var ErrEmptyAddress = errors.New("metrics address cannot be empty")

const (
	readTimeout       = 10 * time.Second
	writeTimeout      = 10 * time.Second
	readHeaderTimeout = 5 * time.Second
)

// Server serves /metrics for a gatherer.
type Server struct {
	address  string
	gatherer prometheus.Gatherer

	mu         sync.Mutex
	httpServer *http.Server
	listener   net.Listener
	closed     bool
}

// NewServer validates the address and prepares a server.
func NewServer(address string, gatherer prometheus.Gatherer) (*Server, error) {
	if address == "" {
		return nil, ErrEmptyAddress
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return &Server{address: address, gatherer: gatherer}, nil
}

// Handler returns the router serving the metrics endpoint.
func (server *Server) Handler() http.Handler {
	router := httprouter.New()
	router.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(server.gatherer, promhttp.HandlerOpts{}))
	return router
}

// Run listens and serves until ctx is done or Close is called.
func (server *Server) Run(ctx context.Context) error {
	server.mu.Lock()
	if server.closed {
		server.mu.Unlock()
		return nil
	}
	listener, err := net.Listen("tcp", server.address)
	if err != nil {
		server.mu.Unlock()
		return err
	}
	httpServer := &http.Server{
		Handler:           server.Handler(),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}
	server.listener = listener
	server.httpServer = httpServer
	server.mu.Unlock()

	stop := context.AfterFunc(ctx, func() {
		_ = server.Close()
	})
	defer stop()

	if err := httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Close stops the server. Run returns nil afterwards; a Run that has not
// started yet returns immediately.
func (server *Server) Close() error {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.closed = true
	if server.httpServer == nil {
		return nil
	}
	return server.httpServer.Close()
}

// Addr returns the bound address once Run is listening.
func (server *Server) Addr() string {
	server.mu.Lock()
	defer server.mu.Unlock()
	if server.listener == nil {
		return ""
	}
	return server.listener.Addr().String()
}
