package daemon

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Pinger is the part of the store the health check needs.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthServer serves /healthz, /metrics and any added routes for the board daemon.
type HealthServer struct {
	store    Pinger
	backend  string
	gatherer prometheus.Gatherer
	addr     string
	routes   map[string]http.Handler
	server   *http.Server
}

// NewHealthServer creates a health server for the named backend ("redis" or
// "postgres"). A nil gatherer disables /metrics.
func NewHealthServer(store Pinger, backend, addr string, gatherer prometheus.Gatherer) *HealthServer {
	return &HealthServer{
		store:    store,
		backend:  backend,
		gatherer: gatherer,
		addr:     addr,
	}
}

// Handle adds a route served next to /healthz and /metrics. Call before Start.
func (h *HealthServer) Handle(pattern string, handler http.Handler) {
	if h.routes == nil {
		h.routes = make(map[string]http.Handler)
	}
	h.routes[pattern] = handler
}

// Handler returns the HTTP routes.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.healthCheckHandler)
	if h.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(h.gatherer, promhttp.HandlerOpts{}))
	}
	for pattern, handler := range h.routes {
		mux.Handle(pattern, handler)
	}
	return mux
}

// Start starts the HTTP server in the background.
func (h *HealthServer) Start() error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 30 * time.Second, // moves answer once their commit resolves
	}

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("[Daemon] Health server error: %v", err)
		}
	}()

	return nil
}

// Shutdown gracefully shuts down the server.
func (h *HealthServer) Shutdown(ctx context.Context) error {
	if h.server == nil {
		return nil
	}
	return h.server.Shutdown(ctx)
}

// healthCheckHandler handles GET /healthz.
// Returns 200 OK if the store answers a ping, 503 Service Unavailable otherwise.
func (h *HealthServer) healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:  "healthy",
		Backend: h.backend,
		Store:   "connected",
	}
	status := http.StatusOK

	if err := h.store.Ping(ctx); err != nil {
		response.Status = "unhealthy"
		response.Store = "disconnected"
		response.Error = err.Error()
		status = http.StatusServiceUnavailable
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(response)
}

// HealthResponse is the JSON response structure for health checks.
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend,omitempty"`
	Store   string `json:"store,omitempty"`
	Error   string `json:"error,omitempty"`
}
