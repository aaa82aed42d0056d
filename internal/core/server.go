// Package core implements the QLX uplink server: it receives windowed
// telemetry summaries from monitor nodes and serves the fleet dashboard.
package core

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HW-25/Project-QLX/internal/api"
	"github.com/HW-25/Project-QLX/internal/config"
	"github.com/HW-25/Project-QLX/internal/store"
)

// onlineWindow is how recently a node must have uplinked to count as online.
const onlineWindow = 30 * time.Second

// Server provides the core HTTP API.
type Server struct {
	cfg     config.CoreConfig
	regPath string
	mu      sync.Mutex
	reg     *store.Registry
	// cache holds the latest uplink per node for fast reads; nil when
	// Redis is not configured or unreachable.
	cache *redis.Client
	// history records every uplink to Postgres; nil when no DSN is set.
	history *History
}

// NewServer constructs a core server. Redis and Postgres are both
// optional: failure to reach either logs a warning and the server runs
// with the YAML registry alone.
func NewServer(cfg config.CoreConfig) (*Server, error) {
	regPath := filepath.Join(cfg.DataDir, "registry.yaml")
	reg, err := store.LoadRegistry(regPath)
	if err != nil {
		return nil, err
	}

	s := &Server{
		cfg:     cfg,
		regPath: regPath,
		reg:     reg,
	}

	if cfg.RedisAddr != "" {
		s.cache = newCache(cfg.RedisAddr)
	}
	if cfg.HistoryDSN != "" {
		history, err := OpenHistory(cfg.HistoryDSN)
		if err != nil {
			log.Printf("core: history store unavailable: %v", err)
		} else {
			s.history = history
		}
	}

	return s, nil
}

// Router builds the HTTP routes.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(metricsMiddleware)
	r.HandleFunc("/", s.handleDashboard).Methods(http.MethodGet)
	r.HandleFunc("/api/uplink", s.handleUplink).Methods(http.MethodPost)
	r.HandleFunc("/api/nodes", s.handleNodes).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// ListenAndServe runs the HTTP server.
func (s *Server) ListenAndServe() error {
	server := &http.Server{
		Addr:              s.cfg.Listen,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	log.Printf("core listening on %s", s.cfg.Listen)
	return server.ListenAndServe()
}

func (s *Server) handleUplink(w http.ResponseWriter, r *http.Request) {
	var req api.UplinkRequest
	if err := decodeJSON(r, &req); err != nil {
		writeJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Auth.UUID == "" {
		writeJSONError(w, http.StatusBadRequest, "auth.uuid is required")
		return
	}

	seenAt := time.Now().UTC()
	if req.Timestamp > 0 {
		seenAt = time.UnixMilli(int64(req.Timestamp * 1000)).UTC()
	}

	node := store.NodeInfo{
		UUID:       req.Auth.UUID,
		Name:       req.Name,
		AvgPowerMW: req.Telemetry.AvgMW,
		Valor:      req.Telemetry.TotalValor,
		LastSeenAt: seenAt,
	}

	s.mu.Lock()
	s.reg.Upsert(node)
	fleetSize := len(s.reg.Nodes)
	err := store.SaveRegistry(s.regPath, s.reg)
	s.mu.Unlock()
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}

	uplinksTotal.Inc()
	fleetNodes.Set(float64(fleetSize))

	// Cache and history are best-effort; the registry write above is the
	// source of truth.
	s.cacheUplink(r.Context(), node)
	if s.history != nil {
		if err := s.history.Record([]HistoryRow{{
			UUID:       node.UUID,
			AvgMW:      node.AvgPowerMW,
			Valor:      node.Valor,
			ReceivedAt: seenAt,
		}}); err != nil {
			log.Printf("core: history record failed: %v", err)
		}
	}

	writeJSON(w, http.StatusOK, api.UplinkResponse{Status: "verified"})
}

func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()

	s.mu.Lock()
	nodes := make([]api.NodeSummary, 0, len(s.reg.Nodes))
	for _, n := range s.reg.Nodes {
		nodes = append(nodes, api.NodeSummary{
			UUID:       n.UUID,
			Name:       n.Name,
			AvgMW:      n.AvgPowerMW,
			TotalValor: n.Valor,
			LastSeen:   float64(n.LastSeenAt.UnixMilli()) / 1000,
			Status:     nodeStatus(n, now),
		})
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, api.NodesResponse{Nodes: nodes})
}

func nodeStatus(n store.NodeInfo, now time.Time) string {
	if now.Sub(n.LastSeenAt) < onlineWindow {
		return "online"
	}
	return "timed_out"
}

func newCache(addr string) *redis.Client {
	client := redis.NewClient(&redis.Options{Addr: addr})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("core: redis not available at %s: %v", addr, err)
		return nil
	}
	return client
}

func (s *Server) cacheUplink(ctx context.Context, node store.NodeInfo) {
	if s.cache == nil {
		return
	}
	payload, err := json.Marshal(node)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, "qlx:node:"+node.UUID+":last", payload, 2*onlineWindow).Err(); err != nil {
		log.Printf("core: cache set failed: %v", err)
	}
}

func decodeJSON(r *http.Request, v any) error {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	return decoder.Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
