// Package server exposes the demo pages as a JSON API.
package server

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	log "github.com/golang/glog"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/htried/taxi-diff-privacy/pages"
	"github.com/htried/taxi-diff-privacy/tdp"
)

// ReleaseLog records what a request released.
type ReleaseLog interface {
	LogReleases(ctx context.Context, requestID, page string, releases []tdp.Release) error
}

// dbLog appends releases to the MySQL releases table
type dbLog struct {
	db *sql.DB
}

// NewDBLog returns a ReleaseLog backed by db.
func NewDBLog(db *sql.DB) ReleaseLog {
	return &dbLog{db: db}
}

func (l *dbLog) LogReleases(ctx context.Context, requestID, page string, releases []tdp.Release) error {
	return tdp.InsertReleases(ctx, l.db, requestID, page, releases)
}

type Config struct {
	Pages  *pages.Pages
	Policy *tdp.PolicyStore
	// Gen must be safe for concurrent use; the secure source is.
	Gen *tdp.Generator
	// Releases is optional.
	Releases ReleaseLog
	// SimulateInterval is the default tick of the white-page simulation.
	SimulateInterval time.Duration
}

// Server answers the API.
type Server struct {
	pages    *pages.Pages
	policy   *tdp.PolicyStore
	gen      *tdp.Generator
	releases ReleaseLog
	interval time.Duration
	upgrader websocket.Upgrader
}

func New(cfg Config) *Server {
	s := &Server{
		pages:    cfg.Pages,
		policy:   cfg.Policy,
		gen:      cfg.Gen,
		releases: cfg.Releases,
		interval: cfg.SimulateInterval,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
	}
	if s.policy == nil {
		s.policy = tdp.NewPolicyStore(tdp.DefaultPolicy())
	}
	if s.gen == nil {
		s.gen = tdp.DefaultGenerator()
	}
	if s.interval <= 0 {
		s.interval = defaultInterval
	}
	return s
}

// Router binds every endpoint.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(logRequests)
	router.HandleFunc("/healthz", s.handleHealth).Methods("GET")

	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/budget", s.handleBudget).Methods("GET")
	api.HandleFunc("/pages", s.handlePageList).Methods("GET")
	api.HandleFunc("/pages/{page}", s.handlePage).Methods("GET")
	api.HandleFunc("/raw/{page}", s.handleRaw).Methods("GET")
	api.HandleFunc("/white/simulate", s.handleSimulate)
	return router
}

// statusRecorder keeps the status code a handler wrote
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack lets the websocket upgrade through the recorder.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer cannot be hijacked")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

// logRequests logs every request at verbosity 1, without its query string.
func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.V(1).Infof("%s %s %d %v", r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

func sendJSON(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Errorf("error encoding response: %v", err)
	}
}

type apiError struct {
	Error string `json:"error"`
}

func sendError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(apiError{Error: err.Error()})
}
