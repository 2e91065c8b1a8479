// Package web exposes the calendar feeds and the admin surface over HTTP.
// The read path (feeds, JSON) is public but rate limited; the admin path is
// guarded by HTTP Basic Auth.
package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"orgcal/internal/config"
	"orgcal/internal/feed"
	appLog "orgcal/internal/log"
	"orgcal/internal/refresh"
	"orgcal/internal/store"
	"orgcal/internal/view"
)

var logger = appLog.Named("web")

// Server provides the HTTP API over the current view table and record
// store.
type Server struct {
	cfg       *config.Config
	store     *store.SQLiteStore
	views     *view.Holder
	refresher *refresh.Refresher
	mux       *http.ServeMux

	feedLimit  *ipLimiter
	adminLimit *ipLimiter
}

// NewServer constructs a Server and registers its routes.
func NewServer(cfg *config.Config, st *store.SQLiteStore, views *view.Holder, r *refresh.Refresher) *Server {
	s := &Server{
		cfg:        cfg,
		store:      st,
		views:      views,
		refresher:  r,
		mux:        http.NewServeMux(),
		feedLimit:  newIPLimiter(cfg.RateLimit.Feed),
		adminLimit: newIPLimiter(cfg.RateLimit.Admin),
	}
	s.registerRoutes()
	return s
}

// Handler returns the server's handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// Run serves HTTP until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.cfg.Listen,
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	logger.Info("http server listening", "listen", "http://"+s.cfg.Listen)

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/calendar/", s.rateLimited(s.feedLimit, s.handleCalendar))
	s.mux.HandleFunc("/view/", s.rateLimited(s.feedLimit, s.handleViewInfo))
	s.mux.HandleFunc("/admin/views", s.requireAdmin(s.handleAdminViews))
	s.mux.HandleFunc("/admin/calendar.ics", s.requireAdmin(s.rateLimited(s.feedLimit, s.handleAdminCalendar)))
	s.mux.HandleFunc("/admin/sync", s.requireAdmin(s.rateLimited(s.adminLimit, s.handleAdminSync)))
	s.mux.HandleFunc("/admin/import", s.requireAdmin(s.rateLimited(s.adminLimit, s.handleAdminImport)))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleCalendar serves the per-view feeds:
//
//	GET /calendar/{token}.ics         iCalendar feed
//	GET /calendar/{token}/tasks.json  flat task objects
//	GET /calendar/{token}/events.json flat event objects
//
// An unknown token resolves to an empty feed, not an error: the token is an
// opaque capability and its absence is indistinguishable from an empty view.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/calendar/")

	switch {
	case strings.HasSuffix(rest, ".ics"):
		token := strings.TrimSuffix(rest, ".ics")
		entries, ok := s.resolve(w, r, token)
		if !ok {
			return
		}
		w.Header().Set("Content-Type", feed.MediaType)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(feed.RenderFeed(entries, s.cfg.Timezone))

	case strings.HasSuffix(rest, "/tasks.json"):
		token := strings.TrimSuffix(rest, "/tasks.json")
		entries, ok := s.resolve(w, r, token)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, feed.Tasks(entries))

	case strings.HasSuffix(rest, "/events.json"):
		token := strings.TrimSuffix(rest, "/events.json")
		entries, ok := s.resolve(w, r, token)
		if !ok {
			return
		}
		writeJSON(w, http.StatusOK, feed.Events(entries))

	default:
		http.NotFound(w, r)
	}
}

// resolve loads the current table and a record snapshot and resolves the
// view. It reports false after writing an error response.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request, token string) ([]view.Entry, bool) {
	table := s.views.Load()
	if table == nil {
		writeError(w, http.StatusServiceUnavailable, "views not loaded yet")
		return nil, false
	}
	records, err := s.store.FetchAll(r.Context())
	if err != nil {
		logger.Error("record snapshot failed", err)
		writeError(w, http.StatusInternalServerError, "record store unavailable")
		return nil, false
	}
	return view.Resolve(table, token, records), true
}

// handleViewInfo describes a single view: GET /view/{token}.
func (s *Server) handleViewInfo(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimPrefix(r.URL.Path, "/view/")
	table := s.views.Load()
	if table == nil {
		writeError(w, http.StatusServiceUnavailable, "views not loaded yet")
		return
	}
	v := table.Lookup(token)
	if v == nil {
		writeError(w, http.StatusNotFound, "unknown view token")
		return
	}
	writeJSON(w, http.StatusOK, viewDTOFrom(v))
}

func (s *Server) handleAdminViews(w http.ResponseWriter, _ *http.Request) {
	table := s.views.Load()
	resp := adminViewsResponse{
		Views:           []viewDTO{},
		RebuildFailures: s.refresher.Failures(),
	}
	if table != nil {
		for _, v := range table.Views {
			resp.Views = append(resp.Views, viewDTOFrom(v))
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAdminCalendar serves every stored record as one full-detail feed,
// bypassing views entirely. GET /admin/calendar.ics, admin auth required.
func (s *Server) handleAdminCalendar(w http.ResponseWriter, r *http.Request) {
	records, err := s.store.FetchAll(r.Context())
	if err != nil {
		logger.Error("record snapshot failed", err)
		writeError(w, http.StatusInternalServerError, "record store unavailable")
		return
	}
	entries := make([]view.Entry, 0, len(records))
	for _, rec := range records {
		entries = append(entries, view.Entry{Task: rec, Detail: view.DetailFull})
	}
	w.Header().Set("Content-Type", feed.MediaType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(feed.RenderFeed(entries, s.cfg.Timezone))
}

// handleAdminSync triggers a full sync/import/rebuild cycle.
func (s *Server) handleAdminSync(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	err := s.refresher.RunCycle(r.Context())
	resp := map[string]string{"status": "ok"}
	if err != nil {
		resp["status"] = "completed_with_errors"
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleAdminImport re-runs the org extraction. ?refresh=false appends
// instead of replacing.
func (s *Server) handleAdminImport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}
	replace := r.URL.Query().Get("refresh") != "false"
	if err := s.refresher.Import(r.Context(), replace); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	count, err := s.store.CountTasks(r.Context())
	if err != nil {
		logger.Error("task count failed", err)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "imported",
		"refresh":  replace,
		"recorded": count,
	})
}

// requireAdmin wraps admin handlers with HTTP Basic Auth using a
// constant-time comparison. With no credentials configured the admin
// surface stays open; that is logged loudly at startup instead of being
// silently allowed.
func (s *Server) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	ba := s.cfg.BasicAuth
	if ba == nil || ba.Username == "" || ba.Password == "" {
		logger.Warn("admin endpoints have no basic auth configured")
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, ba.Username) || !secureCompare(p, ba.Password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="orgcal", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func (s *Server) rateLimited(l *ipLimiter, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !l.allow(clientIP(r)) {
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next(w, r)
	}
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Info("request", "remote", clientIP(r), "method", r.Method, "path", r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

// Idle buckets are swept so the per-IP map stays bounded under address
// churn. The idle TTL is far longer than the one-minute refill window, so
// an evicted-and-recreated bucket never grants extra budget in practice.
const (
	limiterIdleTTL    = 10 * time.Minute
	limiterSweepEvery = time.Minute
)

// ipLimiter keeps one token bucket per client IP, refilled at a
// per-minute budget.
type ipLimiter struct {
	mu        sync.Mutex
	perMinute int
	buckets   map[string]*ipBucket
	lastSweep time.Time
}

type ipBucket struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

func newIPLimiter(perMinute int) *ipLimiter {
	return &ipLimiter{
		perMinute: perMinute,
		buckets:   make(map[string]*ipBucket),
		lastSweep: time.Now(),
	}
}

func (l *ipLimiter) allow(ip string) bool {
	now := time.Now()
	l.mu.Lock()
	if now.Sub(l.lastSweep) >= limiterSweepEvery {
		for addr, b := range l.buckets {
			if now.Sub(b.lastSeen) >= limiterIdleTTL {
				delete(l.buckets, addr)
			}
		}
		l.lastSweep = now
	}
	b, ok := l.buckets[ip]
	if !ok {
		b = &ipBucket{
			lim: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMinute)), l.perMinute),
		}
		l.buckets[ip] = b
	}
	b.lastSeen = now
	l.mu.Unlock()
	return b.lim.Allow()
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// viewDTO is the JSON description of a view for /view/{token} and
// /admin/views. Filters are rendered as written, not as compiled values.
type viewDTO struct {
	Name      string        `json:"name"`
	Token     string        `json:"token"`
	Detail    string        `json:"detail"`
	Calendars []calendarDTO `json:"calendars"`
}

type calendarDTO struct {
	Name    string   `json:"name"`
	Color   string   `json:"color,omitempty"`
	Detail  string   `json:"detail"`
	Queries []string `json:"queries"`
}

type adminViewsResponse struct {
	Views           []viewDTO `json:"views"`
	RebuildFailures int64     `json:"rebuild_failures"`
}

func viewDTOFrom(v *view.View) viewDTO {
	dto := viewDTO{
		Name:      v.Name,
		Token:     v.Token,
		Detail:    string(v.Detail),
		Calendars: []calendarDTO{},
	}
	for _, c := range v.Calendars {
		cd := calendarDTO{
			Name:    c.Name,
			Color:   c.Color,
			Detail:  string(c.Detail),
			Queries: []string{},
		}
		for _, q := range c.Queries {
			cd.Queries = append(cd.Queries, q.Source)
		}
		dto.Calendars = append(dto.Calendars, cd)
	}
	return dto
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
