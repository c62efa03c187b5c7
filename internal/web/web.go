package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"evparse/internal/config"
	"evparse/internal/event"
	"evparse/internal/ics"
	appLog "evparse/internal/log"
	"evparse/internal/model"
)

const maxTextLen = 1024

// Server exposes the event parser over HTTP.
type Server struct {
	cfg      *config.Config
	loc      *time.Location
	composer event.Composer
	mux      *http.ServeMux

	// now is replaced in tests.
	now func() time.Time

	// In-memory cache for /api/agenda responses; cleared when an event
	// is appended.
	agendaMu    sync.RWMutex
	agendaCache *agendaCache
}

// NewServer constructs a new Server.
func NewServer(cfg *config.Config) *Server {
	s := &Server{
		cfg:      cfg,
		loc:      resolveLocationOrLocal(cfg.Timezone),
		composer: event.Composer{DefaultDuration: cfg.DefaultDuration()},
		mux:      http.NewServeMux(),
		now:      time.Now,
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled", "listen", "http://"+s.cfg.Listen)
		return s.basicAuthMiddleware(h)
	}
	return h
}

// basicAuthEnabled reports whether HTTP Basic Auth is configured.
func (s *Server) basicAuthEnabled() bool {
	if s.cfg == nil || s.cfg.BasicAuth == nil {
		return false
	}
	// An empty username or password leaves auth off.
	if s.cfg.BasicAuth.Username == "" || s.cfg.BasicAuth.Password == "" {
		return false
	}
	return true
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.cfg.BasicAuth.Username
	password := s.cfg.BasicAuth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="evparse", charset="UTF-8"`)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// secureCompare compares two strings in constant time.
func secureCompare(a, b string) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// StartServer serves the API on cfg.Listen until ctx is canceled, then
// shuts down gracefully.
func StartServer(ctx context.Context, cfg *config.Config) error {
	s := NewServer(cfg)
	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+cfg.Listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("/health", s.handleHealth)
	s.mux.HandleFunc("/api/parse", s.handleParse)
	s.mux.HandleFunc("/api/event.ics", s.handleEventICS)
	s.mux.HandleFunc("/api/events", s.handleAddEvent)
	s.mux.HandleFunc("/api/agenda", s.handleAgenda)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// spanResponse is the JSON response shape for /api/parse.
type spanResponse struct {
	Text     string     `json:"text"`
	Kind     event.Kind `json:"kind"`
	AllDay   bool       `json:"all_day"`
	Start    time.Time  `json:"start"`
	End      time.Time  `json:"end"`
	Summary  string     `json:"summary"`
	RRule    string     `json:"rrule,omitempty"`
	TimeZone string     `json:"timezone"`
}

// agendaResponse is the JSON response shape for /api/agenda.
type agendaResponse struct {
	Occurrences     []occurrenceDTO `json:"occurrences"`
	TruncatedUIDs   []string        `json:"truncated_uids,omitempty"`
	RangeStart      time.Time       `json:"range_start"`
	RangeEnd        time.Time       `json:"range_end"`
	DisplayTimeZone string          `json:"display_timezone"`
}

// agendaCache holds a cached /api/agenda response and its timestamp.
type agendaCache struct {
	days      int
	resp      agendaResponse
	updatedAt time.Time
}

// occurrenceDTO is a JSON-friendly view of occurrences.
type occurrenceDTO struct {
	UID         string    `json:"uid"`
	InstanceKey string    `json:"instance_key"`
	Summary     string    `json:"summary"`
	AllDay      bool      `json:"all_day"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

// handleParse returns the span of ?text= without storing anything.
//
// GET /api/parse?text=Lunch+at+1pm&now=2020-06-05T10:00:00Z
func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	text, ref, ok := s.spanInput(w, r)
	if !ok {
		return
	}

	span := s.composer.Build(text, ref)
	resp := spanResponse{
		Text:     text,
		Kind:     span.Kind,
		AllDay:   span.AllDay(),
		Start:    span.Start,
		End:      span.End,
		Summary:  span.Summary,
		TimeZone: s.loc.String(),
	}
	if span.Recurrence != nil {
		resp.RRule = span.Recurrence.String()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleEventICS returns the span of ?text= as a one-event VCALENDAR.
func (s *Server) handleEventICS(w http.ResponseWriter, r *http.Request) {
	text, ref, ok := s.spanInput(w, r)
	if !ok {
		return
	}

	ev := s.composer.Build(text, ref).Event(uuid.NewString(), s.cfg.DefaultSummary)
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="event.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(ics.Encode([]model.Event{ev}, s.now())))
}

// handleAddEvent appends the span of the text form value to the calendar
// file and returns the stored record.
//
// POST /api/events  text=Dinner+at+7
func (s *Server) handleAddEvent(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	text, ref, ok := s.spanInput(w, r)
	if !ok {
		return
	}

	ev := s.composer.Build(text, ref).Event(uuid.NewString(), s.cfg.DefaultSummary)
	if err := ics.AppendFile(s.cfg.Calendar, []model.Event{ev}, s.now()); err != nil {
		appLog.Error("api events: append failed", err, "path", s.cfg.Calendar)
		writeError(w, http.StatusInternalServerError, "failed to store event")
		return
	}

	s.agendaMu.Lock()
	s.agendaCache = nil
	s.agendaMu.Unlock()

	appLog.Info("event stored", "uid", ev.UID, "summary", ev.Summary)
	writeJSON(w, http.StatusCreated, ev)
}

// handleAgenda returns expanded occurrences from the calendar file.
//
// GET /api/agenda?days=7
func (s *Server) handleAgenda(w http.ResponseWriter, r *http.Request) {
	days := parseIntDefault(r.URL.Query().Get("days"), s.cfg.AgendaDays)
	if days <= 0 {
		days = s.cfg.AgendaDays
	}

	const agendaCacheTTL = 30 * time.Second
	cacheNow := s.now()

	s.agendaMu.RLock()
	ac := s.agendaCache
	s.agendaMu.RUnlock()
	if ac != nil && ac.days == days && cacheNow.Sub(ac.updatedAt) < agendaCacheTTL {
		writeJSON(w, http.StatusOK, ac.resp)
		return
	}

	events, err := ics.ReadFile(s.cfg.Calendar, s.loc)
	if err != nil {
		appLog.Error("api agenda: read failed", err, "path", s.cfg.Calendar)
		writeError(w, http.StatusInternalServerError, "failed to read calendar")
		return
	}

	now := cacheNow.In(s.loc)
	rangeStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc)
	rangeEnd := rangeStart.AddDate(0, 0, days)

	expandResult, err := ics.ExpandOccurrences(events, ics.ExpandConfig{
		DisplayLocation: s.loc,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
	})
	if err != nil {
		appLog.Error("api agenda: expand failed", err)
		writeError(w, http.StatusInternalServerError, "failed to expand events")
		return
	}

	dtos := make([]occurrenceDTO, 0, len(expandResult.Occurrences))
	for _, occ := range expandResult.Occurrences {
		dtos = append(dtos, occurrenceDTO{
			UID:         occ.UID,
			InstanceKey: occ.InstanceKey,
			Summary:     occ.Summary,
			AllDay:      occ.AllDay,
			Start:       occ.Start,
			End:         occ.End,
		})
	}

	resp := agendaResponse{
		Occurrences:     dtos,
		TruncatedUIDs:   expandResult.TruncatedEvents,
		RangeStart:      rangeStart,
		RangeEnd:        rangeEnd,
		DisplayTimeZone: s.loc.String(),
	}

	s.agendaMu.Lock()
	s.agendaCache = &agendaCache{days: days, resp: resp, updatedAt: cacheNow}
	s.agendaMu.Unlock()

	writeJSON(w, http.StatusOK, resp)
}

// spanInput reads text and the optional RFC 3339 reference time. On
// failure it has already written the error response.
func (s *Server) spanInput(w http.ResponseWriter, r *http.Request) (string, time.Time, bool) {
	text := strings.TrimSpace(r.FormValue("text"))
	if text == "" {
		writeError(w, http.StatusBadRequest, "text is required")
		return "", time.Time{}, false
	}
	if len(text) > maxTextLen {
		writeError(w, http.StatusBadRequest, "text is too long")
		return "", time.Time{}, false
	}

	ref := s.now().In(s.loc)
	if v := r.FormValue("now"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "now must be RFC 3339")
			return "", time.Time{}, false
		}
		ref = t.In(s.loc)
	}
	return text, ref, true
}

func parseIntDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		appLog.Error("failed to write JSON response", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	type errResp struct {
		Error string `json:"error"`
	}
	writeJSON(w, status, errResp{Error: msg})
}
