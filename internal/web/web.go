package web

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"multical/internal/calendar"
	"multical/internal/config"
	appLog "multical/internal/log"
	"multical/internal/metrics"
	"multical/internal/model"
	"multical/internal/registry"
)

// maxImportBytes bounds ICS bodies posted to the import route.
const maxImportBytes = 10 << 20

// Server exposes the calendar registry over HTTP.
type Server struct {
	reg  *registry.Registry
	auth *config.BasicAuthConfig
	mux  *http.ServeMux
}

// NewServer constructs a new Server. auth may be nil.
func NewServer(reg *registry.Registry, auth *config.BasicAuthConfig) *Server {
	s := &Server{
		reg:  reg,
		auth: auth,
		mux:  http.NewServeMux(),
	}
	s.registerRoutes()
	return s
}

// Handler returns the underlying http.Handler for this server.
func (s *Server) Handler() http.Handler {
	h := http.Handler(s.mux)
	if s.basicAuthEnabled() {
		appLog.Info("HTTP basic auth enabled")
		return s.basicAuthMiddleware(h)
	}
	return h
}

func (s *Server) basicAuthEnabled() bool {
	return s.auth != nil && s.auth.Username != "" && s.auth.Password != ""
}

// basicAuthMiddleware wraps all handlers except /health with HTTP Basic Auth.
func (s *Server) basicAuthMiddleware(next http.Handler) http.Handler {
	username := s.auth.Username
	password := s.auth.Password

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		u, p, ok := r.BasicAuth()
		if !ok || !secureCompare(u, username) || !secureCompare(p, password) {
			w.Header().Set("WWW-Authenticate", `Basic realm="multical", charset="UTF-8"`)
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

// StartServer serves s on listen until ctx is canceled, then shuts down
// gracefully.
func StartServer(ctx context.Context, listen string, s *Server) error {
	srv := &http.Server{
		Addr:              listen,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("starting HTTP server", "listen", "http://"+listen)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /health", s.handleHealth)
	s.mux.Handle("GET /metrics", promhttp.Handler())

	s.mux.HandleFunc("GET /api/calendars", s.api("list_calendars", s.handleListCalendars))
	s.mux.HandleFunc("POST /api/calendars", s.api("create_calendar", s.handleCreateCalendar))
	s.mux.HandleFunc("GET /api/calendars/{file}", s.api("get_calendar", s.handleCalendar))
	s.mux.HandleFunc("PATCH /api/calendars/{name}", s.api("edit_calendar", s.handleEditCalendar))
	s.mux.HandleFunc("POST /api/calendars/{name}/use", s.api("use_calendar", s.handleUseCalendar))
	s.mux.HandleFunc("POST /api/calendars/{name}/import", s.api("import_ics", s.handleImport))

	s.mux.HandleFunc("GET /api/events", s.api("events_on", s.handleEvents))
	s.mux.HandleFunc("GET /api/upcoming", s.api("upcoming", s.handleUpcoming))
	s.mux.HandleFunc("GET /api/status", s.api("status_at", s.handleStatus))
}

// apiFunc is a handler whose error is mapped to a status code and counted.
type apiFunc func(w http.ResponseWriter, r *http.Request) error

func (s *Server) api(op string, fn apiFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := fn(w, r)
		metrics.Observe(op, err)
		if err == nil {
			return
		}
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			appLog.Error("api request failed", err, "op", op, "path", r.URL.Path)
		} else {
			appLog.Debug("api request rejected", "op", op, "path", r.URL.Path, "error", err)
		}
		writeError(w, status, err.Error())
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// calendarDTO is the JSON view of one calendar.
type calendarDTO struct {
	Name     string `json:"name"`
	Timezone string `json:"timezone"`
	Events   int    `json:"events"`
	Current  bool   `json:"current"`
}

// eventDTO is the JSON view of one event. Times are wall clocks in the
// event's timezone.
type eventDTO struct {
	Subject     string `json:"subject"`
	Start       string `json:"start"`
	End         string `json:"end"`
	Timezone    string `json:"timezone"`
	Location    string `json:"location,omitempty"`
	Status      string `json:"status,omitempty"`
	Description string `json:"description,omitempty"`
	SeriesID    int64  `json:"series_id,omitempty"`
}

type statusResponse struct {
	Calendar string `json:"calendar"`
	At       string `json:"at"`
	Status   string `json:"status"`
}

func toEventDTOs(events []model.Event) []eventDTO {
	out := make([]eventDTO, 0, len(events))
	for _, ev := range events {
		out = append(out, eventDTO{
			Subject:     ev.Subject,
			Start:       ev.Start.Format(model.DateTimeLayout),
			End:         ev.End.Format(model.DateTimeLayout),
			Timezone:    ev.Zone,
			Location:    string(ev.Location),
			Status:      string(ev.Status),
			Description: ev.Description,
			SeriesID:    ev.SeriesID,
		})
	}
	return out
}

func (s *Server) describe(cal calendar.Querier) calendarDTO {
	name := cal.Name()
	return calendarDTO{
		Name:     name,
		Timezone: cal.Timezone(),
		Events:   cal.Len(),
		Current:  name == s.reg.CurrentName(),
	}
}

func (s *Server) handleListCalendars(w http.ResponseWriter, _ *http.Request) error {
	names := s.reg.ListCalendarNames()
	out := make([]calendarDTO, 0, len(names))
	for _, name := range names {
		cal, err := s.reg.Calendar(name)
		if err != nil {
			// renamed since the listing
			continue
		}
		out = append(out, s.describe(cal))
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) handleCreateCalendar(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Name     string `json:"name"`
		Timezone string `json:"timezone"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return model.Validationf("invalid request body: %v", err)
	}
	if err := s.reg.CreateCalendar(req.Name, req.Timezone); err != nil {
		return err
	}
	cal, err := s.reg.Calendar(req.Name)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, s.describe(cal))
	return nil
}

// handleCalendar serves /api/calendars/{name} as JSON and
// /api/calendars/{name}.ics as an ICS export.
func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) error {
	file := r.PathValue("file")
	if name, ok := strings.CutSuffix(file, ".ics"); ok {
		if _, err := s.reg.Calendar(name); err != nil {
			return err
		}
		w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
		w.Header().Set("Content-Disposition", `attachment; filename="`+file+`"`)
		if err := s.reg.ExportICS(name, w); err != nil {
			appLog.Error("ics export failed mid-stream", err, "calendar", name)
		}
		return nil
	}

	cal, err := s.reg.Calendar(file)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, s.describe(cal))
	return nil
}

// handleEditCalendar changes TIMEZONE or CALENDARNAME.
//
// PATCH /api/calendars/work {"property":"TIMEZONE","value":"Europe/Paris"}
func (s *Server) handleEditCalendar(w http.ResponseWriter, r *http.Request) error {
	var req struct {
		Property string `json:"property"`
		Value    string `json:"value"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return model.Validationf("invalid request body: %v", err)
	}
	prop, err := model.ParseProperty(req.Property)
	if err != nil {
		return err
	}

	name := r.PathValue("name")
	if err := s.reg.EditCalendar(name, prop, req.Value); err != nil {
		return err
	}
	if prop == model.PropCalendarName && req.Value != name {
		metrics.ForgetCalendar(name)
		name = req.Value
	}

	cal, err := s.reg.Calendar(name)
	if err != nil {
		return err
	}
	metrics.SetStoredEvents(name, cal.Len())
	writeJSON(w, http.StatusOK, s.describe(cal))
	return nil
}

func (s *Server) handleUseCalendar(w http.ResponseWriter, r *http.Request) error {
	cal, err := s.reg.UseCalendar(r.PathValue("name"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, s.describe(cal))
	return nil
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) error {
	name := r.PathValue("name")
	n, err := s.reg.ImportICS(name, http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		return err
	}
	metrics.AddImported(name, n)
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
	return nil
}

// handleEvents lists the events covering one date.
//
// GET /api/events?calendar=work&date=2025-06-02
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) error {
	cal, err := s.calendarFor(r)
	if err != nil {
		return err
	}
	date, err := parseDate(r.URL.Query().Get("date"))
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, toEventDTOs(cal.OnDate(date)))
	return nil
}

// handleUpcoming lists events from a date onward.
//
// GET /api/upcoming?calendar=work&date=2025-06-02&limit=10
func (s *Server) handleUpcoming(w http.ResponseWriter, r *http.Request) error {
	cal, err := s.calendarFor(r)
	if err != nil {
		return err
	}
	q := r.URL.Query()
	date, err := parseDate(q.Get("date"))
	if err != nil {
		return err
	}
	limit := parseIntDefault(q.Get("limit"), 10)
	writeJSON(w, http.StatusOK, toEventDTOs(cal.Upcoming(date, limit)))
	return nil
}

// handleStatus answers Busy or Available. Without at, the present wall
// clock of the calendar's zone is used.
//
// GET /api/status?calendar=work&at=2025-06-02T10:30
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) error {
	cal, err := s.calendarFor(r)
	if err != nil {
		return err
	}

	var at time.Time
	if raw := r.URL.Query().Get("at"); raw != "" {
		if at, err = model.ParseDateTime(raw); err != nil {
			return err
		}
	} else {
		loc, err := model.LoadZone(cal.Timezone())
		if err != nil {
			return err
		}
		at = model.Wall(time.Now().In(loc))
	}

	writeJSON(w, http.StatusOK, statusResponse{
		Calendar: cal.Name(),
		At:       at.Format(model.DateTimeLayout),
		Status:   cal.StatusAt(at),
	})
	return nil
}

// calendarFor resolves the calendar query parameter, falling back to the
// current calendar.
func (s *Server) calendarFor(r *http.Request) (calendar.Querier, error) {
	name := r.URL.Query().Get("calendar")
	var (
		cal *calendar.Calendar
		err error
	)
	if name != "" {
		cal, err = s.reg.Calendar(name)
	} else {
		cal, err = s.reg.Current()
	}
	if err != nil {
		return nil, err
	}
	return cal, nil
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, model.Validationf("date is required")
	}
	d, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return time.Time{}, model.Validationf("incorrect date %q: use yyyy-MM-dd", s)
	}
	return d, nil
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
