package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/access-system/face-recognition-enrollment/internal/api"
	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/history"
	"github.com/access-system/face-recognition-enrollment/internal/imaging"
	"github.com/access-system/face-recognition-enrollment/internal/logging"
	"github.com/access-system/face-recognition-enrollment/internal/services"
)

const frameJPEGQuality = 80

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}
	srv := &apiServer{bind: bind, logger: logger, daemon: d}
	srv.server = &http.Server{
		Handler:           srv.routes(cfg.Paths.APIToken),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv, nil
}

// Handler returns the control API routes without starting a listener.
func (d *Daemon) Handler() http.Handler {
	srv := &apiServer{logger: d.logger, daemon: d}
	return srv.routes(d.cfg.Paths.APIToken)
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, h http.HandlerFunc) {
		mux.HandleFunc(pattern, authMiddleware(token, h))
	}
	handle("GET /api/status", s.handleStatus)
	handle("GET /api/frame", s.handleFrame)
	handle("GET /api/history", s.handleHistory)
	handle("GET /api/logs", s.handleLogs)
	handle("POST /api/enrollment/start", s.handleEnrollmentStart)
	handle("POST /api/enrollment/stop", s.handleEnrollmentStop)
	handle("POST /api/enrollment/toggle", s.handleEnrollmentToggle)
	handle("POST /api/preview/start", s.handlePreviewStart)
	handle("POST /api/preview/stop", s.handlePreviewStop)
	handle("POST /api/notifications/test", s.handleTestNotification)
	return requestIDMiddleware(mux)
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	d := s.daemon
	status := d.Status(r.Context())
	payload := api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		Preview:      status.Preview,
		PreviewSince: api.FormatTime(status.PreviewSince),
		Enrollment:   api.FromGate(d.gate),
		LastInfo:     status.LastInfo,
		LastError:    status.LastError,
		Pipeline:     api.FromStatusSummary(status.Pipeline),
		Board:        api.FromBoardSnapshot(status.Board),
		HistoryPath:  status.HistoryPath,
		LockFilePath: status.LockFilePath,
		CameraSource: d.cfg.Camera.Source,
		RegistryURL:  d.cfg.Registry.BaseURL,
	}
	if len(status.Counts) > 0 {
		payload.OutcomeCounts = make(map[string]int, len(status.Counts))
		for outcome, n := range status.Counts {
			payload.OutcomeCounts[string(outcome)] = n
		}
	}
	s.writeJSON(w, r, http.StatusOK, payload)
}

func (s *apiServer) handleFrame(w http.ResponseWriter, r *http.Request) {
	mirror := r.URL.Query().Get("mirror")
	img, ok := s.daemon.Frame(mirror == "1" || strings.EqualFold(mirror, "true"))
	if !ok {
		s.writeError(w, r, http.StatusNotFound, "no frame available")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	if err := imaging.EncodeJPEG(w, img, frameJPEGQuality); err != nil {
		s.log().Warn("frame encode failed", logging.Error(err))
	}
}

func (s *apiServer) handleHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	q := history.Query{Limit: 50}
	if raw := strings.TrimSpace(query.Get("limit")); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			s.writeError(w, r, http.StatusBadRequest, "invalid limit")
			return
		}
		q.Limit = limit
	}
	if raw := strings.TrimSpace(query.Get("outcome")); raw != "" {
		outcome := history.Outcome(strings.ToLower(raw))
		if !outcome.Valid() {
			s.writeError(w, r, http.StatusBadRequest, "unknown outcome "+strconv.Quote(raw))
			return
		}
		q.Outcome = outcome
	}
	entries, err := s.daemon.History(r.Context(), q)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, r, http.StatusOK, api.HistoryResponse{Entries: api.FromHistoryEntries(entries)})
}

func (s *apiServer) handleLogs(w http.ResponseWriter, r *http.Request) {
	buffer := s.daemon.Events()
	if buffer == nil {
		s.writeJSON(w, r, http.StatusOK, api.LogStreamResponse{})
		return
	}
	query := r.URL.Query()
	since, _ := strconv.ParseUint(query.Get("since"), 10, 64)
	limit, _ := strconv.Atoi(query.Get("limit"))
	if limit <= 0 {
		limit = 200
	}
	tail := query.Get("tail") == "1" || strings.EqualFold(query.Get("tail"), "true")
	component := strings.TrimSpace(query.Get("component"))

	var events []logging.Event
	if tail && since == 0 {
		events = buffer.Tail(limit)
	} else {
		events = buffer.Since(since, limit)
	}
	next := since
	filtered := make([]api.LogEvent, 0, len(events))
	for _, evt := range api.FromLogEvents(events) {
		if evt.Sequence > next {
			next = evt.Sequence
		}
		if component != "" && !strings.EqualFold(component, evt.Component) {
			continue
		}
		filtered = append(filtered, evt)
	}
	s.writeJSON(w, r, http.StatusOK, api.LogStreamResponse{Events: filtered, Next: next})
}

func (s *apiServer) handleEnrollmentStart(w http.ResponseWriter, r *http.Request) {
	_, changed, err := s.daemon.StartEnrollment(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	msg := "enrollment already active"
	if changed {
		msg = "enrollment started"
	}
	s.writeAction(w, r, changed, msg)
}

func (s *apiServer) handleEnrollmentStop(w http.ResponseWriter, r *http.Request) {
	_, changed := s.daemon.StopEnrollment(r.Context())
	msg := "enrollment not active"
	if changed {
		msg = "enrollment stopped"
	}
	s.writeAction(w, r, changed, msg)
}

func (s *apiServer) handleEnrollmentToggle(w http.ResponseWriter, r *http.Request) {
	active, _, err := s.daemon.ToggleEnrollment(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	msg := "enrollment stopped"
	if active {
		msg = "enrollment started"
	}
	s.writeAction(w, r, true, msg)
}

func (s *apiServer) handlePreviewStart(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.StartPreview(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeAction(w, r, true, "preview started")
}

func (s *apiServer) handlePreviewStop(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.StopPreview(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeAction(w, r, true, "preview stopped")
}

func (s *apiServer) handleTestNotification(w http.ResponseWriter, r *http.Request) {
	if err := s.daemon.TestNotification(r.Context()); err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeAction(w, r, true, "test notification sent")
}

func (s *apiServer) writeAction(w http.ResponseWriter, r *http.Request, changed bool, message string) {
	s.writeJSON(w, r, http.StatusOK, api.ActionResponse{
		Changed:    changed,
		Message:    message,
		Enrollment: api.FromGate(s.daemon.gate),
		Preview:    s.daemon.PreviewRunning(),
	})
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrPreviewRunning), errors.Is(err, ErrPreviewNotRunning), errors.Is(err, ErrNotRunning):
		status = http.StatusConflict
	case errors.Is(err, ErrHistoryUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, services.ErrConfiguration), errors.Is(err, ErrNotificationsOff):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	if status >= http.StatusInternalServerError {
		logging.WithContext(r.Context(), s.log()).Error("api request failed",
			logging.Error(err),
			logging.EventType("api_request_failed"),
			logging.String("path", r.URL.Path),
		)
	}
	s.writeError(w, r, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, r *http.Request, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.WithContext(r.Context(), s.log()).Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, r *http.Request, status int, message string) {
	rid, _ := services.RequestIDFromContext(r.Context())
	s.writeJSON(w, r, status, api.ErrorResponse{Error: message, RequestID: rid})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}

// requestIDMiddleware stamps every request with a correlation id, reusing a
// caller-supplied X-Request-ID when present.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rid := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if rid == "" {
			rid = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", rid)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), rid)))
	})
}
