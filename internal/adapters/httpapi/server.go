// Package httpapi exposes meetings and runs over HTTP, with live event
// streaming over SSE and websocket.
package httpapi

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yoke233/metting/internal/adapters/stream"
	"github.com/yoke233/metting/internal/application"
	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/logging"
	"github.com/yoke233/metting/internal/ports"
)

const (
	defaultListLimit = 100
	shutdownTimeout  = 5 * time.Second
	maxBodyBytes     = 1 << 20
)

// MeetingService is the application surface the API serves.
type MeetingService interface {
	CreateMeeting(ctx context.Context, cmd application.CreateMeetingCommand) (domain.Meeting, error)
	GetMeeting(ctx context.Context, id domain.MeetingID) (domain.Meeting, error)
	ListMeetings(ctx context.Context, limit int) ([]domain.Meeting, error)
	ListRuns(ctx context.Context, filter domain.RunFilter) ([]domain.Run, error)
	StartRun(ctx context.Context, cmd application.StartRunCommand) (application.RunResult, error)
	Resume(ctx context.Context, cmd application.ResumeCommand) (application.RunResult, error)
	AddUserMessage(ctx context.Context, cmd application.AddMessageCommand) (domain.Event, error)
	GetRun(ctx context.Context, id domain.RunID) (application.RunView, error)
	Events(ctx context.Context, query application.EventQuery) ([]domain.Event, error)
	Summaries(ctx context.Context, runID domain.RunID) ([]domain.Artifact, error)
	Memories(ctx context.Context, runID domain.RunID, role string) ([]domain.RoleMemory, error)
}

var _ MeetingService = (*application.MeetingService)(nil)

type Server struct {
	service  MeetingService
	poller   *stream.Poller
	logger   *logging.Logger
	version  string
	upgrader websocket.Upgrader
	handler  http.Handler
}

func NewServer(service MeetingService, events ports.EventLog, logger *logging.Logger, version string) *Server {
	if logger == nil {
		logger = logging.NopLogger()
	}

	s := &Server{
		service: service,
		poller:  stream.NewPoller(events, logger),
		logger:  logger,
		version: version,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	s.handler = s.logRequests(s.routes())

	return s
}

func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /meetings", s.handleCreateMeeting)
	mux.HandleFunc("GET /meetings", s.handleListMeetings)
	mux.HandleFunc("GET /runs", s.handleListRuns)
	mux.HandleFunc("GET /meetings/{meeting_id}/runs", s.handleListMeetingRuns)
	mux.HandleFunc("POST /meetings/{meeting_id}/runs", s.handleStartRun)

	mux.HandleFunc("GET /meetings/{meeting_id}/runs/{run_id}", s.handleGetRun)
	mux.HandleFunc("POST /meetings/{meeting_id}/runs/{run_id}/messages", s.handleAddMessage)
	mux.HandleFunc("POST /meetings/{meeting_id}/runs/{run_id}/resume", s.handleResume)
	mux.HandleFunc("GET /meetings/{meeting_id}/runs/{run_id}/events", s.handleEvents)
	mux.HandleFunc("GET /meetings/{meeting_id}/runs/{run_id}/events/stream", s.handleEventStream)
	mux.HandleFunc("GET /meetings/{meeting_id}/runs/{run_id}/events/ws", s.handleEventSocket)
	mux.HandleFunc("GET /meetings/{meeting_id}/runs/{run_id}/summaries", s.handleSummaries)
	mux.HandleFunc("GET /meetings/{meeting_id}/runs/{run_id}/memories", s.handleMemories)

	return mux
}

// ListenAndServe serves on addr until ctx is canceled, then drains in-flight
// requests.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	return s.Serve(ctx, listener)
}

func (s *Server) Serve(ctx context.Context, listener net.Listener) error {
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.Serve(listener)
	}()
	s.logger.Info("http server listening", "addr", listener.Addr().String())

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}
	s.logger.Info("http server stopped")

	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func (r *statusRecorder) Flush() {
	_ = http.NewResponseController(r.ResponseWriter).Flush()
}

func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	return http.NewResponseController(r.ResponseWriter).Hijack()
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", recorder.status,
			"duration_ms", time.Since(started).Milliseconds(),
		)
	})
}
