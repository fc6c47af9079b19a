package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"

	"github.com/yoke233/metting/internal/adapters/stream"
	"github.com/yoke233/metting/internal/domain"
)

const wsWriteTimeout = 10 * time.Second

func (s *Server) handleEventStream(w http.ResponseWriter, r *http.Request) {
	view, err := s.runInMeeting(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cursor, err := streamCursor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	controller := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := controller.Flush(); err != nil {
		s.logger.Error("sse flush unsupported", "error", err.Error())
		return
	}

	sink := &sseSink{w: w, flush: controller.Flush}
	if err := s.poller.Follow(r.Context(), view.Run.ID, cursor, sink); err != nil {
		s.logger.Debug("sse stream ended", "run_id", string(view.Run.ID), "error", err.Error())
	}
}

func (s *Server) handleEventSocket(w http.ResponseWriter, r *http.Request) {
	view, err := s.runInMeeting(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	cursor, err := streamCursor(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("websocket upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	if err := s.poller.Follow(ctx, view.Run.ID, cursor, &wsSink{conn: conn}); err != nil {
		s.logger.Debug("websocket stream ended", "run_id", string(view.Run.ID), "error", err.Error())
	}

	closing := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = conn.WriteControl(websocket.CloseMessage, closing, time.Now().Add(time.Second))
}

// streamCursor reads after_id, tail and poll_ms. Out-of-range values are
// clamped by the poller.
func streamCursor(r *http.Request) (stream.Cursor, error) {
	cursor := stream.Cursor{Tail: stream.DefaultTail, Interval: stream.DefaultInterval}
	query := r.URL.Query()

	if raw := query.Get("after_id"); raw != "" {
		after, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return stream.Cursor{}, fmt.Errorf("%w: after_id must be an integer", errBadRequest)
		}
		cursor.AfterID = &after
	}

	tail, err := intQuery(r, "tail", stream.DefaultTail)
	if err != nil {
		return stream.Cursor{}, err
	}
	cursor.Tail = tail

	pollMs, err := intQuery(r, "poll_ms", int(stream.DefaultInterval/time.Millisecond))
	if err != nil {
		return stream.Cursor{}, err
	}
	if pollMs > 0 {
		cursor.Interval = time.Duration(pollMs) * time.Millisecond
	}

	return cursor, nil
}

type sseSink struct {
	w     http.ResponseWriter
	flush func() error
}

func (s *sseSink) Event(event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if _, err := fmt.Fprintf(s.w, "id: %d\ndata: %s\n\n", event.ID, data); err != nil {
		return err
	}

	return s.flush()
}

func (s *sseSink) KeepAlive() error {
	if _, err := fmt.Fprint(s.w, ": keep-alive\n\n"); err != nil {
		return err
	}

	return s.flush()
}

type wsSink struct {
	conn *websocket.Conn
}

func (s *wsSink) Event(event domain.Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}

	return s.conn.WriteMessage(websocket.TextMessage, data)
}

func (s *wsSink) KeepAlive() error {
	return s.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(wsWriteTimeout))
}
