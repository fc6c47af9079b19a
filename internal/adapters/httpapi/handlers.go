package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/yoke233/metting/internal/application"
	"github.com/yoke233/metting/internal/domain"
)

var errBadRequest = errors.New("bad request")

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": s.version})
}

func (s *Server) handleCreateMeeting(w http.ResponseWriter, r *http.Request) {
	var cfg domain.MeetingConfig
	if err := decodeBody(w, r, &cfg); err != nil {
		s.writeError(w, err)
		return
	}

	meeting, err := s.service.CreateMeeting(r.Context(), application.CreateMeetingCommand{Config: cfg})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, createMeetingResponse{MeetingID: meeting.ID, Title: meeting.Title, Config: meeting.Config})
}

func (s *Server) handleListMeetings(w http.ResponseWriter, r *http.Request) {
	limit, err := intQuery(r, "limit", defaultListLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	meetings, err := s.service.ListMeetings(r.Context(), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]meetingView, 0, len(meetings))
	for _, meeting := range meetings {
		views = append(views, newMeetingView(meeting))
	}
	writeJSON(w, http.StatusOK, map[string]any{"meetings": views})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	s.listRuns(w, r, "")
}

func (s *Server) handleListMeetingRuns(w http.ResponseWriter, r *http.Request) {
	s.listRuns(w, r, domain.MeetingID(r.PathValue("meeting_id")))
}

func (s *Server) listRuns(w http.ResponseWriter, r *http.Request, meetingID domain.MeetingID) {
	limit, err := intQuery(r, "limit", defaultListLimit)
	if err != nil {
		s.writeError(w, err)
		return
	}

	runs, err := s.service.ListRuns(r.Context(), domain.RunFilter{MeetingID: meetingID, Limit: limit})
	if err != nil {
		s.writeError(w, err)
		return
	}

	views := make([]runView, 0, len(runs))
	for _, run := range runs {
		views = append(views, newRunView(run))
	}
	body := map[string]any{"runs": views}
	if meetingID != "" {
		body["meeting_id"] = meetingID
	}
	writeJSON(w, http.StatusOK, body)
}

// handleStartRun executes the run inside the request. The run keeps going if
// the client disconnects.
func (s *Server) handleStartRun(w http.ResponseWriter, r *http.Request) {
	var req startRunRequest
	if err := decodeOptionalBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.service.StartRun(context.WithoutCancel(r.Context()), application.StartRunCommand{
		MeetingID: domain.MeetingID(r.PathValue("meeting_id")),
		Overrides: req.Overrides,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newRunResultView(result))
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	view, err := s.runInMeeting(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"run":       newRunView(view.Run),
		"artifacts": nonNil(view.Artifacts),
	})
}

func (s *Server) handleAddMessage(w http.ResponseWriter, r *http.Request) {
	view, err := s.runInMeeting(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req messageRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	event, err := s.service.AddUserMessage(r.Context(), application.AddMessageCommand{RunID: view.Run.ID, Content: req.Content})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "OK", "event_id": event.ID})
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	view, err := s.runInMeeting(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	var req resumeRequest
	if err := decodeBody(w, r, &req); err != nil {
		s.writeError(w, err)
		return
	}

	result, err := s.service.Resume(context.WithoutCancel(r.Context()), application.ResumeCommand{
		RunID:   view.Run.ID,
		Token:   req.ResumeToken,
		Answers: req.Answers,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, newRunResultView(result))
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	view, err := s.runInMeeting(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	includeTokens, err := boolQuery(r, "include_tokens", true)
	if err != nil {
		s.writeError(w, err)
		return
	}

	events, err := s.service.Events(r.Context(), application.EventQuery{RunID: view.Run.ID, IncludeTokens: includeTokens})
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"events": nonNil(events)})
}

func (s *Server) handleSummaries(w http.ResponseWriter, r *http.Request) {
	view, err := s.runInMeeting(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	summaries, err := s.service.Summaries(r.Context(), view.Run.ID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"summaries": nonNil(summaries)})
}

func (s *Server) handleMemories(w http.ResponseWriter, r *http.Request) {
	view, err := s.runInMeeting(r)
	if err != nil {
		s.writeError(w, err)
		return
	}

	role := r.URL.Query().Get("role")
	memories, err := s.service.Memories(r.Context(), view.Run.ID, role)
	if err != nil {
		s.writeError(w, err)
		return
	}

	if role != "" && len(memories) > 0 {
		writeJSON(w, http.StatusOK, map[string]any{"role": role, "memory": memories[0].Memory.Normalized()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"memories": nonNil(memories)})
}

// runInMeeting loads the run named in the path and checks it belongs to the
// meeting in the path.
func (s *Server) runInMeeting(r *http.Request) (application.RunView, error) {
	view, err := s.service.GetRun(r.Context(), domain.RunID(r.PathValue("run_id")))
	if err != nil {
		return application.RunView{}, err
	}
	if view.Run.MeetingID != domain.MeetingID(r.PathValue("meeting_id")) {
		return application.RunView{}, domain.ErrRunNotFound
	}

	return view, nil
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrRunNotFound), errors.Is(err, domain.ErrMeetingNotFound):
		return http.StatusNotFound
	case errors.Is(err, errBadRequest), errors.Is(err, domain.ErrInvalidResumeToken), domain.IsValidationError(err):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRunFinished), errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrRunBusy):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("http request failed", "error", err.Error())
	}

	writeJSON(w, status, errorBody{Detail: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func decodeBody(w http.ResponseWriter, r *http.Request, target any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	defer body.Close()

	if err := json.NewDecoder(body).Decode(target); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %w", errBadRequest, err)
	}

	return nil
}

// decodeOptionalBody accepts an empty body as the zero value.
func decodeOptionalBody(w http.ResponseWriter, r *http.Request, target any) error {
	err := decodeBody(w, r, target)
	if errors.Is(err, io.EOF) {
		return nil
	}

	return err
}

func intQuery(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", errBadRequest, key)
	}

	return value, nil
}

func boolQuery(r *http.Request, key string, fallback bool) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}

	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%w: %s must be a boolean", errBadRequest, key)
	}

	return value, nil
}
