package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yoke233/metting/internal/adapters/repo/sqlite"
	tomlrepo "github.com/yoke233/metting/internal/adapters/repo/toml"
	"github.com/yoke233/metting/internal/adapters/runner/stub"
	"github.com/yoke233/metting/internal/application"
	"github.com/yoke233/metting/internal/domain"
	"github.com/yoke233/metting/internal/logging"
	"github.com/yoke233/metting/internal/ports"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := viper.New()
	cfg.Set("storage.meetings_path", filepath.Join(t.TempDir(), "meetings.toml"))
	meetings, err := tomlrepo.NewRepository(cfg)
	require.NoError(t, err)

	store, err := sqlite.NewStore(context.Background(), filepath.Join(t.TempDir(), "meeting.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	service := application.NewMeetingService(meetings, store, stub.NewRunner(nil), nil, ports.SystemClock{}, logging.NopLogger())
	server := httptest.NewServer(NewServer(service, store, logging.NopLogger(), "test").Handler())
	t.Cleanup(server.Close)

	return server
}

func doJSON(t *testing.T, method, url string, body any, target any) int {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if target != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(target))
	}

	return resp.StatusCode
}

type createdMeeting struct {
	MeetingID string `json:"meeting_id"`
}

type runResult struct {
	RunID     string `json:"run_id"`
	Status    string `json:"status"`
	Rounds    int    `json:"rounds"`
	Pause     *struct {
		ResumeToken string `json:"resume_token"`
	} `json:"pause"`
	Artifacts []struct {
		Type    string `json:"type"`
		Version string `json:"version"`
	} `json:"artifacts"`
}

func createMeeting(t *testing.T, base string, cfg map[string]any) string {
	t.Helper()

	var created createdMeeting
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, base+"/meetings", cfg, &created))
	require.NotEmpty(t, created.MeetingID)

	return created.MeetingID
}

func startRun(t *testing.T, base, meetingID string, overrides map[string]any) runResult {
	t.Helper()

	var result runResult
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, base+"/meetings/"+meetingID+"/runs", map[string]any{"overrides": overrides}, &result))

	return result
}

var reviewConfig = map[string]any{
	"topic":      "选择缓存方案",
	"roles":      []string{"Chief Architect", "Skeptic", "Recorder"},
	"max_rounds": 2,
}

func TestHealth(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)

	var body map[string]string
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, server.URL+"/health", nil, &body))
	assert.Equal(t, map[string]string{"status": "ok", "version": "test"}, body)
}

func TestMeetingAndRunLifecycle(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	meetingID := createMeeting(t, server.URL, reviewConfig)

	result := startRun(t, server.URL, meetingID, nil)
	assert.Equal(t, "DONE", result.Status)
	assert.Positive(t, result.Rounds)
	types := []string{}
	for _, artifact := range result.Artifacts {
		types = append(types, artifact.Type)
	}
	assert.Subset(t, types, []string{"ADR", "TASKS", "RISKS", "FLOWCHART", "SUMMARY"})

	runURL := server.URL + "/meetings/" + meetingID + "/runs/" + result.RunID

	var run struct {
		Run struct {
			RunID   string  `json:"run_id"`
			Status  string  `json:"status"`
			EndedAt *string `json:"ended_at"`
		} `json:"run"`
		Artifacts []json.RawMessage `json:"artifacts"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, runURL, nil, &run))
	assert.Equal(t, result.RunID, run.Run.RunID)
	assert.Equal(t, "DONE", run.Run.Status)
	assert.NotNil(t, run.Run.EndedAt)
	assert.Len(t, run.Artifacts, len(result.Artifacts))

	var all struct {
		Events []domain.Envelope `json:"events"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, runURL+"/events", nil, &all))
	var withoutTokens struct {
		Events []domain.Envelope `json:"events"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, runURL+"/events?include_tokens=false", nil, &withoutTokens))
	assert.Greater(t, len(all.Events), len(withoutTokens.Events))
	for _, event := range withoutTokens.Events {
		assert.NotEqual(t, domain.EventToken, event.Type)
	}

	var runs struct {
		MeetingID string `json:"meeting_id"`
		Runs      []struct {
			RunID string `json:"run_id"`
		} `json:"runs"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, server.URL+"/meetings/"+meetingID+"/runs", nil, &runs))
	assert.Equal(t, meetingID, runs.MeetingID)
	require.Len(t, runs.Runs, 1)
	assert.Equal(t, result.RunID, runs.Runs[0].RunID)

	var meetings struct {
		Meetings []struct {
			MeetingID string `json:"meeting_id"`
			Title     string `json:"title"`
		} `json:"meetings"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, server.URL+"/meetings?limit=5", nil, &meetings))
	require.Len(t, meetings.Meetings, 1)
	assert.Equal(t, "选择缓存方案", meetings.Meetings[0].Title)

	var summaries struct {
		Summaries []json.RawMessage `json:"summaries"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, runURL+"/summaries", nil, &summaries))
	assert.NotNil(t, summaries.Summaries)

	var memory struct {
		Role   string        `json:"role"`
		Memory domain.Memory `json:"memory"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodGet, runURL+"/memories?role=Skeptic", nil, &memory))
	assert.Equal(t, "Skeptic", memory.Role)
	assert.Equal(t, []string{}, memory.Memory.Notes)
}

func TestPauseMessageAndResume(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	meetingID := createMeeting(t, server.URL, reviewConfig)

	paused := startRun(t, server.URL, meetingID, map[string]any{"pause_on_round": 1})
	require.Equal(t, "PAUSED", paused.Status)
	require.NotNil(t, paused.Pause)
	runURL := server.URL + "/meetings/" + meetingID + "/runs/" + paused.RunID

	var added struct {
		Status  string `json:"status"`
		EventID int64  `json:"event_id"`
	}
	require.Equal(t, http.StatusOK, doJSON(t, http.MethodPost, runURL+"/messages", map[string]string{"content": "预算有限"}, &added))
	assert.Equal(t, "OK", added.Status)
	assert.Positive(t, added.EventID)

	var failure errorBody
	status := doJSON(t, http.MethodPost, runURL+"/resume", map[string]any{"resume_token": "resume-wrong"}, &failure)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, failure.Detail, "invalid resume token")

	var resumed runResult
	status = doJSON(t, http.MethodPost, runURL+"/resume", map[string]any{
		"resume_token": paused.Pause.ResumeToken,
		"answers":      map[string]any{"qps": 300},
	}, &resumed)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "DONE", resumed.Status)

	status = doJSON(t, http.MethodPost, runURL+"/resume", map[string]any{"resume_token": paused.Pause.ResumeToken}, &failure)
	assert.Equal(t, http.StatusConflict, status)
}

func TestErrorMapping(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	meetingID := createMeeting(t, server.URL, reviewConfig)
	result := startRun(t, server.URL, meetingID, map[string]any{"max_rounds": 1})

	otherMeeting := createMeeting(t, server.URL, reviewConfig)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
		want   int
	}{
		{name: "unknown meeting runs", method: http.MethodGet, path: "/meetings/m-missing/runs", want: http.StatusNotFound},
		{name: "start unknown meeting", method: http.MethodPost, path: "/meetings/m-missing/runs", want: http.StatusNotFound},
		{name: "unknown run", method: http.MethodGet, path: "/meetings/" + meetingID + "/runs/r-missing", want: http.StatusNotFound},
		{name: "run of other meeting", method: http.MethodGet, path: "/meetings/" + otherMeeting + "/runs/" + result.RunID, want: http.StatusNotFound},
		{name: "missing topic", method: http.MethodPost, path: "/meetings", body: map[string]any{"roles": []string{"Skeptic"}}, want: http.StatusBadRequest},
		{name: "empty message", method: http.MethodPost, path: "/meetings/" + meetingID + "/runs/" + result.RunID + "/messages", body: map[string]string{"content": ""}, want: http.StatusBadRequest},
		{name: "bad limit", method: http.MethodGet, path: "/meetings?limit=many", want: http.StatusBadRequest},
		{name: "bad include_tokens", method: http.MethodGet, path: "/meetings/" + meetingID + "/runs/" + result.RunID + "/events?include_tokens=maybe", want: http.StatusBadRequest},
		{name: "resume finished run", method: http.MethodPost, path: "/meetings/" + meetingID + "/runs/" + result.RunID + "/resume", body: map[string]string{"resume_token": "x"}, want: http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var body errorBody
			status := doJSON(t, tt.method, server.URL+tt.path, tt.body, &body)
			assert.Equal(t, tt.want, status)
			assert.NotEmpty(t, body.Detail)
		})
	}
}

func TestBadJSONBody(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)

	resp, err := http.Post(server.URL+"/meetings", "application/json", strings.NewReader("{not json"))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestEventStreamSendsTailFrames(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	meetingID := createMeeting(t, server.URL, reviewConfig)
	result := startRun(t, server.URL, meetingID, map[string]any{"max_rounds": 1})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	url := server.URL + "/meetings/" + meetingID + "/runs/" + result.RunID + "/events/stream?tail=3&poll_ms=200"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(resp.Body)
	var ids []string
	var frames []domain.Envelope
	for len(frames) < 3 {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		line = strings.TrimRight(line, "\n")
		switch {
		case strings.HasPrefix(line, "id: "):
			ids = append(ids, strings.TrimPrefix(line, "id: "))
		case strings.HasPrefix(line, "data: "):
			var event domain.Envelope
			require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event))
			frames = append(frames, event)
		}
	}

	assert.Len(t, ids, 3)
	assert.Equal(t, domain.EventFinished, frames[2].Type)
	for i, event := range frames {
		assert.Equal(t, ids[i], strconv.FormatInt(event.ID, 10))
	}
}

func TestEventSocketStreamsFromCursor(t *testing.T) {
	t.Parallel()

	server := newTestServer(t)
	meetingID := createMeeting(t, server.URL, reviewConfig)
	result := startRun(t, server.URL, meetingID, map[string]any{"max_rounds": 1})

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") +
		"/meetings/" + meetingID + "/runs/" + result.RunID + "/events/ws?after_id=2"
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	for expected := int64(3); expected <= 5; expected++ {
		messageType, data, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Equal(t, websocket.TextMessage, messageType)

		var event domain.Envelope
		require.NoError(t, json.Unmarshal(data, &event))
		assert.Equal(t, expected, event.ID)
		assert.Equal(t, domain.RunID(result.RunID), event.RunID)
	}
}
