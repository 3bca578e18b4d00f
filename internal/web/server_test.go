package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/remindbot/internal/database"
	"github.com/edgard/remindbot/internal/logger"
	"github.com/edgard/remindbot/internal/reminder"
)

type testServer struct {
	URL    string
	client *http.Client
	store  database.Store
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestServer(t *testing.T, health Pinger) *testServer {
	t.Helper()

	store, err := database.OpenStore(database.BackendSQLite, filepath.Join(t.TempDir(), "tasks.db"), nil)
	require.NoError(t, err)

	clock := clockwork.NewFakeClockAt(time.Date(2025, time.July, 1, 8, 0, 0, 0, time.UTC))
	svc := reminder.NewService(store, reminder.ServiceOptions{Clock: clock}, logger.Discard())
	if health == nil {
		health = store
	}
	handler := New(Config{Service: svc, Health: health, Logger: logger.Discard()})

	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	require.NoError(t, err)
	srv := &http.Server{Handler: handler}
	go func() { _ = srv.Serve(ln) }()

	t.Cleanup(func() {
		_ = srv.Shutdown(context.Background())
		_ = store.Close()
	})
	return &testServer{URL: "http://" + ln.Addr().String(), client: &http.Client{Timeout: 5 * time.Second}, store: store}
}

func doJSON(t *testing.T, client *http.Client, method, url string, body any) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decodeError(t *testing.T, data []byte) apiErrorBody {
	t.Helper()
	var env struct {
		Error apiErrorBody `json:"error"`
	}
	require.NoError(t, json.Unmarshal(data, &env), string(data))
	return env.Error
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	resp, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/api/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, string(data))
	assert.NotEmpty(t, resp.Header.Get("Content-Type"))
}

func TestHealthReportsStoreFailure(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, pingFunc(func(context.Context) error { return errors.New("gone") }))

	resp, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/api/health", nil)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "store unreachable", decodeError(t, data).Message)
}

func TestTaskLifecycle(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)
	base := srv.URL + "/api/owners/42/tasks"

	resp, data := doJSON(t, srv.client, http.MethodPost, base, TaskRequest{Title: "Pay rent", DueDate: "2025-07-31", Count: 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(data))
	var created TaskDetailResponse
	require.NoError(t, json.Unmarshal(data, &created))
	assert.Equal(t, "42", created.OwnerID)
	assert.Equal(t, "2025-07-31", created.DueDate)
	assert.Equal(t, []string{"2025-07-09", "2025-07-16", "2025-07-23"}, created.Reminders)

	resp, data = doJSON(t, srv.client, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []TaskSummaryResponse
	require.NoError(t, json.Unmarshal(data, &list))
	require.Len(t, list, 1)
	assert.Equal(t, 3, list[0].ReminderCount)

	taskURL := base + "/" + itoa(created.ID)
	resp, data = doJSON(t, srv.client, http.MethodGet, taskURL, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var detail TaskDetailResponse
	require.NoError(t, json.Unmarshal(data, &detail))
	assert.Equal(t, created, detail)

	resp, data = doJSON(t, srv.client, http.MethodPut, taskURL, TaskRequest{Title: "Pay August rent", DueDate: "aug 1 2025", Count: 1})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var edited TaskDetailResponse
	require.NoError(t, json.Unmarshal(data, &edited))
	assert.Equal(t, "Pay August rent", edited.Title)
	assert.Equal(t, []string{"2025-07-17"}, edited.Reminders)

	resp, _ = doJSON(t, srv.client, http.MethodGet, srv.URL+"/api/owners/7/tasks/"+itoa(created.ID), nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, srv.client, http.MethodDelete, taskURL, nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, data = doJSON(t, srv.client, http.MethodDelete, taskURL, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, data).Code)
}

func TestCreateTaskRejectsInvalidInput(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	testCases := []struct {
		name string
		req  TaskRequest
		want string
	}{
		{name: "empty title", req: TaskRequest{Title: "  ", DueDate: "2025-07-31", Count: 2}, want: "task name must not be empty"},
		{name: "count out of range", req: TaskRequest{Title: "x", DueDate: "2025-07-31", Count: 11}, want: "between 1 and 10"},
		{name: "past due", req: TaskRequest{Title: "x", DueDate: "2025-06-30", Count: 1}, want: "past"},
		{name: "unparseable date", req: TaskRequest{Title: "x", DueDate: "someday", Count: 1}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			resp, data := doJSON(t, srv.client, http.MethodPost, srv.URL+"/api/owners/42/tasks", tc.req)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode, string(data))
			body := decodeError(t, data)
			assert.Equal(t, "INVALID_INPUT", body.Code)
			assert.Contains(t, body.Message, tc.want)
		})
	}

	tasks, err := srv.store.ListTasksForOwner(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestMalformedBodyUsesEnvelope(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/owners/42/tasks", bytes.NewBufferString("{not json"))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_INPUT", decodeError(t, data).Code)
}

func TestPreview(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	resp, data := doJSON(t, srv.client, http.MethodPost, srv.URL+"/api/schedule/preview", PreviewRequest{DueDate: "2025-07-31", Count: 3})
	require.Equal(t, http.StatusOK, resp.StatusCode, string(data))
	var preview PreviewResponse
	require.NoError(t, json.Unmarshal(data, &preview))
	assert.Equal(t, "2025-07-01", preview.Today)
	assert.Equal(t, []string{"2025-07-09", "2025-07-16", "2025-07-23"}, preview.Reminders)

	tasks, err := srv.store.ListTasksForOwner(context.Background(), "42")
	require.NoError(t, err)
	assert.Empty(t, tasks)
}

func TestOpenAPIDocument(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, nil)

	resp, data := doJSON(t, srv.client, http.MethodGet, srv.URL+"/openapi.json", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Contains(t, doc.Paths, "/api/owners/{owner_id}/tasks/{task_id}")
	assert.Contains(t, doc.Paths, "/api/schedule/preview")
}

func TestHandleErrorHidesInternalDetails(t *testing.T) {
	t.Parallel()

	err := handleError(errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, err.GetStatus())
	assert.Equal(t, "internal error", err.Error())
	assert.Nil(t, handleError(nil))
}

func itoa(n int64) string {
	b, _ := json.Marshal(n)
	return string(b)
}
