package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus/hooks/test"

	"board-api/board"
	"board-api/bridge"
	"board-api/domain"
)

type mockStore struct {
	tasks    []domain.Task
	messages []domain.Message
	err      error
}

func (m *mockStore) ListTasks(ctx context.Context) ([]domain.Task, error) {
	return m.tasks, m.err
}

func (m *mockStore) ListMessages(ctx context.Context) ([]domain.Message, error) {
	return m.messages, m.err
}

type mockBus struct {
	mu        sync.Mutex
	mutations []board.Mutation
	result    board.Result
	err       error
}

func (m *mockBus) Submit(ctx context.Context, mut board.Mutation) (board.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mutations = append(m.mutations, mut)
	return m.result, m.err
}

func (m *mockBus) last(t *testing.T) board.Mutation {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.mutations) == 0 {
		t.Fatal("no mutation submitted")
	}
	return m.mutations[len(m.mutations)-1]
}

type mockStreamer struct {
	events    chan domain.Event
	admin     chan domain.Event
	cancelled int
}

func (m *mockStreamer) Subscribe(ctx context.Context) (<-chan domain.Event, func(), error) {
	return m.events, func() { m.cancelled++ }, nil
}

func (m *mockStreamer) SubscribeAdmin(ctx context.Context) (<-chan domain.Event, func(), error) {
	return m.admin, func() { m.cancelled++ }, nil
}

type mockPairing struct {
	status bridge.PairingStatus
	token  string
}

func (m mockPairing) State() (bridge.PairingStatus, string) {
	return m.status, m.token
}

func newTestServer(store Storage, bus Bus, streams Streamer, pairing PairingSource) *echo.Echo {
	if streams == nil {
		streams = &mockStreamer{}
	}
	if pairing == nil {
		pairing = mockPairing{status: bridge.StatusPairing}
	}
	logger, _ := test.NewNullLogger()
	e := echo.New()
	Register(e, store, bus, streams, pairing, NewStaticTokenAuth("admin-secret"), logger)
	return e
}

func TestGetTasksReturnsTasksSortedByOrder(t *testing.T) {
	store := &mockStore{tasks: []domain.Task{
		{ID: "b", Title: "second", ColumnID: domain.ColumnTodo, Order: 2},
		{ID: "a", Title: "first", ColumnID: domain.ColumnDone, Order: 0},
		{ID: "c", Title: "middle", ColumnID: domain.ColumnInProgress, Order: 1},
	}}
	e := newTestServer(store, &mockBus{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp tasksResponse
	if err := sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Tasks) != 3 {
		t.Fatalf("expected 3 tasks, got %d", len(resp.Tasks))
	}
	for i, want := range []string{"a", "c", "b"} {
		if resp.Tasks[i].ID != want {
			t.Fatalf("position %d: expected task %q, got %q", i, want, resp.Tasks[i].ID)
		}
	}
}

func TestGetTasksStorageFailure(t *testing.T) {
	store := &mockStore{err: errors.New("connection refused")}
	e := newTestServer(store, &mockBus{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
}

func TestGetMessagesPreservesStorageOrder(t *testing.T) {
	store := &mockStore{messages: []domain.Message{
		{ID: "m1", Text: "hello", Sender: "Ann", Timestamp: 100},
		{ID: "m2", Text: "hi", Sender: "Bert", Timestamp: 200},
	}}
	e := newTestServer(store, &mockBus{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp messagesResponse
	if err := sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Messages) != 2 || resp.Messages[0].ID != "m1" || resp.Messages[1].ID != "m2" {
		t.Fatalf("unexpected messages: %#v", resp.Messages)
	}
}

func TestPostTaskSubmitsCreateMutation(t *testing.T) {
	created := domain.Task{ID: "t1", Title: "Buy milk", ColumnID: domain.ColumnTodo, Order: 0, Color: "bg-blue-500"}
	bus := &mockBus{result: board.Result{Task: &created}}
	e := newTestServer(&mockStore{}, bus, nil, nil)

	body := `{"title":"Buy milk","columnId":"todo","order":0,"color":"bg-blue-500"}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	mut := bus.last(t)
	if mut.Kind != board.MutationCreate {
		t.Fatalf("expected create mutation, got %v", mut.Kind)
	}
	if mut.Title != "Buy milk" || mut.ColumnID != domain.ColumnTodo || mut.Color != "bg-blue-500" {
		t.Fatalf("unexpected mutation: %#v", mut)
	}
	var got domain.Task
	if err := sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != created.ID {
		t.Fatalf("expected created task echoed back, got %#v", got)
	}
}

func TestPostTaskRejectsUnknownFields(t *testing.T) {
	bus := &mockBus{}
	e := newTestServer(&mockStore{}, bus, nil, nil)

	body := `{"title":"Buy milk","columnId":"todo","surprise":true}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if len(bus.mutations) != 0 {
		t.Fatalf("expected no mutation for rejected body, got %d", len(bus.mutations))
	}
}

func TestPostTaskValidationFailure(t *testing.T) {
	bus := &mockBus{err: board.ValidationError{Reason: "task title is required"}}
	e := newTestServer(&mockStore{}, bus, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks", strings.NewReader(`{"title":"  "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestPostMoveSubmitsMoveMutation(t *testing.T) {
	bus := &mockBus{}
	e := newTestServer(&mockStore{}, bus, nil, nil)

	body := `{"columnId":"done","order":3}`
	req := httptest.NewRequest(http.MethodPost, "/api/tasks/t42/move", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d: %s", rec.Code, rec.Body.String())
	}
	mut := bus.last(t)
	if mut.Kind != board.MutationMove || mut.ID != "t42" || mut.ColumnID != domain.ColumnDone || mut.Order != 3 {
		t.Fatalf("unexpected mutation: %#v", mut)
	}
}

func TestPostMoveUnknownTask(t *testing.T) {
	bus := &mockBus{err: board.NotFoundError{Key: "t42"}}
	e := newTestServer(&mockStore{}, bus, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/tasks/t42/move", strings.NewReader(`{"columnId":"done","order":0}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestDeleteTaskSubmitsDeleteMutation(t *testing.T) {
	bus := &mockBus{}
	e := newTestServer(&mockStore{}, bus, nil, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/tasks/t9", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", rec.Code)
	}
	mut := bus.last(t)
	if mut.Kind != board.MutationDelete || mut.ID != "t9" {
		t.Fatalf("unexpected mutation: %#v", mut)
	}
}

func TestPostMessageSubmitsMessageMutation(t *testing.T) {
	posted := domain.Message{ID: "m1", Text: "hello", Sender: "Ann", Timestamp: 42}
	bus := &mockBus{result: board.Result{Message: &posted}}
	e := newTestServer(&mockStore{}, bus, nil, nil)

	body := `{"text":"hello","sender":"Ann","senderId":"u1","senderPhoto":"https://example.com/a.png"}`
	req := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	mut := bus.last(t)
	if mut.Kind != board.MutationPostMessage || mut.Text != "hello" || mut.SenderID != "u1" {
		t.Fatalf("unexpected mutation: %#v", mut)
	}
	var got domain.Message
	if err := sonic.ConfigStd.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != posted.ID {
		t.Fatalf("expected posted message echoed back, got %#v", got)
	}
}

func TestHealthz(t *testing.T) {
	e := newTestServer(&mockStore{}, &mockBus{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
