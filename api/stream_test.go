package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"board-api/bridge"
	"board-api/domain"
)

type flushRecorder struct{ *httptest.ResponseRecorder }

func (flushRecorder) Flush() {}

func mustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return data
}

func TestStreamEventsWritesFramedEvents(t *testing.T) {
	events := make(chan domain.Event, 2)
	events <- domain.Event{Type: domain.TaskCreated, Data: mustRaw(t, domain.Task{ID: "t1", Title: "milk", ColumnID: domain.ColumnTodo})}
	events <- domain.Event{Type: domain.TaskDeleted, Data: mustRaw(t, "t1")}
	close(events)
	streams := &mockStreamer{events: events}
	e := newTestServer(&mockStore{}, &mockBus{}, streams, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/stream", nil)
	rec := flushRecorder{httptest.NewRecorder()}
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}
	body := rec.Body.String()
	created := strings.Index(body, "event: task:created\ndata: ")
	deleted := strings.Index(body, "event: task:deleted\ndata: \"t1\"\n\n")
	if created < 0 || deleted < 0 {
		t.Fatalf("missing framed events in body: %q", body)
	}
	if created > deleted {
		t.Fatalf("events out of order: %q", body)
	}
	if streams.cancelled != 1 {
		t.Fatalf("expected subscription to be cancelled once, got %d", streams.cancelled)
	}
}

func TestStreamAdminRejectsMissingToken(t *testing.T) {
	e := newTestServer(&mockStore{}, &mockBus{}, &mockStreamer{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stream", nil)
	rec := flushRecorder{httptest.NewRecorder()}
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestStreamAdminReplaysPairingTokenThenLiveEvents(t *testing.T) {
	admin := make(chan domain.Event, 1)
	admin <- domain.Event{Type: domain.AdminReady, Data: mustRaw(t, true)}
	close(admin)
	streams := &mockStreamer{admin: admin}
	pairing := mockPairing{status: bridge.StatusUnpaired, token: "QR-abc123"}
	e := newTestServer(&mockStore{}, &mockBus{}, streams, pairing)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stream?token=admin-secret", nil)
	rec := flushRecorder{httptest.NewRecorder()}
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	qr := strings.Index(body, "event: admin:qr\ndata: \"QR-abc123\"\n\n")
	ready := strings.Index(body, "event: admin:ready\ndata: true\n\n")
	if qr < 0 || ready < 0 {
		t.Fatalf("missing replay or live event in body: %q", body)
	}
	if qr > ready {
		t.Fatalf("replay must precede live events: %q", body)
	}
}

func TestStreamAdminReplaysReadyState(t *testing.T) {
	admin := make(chan domain.Event)
	close(admin)
	streams := &mockStreamer{admin: admin}
	pairing := mockPairing{status: bridge.StatusReady}
	e := newTestServer(&mockStore{}, &mockBus{}, streams, pairing)

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stream", nil)
	req.Header.Set("Authorization", "Bearer admin-secret")
	rec := flushRecorder{httptest.NewRecorder()}
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "event: admin:ready\ndata: true\n\n") {
		t.Fatalf("expected ready replay, got %q", rec.Body.String())
	}
}

func TestStreamAdminNoReplayWhilePairing(t *testing.T) {
	admin := make(chan domain.Event)
	close(admin)
	streams := &mockStreamer{admin: admin}
	e := newTestServer(&mockStore{}, &mockBus{}, streams, mockPairing{status: bridge.StatusPairing})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stream?token=admin-secret", nil)
	rec := flushRecorder{httptest.NewRecorder()}
	e.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := rec.Body.String(); strings.Contains(body, "event:") {
		t.Fatalf("expected empty stream, got %q", body)
	}
}
