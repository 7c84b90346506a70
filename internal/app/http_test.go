package app

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/harshk49/nexell-backend/internal/board"
	"github.com/harshk49/nexell-backend/internal/store"
)

func newTestServer(fs *fakeStore, fb *fakeBoard, fh *fakeHistory) (*HTTPServer, *Service) {
	svc := newTestService(fs, fb, fh)
	return NewHTTPServer(svc, "*"), svc
}

func authedRequest(t *testing.T, svc *Service, method, path string, body string) *http.Request {
	t.Helper()
	session, err := svc.CreateSession(context.Background(), "usr-1")
	if err != nil {
		t.Fatalf("CreateSession() error = %v", err)
	}
	var reader *bytes.Buffer
	if body == "" {
		reader = bytes.NewBuffer(nil)
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+session.Token)
	return req
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse response: %v body=%s", err, rr.Body.String())
	}
	return payload
}

func TestHealthEndpoint(t *testing.T) {
	server, _ := newTestServer(&fakeStore{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Fatal("expected a request ID header")
	}
}

func TestProtectedRoutesRequireBearerToken(t *testing.T) {
	server, _ := newTestServer(&fakeStore{}, &fakeBoard{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/board", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeResponse(t, rr)
	if payload["code"] != "UNAUTHORIZED" {
		t.Fatalf("expected UNAUTHORIZED code, got %v", payload["code"])
	}
}

func TestSessionProbeDoesNotFailWithoutToken(t *testing.T) {
	server, _ := newTestServer(&fakeStore{}, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/session", nil)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	payload := decodeResponse(t, rr)
	if payload["authenticated"] != false {
		t.Fatalf("expected authenticated false, got %v", payload["authenticated"])
	}
}

func TestSessionRefreshRejectsUnknownToken(t *testing.T) {
	server, _ := newTestServer(&fakeStore{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/session/refresh", bytes.NewBufferString(`{"refreshToken":"bogus"}`))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestAuthSignUpUnavailableWithoutService(t *testing.T) {
	server, _ := newTestServer(&fakeStore{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", bytes.NewBufferString(`{"email":"a@b.c","password":"longenough","displayName":"Avery"}`))
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestMoveTaskEndToEnd(t *testing.T) {
	fb := &fakeBoard{
		moveFn: func(_ context.Context, itemID string, lane board.Lane, position int64) (board.Item, error) {
			return board.Item{ID: itemID, Lane: lane, Position: position}, nil
		},
	}
	server, svc := newTestServer(&fakeStore{}, fb, nil)

	req := authedRequest(t, svc, http.MethodPost, "/api/tasks/task-1/move", `{"lane":"done","position":1500}`)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeResponse(t, rr)
	if payload["lane"] != "done" {
		t.Fatalf("expected lane done, got %v", payload["lane"])
	}
	if payload["position"] != float64(1500) {
		t.Fatalf("expected position 1500, got %v", payload["position"])
	}
}

func TestMoveTaskUnknownLaneIs422(t *testing.T) {
	server, svc := newTestServer(&fakeStore{}, &fakeBoard{}, nil)

	req := authedRequest(t, svc, http.MethodPost, "/api/tasks/task-1/move", `{"lane":"limbo","position":0}`)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeResponse(t, rr)
	if payload["code"] != "VALIDATION_ERROR" {
		t.Fatalf("expected VALIDATION_ERROR, got %v", payload["code"])
	}
}

func TestMoveTaskConflictIs409(t *testing.T) {
	fb := &fakeBoard{
		moveFn: func(context.Context, string, board.Lane, int64) (board.Item, error) {
			return board.Item{}, &board.ConflictError{Attempts: 3, Err: board.ErrSerialization}
		},
	}
	server, svc := newTestServer(&fakeStore{}, fb, nil)

	req := authedRequest(t, svc, http.MethodPost, "/api/tasks/task-1/move", `{"lane":"done","position":500}`)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeResponse(t, rr)
	if payload["code"] != "CONFLICT" {
		t.Fatalf("expected CONFLICT, got %v", payload["code"])
	}
}

func TestMoveTaskMissingIs404(t *testing.T) {
	fs := &fakeStore{
		getTaskFn: func(context.Context, string, string) (store.Task, error) {
			return store.Task{}, sql.ErrNoRows
		},
	}
	server, svc := newTestServer(fs, &fakeBoard{}, nil)

	req := authedRequest(t, svc, http.MethodPost, "/api/tasks/task-1/move", `{"lane":"done","position":500}`)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d body=%s", rr.Code, rr.Body.String())
	}
}

func TestTimerConflictIs409(t *testing.T) {
	fs := &fakeStore{
		startTimerFn: func(context.Context, store.TimeLog) (store.TimeLog, error) {
			return store.TimeLog{}, store.ErrTimerRunning
		},
	}
	server, svc := newTestServer(fs, nil, nil)

	req := authedRequest(t, svc, http.MethodPost, "/api/time/start", `{"note":"focus"}`)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeResponse(t, rr)
	if payload["code"] != "TIMER_RUNNING" {
		t.Fatalf("expected TIMER_RUNNING, got %v", payload["code"])
	}
}

func TestCreateFolderRoundTrip(t *testing.T) {
	server, svc := newTestServer(&fakeStore{}, nil, nil)

	req := authedRequest(t, svc, http.MethodPost, "/api/folders", `{"name":"Projects","color":"#2d6a4f"}`)
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	payload := decodeResponse(t, rr)
	if payload["name"] != "Projects" {
		t.Fatalf("expected name Projects, got %v", payload["name"])
	}
	if payload["id"] == "" {
		t.Fatal("expected a folder ID")
	}
}

func TestUnknownRouteIs404(t *testing.T) {
	server, svc := newTestServer(&fakeStore{}, nil, nil)

	req := authedRequest(t, svc, http.MethodGet, "/api/unknown", "")
	rr := httptest.NewRecorder()
	server.Handler().ServeHTTP(rr, req)

	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}
