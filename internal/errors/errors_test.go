package errors

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConstructors_StatusMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        *AppError
		wantStatus int
		wantCode   string
	}{
		{"bad request", BadRequest("nope"), 400, CodeBadRequest},
		{"unauthorized", Unauthorized("nope"), 401, CodeUnauthorized},
		{"invalid credentials", InvalidCredentials(), 401, CodeInvalidCredentials},
		{"invalid token", InvalidToken("nope"), 401, CodeInvalidToken},
		{"user not found", UserNotFound(), 404, CodeUserNotFound},
		{"channel not found", ChannelNotFound(), 404, CodeChannelNotFound},
		{"user exists", UserExists(), 409, CodeUserExists},
		{"conflict", Conflict("nope"), 409, CodeConflict},
		{"internal", InternalError("boom"), 500, CodeInternalError},
		{"database", DatabaseError("boom"), 500, CodeDatabaseError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.HTTPStatus != tt.wantStatus {
				t.Errorf("status = %d, want %d", tt.err.HTTPStatus, tt.wantStatus)
			}
			if tt.err.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", tt.err.Code, tt.wantCode)
			}
		})
	}
}

func TestAppError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := DatabaseError("query failed").WithCause(cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}

	var appErr *AppError
	if !errors.As(err, &appErr) || appErr.Code != CodeDatabaseError {
		t.Error("expected errors.As to match AppError")
	}
}

func TestCategories(t *testing.T) {
	if !IsClientError(BadRequest("x")) {
		t.Error("BadRequest must be a client error")
	}
	if !IsServerError(InternalError("x")) {
		t.Error("InternalError must be a server error")
	}
	if IsClientError(errors.New("plain")) || IsServerError(errors.New("plain")) {
		t.Error("plain errors have no category")
	}
}

func TestWriteError_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, "req-1", UserNotFound())

	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if got := w.Header().Get(RequestIDHeader); got != "req-1" {
		t.Errorf("expected request id header, got %q", got)
	}

	var envelope Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if envelope.Success {
		t.Error("error envelope must have success=false")
	}
	if envelope.Data != nil {
		t.Error("error envelope must have null data")
	}
	if envelope.StatusCode != 404 || envelope.Message != "user does not exist" {
		t.Errorf("unexpected envelope: %+v", envelope)
	}
	// The empty errors array must reach the wire, not be elided.
	if !strings.Contains(w.Body.String(), `"errors":[]`) {
		t.Errorf("expected errors array in body, got %s", w.Body.String())
	}
}

func TestWriteError_WrapsUnknownErrors(t *testing.T) {
	w := httptest.NewRecorder()
	WriteError(w, "", errors.New("sql: connection refused"))

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", w.Code)
	}

	var envelope Envelope
	json.Unmarshal(w.Body.Bytes(), &envelope)
	// Internal details never leak into the body.
	if envelope.Message != "an unexpected error occurred" {
		t.Errorf("unexpected message %q", envelope.Message)
	}
}

func TestWriteJSON_Envelope(t *testing.T) {
	w := httptest.NewRecorder()
	WriteJSON(w, "req-2", http.StatusCreated, map[string]string{"id": "42"}, "created")

	if w.Code != http.StatusCreated {
		t.Errorf("expected 201, got %d", w.Code)
	}

	var envelope Envelope
	if err := json.Unmarshal(w.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("failed to decode envelope: %v", err)
	}
	if !envelope.Success || envelope.StatusCode != 201 || envelope.Message != "created" {
		t.Errorf("unexpected envelope: %+v", envelope)
	}
	if strings.Contains(w.Body.String(), `"errors"`) {
		t.Errorf("success envelope must not carry an errors field, got %s", w.Body.String())
	}
}

func TestHandleFunc_WritesReturnedError(t *testing.T) {
	handler := HandleFunc(func(w http.ResponseWriter, r *http.Request) error {
		return BadRequest("missing field")
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", w.Code)
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	var seen string
	handler := RequestIDMiddleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	// Generated when absent.
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if seen == "" {
		t.Error("expected a generated request id")
	}
	if w.Header().Get(RequestIDHeader) != seen {
		t.Error("request id must be echoed in the response header")
	}

	// Propagated when present.
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "client-supplied")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != "client-supplied" {
		t.Errorf("expected propagated id, got %q", seen)
	}
}
