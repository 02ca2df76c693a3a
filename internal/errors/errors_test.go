package errors

import (
	"fmt"
	"net/http"
	"testing"
)

func TestFromHTTPStatus(t *testing.T) {
	tests := []struct {
		status int
		want   ErrorCode
	}{
		{http.StatusOK, ""},
		{http.StatusBadRequest, LUXY_VALIDATION},
		{http.StatusUnprocessableEntity, LUXY_VALIDATION},
		{http.StatusUnauthorized, LUXY_AUTH},
		{http.StatusForbidden, LUXY_AUTH},
		{http.StatusNotFound, LUXY_NOT_FOUND},
		{http.StatusConflict, LUXY_CONFLICT},
		{http.StatusTooManyRequests, LUXY_NETWORK},
		{http.StatusBadGateway, LUXY_NETWORK},
	}
	for _, tt := range tests {
		if got := FromHTTPStatus(tt.status); got != tt.want {
			t.Errorf("FromHTTPStatus(%d) = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestCodeOfWrapped(t *testing.T) {
	base := New(LUXY_NOT_FOUND, "content not found")
	wrapped := fmt.Errorf("like: %w", base)

	if got := CodeOf(wrapped); got != LUXY_NOT_FOUND {
		t.Errorf("CodeOf() = %v, want %v", got, LUXY_NOT_FOUND)
	}
	if !Is(wrapped, LUXY_NOT_FOUND) {
		t.Errorf("Is() = false, want true")
	}
	if got := CodeOf(fmt.Errorf("plain")); got != LUXY_INTERNAL {
		t.Errorf("CodeOf(plain) = %v, want %v", got, LUXY_INTERNAL)
	}
	if CodeOf(nil) != "" {
		t.Errorf("CodeOf(nil) should be empty")
	}
}

func TestHTTPStatusForCode(t *testing.T) {
	if got := New(LUXY_VALIDATION, "x").HTTPStatus; got != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %v, want %v", got, http.StatusBadRequest)
	}
	if got := New(LUXY_NETWORK, "x").HTTPStatus; got != http.StatusBadGateway {
		t.Errorf("HTTPStatus = %v, want %v", got, http.StatusBadGateway)
	}
	e := New(LUXY_AUTH, "expired").WithCorrelationID("abc")
	if e.CorrelationID != "abc" || e.HTTPStatus != http.StatusUnauthorized {
		t.Errorf("WithCorrelationID() = %+v", e)
	}
}
