package common

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestStoreErrorIs(t *testing.T) {
	tests := []struct {
		name   string
		err    *StoreError
		target error
		want   bool
	}{
		{"submit", &StoreError{Op: "submit", StatusCode: 500}, ErrSubmitFailed, true},
		{"submit is not decide", &StoreError{Op: "submit", StatusCode: 500}, ErrDecideFailed, false},
		{"list", &StoreError{Op: "list", StatusCode: 502}, ErrListFailed, true},
		{"decide", &StoreError{Op: "decide", StatusCode: 500}, ErrDecideFailed, true},
		{"decide conflict", &StoreError{Op: "decide", StatusCode: http.StatusConflict}, ErrAlreadyDecided, true},
		{"decide not found", &StoreError{Op: "decide", StatusCode: http.StatusNotFound}, ErrAlreadyDecided, true},
		{"decide server error", &StoreError{Op: "decide", StatusCode: 500}, ErrAlreadyDecided, false},
		{"submit conflict", &StoreError{Op: "submit", StatusCode: http.StatusConflict}, ErrAlreadyDecided, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("call: %w", tt.err)
			if got := errors.Is(wrapped, tt.target); got != tt.want {
				t.Errorf("errors.Is(%v, %v) = %v, want %v", tt.err, tt.target, got, tt.want)
			}
		})
	}
}

func TestCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"no text", fmt.Errorf("pipeline: %w", ErrNoTextFound), CodeNoTextFound},
		{"malformed", ErrMalformedExtraction, CodeMalformedExtraction},
		{"submit", &StoreError{Op: "submit", StatusCode: 400, Body: "bad"}, CodeSubmitFailed},
		{"already decided", &StoreError{Op: "decide", StatusCode: 409}, CodeAlreadyDecided},
		{"decide", &StoreError{Op: "decide", StatusCode: 500}, CodeDecideFailed},
		{"timeout beats op", &StoreError{Op: "submit", Err: context.DeadlineExceeded}, CodeTransportTimeout},
		{"app error", NewAppError(CodeConfig, "x", nil), CodeConfig},
		{"unknown", errors.New("boom"), CodeInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Code(tt.err); got != tt.want {
				t.Errorf("Code(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestStoreErrorMessage(t *testing.T) {
	err := &StoreError{Op: "submit", StatusCode: 422, Body: `{"erro":"campo obrigatório"}`}
	want := `store submit: status 422: {"erro":"campo obrigatório"}`
	if err.Error() != want {
		t.Fatalf("Error() = %q, want %q", err.Error(), want)
	}
}
