package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"promptui/internal/workflow"
)

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("%w: prompt", workflow.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w: nope", workflow.ErrForbidden), http.StatusForbidden},
		{workflow.ErrUnauthenticated, http.StatusUnauthorized},
		{fmt.Errorf("%w: slug", workflow.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: title", workflow.ErrInvalidInput), http.StatusBadRequest},
		{badRequest("version must be an integer"), http.StatusBadRequest},
		{errors.New("connection reset"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestRespondErrorHidesInternalDetails(t *testing.T) {
	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/prompts", nil)
	respondError(rr, req, errors.New("pq: password authentication failed"))

	if rr.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d, want 500", rr.Code)
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Errorf("body leaks internal error: %q", rr.Body.String())
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"key":"cards","name":"Cards"}`, false},
		{"unknown field", `{"key":"cards","nmae":"Cards"}`, true},
		{"empty", ``, true},
		{"trailing object", `{"key":"a","name":"b"}{"key":"c"}`, true},
		{"not json", `key=cards`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var in workflow.CategoryInput
			rr := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			err := decodeJSON(rr, req, &in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("decodeJSON() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && statusFor(err) != http.StatusBadRequest {
				t.Errorf("decode error should map to 400, got %d", statusFor(err))
			}
		})
	}
}

func TestDecodeOptionalJSON(t *testing.T) {
	var req reviewRequest
	rr := httptest.NewRecorder()
	if err := decodeOptionalJSON(rr, httptest.NewRequest(http.MethodPost, "/", nil), &req); err != nil {
		t.Fatalf("empty body: %v", err)
	}
	if req.Comment != nil {
		t.Errorf("comment: got %v, want nil", *req.Comment)
	}

	body := strings.NewReader(`{"comment":"ship it"}`)
	if err := decodeOptionalJSON(rr, httptest.NewRequest(http.MethodPost, "/", body), &req); err != nil {
		t.Fatalf("with body: %v", err)
	}
	if req.Comment == nil || *req.Comment != "ship it" {
		t.Errorf("comment: got %v, want ship it", req.Comment)
	}

	if err := decodeOptionalJSON(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{`)), &req); err == nil {
		t.Error("malformed body should still fail")
	}
}
