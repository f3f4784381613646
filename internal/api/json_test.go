package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

func TestWriteEngineErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		title  string
	}{
		{model.Invalid("businessId", "required"), http.StatusBadRequest, "Invalid Request"},
		{model.NotFound("route", "rt_9"), http.StatusNotFound, "Not Found"},
		{fmt.Errorf("wrapped: %w", model.NotFound("task", "t_9")), http.StatusNotFound, "Not Found"},
		{fmt.Errorf("plan day: %w", model.ErrNoEligibleWork), http.StatusUnprocessableEntity, "No Eligible Work"},
		{errors.New("disk on fire"), http.StatusInternalServerError, "Internal Error"},
	}
	for i, c := range cases {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/v1/routes", nil)
		writeEngineError(rr, req, c.err)
		if rr.Code != c.status {
			t.Fatalf("case %d: want %d, got %d", i, c.status, rr.Code)
		}
		var p Problem
		if err := json.Unmarshal(rr.Body.Bytes(), &p); err != nil {
			t.Fatalf("case %d: decode: %v", i, err)
		}
		if p.Title != c.title || p.Status != c.status || p.Instance != "/v1/routes" {
			t.Fatalf("case %d: problem %+v", i, p)
		}
	}
}

func TestWriteJSONContentType(t *testing.T) {
	rr := httptest.NewRecorder()
	writeJSON(rr, http.StatusTeapot, map[string]string{"k": "v"})
	if rr.Code != http.StatusTeapot {
		t.Fatalf("status: %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("content type: %q", ct)
	}
}
