package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PixelBreeze-Labs/omni-stack-gateway-sub000/internal/model"
)

// Problem represents an RFC7807 problem details response body.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeEngineError maps engine errors onto problem responses. A depleted
// pool (no eligible tasks or teams) is 422: the request was fine, there is
// just nothing to do, which callers treat differently from a bad id.
func writeEngineError(w http.ResponseWriter, r *http.Request, err error) {
	var nf *model.NotFoundError
	var ie *model.InvalidInputError
	switch {
	case errors.As(err, &ie):
		writeProblem(w, http.StatusBadRequest, "Invalid Request", err.Error(), r.URL.Path)
	case errors.As(err, &nf):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), r.URL.Path)
	case errors.Is(err, model.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error(), r.URL.Path)
	case errors.Is(err, model.ErrNoEligibleWork):
		writeProblem(w, http.StatusUnprocessableEntity, "No Eligible Work", err.Error(), r.URL.Path)
	default:
		writeProblem(w, http.StatusInternalServerError, "Internal Error", err.Error(), r.URL.Path)
	}
}
