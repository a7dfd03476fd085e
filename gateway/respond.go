package gateway

import (
	"errors"
	"log/slog"
	"net/http"

	json "github.com/goccy/go-json"

	"github.com/byte4ever/git_gateway/assembler"
	"github.com/byte4ever/git_gateway/githost"
)

// errorResponse is the uniform failure body. Details is
// optional human-readable context.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// writeJSON encodes v as the response body with the
// given status.
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set(
		"Content-Type", "application/json",
	)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(
			"encoding response", "error", err,
		)
	}
}

// writeError writes the uniform failure body.
func writeError(
	w http.ResponseWriter,
	status int,
	msg string,
	details string,
) {
	writeJSON(w, status, errorResponse{
		Error:   msg,
		Details: details,
	})
}

// writeHostError maps an upstream failure onto the
// uniform body. Commit failures name the assembly step;
// a ref conflict tells the caller to re-read and retry.
func writeHostError(
	w http.ResponseWriter,
	err error,
) {
	msg := "upstream request failed"
	details := err.Error()

	var stepErr *assembler.StepError

	switch {
	case errors.As(err, &stepErr):
		msg = "commit failed at step " +
			string(stepErr.Step)

		if errors.Is(err, githost.ErrRefConflict) {
			details = "branch moved concurrently; " +
				"re-read the branch head and retry"
		}
	case errors.Is(err, githost.ErrRefConflict):
		msg = "ref update conflict"
	case errors.Is(err, githost.ErrRefNotFound):
		msg = "ref not found"
	case errors.Is(err, githost.ErrNotFound):
		msg = "not found"
	case errors.Is(err, githost.ErrUnavailable):
		msg = "host unavailable"
	}

	writeError(
		w, http.StatusInternalServerError,
		msg, details,
	)
}

// decodeBody decodes a JSON request body into v.
func decodeBody(r *http.Request, v any) error {
	return json.NewDecoder(r.Body).Decode(v)
}
