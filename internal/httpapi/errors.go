package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"artifactlive.org/internal/ledger"
	"artifactlive.org/internal/obs"
	"artifactlive.org/internal/pricing"
)

const (
	kindUnauthenticated ledger.Kind = "unauthenticated"
	kindRateLimited     ledger.Kind = "rate_limited"
	kindUnavailable     ledger.Kind = "unavailable"
)

type errorResponse struct {
	Kind      ledger.Kind `json:"kind"`
	Error     string      `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}

func writeError(w http.ResponseWriter, r *http.Request, code int, kind ledger.Kind, msg string) {
	writeJSON(w, code, errorResponse{
		Kind:      kind,
		Error:     msg,
		RequestID: RequestIDFromContext(r.Context()),
	})
}

// handleError maps domain errors to status codes. Internal failures are
// logged and never echoed to the client.
func handleError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, pricing.ErrInvalidConfig) {
		writeError(w, r, http.StatusBadRequest, ledger.KindValidation, err.Error())
		return
	}
	kind := ledger.KindOf(err)
	switch kind {
	case ledger.KindValidation:
		writeError(w, r, http.StatusBadRequest, kind, err.Error())
	case ledger.KindUnbalanced:
		writeError(w, r, http.StatusUnprocessableEntity, kind, err.Error())
	case ledger.KindNotFound:
		writeError(w, r, http.StatusNotFound, kind, err.Error())
	case ledger.KindAuthorization:
		writeError(w, r, http.StatusForbidden, kind, err.Error())
	case ledger.KindProtected:
		writeError(w, r, http.StatusConflict, kind, err.Error())
	default:
		obs.Logger().ErrorContext(r.Context(), "request failed",
			"request_id", RequestIDFromContext(r.Context()), "path", r.URL.Path, "error", err.Error())
		writeError(w, r, http.StatusInternalServerError, ledger.KindInternal, "internal error")
	}
}

func badRequest(w http.ResponseWriter, r *http.Request, format string, args ...any) {
	writeError(w, r, http.StatusBadRequest, ledger.KindValidation, fmt.Sprintf(format, args...))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	reader := http.MaxBytesReader(w, r.Body, 1<<20)
	defer reader.Close()
	dec := json.NewDecoder(reader)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is required")
		}
		return err
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		if err == nil {
			return errors.New("unexpected data after JSON body")
		}
		return err
	}
	return nil
}
