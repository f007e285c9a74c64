package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/containerd/errdefs"
	"github.com/cuemby/cityfix/pkg/log"
	"github.com/go-chi/chi/v5/middleware"
)

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error     string `json:"error"`
	RequestID string `json:"requestId,omitempty"`
}

// classSuffixes are the errdefs class names appended by %w wrapping
var classSuffixes = []string{
	errdefs.ErrInvalidArgument.Error(),
	errdefs.ErrUnauthenticated.Error(),
	errdefs.ErrPermissionDenied.Error(),
	errdefs.ErrNotFound.Error(),
	errdefs.ErrAlreadyExists.Error(),
	errdefs.ErrConflict.Error(),
	errdefs.ErrFailedPrecondition.Error(),
	errdefs.ErrResourceExhausted.Error(),
	errdefs.ErrUnavailable.Error(),
}

// StatusFor maps an error class to an HTTP status code
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errdefs.IsInvalidArgument(err):
		return http.StatusBadRequest
	case errdefs.IsUnauthorized(err):
		return http.StatusUnauthorized
	case errdefs.IsPermissionDenied(err):
		return http.StatusForbidden
	case errdefs.IsNotFound(err):
		return http.StatusNotFound
	case errdefs.IsAlreadyExists(err), errdefs.IsConflict(err):
		return http.StatusConflict
	case errdefs.IsFailedPrecondition(err):
		return http.StatusUnprocessableEntity
	case errdefs.IsResourceExhausted(err):
		return http.StatusPaymentRequired
	case errdefs.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// clientMessage drops the trailing error class so clients read
// "issue not found" rather than "issue not found: not found"
func clientMessage(err error) string {
	msg := err.Error()
	for _, suffix := range classSuffixes {
		if trimmed, ok := strings.CutSuffix(msg, ": "+suffix); ok {
			return trimmed
		}
	}
	return msg
}

// WriteError renders err as JSON. Unclassified errors are logged and
// hidden behind a generic message.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusFor(err)
	reqID := middleware.GetReqID(r.Context())

	msg := clientMessage(err)
	if status == http.StatusInternalServerError {
		log.Ctx(r.Context()).Error().Err(err).Msg("Request failed")
		msg = "internal server error"
	}

	writeJSON(w, status, ErrorResponse{Error: msg, RequestID: reqID})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// maxBodyBytes bounds JSON request bodies
const maxBodyBytes = 1 << 20

var errEmptyBody = errors.New("request body is empty")

// decode reads a JSON body into v, rejecting unknown fields
func decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			err = errEmptyBody
		}
		return fmt.Errorf("invalid request body: %v: %w", err, errdefs.ErrInvalidArgument)
	}
	return nil
}
