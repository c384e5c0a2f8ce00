package api

import (
	"encoding/json"
	"net/http"

	searcherrors "github.com/simplyliz/searchd/internal/errors"
)

// ErrorResponse is the JSON body written for every failed request.
type ErrorResponse struct {
	Error   string                   `json:"error"`
	Code    string                   `json:"code"`
	Details interface{}              `json:"details,omitempty"`
	Fixes   []searcherrors.FixAction `json:"suggestedFixes,omitempty"`
}

// debugMode gates whether WriteError includes a SearchdError's wrapped
// cause text in the response body. Only SetDebugMode(true) — wired from
// the slowQuery.logQueries config flag — turns this on; production
// defaults never leak internal error context to callers.
var debugMode bool

// SetDebugMode toggles WriteError's cause-text disclosure. Called once
// at server construction from ServerConfig.Debug.
func SetDebugMode(enabled bool) {
	debugMode = enabled
}

// WriteError writes err as a JSON error body with the given status.
// A *searcherrors.SearchdError contributes its code, details, and
// suggested fixes, and its top-level Error field is built from Message
// alone — never from the wrapped cause, which SearchdError.Error()
// would otherwise fold in. The cause is appended only when debugMode
// is enabled. Any other error is reported as INTERNAL_ERROR using its
// own Error() text, since those call sites construct messages meant to
// be user-facing rather than wrapping an internal cause.
func WriteError(w http.ResponseWriter, err error, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	resp := ErrorResponse{}
	if se, ok := err.(*searcherrors.SearchdError); ok {
		resp.Error = se.Message
		resp.Code = string(se.Code)
		resp.Details = se.Details
		resp.Fixes = searcherrors.SuggestedFixes(se.Code)
		if debugMode {
			if cause := se.Unwrap(); cause != nil {
				resp.Error = se.Message + ": " + cause.Error()
			}
		}
	} else {
		resp.Error = err.Error()
		resp.Code = "INTERNAL_ERROR"
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// WriteSearchdError writes err with its status derived from MapCodeToStatus.
func WriteSearchdError(w http.ResponseWriter, err *searcherrors.SearchdError) {
	WriteError(w, err, MapCodeToStatus(err.Code))
}

// MapCodeToStatus maps a searcherrors.Code to an HTTP status.
func MapCodeToStatus(code searcherrors.Code) int {
	switch code {
	case searcherrors.ErrConnection, searcherrors.ErrBackendUnavailable, searcherrors.ErrCircuitOpen, searcherrors.ErrHybridCompleteFailure:
		return http.StatusServiceUnavailable
	case searcherrors.ErrTimeout:
		return http.StatusGatewayTimeout
	case searcherrors.ErrSecurityAccessDenied:
		return http.StatusForbidden
	case searcherrors.ErrInvalidRequest:
		return http.StatusBadRequest
	case searcherrors.ErrNotFound:
		return http.StatusNotFound
	case searcherrors.ErrSearch, searcherrors.ErrConfig:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// WriteJSON writes data as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// BadRequest writes a 400 Bad Request error.
func BadRequest(w http.ResponseWriter, message string) {
	WriteError(w, searcherrors.NewInvalidRequestError(message), http.StatusBadRequest)
}

// NotFound writes a 404 Not Found error.
func NotFound(w http.ResponseWriter, message string) {
	WriteError(w, searcherrors.NewNotFoundError(message), http.StatusNotFound)
}

// InternalError writes a 500 Internal Server Error, wrapping cause
// under the generic search failure code.
func InternalError(w http.ResponseWriter, message string, cause error) {
	WriteError(w, searcherrors.Wrap(searcherrors.ErrSearch, message, cause), http.StatusInternalServerError)
}
