package web

// errors.go renders every handler error the same way:
//  1. core.NewUserError pairs the error with a user message and code
//  2. the technical error is logged with the request id
//  3. the message is written as an HTMX fragment, JSON or plain text

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/JonMunkholm/collector/internal/core"
	"github.com/JonMunkholm/collector/internal/logging"
	"github.com/JonMunkholm/collector/internal/store"
)

var errInvalidBody = errors.New("invalid request body")

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string                 `json:"error"`
	Message string                 `json:"message"`
	Action  string                 `json:"action,omitempty"`
	Code    string                 `json:"code"`
	Details []core.ValidationError `json:"details,omitempty"`
}

// statusFor picks the HTTP status for a service error.
func statusFor(err error) int {
	var verrs core.ValidationErrors
	switch {
	case errors.As(err, &verrs), errors.Is(err, errInvalidBody),
		errors.Is(err, core.ErrNoFile), errors.Is(err, core.ErrEmptyFile):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyImports):
		return http.StatusServiceUnavailable
	case errors.Is(err, store.ErrNotFound), errors.Is(err, core.ErrFileNotFound):
		return http.StatusNotFound
	case store.IsIntegrityViolation(err):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// fail responds with the status statusFor picks.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	s.respondError(w, r, err, statusFor(err))
}

// respondError logs err and answers with its user-facing form.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, status int) {
	ue := core.NewUserError(err)
	msg := ue.User

	logger := logging.Enrich(r.Context(), s.logger)
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", ue.Technical.Error(),
		"code", msg.Code,
	}
	if status >= http.StatusInternalServerError || !core.IsUserFacing(ue) {
		logger.Error("request error", attrs...)
	} else {
		logger.Info("request error", attrs...)
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}

	switch {
	case isHTMX(r):
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(status)
		_ = ErrorAlert(msg).Render(r.Context(), w)
	case wantsJSON(r):
		resp := ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
		}
		var verrs core.ValidationErrors
		if errors.As(err, &verrs) {
			resp.Details = verrs
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	default:
		http.Error(w, msg.Message+" ("+msg.Code+")", status)
	}
}

func isHTMX(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

// wantsJSON reports whether the client asked for or sent JSON. API routes
// default to JSON.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") ||
		strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
