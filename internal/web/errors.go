package web

// errors.go provides unified error responses for the web layer.
//
// Every error is logged with its technical detail and request ID, then
// mapped through core.MapError and returned as JSON for API clients or as
// an HTML page otherwise.

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/JonMunkholm/fileconv/internal/core"
	"github.com/JonMunkholm/fileconv/internal/web/templates"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
)

// ErrorResponse is the JSON body of an API error.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// statusFor picks the HTTP status for a pipeline or session error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrSessionNotFound), errors.Is(err, core.ErrFileNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrUnsupportedFormat):
		return http.StatusUnsupportedMediaType
	case errors.Is(err, core.ErrFileTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrTooManyConversions), errors.Is(err, core.ErrTooManySessions):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, core.ErrParseFailure),
		errors.Is(err, core.ErrEmptySelection),
		errors.Is(err, core.ErrUnknownColumn),
		errors.Is(err, core.ErrUnknownExportFormat),
		errors.Is(err, core.ErrNoFiles),
		errors.Is(err, core.ErrInvalidOption):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrNoNumericColumns):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// respondError logs err and writes a user-facing response. A statusCode of
// 0 derives the status from err.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error, statusCode int) {
	if statusCode == 0 {
		statusCode = statusFor(err)
	}
	userMsg := core.MapError(err)

	level := slog.LevelWarn
	if statusCode >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", statusCode,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	if wantsJSON(r) {
		render.Status(r, statusCode)
		render.JSON(w, r, errorResponse(err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(statusCode)
	templates.ErrorPage(*errorView(err)).Render(r.Context(), w)
}

// errorResponse maps err for a JSON body. Error carries the detail when
// there is one, the user message otherwise.
func errorResponse(err error) ErrorResponse {
	msg := core.MapError(err)
	detail := errorDetail(err)
	resp := ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Detail:  detail,
		Action:  msg.Action,
		Code:    msg.Code,
	}
	if detail != "" {
		resp.Error = detail
	}
	return resp
}

// errorView maps err for embedding in a page.
func errorView(err error) *templates.ErrorView {
	if err == nil {
		return nil
	}
	msg := core.MapError(err)
	return &templates.ErrorView{
		Message: msg.Message,
		Detail:  errorDetail(err),
		Action:  msg.Action,
		Code:    msg.Code,
	}
}

// errorDetail names the file and underlying cause of a per-file failure,
// as in "Error reading file bad.csv: ...". Other errors have no detail.
func errorDetail(err error) string {
	var fe *core.FileError
	if !errors.As(err, &fe) {
		return ""
	}
	s := fe.Error()
	return strings.ToUpper(s[:1]) + s[1:]
}

// wantsJSON reports whether the client should get a JSON error.
func wantsJSON(r *http.Request) bool {
	if strings.Contains(r.Header.Get("Accept"), "application/json") {
		return true
	}
	if strings.Contains(r.Header.Get("Content-Type"), "application/json") {
		return true
	}
	return strings.HasPrefix(r.URL.Path, "/api/")
}
