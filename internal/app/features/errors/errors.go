// internal/app/features/errors/errors.go
package errors

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"

	"github.com/dalemusser/newsdesk/internal/app/system/inputval"
	"go.uber.org/zap"
)

// Body is the JSON shape of every error response.
type Body struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// ErrorLogger logs request failures and answers them with a JSON Body.
type ErrorLogger struct {
	Log *zap.Logger
}

func NewErrorLogger(logger *zap.Logger) *ErrorLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ErrorLogger{Log: logger}
}

func (e *ErrorLogger) fields(r *http.Request, err error) []zap.Field {
	f := []zap.Field{zap.String("method", r.Method), zap.String("path", r.URL.Path)}
	if err != nil {
		f = append(f, zap.Error(err))
	}
	return f
}

// LogServerError logs msg at Error and answers 500 with userMsg. A timed
// out request answers 504 instead.
func (e *ErrorLogger) LogServerError(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.Log.Error(msg, e.fields(r, err)...)
	status := http.StatusInternalServerError
	if stderrors.Is(err, context.DeadlineExceeded) {
		status = http.StatusGatewayTimeout
	}
	WriteJSON(w, status, Body{Error: userMsg})
}

// LogBadRequest logs msg at Warn and answers 400.
func (e *ErrorLogger) LogBadRequest(w http.ResponseWriter, r *http.Request, msg string, err error, userMsg string) {
	e.Log.Warn(msg, e.fields(r, err)...)
	WriteJSON(w, http.StatusBadRequest, Body{Error: userMsg})
}

// NotFound answers 404.
func (e *ErrorLogger) NotFound(w http.ResponseWriter, userMsg string) {
	WriteJSON(w, http.StatusNotFound, Body{Error: userMsg})
}

// Validation answers 422 with one message per field.
func (e *ErrorLogger) Validation(w http.ResponseWriter, res *inputval.Result) {
	WriteJSON(w, http.StatusUnprocessableEntity, Body{Error: res.First(), Fields: res.Fields()})
}

// Handle answers err from a store call: validation failures become 422,
// any of notFound becomes 404, and everything else is logged and becomes a
// server error.
func (e *ErrorLogger) Handle(w http.ResponseWriter, r *http.Request, op string, err error, notFound ...error) {
	var verr *inputval.ValidationError
	if stderrors.As(err, &verr) {
		if verr.Result.HasErrors() {
			e.Validation(w, verr.Result)
		} else {
			WriteJSON(w, http.StatusUnprocessableEntity, Body{Error: verr.Error()})
		}
		return
	}
	for _, nf := range notFound {
		if stderrors.Is(err, nf) {
			e.NotFound(w, "Not found.")
			return
		}
	}
	e.LogServerError(w, r, op+" failed", err, "Something went wrong. Please try again.")
}

// Unauthorized answers 401.
func Unauthorized(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusUnauthorized, Body{Error: msg})
}
