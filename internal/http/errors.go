package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"paypulse/internal/core"
	"paypulse/internal/log"
)

// kindBadRequest marks request bodies and queries that could not be decoded.
const kindBadRequest = "bad_request"

// requestError is a malformed request; it is answered with 400.
type requestError struct {
	msg   string
	cause error
}

func (e *requestError) Error() string {
	if e.cause != nil {
		return e.msg + ": " + e.cause.Error()
	}
	return e.msg
}

func (e *requestError) Unwrap() error { return e.cause }

func malformed(msg string, cause error) error {
	return &requestError{msg: msg, cause: cause}
}

// statusFor maps an error to its HTTP status and wire kind.
func statusFor(err error) (int, string, string) {
	var re *requestError
	if errors.As(err, &re) {
		return http.StatusBadRequest, kindBadRequest, re.msg
	}

	switch kind := core.KindOf(err); kind {
	case core.KindValidation:
		return http.StatusUnprocessableEntity, string(kind), core.MessageOf(err)
	case core.KindNotFound:
		return http.StatusNotFound, string(kind), core.MessageOf(err)
	case core.KindConflict:
		return http.StatusConflict, string(kind), core.MessageOf(err)
	case core.KindUnauthorized:
		return http.StatusUnauthorized, string(kind), core.MessageOf(err)
	default:
		return http.StatusInternalServerError, string(core.KindInternal), "internal error"
	}
}

// writeError answers r with the status err maps to. Internal errors are
// logged with their cause and never leak it to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, kind, msg := statusFor(err)
	logger := log.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		fields := log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, r.UserAgent())
		log.NewStructuredLogger(logger).LogError(r.Context(), "Request failed", err, log.ComponentHTTP, routePattern(r), fields)
	} else {
		logger.DebugContext(r.Context(), "Request rejected",
			log.FieldErrorKind, kind,
			log.FieldError, err)
	}
	if status == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="paypulse"`)
	}
	ErrorResponse(status, kind, msg).Write(w)
}

// routePattern names the matched route, e.g. "/api/expenses/{id}".
func routePattern(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return r.Method + " " + p
		}
	}
	return r.Method + " " + r.URL.Path
}
