package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"paypulse/internal/auth"
	"paypulse/internal/core"
)

// userID returns the authenticated user of r. Routes under /api always run
// behind the auth middleware, so a missing user is a wiring bug surfaced as
// 401 rather than a panic.
func userID(r *http.Request) (string, error) {
	id, ok := auth.UserFrom(r.Context())
	if !ok {
		return "", core.Unauthorized("authentication required")
	}
	return id, nil
}

// withUser adapts a handler that needs the caller's user id.
func withUser(h func(w http.ResponseWriter, r *http.Request, user string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := userID(r)
		if err != nil {
			writeError(w, r, err)
			return
		}
		h(w, r, user)
	}
}

// pathID returns the {id} route parameter.
func pathID(r *http.Request) string {
	return chi.URLParam(r, "id")
}
