package http

import (
	"net/http"
)

// sessionHeader carries the shop session id on every request after
// the session is opened.
const sessionHeader = "X-Session-ID"

func sessionIDFrom(r *http.Request) string {
	return r.Header.Get(sessionHeader)
}

// RequireSession rejects requests without a session id before they
// reach a handler. The open-session endpoint is mounted outside this
// middleware.
func RequireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get(sessionHeader) == "" {
			respondError(w, http.StatusUnauthorized, "missing_session", "set the "+sessionHeader+" header")
			return
		}
		next.ServeHTTP(w, r)
	})
}
