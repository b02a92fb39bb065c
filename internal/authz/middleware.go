package authz

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/glowdesk/glowdesk/internal/platform/httpx"
)

// Middleware adapts the guard functions into chi middleware. A passing guard
// stores the loaded user context on the request; a rejection is translated
// to a uniform HTTP denial. The specific rejection kind goes to the log,
// never to the client.
type Middleware struct {
	Guard  *Guard
	Logger *slog.Logger
}

// RequireAuth admits any authenticated principal.
func (m Middleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		uc, err := m.Guard.RequireAuth(r.Context())
		if err != nil {
			m.deny(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), uc)))
	})
}

// RequireRole admits principals holding exactly the required role.
func (m Middleware) RequireRole(required Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uc, err := m.Guard.RequireRole(r.Context(), required)
			if err != nil {
				m.deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), uc)))
		})
	}
}

// RequireAnyRole admits principals holding at least one of the roles.
func (m Middleware) RequireAnyRole(required ...Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			uc, err := m.Guard.RequireAnyRole(r.Context(), required...)
			if err != nil {
				m.deny(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), uc)))
		})
	}
}

// RequireSalonAccess admits principals with access to the salon named by the
// {salonID} route parameter.
func (m Middleware) RequireSalonAccess(param string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			salonID, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid salon id")
				return
			}
			uc, guardErr := m.Guard.RequireSalonAccess(r.Context(), salonID)
			if guardErr != nil {
				m.deny(w, r, guardErr)
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithUser(r.Context(), uc)))
		})
	}
}

func (m Middleware) deny(w http.ResponseWriter, r *http.Request, err error) {
	if m.Logger != nil {
		m.Logger.WarnContext(r.Context(), "request denied",
			slog.String("path", r.URL.Path),
			slog.Any("reason", err),
		)
	}
	Respond(w, err)
}

// Respond writes the HTTP translation of an authorization rejection. Every
// denial beyond "not signed in" looks identical to the client.
func Respond(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrAuthenticationRequired) {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "please sign in")
		return
	}
	if IsDenied(err) {
		httpx.Problem(w, http.StatusForbidden, "Forbidden", "insufficient permission")
		return
	}
	httpx.RespondError(w, err)
}
