package authz

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if UserFromContext(r.Context()) == nil {
			http.Error(w, "context missing", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"ok":true}`))
	})
}

func TestMiddlewareAnonymousGets401(t *testing.T) {
	guard := newTestGuard(&stubResolver{}, newStubContextStore(), newStubRelations())
	mw := Middleware{Guard: guard}

	r := chi.NewRouter()
	r.With(mw.RequireAuth).Get("/me", okHandler().ServeHTTP)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/me", nil))
	if res.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.Code)
	}
}

func TestMiddlewareDenialsAreUniform(t *testing.T) {
	store := newStubContextStore()
	seedUser(store, 1, assignment(1, RoleCustomer, nil))
	guard := newTestGuard(&stubResolver{principal: &Principal{ID: 1}}, store, newStubRelations())
	mw := Middleware{Guard: guard}

	r := chi.NewRouter()
	r.With(mw.RequireRole(RoleOwner)).Get("/owner", okHandler().ServeHTTP)
	r.With(mw.RequireAnyRole(RoleAdmin, RoleManager)).Get("/manage", okHandler().ServeHTTP)
	r.With(mw.RequireSalonAccess("salonID")).Get("/salons/{salonID}", okHandler().ServeHTTP)

	bodies := make(map[string]struct{})
	for _, path := range []string{"/owner", "/manage", "/salons/5"} {
		res := httptest.NewRecorder()
		r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, path, nil))
		if res.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", path, res.Code)
		}
		body := res.Body.String()
		// The body must not enumerate which role would have worked.
		for _, leak := range []string{"owner", "admin", "manager", "salon_access"} {
			if strings.Contains(body, leak) {
				t.Fatalf("%s: response leaks %q: %s", path, leak, body)
			}
		}
		bodies[body] = struct{}{}
	}
	if len(bodies) != 1 {
		t.Fatalf("expected identical denial bodies, got %d variants", len(bodies))
	}
}

func TestMiddlewareAllowsAndInjectsContext(t *testing.T) {
	store := newStubContextStore()
	seedUser(store, 1, assignment(1, RoleStaff, salonScoped(5)))
	relations := newStubRelations()
	relations.memberships[[2]int64{1, 5}] = true
	guard := newTestGuard(&stubResolver{principal: &Principal{ID: 1}}, store, relations)
	mw := Middleware{Guard: guard}

	r := chi.NewRouter()
	r.With(mw.RequireSalonAccess("salonID")).Get("/salons/{salonID}", okHandler().ServeHTTP)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/salons/5", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", res.Code, res.Body.String())
	}
}

func TestMiddlewareBadSalonParam(t *testing.T) {
	guard := newTestGuard(&stubResolver{principal: &Principal{ID: 1}}, newStubContextStore(), newStubRelations())
	mw := Middleware{Guard: guard}

	r := chi.NewRouter()
	r.With(mw.RequireSalonAccess("salonID")).Get("/salons/{salonID}", okHandler().ServeHTTP)

	res := httptest.NewRecorder()
	r.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/salons/abc", nil))
	if res.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.Code)
	}
}
