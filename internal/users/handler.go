package users

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/glowdesk/glowdesk/internal/authz"
	"github.com/glowdesk/glowdesk/internal/platform/httpx"
	"github.com/glowdesk/glowdesk/internal/shared"
)

// Handler exposes the user endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers user routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Get("/{userID}", h.get)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	user, err := h.service.Get(r.Context(), userID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, user)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	users, err := h.service.List(r.Context(), page, pageSize)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users})
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	if authz.IsDenied(err) {
		h.logger.Warn("user request denied",
			slog.String("path", r.URL.Path),
			slog.Any("reason", err),
		)
		authz.Respond(w, err)
		return
	}
	if errors.Is(err, shared.ErrNotFound) {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	h.logger.Error("user request failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
