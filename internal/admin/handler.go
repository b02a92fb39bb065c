package admin

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/glowdesk/glowdesk/internal/audit"
	"github.com/glowdesk/glowdesk/internal/authz"
	"github.com/glowdesk/glowdesk/internal/platform/httpx"
	"github.com/glowdesk/glowdesk/internal/shared"
)

// Handler exposes the platform-admin endpoints. Authorization happens in the
// service: every operation verifies the super-admin gate itself, so there is
// no route-level role middleware to bypass.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers admin routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/dashboard", h.dashboard)
	r.Get("/users", h.listUsers)
	r.Get("/salons", h.listSalons)
	r.Get("/audit", h.auditTimeline)
	r.Patch("/users/{userID}/status", h.setUserStatus)
	r.Patch("/salons/{salonID}/status", h.setSalonStatus)
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, stats)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	users, err := h.service.ListUsers(r.Context(), page, pageSize)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"users": users, "page": page})
}

func (h *Handler) listSalons(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	salons, err := h.service.ListSalons(r.Context(), page, pageSize)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"salons": salons, "page": page})
}

func (h *Handler) auditTimeline(w http.ResponseWriter, r *http.Request) {
	filters := audit.TimelineFilters{
		EntityType: r.URL.Query().Get("entity_type"),
		Action:     r.URL.Query().Get("action"),
	}
	filters.Page, filters.PageSize = pageParams(r)
	if actor := r.URL.Query().Get("actor_id"); actor != "" {
		filters.ActorID, _ = strconv.ParseInt(actor, 10, 64)
	}
	if from := r.URL.Query().Get("from"); from != "" {
		if ts, err := time.Parse(time.RFC3339, from); err == nil {
			filters.From = ts
		}
	}
	if to := r.URL.Query().Get("to"); to != "" {
		if ts, err := time.Parse(time.RFC3339, to); err == nil {
			filters.To = ts
		}
	}
	result, err := h.service.AuditTimeline(r.Context(), filters)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

type userStatusRequest struct {
	IsActive *bool `json:"is_active" validate:"required"`
}

func (h *Handler) setUserStatus(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req userStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	row, err := h.service.SetUserActive(r.Context(), requestMeta(r), userID, *req.IsActive)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

type salonStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending active suspended"`
}

func (h *Handler) setSalonStatus(w http.ResponseWriter, r *http.Request) {
	salonID, err := strconv.ParseInt(chi.URLParam(r, "salonID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	var req salonStatusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	row, err := h.service.SetSalonStatus(r.Context(), requestMeta(r), salonID, req.Status)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	if authz.IsDenied(err) {
		h.logger.Warn("admin request denied",
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
	h.logger.Error("admin request failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func requestMeta(r *http.Request) RequestMeta {
	return RequestMeta{IPAddress: r.RemoteAddr, UserAgent: r.UserAgent()}
}

func pageParams(r *http.Request) (page, pageSize int) {
	page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ = strconv.Atoi(r.URL.Query().Get("page_size"))
	return page, pageSize
}
