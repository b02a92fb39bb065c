package salons

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/glowdesk/glowdesk/internal/authz"
	"github.com/glowdesk/glowdesk/internal/platform/httpx"
	"github.com/glowdesk/glowdesk/internal/shared"
)

// Handler exposes the salon endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers salon routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Route("/{salonID}", func(r chi.Router) {
		r.Get("/", h.get)
		r.Get("/financials", h.financials)
		r.Get("/staff", h.staff)
		r.Post("/members", h.addMember)
		r.Delete("/members/{userID}", h.removeMember)
		r.Post("/roles", h.grantRole)
		r.Delete("/roles", h.revokeRole)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	list, err := h.service.List(r.Context(), page, pageSize)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"salons": list})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	salonID, ok := salonParam(w, r)
	if !ok {
		return
	}
	salon, err := h.service.Get(r.Context(), salonID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, salon)
}

func (h *Handler) financials(w http.ResponseWriter, r *http.Request) {
	salonID, ok := salonParam(w, r)
	if !ok {
		return
	}
	summary, err := h.service.Financials(r.Context(), salonID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) staff(w http.ResponseWriter, r *http.Request) {
	salonID, ok := salonParam(w, r)
	if !ok {
		return
	}
	staff, err := h.service.Staff(r.Context(), salonID)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"staff": staff})
}

type memberRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

func (h *Handler) addMember(w http.ResponseWriter, r *http.Request) {
	salonID, ok := salonParam(w, r)
	if !ok {
		return
	}
	var req memberRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.AddMember(r.Context(), requestMeta(r), salonID, req.UserID); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true})
}

func (h *Handler) removeMember(w http.ResponseWriter, r *http.Request) {
	salonID, ok := salonParam(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.RemoveMember(r.Context(), requestMeta(r), salonID, userID); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

type roleRequest struct {
	UserID    int64      `json:"user_id" validate:"required,gt=0"`
	Role      string     `json:"role" validate:"required,oneof=owner manager staff"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

func (h *Handler) grantRole(w http.ResponseWriter, r *http.Request) {
	salonID, ok := salonParam(w, r)
	if !ok {
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.GrantRole(r.Context(), requestMeta(r), salonID, req.UserID, req.Role, req.ExpiresAt); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"ok": true})
}

func (h *Handler) revokeRole(w http.ResponseWriter, r *http.Request) {
	salonID, ok := salonParam(w, r)
	if !ok {
		return
	}
	var req roleRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.service.RevokeRole(r.Context(), requestMeta(r), salonID, req.UserID, req.Role); err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	if authz.IsDenied(err) {
		h.logger.Warn("salon request denied",
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
	h.logger.Error("salon request failed",
		slog.String("path", r.URL.Path),
		slog.Any("error", err),
	)
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}

func salonParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	salonID, err := strconv.ParseInt(chi.URLParam(r, "salonID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid salon id")
		return 0, false
	}
	return salonID, true
}

func requestMeta(r *http.Request) RequestMeta {
	return RequestMeta{IPAddress: r.RemoteAddr, UserAgent: r.UserAgent()}
}
