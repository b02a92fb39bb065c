package appointments

import (
	"context"
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

// Handler exposes the booking endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers appointment routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/mine", h.listMine)
	r.Get("/salon/{salonID}", h.listForSalon)
	r.Post("/", h.book)
	r.Post("/{appointmentID}/cancel", h.cancel)
	r.Post("/{appointmentID}/complete", h.complete)
}

func (h *Handler) listMine(w http.ResponseWriter, r *http.Request) {
	page, pageSize := pageParams(r)
	list, err := h.service.ListMine(r.Context(), page, pageSize)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"appointments": list})
}

func (h *Handler) listForSalon(w http.ResponseWriter, r *http.Request) {
	salonID, err := strconv.ParseInt(chi.URLParam(r, "salonID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid salon id")
		return
	}
	page, pageSize := pageParams(r)
	list, err := h.service.ListForSalon(r.Context(), salonID, page, pageSize)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"appointments": list})
}

type bookingRequest struct {
	SalonID    int64     `json:"salon_id" validate:"required,gt=0"`
	CustomerID int64     `json:"customer_id,omitempty"`
	StaffID    int64     `json:"staff_id" validate:"required,gt=0"`
	Service    string    `json:"service" validate:"required,min=2"`
	StartsAt   time.Time `json:"starts_at" validate:"required"`
	EndsAt     time.Time `json:"ends_at" validate:"required,gtfield=StartsAt"`
	PriceCents int64     `json:"price_cents" validate:"gte=0"`
}

func (h *Handler) book(w http.ResponseWriter, r *http.Request) {
	var req bookingRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	appt, err := h.service.Book(r.Context(), requestMeta(r), r.Header.Get("Idempotency-Key"), BookingInput{
		SalonID:    req.SalonID,
		CustomerID: req.CustomerID,
		StaffID:    req.StaffID,
		Service:    req.Service,
		StartsAt:   req.StartsAt,
		EndsAt:     req.EndsAt,
		PriceCents: req.PriceCents,
	})
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, appt)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Cancel)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.service.Complete)
}

func (h *Handler) transition(w http.ResponseWriter, r *http.Request, op func(context.Context, RequestMeta, int64) (Appointment, error)) {
	id, err := strconv.ParseInt(chi.URLParam(r, "appointmentID"), 10, 64)
	if err != nil {
		httpx.RespondError(w, httpx.ErrValidation)
		return
	}
	appt, err := op(r.Context(), requestMeta(r), id)
	if err != nil {
		h.respondErr(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, appt)
}

func (h *Handler) respondErr(w http.ResponseWriter, r *http.Request, err error) {
	if authz.IsDenied(err) {
		h.logger.Warn("appointment request denied",
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
	if errors.Is(err, shared.ErrDuplicate) {
		httpx.RespondError(w, httpx.ErrDuplicate)
		return
	}
	h.logger.Error("appointment request failed",
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
