// Package coupon реализует HTTP-обработчик применения купона к подписке.
package coupon

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"
	stripe "github.com/stripe/stripe-go"

	"github.com/magabrotheeeer/stripe-link/internal/http/middlewarectx"
	"github.com/magabrotheeeer/stripe-link/internal/http/response"
	"github.com/magabrotheeeer/stripe-link/internal/lib/sl"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

// Request — тело запроса на применение купона.
type Request struct {
	CouponCode string `json:"coupon_code" validate:"required"`
}

// Handler управляет HTTP-запросами на применение купона.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики применения купона.
type Service interface {
	ApplyCoupon(ctx context.Context, owner models.UserID, subscriptionID, couponCode string) (*stripe.Subscription, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:      log,
		service:  service,
		validate: validator.New(),
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.subscription.coupon"
	log := h.log.With(
		slog.String("op", op),
		slog.String("request_id", middleware.GetReqID(r.Context())),
	)

	owner, ok := middlewarectx.OwnerFromContext(r.Context())
	if !ok {
		log.Error("owner not found in context")
		w.WriteHeader(http.StatusUnauthorized)
		render.JSON(w, r, response.Error("user identification missing"))
		return
	}

	subscriptionID := chi.URLParam(r, "id")
	if subscriptionID == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("subscription id is required"))
		return
	}

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	subscription, err := h.service.ApplyCoupon(r.Context(), owner, subscriptionID, req.CouponCode)
	if err != nil {
		log.Error("failed to apply coupon", sl.Err(err))
		w.WriteHeader(response.StatusCode(err))
		render.JSON(w, r, response.Error("could not apply coupon"))
		return
	}

	log.Info("coupon applied", slog.String("subscription_id", subscription.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"subscription_id": subscription.ID,
		"status":          subscription.Status,
	}))
}
