// Package replace реализует HTTP-обработчик замены карты.
package replace

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

// Request — тело запроса на замену карты.
type Request struct {
	CardToken string `json:"card_token" validate:"required"`
}

// Handler управляет HTTP-запросами на замену карты.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики замены карты.
type Service interface {
	UpdateCard(ctx context.Context, owner models.UserID, oldPaymentMethodID, newCardToken string) (*stripe.PaymentMethod, error)
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
	const op = "handlers.card.replace"
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

	paymentMethodID := chi.URLParam(r, "id")
	if paymentMethodID == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("payment method id is required"))
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

	pm, err := h.service.UpdateCard(r.Context(), owner, paymentMethodID, req.CardToken)
	if err != nil {
		log.Error("failed to replace card", sl.Err(err))
		w.WriteHeader(response.StatusCode(err))
		render.JSON(w, r, response.Error("could not replace card"))
		return
	}

	log.Info("card replaced", slog.String("payment_method_id", pm.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"payment_method_id": pm.ID,
	}))
}
