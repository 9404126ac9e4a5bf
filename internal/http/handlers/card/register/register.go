// Package register реализует HTTP-обработчик регистрации карты владельца:
// из карточного токена либо из готового платёжного метода.
package register

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	stripe "github.com/stripe/stripe-go"

	"github.com/magabrotheeeer/stripe-link/internal/http/middlewarectx"
	"github.com/magabrotheeeer/stripe-link/internal/http/response"
	"github.com/magabrotheeeer/stripe-link/internal/lib/sl"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

// Request — тело запроса на регистрацию карты. Задаётся ровно одно из
// полей: карточный токен или идентификатор платёжного метода.
type Request struct {
	CardToken       string `json:"card_token,omitempty"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
}

// Handler управляет HTTP-запросами на регистрацию карты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики регистрации карты.
type Service interface {
	RegisterCardToken(ctx context.Context, owner models.UserID, cardToken string) (*stripe.PaymentMethod, error)
	RegisterPaymentMethod(ctx context.Context, owner models.UserID, paymentMethodID string) (*stripe.PaymentMethod, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.card.register"
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

	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		log.Error("failed to decode request", sl.Err(err))
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("invalid request body"))
		return
	}
	if (req.CardToken == "") == (req.PaymentMethodID == "") {
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.Error("exactly one of card_token and payment_method_id is required"))
		return
	}

	var pm *stripe.PaymentMethod
	var err error
	if req.CardToken != "" {
		pm, err = h.service.RegisterCardToken(r.Context(), owner, req.CardToken)
	} else {
		pm, err = h.service.RegisterPaymentMethod(r.Context(), owner, req.PaymentMethodID)
	}
	if err != nil {
		log.Error("failed to register card", sl.Err(err))
		w.WriteHeader(response.StatusCode(err))
		render.JSON(w, r, response.Error("could not register card"))
		return
	}

	log.Info("card registered", slog.String("payment_method_id", pm.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"payment_method_id": pm.ID,
	}))
}
