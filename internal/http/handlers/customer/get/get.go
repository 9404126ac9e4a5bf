// Package get реализует HTTP-обработчик получения клиента Stripe владельца.
// Отсутствующая связь создается по пути, ответ всегда содержит клиента.
package get

import (
	"context"
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

// Handler управляет HTTP-запросами на получение клиента Stripe.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики получения клиента.
type Service interface {
	GetOrCreateCustomer(ctx context.Context, owner models.UserID) (*stripe.Customer, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.customer.get"
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

	customer, err := h.service.GetOrCreateCustomer(r.Context(), owner)
	if err != nil {
		log.Error("failed to get customer", sl.Err(err))
		w.WriteHeader(response.StatusCode(err))
		render.JSON(w, r, response.Error("could not get customer"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"stripe_customer_id": customer.ID,
		"name":               customer.Name,
		"description":        customer.Description,
	}))
}
