// Package list реализует HTTP-обработчик списка платёжных методов владельца.
package list

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

// Handler управляет HTTP-запросами на список платёжных методов.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики списка платёжных методов.
type Service interface {
	ListPaymentMethods(ctx context.Context, owner models.UserID) ([]*stripe.PaymentMethod, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.paymentmethod.list"
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

	methods, err := h.service.ListPaymentMethods(r.Context(), owner)
	if err != nil {
		log.Error("failed to list payment methods", sl.Err(err))
		w.WriteHeader(response.StatusCode(err))
		render.JSON(w, r, response.Error("could not list payment methods"))
		return
	}

	items := make([]map[string]any, 0, len(methods))
	for _, pm := range methods {
		item := map[string]any{
			"payment_method_id": pm.ID,
		}
		if pm.Card != nil {
			item["brand"] = pm.Card.Brand
			item["last4"] = pm.Card.Last4
			item["exp_month"] = pm.Card.ExpMonth
			item["exp_year"] = pm.Card.ExpYear
		}
		items = append(items, item)
	}
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"payment_methods": items,
		"total":           len(items),
	}))
}
