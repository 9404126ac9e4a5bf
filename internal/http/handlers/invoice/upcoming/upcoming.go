// Package upcoming реализует HTTP-обработчик ближайшего счёта владельца.
package upcoming

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

// Handler управляет HTTP-запросами на ближайший счёт.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики ближайшего счёта.
type Service interface {
	UpcomingInvoice(ctx context.Context, owner models.UserID) (*stripe.Invoice, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.invoice.upcoming"
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

	invoice, err := h.service.UpcomingInvoice(r.Context(), owner)
	if err != nil {
		log.Error("failed to get upcoming invoice", sl.Err(err))
		w.WriteHeader(response.StatusCode(err))
		render.JSON(w, r, response.Error("could not get upcoming invoice"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"amount_due": invoice.AmountDue,
		"currency":   invoice.Currency,
		"due_date":   invoice.DueDate,
	}))
}
