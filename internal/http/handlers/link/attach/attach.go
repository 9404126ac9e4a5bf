// Package attach реализует HTTP-обработчик привязки владельца
// к уже существующему клиенту Stripe.
package attach

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator"

	"github.com/magabrotheeeer/stripe-link/internal/http/middlewarectx"
	"github.com/magabrotheeeer/stripe-link/internal/http/response"
	"github.com/magabrotheeeer/stripe-link/internal/lib/sl"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

// Request — тело запроса на привязку клиента.
type Request struct {
	StripeCustomerID string `json:"stripe_customer_id" validate:"required"`
}

// Handler управляет HTTP-запросами на привязку клиента.
type Handler struct {
	log      *slog.Logger
	service  Service
	validate *validator.Validate
}

// Service описывает интерфейс бизнес-логики привязки клиента.
type Service interface {
	LinkCustomer(ctx context.Context, owner models.UserID, stripeCustomerID string) (*models.UserLink, error)
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
	const op = "handlers.link.attach"
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

	if err := h.validate.Struct(req); err != nil {
		log.Error("validation failed", sl.Err(err))
		w.WriteHeader(http.StatusUnprocessableEntity)
		render.JSON(w, r, response.ValidationError(err.(validator.ValidationErrors)))
		return
	}

	link, err := h.service.LinkCustomer(r.Context(), owner, req.StripeCustomerID)
	if err != nil {
		log.Error("failed to attach customer", sl.Err(err))
		w.WriteHeader(response.StatusCode(err))
		render.JSON(w, r, response.Error("could not attach customer"))
		return
	}

	log.Info("customer attached", slog.String("link_id", link.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"link_id":            link.ID,
		"stripe_customer_id": link.StripeCustomerID,
		"is_primary":         link.IsPrimary,
	}))
}
