// Package find реализует HTTP-обработчик поиска первичной связи владельца.
package find

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/stripe-link/internal/http/middlewarectx"
	"github.com/magabrotheeeer/stripe-link/internal/http/response"
	"github.com/magabrotheeeer/stripe-link/internal/lib/sl"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

// Handler управляет HTTP-запросами на поиск первичной связи.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики поиска связи.
type Service interface {
	FindLink(ctx context.Context, owner models.UserID) (*models.UserLink, bool, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.link.find"
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

	link, found, err := h.service.FindLink(r.Context(), owner)
	if err != nil {
		log.Error("failed to find link", sl.Err(err))
		w.WriteHeader(response.StatusCode(err))
		render.JSON(w, r, response.Error("could not find link"))
		return
	}
	if !found {
		w.WriteHeader(http.StatusNotFound)
		render.JSON(w, r, response.Error("link not found"))
		return
	}

	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"link_id":            link.ID,
		"stripe_customer_id": link.StripeCustomerID,
		"is_primary":         link.IsPrimary,
		"created_at":         link.CreatedAt,
	}))
}
