// Package remove реализует HTTP-обработчик отвязки карты владельца.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"

	"github.com/magabrotheeeer/stripe-link/internal/http/middlewarectx"
	"github.com/magabrotheeeer/stripe-link/internal/http/response"
	"github.com/magabrotheeeer/stripe-link/internal/lib/sl"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

// Handler управляет HTTP-запросами на отвязку карты.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики отвязки карты.
type Service interface {
	DeleteCard(ctx context.Context, owner models.UserID, paymentMethodID string) error
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.card.remove"
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

	if err := h.service.DeleteCard(r.Context(), owner, paymentMethodID); err != nil {
		log.Error("failed to remove card", sl.Err(err))
		w.WriteHeader(response.StatusCode(err))
		render.JSON(w, r, response.Error("could not remove card"))
		return
	}

	log.Info("card removed", slog.String("payment_method_id", paymentMethodID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"removed": true,
	}))
}
