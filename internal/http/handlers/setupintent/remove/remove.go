// Package remove реализует HTTP-обработчик отмены SetupIntent.
package remove

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-chi/render"
	stripe "github.com/stripe/stripe-go"

	"github.com/magabrotheeeer/stripe-link/internal/http/middlewarectx"
	"github.com/magabrotheeeer/stripe-link/internal/http/response"
	"github.com/magabrotheeeer/stripe-link/internal/lib/sl"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

// Handler управляет HTTP-запросами на отмену SetupIntent.
type Handler struct {
	log     *slog.Logger
	service Service
}

// Service описывает интерфейс бизнес-логики отмены SetupIntent.
type Service interface {
	DeleteSetupIntent(ctx context.Context, owner models.UserID, intentID string) (*stripe.SetupIntent, error)
}

// New создает новый Handler с переданными логгером и сервисом.
func New(log *slog.Logger, service Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	const op = "handlers.setupintent.remove"
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

	intentID := chi.URLParam(r, "id")
	if intentID == "" {
		w.WriteHeader(http.StatusBadRequest)
		render.JSON(w, r, response.Error("setup intent id is required"))
		return
	}

	intent, err := h.service.DeleteSetupIntent(r.Context(), owner, intentID)
	if err != nil {
		log.Error("failed to cancel setup intent", sl.Err(err))
		w.WriteHeader(response.StatusCode(err))
		render.JSON(w, r, response.Error("could not cancel setup intent"))
		return
	}

	log.Info("setup intent cancelled", slog.String("setup_intent_id", intent.ID))
	render.JSON(w, r, response.StatusOKWithData(map[string]any{
		"setup_intent_id": intent.ID,
		"status":          intent.Status,
	}))
}
