// Package middlewarectx содержит middleware сервера: извлечение владельца
// из заголовков запроса и ограничение частоты запросов.
package middlewarectx

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/render"

	"github.com/magabrotheeeer/stripe-link/internal/http/response"
	"github.com/magabrotheeeer/stripe-link/internal/lib/sl"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

type contextKey string

// Owner — ключ контекста с идентификатором владельца.
const Owner contextKey = "owner"

// OwnerFromContext возвращает владельца, положенного OwnerMiddleware.
func OwnerFromContext(ctx context.Context) (models.UserID, bool) {
	owner, ok := ctx.Value(Owner).(models.UserID)
	return owner, ok
}

// OwnerMiddleware извлекает идентификатор владельца из заголовков
// X-User-Id и X-User-Id-Kind и кладёт его в контекст запроса.
// Пустой X-User-Id-Kind трактуется как string.
func OwnerMiddleware(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw := r.Header.Get("X-User-Id")
			rawKind := r.Header.Get("X-User-Id-Kind")
			if rawKind == "" {
				rawKind = "string"
			}

			kind, err := models.ParseKind(rawKind)
			if err != nil {
				log.Error("failed to parse owner id kind", sl.Err(err))
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, response.Error("invalid user identification"))
				return
			}
			owner, err := models.ParseUserID(kind, raw)
			if err != nil {
				log.Error("failed to parse owner id", sl.Err(err))
				w.WriteHeader(http.StatusBadRequest)
				render.JSON(w, r, response.Error("invalid user identification"))
				return
			}

			ctx := context.WithValue(r.Context(), Owner, owner)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
