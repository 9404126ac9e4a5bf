package create

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/stripe-link/internal/errs"
	"github.com/magabrotheeeer/stripe-link/internal/http/middlewarectx"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

type ServiceMock struct {
	mock.Mock
}

func (m *ServiceMock) GetOrCreateLink(ctx context.Context, owner models.UserID) (*models.UserLink, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserLink), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestCreateHandler_ServeHTTP(t *testing.T) {
	owner, err := models.StringID("user-1")
	require.NoError(t, err)
	link, err := models.NewUserLink(owner, "cus_1")
	require.NoError(t, err)

	tests := []struct {
		name           string
		withOwner      bool
		mockLink       *models.UserLink
		mockErr        error
		wantStatusCode int
		wantStatus     string
	}{
		{
			name:           "link resolved",
			withOwner:      true,
			mockLink:       link,
			wantStatusCode: http.StatusOK,
			wantStatus:     "OK",
		},
		{
			name:           "owner missing in context",
			withOwner:      false,
			wantStatusCode: http.StatusUnauthorized,
			wantStatus:     "Error",
		},
		{
			name:           "storage failure",
			withOwner:      true,
			mockErr:        errs.ErrStorage,
			wantStatusCode: http.StatusInternalServerError,
			wantStatus:     "Error",
		},
		{
			name:           "stripe failure maps to bad gateway",
			withOwner:      true,
			mockErr:        errs.ErrExternalAPI,
			wantStatusCode: http.StatusBadGateway,
			wantStatus:     "Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			serviceMock := new(ServiceMock)
			if tt.withOwner {
				serviceMock.On("GetOrCreateLink", mock.Anything, owner).
					Return(tt.mockLink, tt.mockErr).Maybe()
			}
			handler := New(newNoopLogger(), serviceMock)

			req := httptest.NewRequest(http.MethodPost, "/links", nil)
			if tt.withOwner {
				req = req.WithContext(context.WithValue(req.Context(), middlewarectx.Owner, owner))
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatusCode, rec.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body["status"])
			if tt.wantStatusCode == http.StatusOK {
				data := body["data"].(map[string]any)
				assert.Equal(t, link.ID, data["link_id"])
				assert.Equal(t, "cus_1", data["stripe_customer_id"])
			}
		})
	}
}
