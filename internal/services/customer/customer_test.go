package customer

import (
	"context"
	"io"
	"log/slog"
	"testing"

	stripe "github.com/stripe/stripe-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/stripe-link/internal/errs"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

type MockLinker struct {
	mock.Mock
}

func (m *MockLinker) GetOrCreateLink(ctx context.Context, owner models.UserID) (*models.UserLink, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserLink), args.Error(1)
}

func (m *MockLinker) FindLink(ctx context.Context, owner models.UserID) (*models.UserLink, bool, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.UserLink), args.Bool(1), args.Error(2)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) GetCustomer(ctx context.Context, id string) (*stripe.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Customer), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func TestService_GetOrCreateCustomer(t *testing.T) {
	owner, err := models.StringID("user-cus")
	require.NoError(t, err)
	link, err := models.NewUserLink(owner, "cus_123")
	require.NoError(t, err)

	linker := new(MockLinker)
	gateway := new(MockGateway)
	linker.On("GetOrCreateLink", mock.Anything, owner).Return(link, nil).Once()
	gateway.On("GetCustomer", mock.Anything, "cus_123").
		Return(&stripe.Customer{ID: "cus_123"}, nil).Once()

	service := New(linker, gateway, newNoopLogger())
	result, err := service.GetOrCreateCustomer(context.Background(), owner)

	require.NoError(t, err)
	assert.Equal(t, "cus_123", result.ID)
	linker.AssertExpectations(t)
	gateway.AssertExpectations(t)
}

func TestService_GetCustomer_NoLink(t *testing.T) {
	owner, err := models.StringID("user-unlinked")
	require.NoError(t, err)

	linker := new(MockLinker)
	gateway := new(MockGateway)
	linker.On("FindLink", mock.Anything, owner).Return(nil, false, nil).Once()

	service := New(linker, gateway, newNoopLogger())
	_, err = service.GetCustomer(context.Background(), owner)

	require.Error(t, err)
	assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	gateway.AssertNotCalled(t, "GetCustomer", mock.Anything, mock.Anything)
}
