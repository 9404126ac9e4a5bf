package subscription

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

func (m *MockGateway) CreateSubscription(ctx context.Context, customerID, planID, paymentMethodID string, quantity int64) (*stripe.Subscription, error) {
	args := m.Called(ctx, customerID, planID, paymentMethodID, quantity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Subscription), args.Error(1)
}

func (m *MockGateway) GetSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Subscription), args.Error(1)
}

func (m *MockGateway) AttachPaymentMethod(ctx context.Context, id, customerID string) (*stripe.PaymentMethod, error) {
	args := m.Called(ctx, id, customerID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.PaymentMethod), args.Error(1)
}

func (m *MockGateway) UpdateSubscriptionPaymentMethod(ctx context.Context, id, paymentMethodID string) (*stripe.Subscription, error) {
	args := m.Called(ctx, id, paymentMethodID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Subscription), args.Error(1)
}

func (m *MockGateway) ApplySubscriptionCoupon(ctx context.Context, id, couponCode string) (*stripe.Subscription, error) {
	args := m.Called(ctx, id, couponCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Subscription), args.Error(1)
}

func (m *MockGateway) CancelSubscription(ctx context.Context, id string, atPeriodEnd bool) (*stripe.Subscription, error) {
	args := m.Called(ctx, id, atPeriodEnd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Subscription), args.Error(1)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func testLink(t *testing.T, raw, customerID string) (*models.UserLink, models.UserID) {
	t.Helper()
	owner, err := models.StringID(raw)
	require.NoError(t, err)
	link, err := models.NewUserLink(owner, customerID)
	require.NoError(t, err)
	return link, owner
}

func TestService_CreateSubscription(t *testing.T) {
	link, owner := testLink(t, "user-sub", "cus_sub")

	tests := []struct {
		name          string
		planID        string
		quantity      int64
		setupMocks    func(*MockLinker, *MockGateway)
		expectedError error
	}{
		{
			name:     "subscription created",
			planID:   "plan_basic",
			quantity: 1,
			setupMocks: func(l *MockLinker, g *MockGateway) {
				l.On("GetOrCreateLink", mock.Anything, owner).Return(link, nil).Once()
				g.On("CreateSubscription", mock.Anything, "cus_sub", "plan_basic", "pm_1", int64(1)).
					Return(&stripe.Subscription{ID: "sub_1"}, nil).Once()
			},
		},
		{
			name:          "empty plan rejected",
			planID:        "",
			quantity:      1,
			setupMocks:    func(*MockLinker, *MockGateway) {},
			expectedError: errs.ErrInvalidArgument,
		},
		{
			name:          "non-positive quantity rejected",
			planID:        "plan_basic",
			quantity:      0,
			setupMocks:    func(*MockLinker, *MockGateway) {},
			expectedError: errs.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			linker := new(MockLinker)
			gateway := new(MockGateway)
			tt.setupMocks(linker, gateway)

			service := New(linker, gateway, newNoopLogger())
			result, err := service.CreateSubscription(context.Background(), owner, tt.planID, "pm_1", tt.quantity)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, "sub_1", result.ID)
			}
			linker.AssertExpectations(t)
			gateway.AssertExpectations(t)
		})
	}
}

func TestService_CancelSubscription(t *testing.T) {
	link, owner := testLink(t, "user-cancel", "cus_mine")

	tests := []struct {
		name          string
		setupMocks    func(*MockLinker, *MockGateway)
		expectedError error
	}{
		{
			name: "own subscription cancelled",
			setupMocks: func(l *MockLinker, g *MockGateway) {
				l.On("FindLink", mock.Anything, owner).Return(link, true, nil).Once()
				g.On("GetSubscription", mock.Anything, "sub_1").
					Return(&stripe.Subscription{ID: "sub_1", Customer: &stripe.Customer{ID: "cus_mine"}}, nil).Once()
				g.On("CancelSubscription", mock.Anything, "sub_1", true).
					Return(&stripe.Subscription{ID: "sub_1", CancelAtPeriodEnd: true}, nil).Once()
			},
		},
		{
			name: "foreign subscription rejected",
			setupMocks: func(l *MockLinker, g *MockGateway) {
				l.On("FindLink", mock.Anything, owner).Return(link, true, nil).Once()
				g.On("GetSubscription", mock.Anything, "sub_1").
					Return(&stripe.Subscription{ID: "sub_1", Customer: &stripe.Customer{ID: "cus_other"}}, nil).Once()
			},
			expectedError: errs.ErrInvariantViolation,
		},
		{
			name: "owner without link rejected",
			setupMocks: func(l *MockLinker, g *MockGateway) {
				l.On("FindLink", mock.Anything, owner).Return(nil, false, nil).Once()
			},
			expectedError: errs.ErrInvalidArgument,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			linker := new(MockLinker)
			gateway := new(MockGateway)
			tt.setupMocks(linker, gateway)

			service := New(linker, gateway, newNoopLogger())
			result, err := service.CancelSubscription(context.Background(), owner, "sub_1", true)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
				gateway.AssertNotCalled(t, "CancelSubscription", mock.Anything, mock.Anything, mock.Anything)
			} else {
				require.NoError(t, err)
				assert.True(t, result.CancelAtPeriodEnd)
			}
			linker.AssertExpectations(t)
			gateway.AssertExpectations(t)
		})
	}
}

func TestService_UpdateSubscriptionPaymentMethod(t *testing.T) {
	link, owner := testLink(t, "user-upd", "cus_mine")

	t.Run("payment method attached and set as default", func(t *testing.T) {
		linker := new(MockLinker)
		gateway := new(MockGateway)
		linker.On("FindLink", mock.Anything, owner).Return(link, true, nil).Once()
		gateway.On("GetSubscription", mock.Anything, "sub_1").
			Return(&stripe.Subscription{ID: "sub_1", Customer: &stripe.Customer{ID: "cus_mine"}}, nil).Once()
		gateway.On("AttachPaymentMethod", mock.Anything, "pm_new", "cus_mine").
			Return(&stripe.PaymentMethod{ID: "pm_new"}, nil).Once()
		gateway.On("UpdateSubscriptionPaymentMethod", mock.Anything, "sub_1", "pm_new").
			Return(&stripe.Subscription{ID: "sub_1"}, nil).Once()

		service := New(linker, gateway, newNoopLogger())
		result, err := service.UpdateSubscriptionPaymentMethod(context.Background(), owner, "sub_1", "pm_new")

		require.NoError(t, err)
		assert.Equal(t, "sub_1", result.ID)
		linker.AssertExpectations(t)
		gateway.AssertExpectations(t)
	})

	t.Run("foreign subscription rejected", func(t *testing.T) {
		linker := new(MockLinker)
		gateway := new(MockGateway)
		linker.On("FindLink", mock.Anything, owner).Return(link, true, nil).Once()
		gateway.On("GetSubscription", mock.Anything, "sub_1").
			Return(&stripe.Subscription{ID: "sub_1", Customer: &stripe.Customer{ID: "cus_other"}}, nil).Once()

		service := New(linker, gateway, newNoopLogger())
		_, err := service.UpdateSubscriptionPaymentMethod(context.Background(), owner, "sub_1", "pm_new")

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrInvariantViolation)
		gateway.AssertNotCalled(t, "AttachPaymentMethod", mock.Anything, mock.Anything, mock.Anything)
		gateway.AssertNotCalled(t, "UpdateSubscriptionPaymentMethod", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty payment method id rejected", func(t *testing.T) {
		service := New(new(MockLinker), new(MockGateway), newNoopLogger())
		_, err := service.UpdateSubscriptionPaymentMethod(context.Background(), owner, "sub_1", "")

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}

func TestService_ApplyCoupon(t *testing.T) {
	link, owner := testLink(t, "user-coupon", "cus_mine")

	t.Run("coupon applied", func(t *testing.T) {
		linker := new(MockLinker)
		gateway := new(MockGateway)
		linker.On("FindLink", mock.Anything, owner).Return(link, true, nil).Once()
		gateway.On("GetSubscription", mock.Anything, "sub_1").
			Return(&stripe.Subscription{ID: "sub_1", Customer: &stripe.Customer{ID: "cus_mine"}}, nil).Once()
		gateway.On("ApplySubscriptionCoupon", mock.Anything, "sub_1", "SAVE10").
			Return(&stripe.Subscription{ID: "sub_1"}, nil).Once()

		service := New(linker, gateway, newNoopLogger())
		result, err := service.ApplyCoupon(context.Background(), owner, "sub_1", "SAVE10")

		require.NoError(t, err)
		assert.Equal(t, "sub_1", result.ID)
		linker.AssertExpectations(t)
		gateway.AssertExpectations(t)
	})

	t.Run("foreign subscription rejected", func(t *testing.T) {
		linker := new(MockLinker)
		gateway := new(MockGateway)
		linker.On("FindLink", mock.Anything, owner).Return(link, true, nil).Once()
		gateway.On("GetSubscription", mock.Anything, "sub_1").
			Return(&stripe.Subscription{ID: "sub_1", Customer: &stripe.Customer{ID: "cus_other"}}, nil).Once()

		service := New(linker, gateway, newNoopLogger())
		_, err := service.ApplyCoupon(context.Background(), owner, "sub_1", "SAVE10")

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrInvariantViolation)
		gateway.AssertNotCalled(t, "ApplySubscriptionCoupon", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("empty coupon code rejected", func(t *testing.T) {
		service := New(new(MockLinker), new(MockGateway), newNoopLogger())
		_, err := service.ApplyCoupon(context.Background(), owner, "sub_1", "")

		require.Error(t, err)
		assert.ErrorIs(t, err, errs.ErrInvalidArgument)
	})
}
