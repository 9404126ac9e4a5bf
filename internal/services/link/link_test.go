package link

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"

	stripe "github.com/stripe/stripe-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/magabrotheeeer/stripe-link/internal/errs"
	"github.com/magabrotheeeer/stripe-link/internal/events"
	"github.com/magabrotheeeer/stripe-link/internal/models"
)

type MockRepository struct {
	mock.Mock
}

func (m *MockRepository) FindPrimaryLinkByOwner(ctx context.Context, owner models.UserID) (*models.UserLink, bool, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.UserLink), args.Bool(1), args.Error(2)
}

func (m *MockRepository) ListLinksByOwner(ctx context.Context, owner models.UserID) ([]*models.UserLink, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.UserLink), args.Error(1)
}

func (m *MockRepository) FindLinkByID(ctx context.Context, id string) (*models.UserLink, bool, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*models.UserLink), args.Bool(1), args.Error(2)
}

func (m *MockRepository) InsertLink(ctx context.Context, link *models.UserLink) error {
	args := m.Called(ctx, link)
	return args.Error(0)
}

func (m *MockRepository) UpdateLink(ctx context.Context, link *models.UserLink) (int, error) {
	args := m.Called(ctx, link)
	return args.Int(0), args.Error(1)
}

func (m *MockRepository) SoftDeleteLink(ctx context.Context, link *models.UserLink) (int, error) {
	args := m.Called(ctx, link)
	return args.Int(0), args.Error(1)
}

type MockGateway struct {
	mock.Mock
}

func (m *MockGateway) CreateCustomer(ctx context.Context, name, description string) (*stripe.Customer, error) {
	args := m.Called(ctx, name, description)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*stripe.Customer), args.Error(1)
}

func (m *MockGateway) DeleteCustomer(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newNoopLogger() *slog.Logger {
	h := slog.NewTextHandler(io.Discard, &slog.HandlerOptions{})
	return slog.New(h)
}

func mustOwner(t *testing.T, raw string) models.UserID {
	t.Helper()
	owner, err := models.StringID(raw)
	require.NoError(t, err)
	return owner
}

func existingLink(t *testing.T, owner models.UserID, customerID string) *models.UserLink {
	t.Helper()
	link, err := models.NewUserLink(owner, customerID)
	require.NoError(t, err)
	return link
}

func TestService_GetOrCreateLink(t *testing.T) {
	owner := mustOwner(t, "user-42")

	tests := []struct {
		name             string
		owner            models.UserID
		setupMocks       func(*MockRepository, *MockGateway)
		expectedCustomer string
		expectedError    error
	}{
		{
			name:  "link exists - no stripe calls",
			owner: owner,
			setupMocks: func(r *MockRepository, _ *MockGateway) {
				r.On("FindPrimaryLinkByOwner", mock.Anything, owner).
					Return(existingLink(t, owner, "cus_existing"), true, nil).Once()
			},
			expectedCustomer: "cus_existing",
		},
		{
			name:  "link missing - customer created and link stored",
			owner: owner,
			setupMocks: func(r *MockRepository, g *MockGateway) {
				r.On("FindPrimaryLinkByOwner", mock.Anything, owner).
					Return(nil, false, nil).Twice()
				g.On("CreateCustomer", mock.Anything, "user-42", mock.Anything).
					Return(&stripe.Customer{ID: "cus_new"}, nil).Once()
				r.On("InsertLink", mock.Anything, mock.MatchedBy(func(l *models.UserLink) bool {
					return l.StripeCustomerID == "cus_new" && l.IsPrimary && !l.Deleted
				})).Return(nil).Once()
			},
			expectedCustomer: "cus_new",
		},
		{
			name:  "insert loses race - converges to winner",
			owner: owner,
			setupMocks: func(r *MockRepository, g *MockGateway) {
				r.On("FindPrimaryLinkByOwner", mock.Anything, owner).
					Return(nil, false, nil).Twice()
				g.On("CreateCustomer", mock.Anything, "user-42", mock.Anything).
					Return(&stripe.Customer{ID: "cus_loser"}, nil).Once()
				r.On("InsertLink", mock.Anything, mock.Anything).
					Return(errs.ErrConstraintViolation).Once()
				g.On("DeleteCustomer", mock.Anything, "cus_loser").Return(nil).Once()
				r.On("FindPrimaryLinkByOwner", mock.Anything, owner).
					Return(existingLink(t, owner, "cus_winner"), true, nil).Once()
			},
			expectedCustomer: "cus_winner",
		},
		{
			name:  "insert fails - customer compensated",
			owner: owner,
			setupMocks: func(r *MockRepository, g *MockGateway) {
				r.On("FindPrimaryLinkByOwner", mock.Anything, owner).
					Return(nil, false, nil).Twice()
				g.On("CreateCustomer", mock.Anything, "user-42", mock.Anything).
					Return(&stripe.Customer{ID: "cus_orphan"}, nil).Once()
				r.On("InsertLink", mock.Anything, mock.Anything).
					Return(errs.ErrStorage).Once()
				g.On("DeleteCustomer", mock.Anything, "cus_orphan").Return(nil).Once()
			},
			expectedError: errs.ErrStorage,
		},
		{
			name:          "zero owner rejected",
			owner:         models.UserID{},
			setupMocks:    func(*MockRepository, *MockGateway) {},
			expectedError: errs.ErrInvalidArgument,
		},
		{
			name:  "stripe failure propagated",
			owner: owner,
			setupMocks: func(r *MockRepository, g *MockGateway) {
				r.On("FindPrimaryLinkByOwner", mock.Anything, owner).
					Return(nil, false, nil).Twice()
				g.On("CreateCustomer", mock.Anything, "user-42", mock.Anything).
					Return(nil, errs.ErrExternalAPI).Once()
			},
			expectedError: errs.ErrExternalAPI,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			gateway := new(MockGateway)
			tt.setupMocks(repo, gateway)

			service := New(repo, gateway, nil, events.NopPublisher{}, newNoopLogger())
			result, err := service.GetOrCreateLink(context.Background(), tt.owner)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expectedCustomer, result.StripeCustomerID)
			}
			repo.AssertExpectations(t)
			gateway.AssertExpectations(t)
		})
	}
}

func TestService_GetOrCreateLink_Idempotent(t *testing.T) {
	owner := mustOwner(t, "user-repeat")
	stored := existingLink(t, owner, "cus_once")

	repo := new(MockRepository)
	gateway := new(MockGateway)
	repo.On("FindPrimaryLinkByOwner", mock.Anything, owner).
		Return(stored, true, nil).Times(3)

	service := New(repo, gateway, nil, events.NopPublisher{}, newNoopLogger())
	for range 3 {
		result, err := service.GetOrCreateLink(context.Background(), owner)
		require.NoError(t, err)
		assert.Equal(t, stored.ID, result.ID)
	}

	gateway.AssertNotCalled(t, "CreateCustomer", mock.Anything, mock.Anything, mock.Anything)
	repo.AssertExpectations(t)
}

func TestService_LinkCustomer_DemotesOldPrimary(t *testing.T) {
	owner := mustOwner(t, "user-move")
	old := existingLink(t, owner, "cus_old")

	repo := new(MockRepository)
	repo.On("FindPrimaryLinkByOwner", mock.Anything, owner).Return(old, true, nil).Once()
	repo.On("UpdateLink", mock.Anything, mock.MatchedBy(func(l *models.UserLink) bool {
		return l.ID == old.ID && !l.IsPrimary
	})).Return(1, nil).Once()
	repo.On("InsertLink", mock.Anything, mock.MatchedBy(func(l *models.UserLink) bool {
		return l.StripeCustomerID == "cus_new" && l.IsPrimary
	})).Return(nil).Once()

	service := New(repo, new(MockGateway), nil, events.NopPublisher{}, newNoopLogger())
	result, err := service.LinkCustomer(context.Background(), owner, "cus_new")

	require.NoError(t, err)
	assert.Equal(t, "cus_new", result.StripeCustomerID)
	repo.AssertExpectations(t)
}

func TestService_LinkCustomer_SameCustomerReused(t *testing.T) {
	owner := mustOwner(t, "user-same")
	current := existingLink(t, owner, "cus_same")

	repo := new(MockRepository)
	repo.On("FindPrimaryLinkByOwner", mock.Anything, owner).Return(current, true, nil).Once()

	var published []events.LinkEvent
	publisher := publisherFunc(func(_ context.Context, event events.LinkEvent) error {
		published = append(published, event)
		return nil
	})

	service := New(repo, new(MockGateway), nil, publisher, newNoopLogger())
	result, err := service.LinkCustomer(context.Background(), owner, "cus_same")

	require.NoError(t, err)
	assert.Equal(t, current.ID, result.ID)
	repo.AssertNotCalled(t, "InsertLink", mock.Anything, mock.Anything)

	require.Len(t, published, 1)
	assert.Equal(t, "link.customer_reuse", published[0].Action)
}

func TestService_Unlink(t *testing.T) {
	owner := mustOwner(t, "user-del")

	t.Run("existing link soft deleted", func(t *testing.T) {
		current := existingLink(t, owner, "cus_del")
		repo := new(MockRepository)
		repo.On("FindPrimaryLinkByOwner", mock.Anything, owner).Return(current, true, nil).Once()
		repo.On("SoftDeleteLink", mock.Anything, current).Return(1, nil).Once()

		service := New(repo, new(MockGateway), nil, events.NopPublisher{}, newNoopLogger())
		found, err := service.Unlink(context.Background(), owner)

		require.NoError(t, err)
		assert.True(t, found)
		repo.AssertExpectations(t)
	})

	t.Run("absent link is not an error", func(t *testing.T) {
		repo := new(MockRepository)
		repo.On("FindPrimaryLinkByOwner", mock.Anything, owner).Return(nil, false, nil).Once()

		service := New(repo, new(MockGateway), nil, events.NopPublisher{}, newNoopLogger())
		found, err := service.Unlink(context.Background(), owner)

		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestService_VerifyOwnership(t *testing.T) {
	owner := mustOwner(t, "user-own")
	stranger := mustOwner(t, "user-other")
	current := existingLink(t, owner, "cus_own")

	tests := []struct {
		name          string
		caller        models.UserID
		setupMocks    func(*MockRepository)
		expectedError error
	}{
		{
			name:   "owner matches",
			caller: owner,
			setupMocks: func(r *MockRepository) {
				r.On("FindLinkByID", mock.Anything, current.ID).Return(current, true, nil).Once()
			},
		},
		{
			name:   "foreign link rejected",
			caller: stranger,
			setupMocks: func(r *MockRepository) {
				r.On("FindLinkByID", mock.Anything, current.ID).Return(current, true, nil).Once()
			},
			expectedError: errs.ErrInvariantViolation,
		},
		{
			name:   "missing link rejected",
			caller: owner,
			setupMocks: func(r *MockRepository) {
				r.On("FindLinkByID", mock.Anything, current.ID).Return(nil, false, nil).Once()
			},
			expectedError: errs.ErrInvariantViolation,
		},
		{
			name:   "deleted link treated as missing",
			caller: owner,
			setupMocks: func(r *MockRepository) {
				deleted := *current
				deleted.Deleted = true
				r.On("FindLinkByID", mock.Anything, current.ID).Return(&deleted, true, nil).Once()
			},
			expectedError: errs.ErrInvariantViolation,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(MockRepository)
			tt.setupMocks(repo)

			service := New(repo, new(MockGateway), nil, events.NopPublisher{}, newNoopLogger())
			result, err := service.VerifyOwnership(context.Background(), tt.caller, current.ID)

			if tt.expectedError != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, tt.expectedError)
			} else {
				require.NoError(t, err)
				assert.Equal(t, current.ID, result.ID)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestService_GetOrCreateLink_PublishesEvent(t *testing.T) {
	owner := mustOwner(t, "user-evt")

	repo := new(MockRepository)
	gateway := new(MockGateway)
	repo.On("FindPrimaryLinkByOwner", mock.Anything, owner).Return(nil, false, nil).Twice()
	gateway.On("CreateCustomer", mock.Anything, "user-evt", mock.Anything).
		Return(&stripe.Customer{ID: "cus_evt"}, nil).Once()
	repo.On("InsertLink", mock.Anything, mock.Anything).Return(nil).Once()

	var published []events.LinkEvent
	publisher := publisherFunc(func(_ context.Context, event events.LinkEvent) error {
		published = append(published, event)
		return nil
	})

	service := New(repo, gateway, nil, publisher, newNoopLogger())
	_, err := service.GetOrCreateLink(context.Background(), owner)

	require.NoError(t, err)
	require.Len(t, published, 1)
	assert.Equal(t, events.ActionLinkCreated, published[0].Action)
	assert.Equal(t, "cus_evt", published[0].StripeCustomerID)
}

type publisherFunc func(ctx context.Context, event events.LinkEvent) error

func (f publisherFunc) PublishLinkEvent(ctx context.Context, event events.LinkEvent) error {
	return f(ctx, event)
}

// memoryRepository — потокобезопасное хранилище связей для конкурентных тестов.
// Уникальный индекс "одна активная первичная связь на владельца" воспроизводится
// проверкой под мьютексом.
type memoryRepository struct {
	mu    sync.Mutex
	links []*models.UserLink
}

func (r *memoryRepository) FindPrimaryLinkByOwner(_ context.Context, owner models.UserID) (*models.UserLink, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.OwnerID.Equal(owner) && l.IsPrimary && !l.Deleted {
			return l, true, nil
		}
	}
	return nil, false, nil
}

func (r *memoryRepository) ListLinksByOwner(_ context.Context, owner models.UserID) ([]*models.UserLink, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []*models.UserLink
	for _, l := range r.links {
		if l.OwnerID.Equal(owner) && !l.Deleted {
			result = append(result, l)
		}
	}
	return result, nil
}

func (r *memoryRepository) FindLinkByID(_ context.Context, id string) (*models.UserLink, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.ID == id {
			return l, true, nil
		}
	}
	return nil, false, nil
}

func (r *memoryRepository) InsertLink(_ context.Context, link *models.UserLink) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if link.IsPrimary {
		for _, l := range r.links {
			if l.OwnerID.Equal(link.OwnerID) && l.IsPrimary && !l.Deleted {
				return fmt.Errorf("%w: duplicate primary link", errs.ErrConstraintViolation)
			}
		}
	}
	r.links = append(r.links, link)
	return nil
}

func (r *memoryRepository) UpdateLink(_ context.Context, link *models.UserLink) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, l := range r.links {
		if l.ID == link.ID {
			r.links[i] = link
			return 1, nil
		}
	}
	return 0, nil
}

func (r *memoryRepository) SoftDeleteLink(_ context.Context, link *models.UserLink) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.links {
		if l.ID == link.ID {
			l.Deleted = true
			return 1, nil
		}
	}
	return 0, nil
}

func (r *memoryRepository) rows() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.links)
}

// countingGateway считает обращения к Stripe.
type countingGateway struct {
	created atomic.Int64
	deleted atomic.Int64
}

func (g *countingGateway) CreateCustomer(_ context.Context, _, _ string) (*stripe.Customer, error) {
	n := g.created.Add(1)
	return &stripe.Customer{ID: fmt.Sprintf("cus_conc_%d", n)}, nil
}

func (g *countingGateway) DeleteCustomer(_ context.Context, _ string) error {
	g.deleted.Add(1)
	return nil
}

func TestService_GetOrCreateLink_Concurrent(t *testing.T) {
	owner := mustOwner(t, "user-conc")
	repo := &memoryRepository{}
	gateway := &countingGateway{}
	service := New(repo, gateway, nil, events.NopPublisher{}, newNoopLogger())

	const callers = 32
	results := make([]*models.UserLink, callers)
	errsOut := make([]error, callers)

	var wg sync.WaitGroup
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], errsOut[i] = service.GetOrCreateLink(context.Background(), owner)
		}()
	}
	wg.Wait()

	for i := range callers {
		require.NoError(t, errsOut[i])
		require.NotNil(t, results[i])
		assert.Equal(t, results[0].StripeCustomerID, results[i].StripeCustomerID)
		assert.True(t, results[i].IsPrimary)
	}

	assert.Equal(t, int64(1), gateway.created.Load())
	assert.Equal(t, int64(0), gateway.deleted.Load())
	assert.Equal(t, 1, repo.rows())
}

func TestService_GetOrCreateLink_EventFailureIgnored(t *testing.T) {
	owner := mustOwner(t, "user-evt-fail")

	repo := new(MockRepository)
	gateway := new(MockGateway)
	repo.On("FindPrimaryLinkByOwner", mock.Anything, owner).Return(nil, false, nil).Twice()
	gateway.On("CreateCustomer", mock.Anything, "user-evt-fail", mock.Anything).
		Return(&stripe.Customer{ID: "cus_evt_fail"}, nil).Once()
	repo.On("InsertLink", mock.Anything, mock.Anything).Return(nil).Once()

	publisher := publisherFunc(func(context.Context, events.LinkEvent) error {
		return errors.New("broker is down")
	})

	service := New(repo, gateway, nil, publisher, newNoopLogger())
	result, err := service.GetOrCreateLink(context.Background(), owner)

	require.NoError(t, err)
	assert.Equal(t, "cus_evt_fail", result.StripeCustomerID)
}
