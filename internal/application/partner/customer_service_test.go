package partner

import (
	"context"
	"errors"
	"testing"

	"github.com/billing/backend/internal/domain/partner"
	"github.com/billing/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockCustomerRepository is a mock implementation of CustomerRepository
type MockCustomerRepository struct {
	mock.Mock
}

func (m *MockCustomerRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

func (m *MockCustomerRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Customer, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) FindAll(ctx context.Context, filter shared.Filter) ([]partner.Customer, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]partner.Customer), args.Error(1)
}

func (m *MockCustomerRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCustomerRepository) Save(ctx context.Context, customer *partner.Customer) error {
	args := m.Called(ctx, customer)
	return args.Error(0)
}

func (m *MockCustomerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func newCustomerService(repo *MockCustomerRepository) *CustomerService {
	return NewCustomerService(repo, zap.NewNop())
}

func TestCustomerService_Create(t *testing.T) {
	t.Run("creates active customer", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := newCustomerService(repo)

		repo.On("Save", mock.Anything, mock.AnythingOfType("*partner.Customer")).Return(nil)

		customer, err := svc.Create(context.Background(), CreateCustomerRequest{
			Name:    "Acme Corp",
			Email:   "billing@acme.test",
			Phone:   "+1-555-0100",
			Address: "1 Main St",
		})

		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", customer.Name)
		assert.Equal(t, partner.CustomerStatusActive, customer.Status)
		assert.Equal(t, "+1-555-0100", customer.Phone)
		repo.AssertExpectations(t)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := newCustomerService(repo)

		_, err := svc.Create(context.Background(), CreateCustomerRequest{Name: "   "})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CUSTOMER_NAME", domainErr.Code)
		repo.AssertNotCalled(t, "Save")
	})
}

func TestCustomerService_Get(t *testing.T) {
	t.Run("returns not found for missing customer", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := newCustomerService(repo)

		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, nil)

		_, err := svc.Get(context.Background(), id)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CUSTOMER_NOT_FOUND", domainErr.Code)
	})

	t.Run("propagates repository errors", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := newCustomerService(repo)

		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, errors.New("connection refused"))

		_, err := svc.Get(context.Background(), id)
		assert.Error(t, err)
	})
}

func TestCustomerService_Update(t *testing.T) {
	t.Run("applies partial update", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := newCustomerService(repo)

		existing, err := partner.NewCustomer("Acme Corp", "billing@acme.test")
		require.NoError(t, err)

		repo.On("FindByID", mock.Anything, existing.ID).Return(existing, nil)
		repo.On("Save", mock.Anything, existing).Return(nil)

		newName := "Acme Corporation"
		inactive := partner.CustomerStatusInactive
		updated, err := svc.Update(context.Background(), existing.ID, UpdateCustomerRequest{
			Name:   &newName,
			Status: &inactive,
		})

		require.NoError(t, err)
		assert.Equal(t, "Acme Corporation", updated.Name)
		assert.Equal(t, partner.CustomerStatusInactive, updated.Status)
		assert.Equal(t, "billing@acme.test", updated.Email)
		repo.AssertExpectations(t)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := newCustomerService(repo)

		existing, err := partner.NewCustomer("Acme Corp", "")
		require.NoError(t, err)
		repo.On("FindByID", mock.Anything, existing.ID).Return(existing, nil)

		bogus := partner.CustomerStatus("frozen")
		_, err = svc.Update(context.Background(), existing.ID, UpdateCustomerRequest{Status: &bogus})

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_INPUT", domainErr.Code)
	})
}

func TestCustomerService_Delete(t *testing.T) {
	t.Run("deletes existing customer", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := newCustomerService(repo)

		existing, err := partner.NewCustomer("Acme Corp", "")
		require.NoError(t, err)
		repo.On("FindByID", mock.Anything, existing.ID).Return(existing, nil)
		repo.On("Delete", mock.Anything, existing.ID).Return(nil)

		require.NoError(t, svc.Delete(context.Background(), existing.ID))
		repo.AssertExpectations(t)
	})

	t.Run("returns not found for missing customer", func(t *testing.T) {
		repo := new(MockCustomerRepository)
		svc := newCustomerService(repo)

		id := uuid.New()
		repo.On("FindByID", mock.Anything, id).Return(nil, nil)

		err := svc.Delete(context.Background(), id)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "CUSTOMER_NOT_FOUND", domainErr.Code)
	})
}
