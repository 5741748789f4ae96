package partner

import (
	"strings"
	"testing"

	"github.com/billing/backend/internal/domain/shared"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCustomer(t *testing.T) {
	t.Run("creates active customer", func(t *testing.T) {
		customer, err := NewCustomer("Acme Corp", "billing@acme.test")

		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", customer.Name)
		assert.Equal(t, "billing@acme.test", customer.Email)
		assert.Equal(t, CustomerStatusActive, customer.Status)
		assert.True(t, customer.IsActive())
		assert.NotEqual(t, "", customer.ID.String())
	})

	t.Run("trims whitespace from name", func(t *testing.T) {
		customer, err := NewCustomer("  Acme Corp  ", "")

		require.NoError(t, err)
		assert.Equal(t, "Acme Corp", customer.Name)
	})

	t.Run("rejects empty name", func(t *testing.T) {
		_, err := NewCustomer("   ", "billing@acme.test")

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CUSTOMER_NAME", domainErr.Code)
	})

	t.Run("rejects overlong name", func(t *testing.T) {
		_, err := NewCustomer(strings.Repeat("a", 201), "")

		require.Error(t, err)
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_CUSTOMER_NAME", domainErr.Code)
	})
}
