package paymentmethod

import (
	"testing"
	"time"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/stretchr/testify/assert"
)

func card() *PaymentMethod {
	return &PaymentMethod{
		ID:              "pm_1",
		TenantID:        "tenant_1",
		PaymentType:     types.PaymentTypeCard,
		Token:           "tok_123",
		Status:          types.PaymentMethodStatusActive,
		CardLastFour:    "4242",
		CardBrand:       "Visa",
		CardExpiryMonth: 2,
		CardExpiryYear:  2026,
	}
}

func TestPaymentMethod_Validate(t *testing.T) {
	assert.NoError(t, card().Validate())

	t.Run("full card number rejected", func(t *testing.T) {
		pm := card()
		pm.CardLastFour = "4242424242424242"
		assert.True(t, ierr.IsValidation(pm.Validate()))
	})

	t.Run("missing token", func(t *testing.T) {
		pm := card()
		pm.Token = ""
		assert.True(t, ierr.IsValidation(pm.Validate()))
	})

	t.Run("ach requires account last four", func(t *testing.T) {
		pm := &PaymentMethod{
			TenantID:    "tenant_1",
			PaymentType: types.PaymentTypeACH,
			Token:       "tok_ach",
			Status:      types.PaymentMethodStatusActive,
			AccountType: types.BankAccountTypeChecking,
		}
		assert.True(t, ierr.IsValidation(pm.Validate()))
		pm.AccountLastFour = "6789"
		assert.NoError(t, pm.Validate())
	})
}

func TestPaymentMethod_IsCardExpired(t *testing.T) {
	pm := card()
	assert.False(t, pm.IsCardExpired(time.Date(2026, time.February, 28, 23, 0, 0, 0, time.UTC)))
	assert.True(t, pm.IsCardExpired(time.Date(2026, time.March, 1, 0, 0, 0, 0, time.UTC)))

	pm.CardExpiryMonth = 12
	pm.CardExpiryYear = 2025
	assert.False(t, pm.IsCardExpired(time.Date(2025, time.December, 31, 0, 0, 0, 0, time.UTC)))
	assert.True(t, pm.IsCardExpired(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)))
}

func TestPaymentMethod_DisplayName(t *testing.T) {
	pm := card()
	assert.Equal(t, "Visa ending in 4242", pm.DisplayName())
	assert.Equal(t, "VISA ****4242", pm.Masked())

	pm.Nickname = "Work card"
	assert.Equal(t, "Work card", pm.DisplayName())
	assert.False(t, pm.IsUsable(time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC)))
}
