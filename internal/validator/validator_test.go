package validator

import (
	"testing"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRequest struct {
	LeaseID    string          `json:"lease_id" validate:"required"`
	PaymentDay int             `json:"payment_day" validate:"min=1,max=31"`
	Amount     decimal.Decimal `json:"amount" validate:"gt=0"`
}

func TestValidateRequest(t *testing.T) {
	ok := &sampleRequest{LeaseID: "lease_1", PaymentDay: 1, Amount: decimal.NewFromInt(10)}
	require.NoError(t, ValidateRequest(ok))

	err := ValidateRequest(&sampleRequest{PaymentDay: 32, Amount: decimal.Zero})
	require.Error(t, err)
	assert.True(t, ierr.IsValidation(err))

	details := ierr.GetReportableDetails(err)
	assert.Equal(t, "is required", details["lease_id"])
	assert.Equal(t, "must be at most 31", details["payment_day"])
	assert.Equal(t, "must be greater than 0", details["amount"])
}
