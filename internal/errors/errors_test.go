package errors

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkAndClassify(t *testing.T) {
	tests := []struct {
		name     string
		sentinel error
		check    func(error) bool
		status   int
	}{
		{"validation", ErrValidation, IsValidation, http.StatusBadRequest},
		{"not found", ErrNotFound, IsNotFound, http.StatusNotFound},
		{"duplicate period", ErrDuplicatePeriodPayment, IsDuplicatePeriodPayment, http.StatusConflict},
		{"gateway", ErrGateway, IsGateway, http.StatusPaymentRequired},
		{"refund exceeds", ErrRefundExceedsOriginal, IsRefundExceedsOriginal, http.StatusUnprocessableEntity},
		{"run in progress", ErrRunInProgress, IsRunInProgress, http.StatusConflict},
		{"database", ErrDatabase, IsDatabase, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewError("boom").WithHint("hint").Mark(tt.sentinel)
			assert.True(t, tt.check(err))
			assert.Equal(t, tt.status, HTTPStatusFromErr(err))
		})
	}
}

func TestGatewayAndDuplicateAreDistinguishable(t *testing.T) {
	dup := NewError("period already paid").Mark(ErrDuplicatePeriodPayment)
	gw := NewError("card declined").Mark(ErrGateway)

	assert.False(t, IsGateway(dup))
	assert.False(t, IsDuplicatePeriodPayment(gw))
}

func TestWithErrorPreservesHintAndDetails(t *testing.T) {
	base := NewError("declined").
		WithHint("Card was declined").
		WithReportableDetails(map[string]interface{}{"gateway_code": "05"}).
		Mark(ErrGateway)

	wrapped := WithError(fmt.Errorf("settle: %w", base)).
		WithReportableDetails(map[string]interface{}{"payment_id": "rpay_1"}).
		Mark(ErrGateway)

	require.True(t, IsGateway(wrapped))
	details := GetReportableDetails(wrapped)
	assert.Equal(t, "05", details["gateway_code"])
	assert.Equal(t, "rpay_1", details["payment_id"])
	assert.Equal(t, "Card was declined", GetHint(wrapped))
}

func TestNewErrorResponse(t *testing.T) {
	err := NewError("lease not found").WithHint("Lease not found").Mark(ErrNotFound)
	resp := NewErrorResponse(err)
	assert.False(t, resp.Success)
	assert.Equal(t, "Lease not found", resp.Error.Display)
	assert.NotEmpty(t, resp.Error.InternalError)

	internal := NewError("connection reset").Mark(ErrDatabase)
	resp = NewErrorResponse(internal)
	assert.Equal(t, http.StatusText(http.StatusInternalServerError), resp.Error.Display)
	assert.Empty(t, resp.Error.InternalError)
}

func TestWithErrorNil(t *testing.T) {
	err := WithError(nil).Mark(ErrInternal)
	require.Error(t, err)
}
