package dto

import (
	"context"
	"strings"

	"github.com/rentpay/rentpay/internal/domain/paymentmethod"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/rentpay/rentpay/internal/validator"
)

// CreatePaymentMethodRequest registers an instrument the client already
// tokenized with the gateway. Raw card or account numbers never reach us.
type CreatePaymentMethodRequest struct {
	TenantID        string                       `json:"-"`
	PaymentType     types.PaymentType            `json:"payment_type" validate:"required,oneof=card ach"`
	GatewayProvider types.GatewayProvider        `json:"gateway_provider,omitempty" validate:"omitempty,oneof=cybersource stripe"`
	Token           string                       `json:"token" validate:"required"`
	Nickname        string                       `json:"nickname,omitempty" validate:"max=100"`
	IsDefault       bool                         `json:"is_default"`
	CardLastFour    string                       `json:"card_last_four,omitempty"`
	CardBrand       string                       `json:"card_brand,omitempty"`
	CardExpiryMonth int                          `json:"card_expiry_month,omitempty"`
	CardExpiryYear  int                          `json:"card_expiry_year,omitempty"`
	AccountLastFour string                       `json:"account_last_four,omitempty"`
	AccountType     types.BankAccountType        `json:"account_type,omitempty"`
	BankName        string                       `json:"bank_name,omitempty"`
	BillingAddress  paymentmethod.BillingAddress `json:"billing_address"`
}

func (r *CreatePaymentMethodRequest) Validate() error {
	return validator.ValidateRequest(r)
}

// ToPaymentMethod builds an active method; the domain Validate enforces the
// per-type field rules.
func (r *CreatePaymentMethodRequest) ToPaymentMethod(ctx context.Context, defaultProvider types.GatewayProvider) *paymentmethod.PaymentMethod {
	provider := r.GatewayProvider
	if provider == "" {
		provider = defaultProvider
	}
	return &paymentmethod.PaymentMethod{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PAYMENT_METHOD),
		TenantID:        r.TenantID,
		PaymentType:     r.PaymentType,
		GatewayProvider: provider,
		Token:           r.Token,
		IsDefault:       r.IsDefault,
		Status:          types.PaymentMethodStatusActive,
		Nickname:        strings.TrimSpace(r.Nickname),
		CardLastFour:    r.CardLastFour,
		CardBrand:       r.CardBrand,
		CardExpiryMonth: r.CardExpiryMonth,
		CardExpiryYear:  r.CardExpiryYear,
		AccountLastFour: r.AccountLastFour,
		AccountType:     r.AccountType,
		BankName:        r.BankName,
		BillingAddress:  r.BillingAddress,
		BaseModel:       types.GetDefaultBaseModel(ctx),
	}
}

type UpdatePaymentMethodRequest struct {
	Nickname       *string                       `json:"nickname,omitempty" validate:"omitempty,max=100"`
	IsDefault      *bool                         `json:"is_default,omitempty"`
	BillingAddress *paymentmethod.BillingAddress `json:"billing_address,omitempty"`
}

func (r *UpdatePaymentMethodRequest) Validate() error {
	return validator.ValidateRequest(r)
}
