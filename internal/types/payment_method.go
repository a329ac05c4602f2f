package types

import ierr "github.com/rentpay/rentpay/internal/errors"

type PaymentMethodStatus string

const (
	PaymentMethodStatusActive  PaymentMethodStatus = "active"
	PaymentMethodStatusExpired PaymentMethodStatus = "expired"
	PaymentMethodStatusDeleted PaymentMethodStatus = "deleted"
)

func (s PaymentMethodStatus) Validate() error {
	switch s {
	case PaymentMethodStatusActive, PaymentMethodStatusExpired, PaymentMethodStatusDeleted:
		return nil
	}
	return ierr.NewError("invalid payment method status").
		WithHint("Payment method status must be one of: active, expired, deleted").
		Mark(ierr.ErrValidation)
}

type BankAccountType string

const (
	BankAccountTypeChecking BankAccountType = "checking"
	BankAccountTypeSavings  BankAccountType = "savings"
)

func (t BankAccountType) Validate() error {
	switch t {
	case "", BankAccountTypeChecking, BankAccountTypeSavings:
		return nil
	}
	return ierr.NewError("invalid account type").
		WithHint("Account type must be one of: checking, savings").
		Mark(ierr.ErrValidation)
}
