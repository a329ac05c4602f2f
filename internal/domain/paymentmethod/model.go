package paymentmethod

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
)

var lastFourPattern = regexp.MustCompile(`^[0-9]{4}$`)

// BillingAddress is the address sent to the gateway with each charge.
type BillingAddress struct {
	Line1   string `json:"line1,omitempty"`
	Line2   string `json:"line2,omitempty"`
	City    string `json:"city,omitempty"`
	State   string `json:"state,omitempty"`
	ZipCode string `json:"zip_code,omitempty"`
	Country string `json:"country,omitempty"`
}

// PaymentMethod is a tokenized card or bank account. Only masked fields are
// stored; the gateway token stands in for the instrument.
type PaymentMethod struct {
	ID              string                    `db:"id" json:"id"`
	TenantID        string                    `db:"tenant_id" json:"tenant_id"`
	PaymentType     types.PaymentType         `db:"payment_type" json:"payment_type"`
	GatewayProvider types.GatewayProvider     `db:"gateway_provider" json:"gateway_provider"`
	Token           string                    `db:"token" json:"-"`
	IsDefault       bool                      `db:"is_default" json:"is_default"`
	Status          types.PaymentMethodStatus `db:"status" json:"status"`
	Nickname        string                    `db:"nickname" json:"nickname,omitempty"`
	CardLastFour    string                    `db:"card_last_four" json:"card_last_four,omitempty"`
	CardBrand       string                    `db:"card_brand" json:"card_brand,omitempty"`
	CardExpiryMonth int                       `db:"card_expiry_month" json:"card_expiry_month,omitempty"`
	CardExpiryYear  int                       `db:"card_expiry_year" json:"card_expiry_year,omitempty"`
	AccountLastFour string                    `db:"account_last_four" json:"account_last_four,omitempty"`
	AccountType     types.BankAccountType     `db:"account_type" json:"account_type,omitempty"`
	BankName        string                    `db:"bank_name" json:"bank_name,omitempty"`
	BillingAddress  BillingAddress            `db:"billing_address" json:"billing_address"`
	types.BaseModel
}

func (pm *PaymentMethod) Validate() error {
	if pm.TenantID == "" {
		return ierr.NewError("tenant_id is required").
			WithHint("Payment method must belong to a tenant").
			Mark(ierr.ErrValidation)
	}
	if pm.Token == "" {
		return ierr.NewError("token is required").
			WithHint("Payment method must carry a gateway token").
			Mark(ierr.ErrValidation)
	}
	if err := pm.PaymentType.Validate(); err != nil {
		return err
	}
	if err := pm.Status.Validate(); err != nil {
		return err
	}

	switch pm.PaymentType {
	case types.PaymentTypeCard:
		if !lastFourPattern.MatchString(pm.CardLastFour) {
			return ierr.NewError("card_last_four must be exactly four digits").
				WithHint("Only the last four digits of a card may be stored").
				Mark(ierr.ErrValidation)
		}
		if pm.CardExpiryMonth < 1 || pm.CardExpiryMonth > 12 || pm.CardExpiryYear < 2000 {
			return ierr.NewError("invalid card expiry").
				WithHint("Card expiry month must be 1-12 and year four digits").
				Mark(ierr.ErrValidation)
		}
	case types.PaymentTypeACH:
		if !lastFourPattern.MatchString(pm.AccountLastFour) {
			return ierr.NewError("account_last_four must be exactly four digits").
				WithHint("Only the last four digits of an account may be stored").
				Mark(ierr.ErrValidation)
		}
		if err := pm.AccountType.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// IsCardExpired reports whether a card's expiry month has fully passed.
func (pm *PaymentMethod) IsCardExpired(now time.Time) bool {
	if pm.PaymentType != types.PaymentTypeCard || pm.CardExpiryYear == 0 {
		return false
	}
	// cards are valid through the last day of the expiry month
	y, m := types.AddCalendarMonth(pm.CardExpiryYear, time.Month(pm.CardExpiryMonth))
	firstInvalid := time.Date(y, m, 1, 0, 0, 0, 0, time.UTC)
	return !now.UTC().Before(firstInvalid)
}

// IsUsable reports whether the method can be charged at now.
func (pm *PaymentMethod) IsUsable(now time.Time) bool {
	return pm.Status == types.PaymentMethodStatusActive && !pm.IsCardExpired(now)
}

// DisplayName renders a short human label such as "Visa ending in 4242".
func (pm *PaymentMethod) DisplayName() string {
	if pm.Nickname != "" {
		return pm.Nickname
	}
	if pm.PaymentType == types.PaymentTypeCard {
		brand := pm.CardBrand
		if brand == "" {
			brand = "Card"
		}
		return fmt.Sprintf("%s ending in %s", brand, pm.CardLastFour)
	}
	bank := pm.BankName
	if bank == "" {
		bank = "Bank account"
	}
	return fmt.Sprintf("%s ending in %s", bank, pm.AccountLastFour)
}

// Masked returns the masked instrument string recorded on payments.
func (pm *PaymentMethod) Masked() string {
	if pm.PaymentType == types.PaymentTypeCard {
		return fmt.Sprintf("%s ****%s", strings.ToUpper(pm.CardBrand), pm.CardLastFour)
	}
	return fmt.Sprintf("%s ****%s", strings.ToUpper(string(pm.AccountType)), pm.AccountLastFour)
}
