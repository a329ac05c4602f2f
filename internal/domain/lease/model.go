package lease

import (
	"time"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/shopspring/decimal"
)

const DefaultGracePeriodDays = 5

// Lease binds one tenant to one unit for a date range.
type Lease struct {
	ID              string            `db:"id" json:"id"`
	UnitID          string            `db:"unit_id" json:"unit_id"`
	PropertyID      string            `db:"property_id" json:"property_id"`
	TenantID        string            `db:"tenant_id" json:"tenant_id"`
	MonthlyRent     decimal.Decimal   `db:"monthly_rent" json:"monthly_rent" swaggertype:"string"`
	SecurityDeposit decimal.Decimal   `db:"security_deposit" json:"security_deposit" swaggertype:"string"`
	LeaseStartDate  time.Time         `db:"lease_start_date" json:"lease_start_date"`
	LeaseEndDate    time.Time         `db:"lease_end_date" json:"lease_end_date"`
	RentDueDay      int               `db:"rent_due_day" json:"rent_due_day"`
	GracePeriodDays int               `db:"grace_period_days" json:"grace_period_days"`
	LateFeeAmount   decimal.Decimal   `db:"late_fee_amount" json:"late_fee_amount" swaggertype:"string"`
	Status          types.LeaseStatus `db:"status" json:"status"`
	types.BaseModel
}

// Validate checks the lease invariants.
func (l *Lease) Validate() error {
	if l.TenantID == "" || l.UnitID == "" {
		return ierr.NewError("tenant and unit are required").
			WithHint("A lease must reference a tenant and a unit").
			Mark(ierr.ErrValidation)
	}
	if !l.MonthlyRent.IsPositive() {
		return ierr.NewError("monthly rent must be positive").
			WithHint("Monthly rent must be greater than zero").
			WithReportableDetails(map[string]interface{}{"monthly_rent": l.MonthlyRent.String()}).
			Mark(ierr.ErrValidation)
	}
	if !l.LeaseEndDate.After(l.LeaseStartDate) {
		return ierr.NewError("lease end date must be after start date").
			WithHint("Lease end date must be after the start date").
			Mark(ierr.ErrValidation)
	}
	if l.RentDueDay < 1 || l.RentDueDay > 31 {
		return ierr.NewError("invalid rent due day").
			WithHint("Rent due day must be between 1 and 31").
			Mark(ierr.ErrValidation)
	}
	if l.GracePeriodDays < 0 {
		return ierr.NewError("invalid grace period").
			WithHint("Grace period must not be negative").
			Mark(ierr.ErrValidation)
	}
	if l.LateFeeAmount.IsNegative() || l.SecurityDeposit.IsNegative() {
		return ierr.NewError("fees must not be negative").
			WithHint("Late fee and security deposit must not be negative").
			Mark(ierr.ErrValidation)
	}
	return l.Status.Validate()
}

// IsActive reports whether the lease is active and now falls inside its term.
func (l *Lease) IsActive(now time.Time) bool {
	if l.Status != types.LeaseStatusActive {
		return false
	}
	today := types.DateOf(now, l.LeaseStartDate.Location())
	return !today.Before(types.DateOf(l.LeaseStartDate, nil)) && !today.After(types.DateOf(l.LeaseEndDate, nil))
}

// DurationMonths returns the number of whole calendar months in the term.
func (l *Lease) DurationMonths() int {
	months := (l.LeaseEndDate.Year()-l.LeaseStartDate.Year())*12 + int(l.LeaseEndDate.Month()-l.LeaseStartDate.Month())
	if l.LeaseEndDate.Day() < l.LeaseStartDate.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// DueDate returns the rent due date for the period, clamped to short months.
func (l *Lease) DueDate(month time.Month, year int) time.Time {
	return types.ClampedDate(year, month, l.RentDueDay, l.LeaseStartDate.Location())
}

// IsPaymentLate reports whether paying the period at `at` is past the grace period.
func (l *Lease) IsPaymentLate(month time.Month, year int, at time.Time) bool {
	deadline := l.DueDate(month, year).AddDate(0, 0, l.GracePeriodDays)
	return types.DateOf(at, deadline.Location()).After(deadline)
}

// LateFeeFor returns the late fee owed when paying the period at `at`.
func (l *Lease) LateFeeFor(month time.Month, year int, at time.Time) decimal.Decimal {
	if l.IsPaymentLate(month, year, at) {
		return l.LateFeeAmount
	}
	return decimal.Zero
}
