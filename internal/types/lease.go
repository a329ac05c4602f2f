package types

import ierr "github.com/rentpay/rentpay/internal/errors"

type LeaseStatus string

const (
	LeaseStatusPending    LeaseStatus = "pending"
	LeaseStatusActive     LeaseStatus = "active"
	LeaseStatusExpired    LeaseStatus = "expired"
	LeaseStatusTerminated LeaseStatus = "terminated"
)

func (s LeaseStatus) Validate() error {
	switch s {
	case LeaseStatusPending, LeaseStatusActive, LeaseStatusExpired, LeaseStatusTerminated:
		return nil
	}
	return ierr.NewError("invalid lease status").
		WithHint("Lease status must be one of: pending, active, expired, terminated").
		Mark(ierr.ErrValidation)
}
