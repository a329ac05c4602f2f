package postgres

import (
	"github.com/cockroachdb/errors"
	"github.com/lib/pq"
)

const (
	codeUniqueViolation = "23505"
	codeForeignKey      = "23503"
)

// ConstraintRentPaymentPeriod is the partial unique index guarding one active
// payment per lease period.
const ConstraintRentPaymentPeriod = "rent_payments_active_period_idx"

// IsUniqueViolation reports a unique constraint failure, optionally on a
// specific constraint.
func IsUniqueViolation(err error, constraint ...string) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != codeUniqueViolation {
		return false
	}
	if len(constraint) == 0 {
		return true
	}
	for _, c := range constraint {
		if pqErr.Constraint == c {
			return true
		}
	}
	return false
}

func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == codeForeignKey
}
