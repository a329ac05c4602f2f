package types

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// LockScope represents the scope of a database advisory lock
type LockScope string

const (
	// LockScopeRentPaymentPeriod serialises settlement attempts for one lease period
	LockScopeRentPaymentPeriod LockScope = "rent_payment_period"
	// LockScopeRecurringScheduleLease serialises schedule creation for one lease
	LockScopeRecurringScheduleLease LockScope = "recurring_schedule_lease"
	// LockScopeRecurringSchedule serialises writes to one schedule
	LockScopeRecurringSchedule LockScope = "recurring_schedule"
	// LockScopeRentPaymentRefund serialises refunds of one payment
	LockScopeRentPaymentRefund LockScope = "rent_payment_refund"
	// LockScopePaymentMethodDefault serialises default switching for one tenant
	LockScopePaymentMethodDefault LockScope = "payment_method_default"
)

// DefaultLockTimeout applies when a LockRequest leaves Timeout nil.
const DefaultLockTimeout = 30 * time.Second

// LockRequest describes an advisory lock acquisition.
type LockRequest struct {
	Key     string
	Timeout *time.Duration
}

// GetTimeout returns the requested timeout or the default. Zero or negative
// means fail fast.
func (r LockRequest) GetTimeout() time.Duration {
	if r.Timeout == nil {
		return DefaultLockTimeout
	}
	return *r.Timeout
}

// GenerateLockKey generates a lock key from a scope and parameters.
// The key is a deterministic string that Postgres will hash internally.
func GenerateLockKey(scope LockScope, params map[string]interface{}) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	// scope:key1=value1:key2=value2
	var b strings.Builder
	b.WriteString(string(scope))
	for _, k := range keys {
		b.WriteString(fmt.Sprintf(":%s=%v", k, params[k]))
	}

	return b.String()
}

// TableName represents a database table name
type TableName string

const (
	TableNameLeases             TableName = "leases"
	TableNamePaymentMethods     TableName = "payment_methods"
	TableNameRentPayments       TableName = "rent_payments"
	TableNameRecurringSchedules TableName = "recurring_schedules"
	TableNameScheduleRuns       TableName = "schedule_runs"
)
