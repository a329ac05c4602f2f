package recurringschedule

import (
	"testing"
	"time"

	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestAdvance(t *testing.T) {
	tests := []struct {
		name       string
		paymentDay int
		from       time.Time
		want       time.Time
	}{
		{"jan 31 to feb 28 non leap", 31, date(2025, time.January, 31), date(2025, time.February, 28)},
		{"jan 31 to feb 29 leap", 31, date(2024, time.January, 31), date(2024, time.February, 29)},
		{"century non leap", 29, date(2100, time.January, 29), date(2100, time.February, 28)},
		{"feb 28 back to mar 31", 31, date(2025, time.February, 28), date(2025, time.March, 31)},
		{"mar 31 to apr 30", 31, date(2025, time.March, 31), date(2025, time.April, 30)},
		{"apr 30 to may 30", 30, date(2025, time.April, 30), date(2025, time.May, 30)},
		{"day 30 into february", 30, date(2025, time.January, 30), date(2025, time.February, 28)},
		{"dec 15 rolls year", 15, date(2025, time.December, 15), date(2026, time.January, 15)},
		{"dec 31 rolls year", 31, date(2025, time.December, 31), date(2026, time.January, 31)},
		{"payment day after from day", 20, date(2025, time.June, 10), date(2025, time.July, 20)},
		{"first of month", 1, date(2025, time.June, 10), date(2025, time.July, 1)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Advance(tt.paymentDay, tt.from))
		})
	}
}

func TestAdvance_KeepsLocation(t *testing.T) {
	loc, err := types.LoadLocation("America/New_York")
	assert.NoError(t, err)
	got := Advance(31, time.Date(2025, time.January, 31, 0, 0, 0, 0, loc))
	assert.Equal(t, loc, got.Location())
	assert.Equal(t, 28, got.Day())
}

func schedule() *RecurringSchedule {
	return &RecurringSchedule{
		ID:                 "rsch_1",
		LeaseID:            "lease_1",
		TenantID:           "tenant_1",
		PaymentMethodID:    "pm_1",
		IsActive:           true,
		PaymentDay:         1,
		ScheduleType:       types.RecurringScheduleTypeMonthly,
		StartDate:          date(2025, time.June, 10),
		NextPaymentDate:    date(2025, time.July, 1),
		SendReminderEmail:  true,
		ReminderDaysBefore: types.DefaultReminderDaysBefore,
	}
}

func TestRecurringSchedule_Validate(t *testing.T) {
	assert.NoError(t, schedule().Validate())

	s := schedule()
	s.PaymentDay = 0
	assert.True(t, ierr.IsValidation(s.Validate()))

	s = schedule()
	s.PaymentDay = 32
	assert.True(t, ierr.IsValidation(s.Validate()))

	s = schedule()
	s.ReminderDaysBefore = -1
	assert.True(t, ierr.IsValidation(s.Validate()))

	s = schedule()
	s.EndDate = lo.ToPtr(date(2025, time.January, 1))
	assert.True(t, ierr.IsValidation(s.Validate()))
}

func TestRecurringSchedule_Selection(t *testing.T) {
	s := schedule()
	july1 := date(2025, time.July, 1)

	assert.True(t, s.IsSelectableOn(july1))
	assert.False(t, s.IsSelectableOn(date(2025, time.July, 2)))

	t.Run("already paid this month", func(t *testing.T) {
		s := schedule()
		s.LastPaymentDate = lo.ToPtr(july1)
		assert.False(t, s.IsSelectableOn(july1))
	})

	t.Run("paid last month", func(t *testing.T) {
		s := schedule()
		s.LastPaymentDate = lo.ToPtr(date(2025, time.June, 30))
		assert.True(t, s.IsSelectableOn(july1))
	})

	t.Run("inactive", func(t *testing.T) {
		s := schedule()
		s.IsActive = false
		assert.False(t, s.IsSelectableOn(july1))
	})

	t.Run("before start date", func(t *testing.T) {
		s := schedule()
		assert.False(t, s.IsSelectableOn(date(2025, time.June, 1)))
	})

	t.Run("after end date", func(t *testing.T) {
		s := schedule()
		s.EndDate = lo.ToPtr(date(2025, time.June, 30))
		assert.False(t, s.IsSelectableOn(july1))
	})

	t.Run("day 31 runs on last day of short month", func(t *testing.T) {
		s := schedule()
		s.PaymentDay = 31
		assert.True(t, s.IsSelectableOn(date(2025, time.June, 30)))
		assert.False(t, s.IsSelectableOn(date(2025, time.June, 29)))
		assert.True(t, s.IsDueOn(date(2025, time.February, 28)))
		assert.False(t, s.IsDueOn(date(2024, time.February, 28)))
		assert.True(t, s.IsDueOn(date(2024, time.February, 29)))
	})
}

func TestRecurringSchedule_RecordOutcomes(t *testing.T) {
	july1 := date(2025, time.July, 1)
	june := date(2025, time.June, 1)

	t.Run("success", func(t *testing.T) {
		s := schedule()
		s.FailedPaymentAttempts = 2
		s.RecordSuccess(july1)
		assert.Equal(t, date(2025, time.August, 1), s.NextPaymentDate)
		assert.Equal(t, july1, *s.LastPaymentDate)
		assert.Equal(t, 1, s.TotalPaymentsMade)
		assert.Equal(t, 0, s.FailedPaymentAttempts)
	})

	t.Run("failure keeps last payment date", func(t *testing.T) {
		s := schedule()
		s.LastPaymentDate = lo.ToPtr(june)
		s.RecordFailure(july1, "card declined")
		assert.Equal(t, date(2025, time.August, 1), s.NextPaymentDate)
		assert.Equal(t, june, *s.LastPaymentDate)
		assert.Equal(t, 1, s.FailedPaymentAttempts)
		assert.Equal(t, 0, s.TotalPaymentsMade)
		assert.Equal(t, "card declined", s.LastFailureReason)
	})

	t.Run("failure is idempotent on next date", func(t *testing.T) {
		s := schedule()
		s.RecordFailure(july1, "timeout")
		s.RecordFailure(july1, "timeout")
		assert.Equal(t, date(2025, time.August, 1), s.NextPaymentDate)
	})

	t.Run("skip leaves counters", func(t *testing.T) {
		s := schedule()
		s.RecordSkip(july1)
		assert.Equal(t, date(2025, time.August, 1), s.NextPaymentDate)
		assert.Nil(t, s.LastPaymentDate)
		assert.Equal(t, 0, s.TotalPaymentsMade)
		assert.Equal(t, 0, s.FailedPaymentAttempts)
	})
}

func TestRecurringSchedule_ReminderDate(t *testing.T) {
	s := schedule()
	assert.Equal(t, date(2025, time.June, 28), s.ReminderDate())

	s.ReminderDaysBefore = 0
	assert.Equal(t, s.NextPaymentDate, s.ReminderDate())
}
