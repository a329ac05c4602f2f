package postgres

import (
	"time"

	"github.com/rentpay/rentpay/internal/domain/lease"
	"github.com/rentpay/rentpay/internal/domain/paymentmethod"
	"github.com/rentpay/rentpay/internal/domain/recurringschedule"
	"github.com/rentpay/rentpay/internal/domain/rentpayment"
	"github.com/rentpay/rentpay/internal/domain/schedulerun"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

type leaseRow struct {
	ID              string            `gorm:"column:id;primaryKey"`
	UnitID          string            `gorm:"column:unit_id"`
	PropertyID      string            `gorm:"column:property_id"`
	TenantID        string            `gorm:"column:tenant_id"`
	MonthlyRent     decimal.Decimal   `gorm:"column:monthly_rent"`
	SecurityDeposit decimal.Decimal   `gorm:"column:security_deposit"`
	LeaseStartDate  date              `gorm:"column:lease_start_date"`
	LeaseEndDate    date              `gorm:"column:lease_end_date"`
	RentDueDay      int               `gorm:"column:rent_due_day"`
	GracePeriodDays int               `gorm:"column:grace_period_days"`
	LateFeeAmount   decimal.Decimal   `gorm:"column:late_fee_amount"`
	Status          types.LeaseStatus `gorm:"column:status"`
	AuditColumns    `gorm:"embedded"`
}

func (leaseRow) TableName() string { return "leases" }

func leaseRowOf(l *lease.Lease) *leaseRow {
	return &leaseRow{
		ID:              l.ID,
		UnitID:          l.UnitID,
		PropertyID:      l.PropertyID,
		TenantID:        l.TenantID,
		MonthlyRent:     l.MonthlyRent,
		SecurityDeposit: l.SecurityDeposit,
		LeaseStartDate:  dateOf(l.LeaseStartDate),
		LeaseEndDate:    dateOf(l.LeaseEndDate),
		RentDueDay:      l.RentDueDay,
		GracePeriodDays: l.GracePeriodDays,
		LateFeeAmount:   l.LateFeeAmount,
		Status:          l.Status,
		AuditColumns:    auditOf(l.BaseModel),
	}
}

func (r *leaseRow) toDomain(loc *time.Location) *lease.Lease {
	return &lease.Lease{
		ID:              r.ID,
		UnitID:          r.UnitID,
		PropertyID:      r.PropertyID,
		TenantID:        r.TenantID,
		MonthlyRent:     r.MonthlyRent,
		SecurityDeposit: r.SecurityDeposit,
		LeaseStartDate:  r.LeaseStartDate.In(loc),
		LeaseEndDate:    r.LeaseEndDate.In(loc),
		RentDueDay:      r.RentDueDay,
		GracePeriodDays: r.GracePeriodDays,
		LateFeeAmount:   r.LateFeeAmount,
		Status:          r.Status,
		BaseModel:       r.base(),
	}
}

type paymentMethodRow struct {
	ID              string                    `gorm:"column:id;primaryKey"`
	TenantID        string                    `gorm:"column:tenant_id"`
	PaymentType     types.PaymentType         `gorm:"column:payment_type"`
	GatewayProvider types.GatewayProvider     `gorm:"column:gateway_provider"`
	Token           string                    `gorm:"column:token"`
	IsDefault       bool                      `gorm:"column:is_default"`
	Status          types.PaymentMethodStatus `gorm:"column:status"`
	Nickname        string                    `gorm:"column:nickname"`
	CardLastFour    string                    `gorm:"column:card_last_four"`
	CardBrand       string                    `gorm:"column:card_brand"`
	CardExpiryMonth int                       `gorm:"column:card_expiry_month"`
	CardExpiryYear  int                       `gorm:"column:card_expiry_year"`
	AccountLastFour string                    `gorm:"column:account_last_four"`
	AccountType     types.BankAccountType     `gorm:"column:account_type"`
	BankName        string                    `gorm:"column:bank_name"`
	BillingAddress  datatypes.JSON            `gorm:"column:billing_address"`
	AuditColumns    `gorm:"embedded"`
}

func (paymentMethodRow) TableName() string { return "payment_methods" }

func paymentMethodRowOf(pm *paymentmethod.PaymentMethod) (*paymentMethodRow, error) {
	address, err := jsonColumn(pm.BillingAddress, "{}")
	if err != nil {
		return nil, err
	}
	return &paymentMethodRow{
		ID:              pm.ID,
		TenantID:        pm.TenantID,
		PaymentType:     pm.PaymentType,
		GatewayProvider: pm.GatewayProvider,
		Token:           pm.Token,
		IsDefault:       pm.IsDefault,
		Status:          pm.Status,
		Nickname:        pm.Nickname,
		CardLastFour:    pm.CardLastFour,
		CardBrand:       pm.CardBrand,
		CardExpiryMonth: pm.CardExpiryMonth,
		CardExpiryYear:  pm.CardExpiryYear,
		AccountLastFour: pm.AccountLastFour,
		AccountType:     pm.AccountType,
		BankName:        pm.BankName,
		BillingAddress:  address,
		AuditColumns:    auditOf(pm.BaseModel),
	}, nil
}

func (r *paymentMethodRow) toDomain() (*paymentmethod.PaymentMethod, error) {
	pm := &paymentmethod.PaymentMethod{
		ID:              r.ID,
		TenantID:        r.TenantID,
		PaymentType:     r.PaymentType,
		GatewayProvider: r.GatewayProvider,
		Token:           r.Token,
		IsDefault:       r.IsDefault,
		Status:          r.Status,
		Nickname:        r.Nickname,
		CardLastFour:    r.CardLastFour,
		CardBrand:       r.CardBrand,
		CardExpiryMonth: r.CardExpiryMonth,
		CardExpiryYear:  r.CardExpiryYear,
		AccountLastFour: r.AccountLastFour,
		AccountType:     r.AccountType,
		BankName:        r.BankName,
		BaseModel:       r.base(),
	}
	if len(r.BillingAddress) > 0 {
		if err := json.Unmarshal(r.BillingAddress, &pm.BillingAddress); err != nil {
			return nil, err
		}
	}
	return pm, nil
}

type rentPaymentRow struct {
	ID                   string                `gorm:"column:id;primaryKey"`
	LeaseID              string                `gorm:"column:lease_id"`
	TenantID             string                `gorm:"column:tenant_id"`
	PaymentMethodID      string                `gorm:"column:payment_method_id"`
	Amount               decimal.Decimal       `gorm:"column:amount"`
	LateFeeAmount        decimal.Decimal       `gorm:"column:late_fee_amount"`
	ProcessingFee        decimal.Decimal       `gorm:"column:processing_fee"`
	TotalAmount          decimal.Decimal       `gorm:"column:total_amount"`
	Currency             string                `gorm:"column:currency"`
	PaymentMonth         int                   `gorm:"column:payment_month"`
	PaymentYear          int                   `gorm:"column:payment_year"`
	PaymentDate          *time.Time            `gorm:"column:payment_date"`
	RentDueDate          date                  `gorm:"column:rent_due_date"`
	PaymentType          types.PaymentType     `gorm:"column:payment_type"`
	PaymentStatus        types.PaymentStatus   `gorm:"column:payment_status"`
	GatewayProvider      types.GatewayProvider `gorm:"column:gateway_provider"`
	GatewayTransactionID *string               `gorm:"column:gateway_transaction_id"`
	GatewayReferenceCode string                `gorm:"column:gateway_reference_code"`
	AuthorizationCode    string                `gorm:"column:authorization_code"`
	ResponseCode         string                `gorm:"column:response_code"`
	FailureReason        string                `gorm:"column:failure_reason"`
	IsRecurring          bool                  `gorm:"column:is_recurring"`
	RecurringScheduleID  *string               `gorm:"column:recurring_schedule_id"`
	RefundAmount         decimal.NullDecimal   `gorm:"column:refund_amount"`
	RefundDate           *time.Time            `gorm:"column:refund_date"`
	RefundReason         *string               `gorm:"column:refund_reason"`
	RefundTransactionID  *string               `gorm:"column:refund_transaction_id"`
	MaskedPaymentInfo    string                `gorm:"column:masked_payment_info"`
	Description          string                `gorm:"column:description"`
	Metadata             datatypes.JSON        `gorm:"column:metadata"`
	AuditColumns         `gorm:"embedded"`
}

func (rentPaymentRow) TableName() string { return "rent_payments" }

func rentPaymentRowOf(p *rentpayment.RentPayment) (*rentPaymentRow, error) {
	metadata, err := metadataColumn(p.Metadata)
	if err != nil {
		return nil, err
	}
	row := &rentPaymentRow{
		ID:                   p.ID,
		LeaseID:              p.LeaseID,
		TenantID:             p.TenantID,
		PaymentMethodID:      p.PaymentMethodID,
		Amount:               p.Amount,
		LateFeeAmount:        p.LateFeeAmount,
		ProcessingFee:        p.ProcessingFee,
		TotalAmount:          p.TotalAmount,
		Currency:             p.Currency,
		PaymentMonth:         p.PaymentMonth,
		PaymentYear:          p.PaymentYear,
		PaymentDate:          p.PaymentDate,
		RentDueDate:          nullDateOf(p.RentDueDate),
		PaymentType:          p.PaymentType,
		PaymentStatus:        p.PaymentStatus,
		GatewayProvider:      p.GatewayProvider,
		GatewayTransactionID: nullString(p.GatewayTransactionID),
		GatewayReferenceCode: p.GatewayReferenceCode,
		AuthorizationCode:    p.AuthorizationCode,
		ResponseCode:         p.ResponseCode,
		FailureReason:        p.FailureReason,
		IsRecurring:          p.IsRecurring,
		RecurringScheduleID:  nullString(p.RecurringScheduleID),
		MaskedPaymentInfo:    p.MaskedPaymentInfo,
		Description:          p.Description,
		Metadata:             metadata,
		AuditColumns:         auditOf(p.BaseModel),
	}
	if p.Refund != nil {
		refundDate := p.Refund.Date
		row.RefundAmount = decimal.NewNullDecimal(p.Refund.Amount)
		row.RefundDate = &refundDate
		row.RefundReason = &p.Refund.Reason
		row.RefundTransactionID = nullString(p.Refund.TransactionID)
	}
	return row, nil
}

func (r *rentPaymentRow) toDomain(loc *time.Location) (*rentpayment.RentPayment, error) {
	p := &rentpayment.RentPayment{
		ID:                   r.ID,
		LeaseID:              r.LeaseID,
		TenantID:             r.TenantID,
		PaymentMethodID:      r.PaymentMethodID,
		Amount:               r.Amount,
		LateFeeAmount:        r.LateFeeAmount,
		ProcessingFee:        r.ProcessingFee,
		TotalAmount:          r.TotalAmount,
		Currency:             r.Currency,
		PaymentMonth:         r.PaymentMonth,
		PaymentYear:          r.PaymentYear,
		PaymentDate:          r.PaymentDate,
		RentDueDate:          r.RentDueDate.Ptr(loc),
		PaymentType:          r.PaymentType,
		PaymentStatus:        r.PaymentStatus,
		GatewayProvider:      r.GatewayProvider,
		GatewayTransactionID: derefString(r.GatewayTransactionID),
		GatewayReferenceCode: r.GatewayReferenceCode,
		AuthorizationCode:    r.AuthorizationCode,
		ResponseCode:         r.ResponseCode,
		FailureReason:        r.FailureReason,
		IsRecurring:          r.IsRecurring,
		RecurringScheduleID:  derefString(r.RecurringScheduleID),
		MaskedPaymentInfo:    r.MaskedPaymentInfo,
		Description:          r.Description,
		BaseModel:            r.base(),
	}
	if r.RefundAmount.Valid {
		p.Refund = &rentpayment.Refund{
			Amount:        r.RefundAmount.Decimal,
			Reason:        derefString(r.RefundReason),
			TransactionID: derefString(r.RefundTransactionID),
		}
		if r.RefundDate != nil {
			p.Refund.Date = *r.RefundDate
		}
	}
	if len(r.Metadata) > 0 {
		if err := json.Unmarshal(r.Metadata, &p.Metadata); err != nil {
			return nil, err
		}
		if len(p.Metadata) == 0 {
			p.Metadata = nil
		}
	}
	return p, nil
}

func metadataColumn(m map[string]string) (datatypes.JSON, error) {
	if len(m) == 0 {
		return datatypes.JSON("{}"), nil
	}
	return jsonColumn(m, "{}")
}

type recurringScheduleRow struct {
	ID                    string                      `gorm:"column:id;primaryKey"`
	LeaseID               string                      `gorm:"column:lease_id"`
	TenantID              string                      `gorm:"column:tenant_id"`
	PaymentMethodID       string                      `gorm:"column:payment_method_id"`
	IsActive              bool                        `gorm:"column:is_active"`
	PaymentDay            int                         `gorm:"column:payment_day"`
	ScheduleType          types.RecurringScheduleType `gorm:"column:schedule_type"`
	StartDate             date                        `gorm:"column:start_date"`
	EndDate               date                        `gorm:"column:end_date"`
	DefaultAmount         decimal.Decimal             `gorm:"column:default_amount"`
	NextPaymentDate       date                        `gorm:"column:next_payment_date"`
	LastPaymentDate       date                        `gorm:"column:last_payment_date"`
	TotalPaymentsMade     int                         `gorm:"column:total_payments_made"`
	FailedPaymentAttempts int                         `gorm:"column:failed_payment_attempts"`
	LastFailureReason     string                      `gorm:"column:last_failure_reason"`
	SendReminderEmail     bool                        `gorm:"column:send_reminder_email"`
	ReminderDaysBefore    int                         `gorm:"column:reminder_days_before"`
	SendReceiptEmail      bool                        `gorm:"column:send_receipt_email"`
	AuditColumns          `gorm:"embedded"`
}

func (recurringScheduleRow) TableName() string { return "recurring_schedules" }

func recurringScheduleRowOf(s *recurringschedule.RecurringSchedule) *recurringScheduleRow {
	return &recurringScheduleRow{
		ID:                    s.ID,
		LeaseID:               s.LeaseID,
		TenantID:              s.TenantID,
		PaymentMethodID:       s.PaymentMethodID,
		IsActive:              s.IsActive,
		PaymentDay:            s.PaymentDay,
		ScheduleType:          s.ScheduleType,
		StartDate:             dateOf(s.StartDate),
		EndDate:               nullDateOf(s.EndDate),
		DefaultAmount:         s.DefaultAmount,
		NextPaymentDate:       dateOf(s.NextPaymentDate),
		LastPaymentDate:       nullDateOf(s.LastPaymentDate),
		TotalPaymentsMade:     s.TotalPaymentsMade,
		FailedPaymentAttempts: s.FailedPaymentAttempts,
		LastFailureReason:     s.LastFailureReason,
		SendReminderEmail:     s.SendReminderEmail,
		ReminderDaysBefore:    s.ReminderDaysBefore,
		SendReceiptEmail:      s.SendReceiptEmail,
		AuditColumns:          auditOf(s.BaseModel),
	}
}

func (r *recurringScheduleRow) toDomain(loc *time.Location) *recurringschedule.RecurringSchedule {
	return &recurringschedule.RecurringSchedule{
		ID:                    r.ID,
		LeaseID:               r.LeaseID,
		TenantID:              r.TenantID,
		PaymentMethodID:       r.PaymentMethodID,
		IsActive:              r.IsActive,
		PaymentDay:            r.PaymentDay,
		ScheduleType:          r.ScheduleType,
		StartDate:             r.StartDate.In(loc),
		EndDate:               r.EndDate.Ptr(loc),
		DefaultAmount:         r.DefaultAmount,
		NextPaymentDate:       r.NextPaymentDate.In(loc),
		LastPaymentDate:       r.LastPaymentDate.Ptr(loc),
		TotalPaymentsMade:     r.TotalPaymentsMade,
		FailedPaymentAttempts: r.FailedPaymentAttempts,
		LastFailureReason:     r.LastFailureReason,
		SendReminderEmail:     r.SendReminderEmail,
		ReminderDaysBefore:    r.ReminderDaysBefore,
		SendReceiptEmail:      r.SendReceiptEmail,
		BaseModel:             r.base(),
	}
}

type scheduleRunRow struct {
	ID         string                   `gorm:"column:id;primaryKey"`
	Trigger    types.ScheduleRunTrigger `gorm:"column:trigger"`
	RunDate    date                     `gorm:"column:run_date"`
	StartedAt  time.Time                `gorm:"column:started_at"`
	FinishedAt *time.Time               `gorm:"column:finished_at"`
	Status     types.ScheduleRunStatus  `gorm:"column:status"`
	Processed  int                      `gorm:"column:processed"`
	Succeeded  int                      `gorm:"column:succeeded"`
	Failed     int                      `gorm:"column:failed"`
	Skipped    int                      `gorm:"column:skipped"`
	Error      string                   `gorm:"column:error"`
	Items      datatypes.JSON           `gorm:"column:items"`
	AuditColumns `gorm:"embedded"`
}

func (scheduleRunRow) TableName() string { return "schedule_runs" }

func scheduleRunRowOf(run *schedulerun.ScheduleRun) (*scheduleRunRow, error) {
	items, err := jsonColumn(run.Items, "[]")
	if err != nil {
		return nil, err
	}
	return &scheduleRunRow{
		ID:           run.ID,
		Trigger:      run.Trigger,
		RunDate:      dateOf(run.RunDate),
		StartedAt:    run.StartedAt,
		FinishedAt:   run.FinishedAt,
		Status:       run.Status,
		Processed:    run.Processed,
		Succeeded:    run.Succeeded,
		Failed:       run.Failed,
		Skipped:      run.Skipped,
		Error:        run.Error,
		Items:        items,
		AuditColumns: auditOf(run.BaseModel),
	}, nil
}

func (r *scheduleRunRow) toDomain(loc *time.Location) (*schedulerun.ScheduleRun, error) {
	run := &schedulerun.ScheduleRun{
		ID:         r.ID,
		Trigger:    r.Trigger,
		RunDate:    r.RunDate.In(loc),
		StartedAt:  r.StartedAt,
		FinishedAt: r.FinishedAt,
		Status:     r.Status,
		Processed:  r.Processed,
		Succeeded:  r.Succeeded,
		Failed:     r.Failed,
		Skipped:    r.Skipped,
		Error:      r.Error,
		BaseModel:  r.base(),
	}
	if len(r.Items) > 0 {
		if err := json.Unmarshal(r.Items, &run.Items); err != nil {
			return nil, err
		}
	}
	return run, nil
}
