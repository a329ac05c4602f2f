package types

// DomainEventType names an event published for downstream consumers such as
// the notification service. Publishing records the intent to notify; delivery
// happens elsewhere.
type DomainEventType string

const (
	EventPaymentCompleted DomainEventType = "payment.completed"
	EventPaymentFailed    DomainEventType = "payment.failed"
	EventPaymentRefunded  DomainEventType = "payment.refunded"
	EventPaymentUpdated   DomainEventType = "payment.status_updated"

	EventAutoPaySucceeded   DomainEventType = "autopay.succeeded"
	EventAutoPayFailed      DomainEventType = "autopay.failed"
	EventAutoPaySkipped     DomainEventType = "autopay.skipped"
	EventAutoPayReminderDue DomainEventType = "autopay.reminder_due"
	EventAutoPayCreated     DomainEventType = "autopay.created"
	EventAutoPayCancelled   DomainEventType = "autopay.cancelled"

	EventScheduleRunCompleted DomainEventType = "schedule_run.completed"
)
