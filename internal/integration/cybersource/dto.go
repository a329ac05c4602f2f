package cybersource

// Wire types for the Cybersource REST API. Only the fields this service reads
// or writes are declared.

type clientReferenceInformation struct {
	Code     string `json:"code,omitempty"`
	Comments string `json:"comments,omitempty"`
}

type processingInformation struct {
	Capture           bool   `json:"capture"`
	CommerceIndicator string `json:"commerceIndicator,omitempty"`
}

type customerInformation struct {
	CustomerID string `json:"customerId"`
}

type paymentInformation struct {
	Customer customerInformation `json:"customer"`
}

type amountDetails struct {
	TotalAmount      string `json:"totalAmount,omitempty"`
	AuthorizedAmount string `json:"authorizedAmount,omitempty"`
	Currency         string `json:"currency,omitempty"`
}

type billTo struct {
	FirstName          string `json:"firstName,omitempty"`
	LastName           string `json:"lastName,omitempty"`
	Email              string `json:"email,omitempty"`
	Address1           string `json:"address1,omitempty"`
	Locality           string `json:"locality,omitempty"`
	AdministrativeArea string `json:"administrativeArea,omitempty"`
	PostalCode         string `json:"postalCode,omitempty"`
	Country            string `json:"country,omitempty"`
}

type lineItem struct {
	ProductName string `json:"productName"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unitPrice"`
}

type orderInformation struct {
	AmountDetails amountDetails `json:"amountDetails"`
	BillTo        *billTo       `json:"billTo,omitempty"`
	LineItems     []lineItem    `json:"lineItems,omitempty"`
}

// PaymentRequest is the body of POST /pts/v2/payments.
type PaymentRequest struct {
	ClientReferenceInformation clientReferenceInformation `json:"clientReferenceInformation"`
	ProcessingInformation      processingInformation      `json:"processingInformation"`
	PaymentInformation         paymentInformation         `json:"paymentInformation"`
	OrderInformation           orderInformation           `json:"orderInformation"`
	// MerchantDefinedInformation carries our payment id for reconciliation.
	MerchantDefinedInformation []merchantDefinedField `json:"merchantDefinedInformation,omitempty"`
}

type merchantDefinedField struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type processorInformation struct {
	ApprovalCode string `json:"approvalCode,omitempty"`
	ResponseCode string `json:"responseCode,omitempty"`
}

type errorInformation struct {
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

// PaymentResponse is returned by payment, refund and void calls.
type PaymentResponse struct {
	ID                         string                     `json:"id"`
	Status                     string                     `json:"status"`
	SubmitTimeUTC              string                     `json:"submitTimeUtc,omitempty"`
	ClientReferenceInformation clientReferenceInformation `json:"clientReferenceInformation"`
	ProcessorInformation       processorInformation       `json:"processorInformation"`
	OrderInformation           orderInformation           `json:"orderInformation"`
	RefundAmountDetails        *refundAmountDetails       `json:"refundAmountDetails,omitempty"`
	ErrorInformation           *errorInformation          `json:"errorInformation,omitempty"`
}

type refundAmountDetails struct {
	RefundAmount string `json:"refundAmount"`
	Currency     string `json:"currency"`
}

// RefundRequest is the body of POST /pts/v2/payments/{id}/refunds.
type RefundRequest struct {
	ClientReferenceInformation clientReferenceInformation `json:"clientReferenceInformation"`
	OrderInformation           orderInformation           `json:"orderInformation"`
}

// VoidRequest is the body of POST /pts/v2/payments/{id}/voids.
type VoidRequest struct {
	ClientReferenceInformation clientReferenceInformation `json:"clientReferenceInformation"`
}

type applicationInformation struct {
	Status     string `json:"status"`
	ReasonCode string `json:"reasonCode,omitempty"`
}

// TransactionResponse is returned by GET /tss/v2/transactions/{id}.
type TransactionResponse struct {
	ID                     string                 `json:"id"`
	ApplicationInformation applicationInformation `json:"applicationInformation"`
	OrderInformation       orderInformation       `json:"orderInformation"`
	ErrorInformation       *errorInformation      `json:"errorInformation,omitempty"`
}

// ErrorResponse is the body of a non-2xx reply.
type ErrorResponse struct {
	Status  string `json:"status"`
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

// WebhookPayload is the notification body posted to /v1/webhooks/cybersource.
type WebhookPayload struct {
	ID        string      `json:"id,omitempty"`
	EventType string      `json:"eventType"`
	Data      WebhookData `json:"data"`
}

type WebhookData struct {
	// ID is the payment transaction id, or the refund transaction id for
	// refund events.
	ID                    string `json:"id"`
	OriginalTransactionID string `json:"originalTransactionId,omitempty"`
	Amount                string `json:"amount,omitempty"`
	Reason                string `json:"reason,omitempty"`
}
