package types

const (
	HeaderRequestID     = "X-Request-ID"
	HeaderAuthorization = "Authorization"
	HeaderIdempotency   = "Idempotency-Key"

	// gateway webhook signature headers
	HeaderCybersourceSignature = "X-Cybersource-Signature"
	HeaderStripeSignature      = "Stripe-Signature"
)
