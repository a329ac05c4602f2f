package errors

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Sentinel errors used to mark every error that leaves a service. Callers
// classify with the Is* helpers below, never by message.
var (
	ErrNotFound         = errors.New("not found")
	ErrAlreadyExists    = errors.New("already exists")
	ErrVersionConflict  = errors.New("version conflict")
	ErrValidation       = errors.New("validation error")
	ErrInvalidOperation = errors.New("invalid operation")
	ErrPermissionDenied = errors.New("permission denied")
	ErrHTTPClient       = errors.New("http client error")
	ErrDatabase         = errors.New("database error")
	ErrSystem           = errors.New("system error")
	ErrInternal         = errors.New("internal error")

	// payment taxonomy
	ErrDuplicatePeriodPayment = errors.New("duplicate period payment")
	ErrGateway                = errors.New("payment gateway error")
	ErrRefundExceedsOriginal  = errors.New("refund exceeds original amount")
	ErrRunInProgress          = errors.New("run already in progress")
)

// InternalError carries the hint shown to API callers and any details that are
// safe to report alongside it.
type InternalError struct {
	Err               error
	DisplayError      string
	ReportableDetails map[string]interface{}
}

func (e *InternalError) Error() string {
	if e.Err == nil {
		return e.DisplayError
	}
	return e.Err.Error()
}

func (e *InternalError) Unwrap() error {
	return e.Err
}

// ErrorBuilder accumulates context for an error before it is marked.
type ErrorBuilder struct {
	err     error
	hint    string
	details map[string]interface{}
}

// NewError starts a builder from a fresh error message.
func NewError(msg string) *ErrorBuilder {
	return &ErrorBuilder{err: errors.NewWithDepth(1, msg)}
}

// NewErrorf is NewError with formatting.
func NewErrorf(format string, args ...interface{}) *ErrorBuilder {
	return &ErrorBuilder{err: errors.NewWithDepthf(1, format, args...)}
}

// WithError starts a builder wrapping an existing error. A nil error yields a
// builder that still produces a non-nil error so call sites never lose a failure.
func WithError(err error) *ErrorBuilder {
	if err == nil {
		err = errors.NewWithDepth(1, "unknown error")
	}
	b := &ErrorBuilder{err: err}
	var ie *InternalError
	if errors.As(err, &ie) {
		b.hint = ie.DisplayError
		b.details = copyDetails(ie.ReportableDetails)
	}
	return b
}

func (b *ErrorBuilder) WithMessage(msg string) *ErrorBuilder {
	b.err = errors.WithMessage(b.err, msg)
	return b
}

func (b *ErrorBuilder) WithHint(hint string) *ErrorBuilder {
	b.hint = hint
	b.err = errors.WithHint(b.err, hint)
	return b
}

func (b *ErrorBuilder) WithHintf(format string, args ...interface{}) *ErrorBuilder {
	return b.WithHint(fmt.Sprintf(format, args...))
}

func (b *ErrorBuilder) WithReportableDetails(details map[string]interface{}) *ErrorBuilder {
	if b.details == nil {
		b.details = make(map[string]interface{}, len(details))
	}
	for k, v := range details {
		b.details[k] = v
	}
	return b
}

// Mark tags the error with a sentinel and returns it.
func (b *ErrorBuilder) Mark(reference error) error {
	marked := errors.Mark(b.err, reference)
	return &InternalError{
		Err:               marked,
		DisplayError:      b.hint,
		ReportableDetails: b.details,
	}
}

func copyDetails(in map[string]interface{}) map[string]interface{} {
	if in == nil {
		return nil
	}
	out := make(map[string]interface{}, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

func Is(err, reference error) bool {
	return errors.Is(err, reference)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
func IsAlreadyExists(err error) bool { return errors.Is(err, ErrAlreadyExists) }
func IsValidation(err error) bool { return errors.Is(err, ErrValidation) }
func IsInvalidOperation(err error) bool { return errors.Is(err, ErrInvalidOperation) }
func IsPermissionDenied(err error) bool { return errors.Is(err, ErrPermissionDenied) }
func IsDatabase(err error) bool { return errors.Is(err, ErrDatabase) }
func IsDuplicatePeriodPayment(err error) bool { return errors.Is(err, ErrDuplicatePeriodPayment) }
func IsGateway(err error) bool { return errors.Is(err, ErrGateway) }
func IsRefundExceedsOriginal(err error) bool { return errors.Is(err, ErrRefundExceedsOriginal) }
func IsRunInProgress(err error) bool { return errors.Is(err, ErrRunInProgress) }

// GetHint returns the user facing hint attached to err, if any.
func GetHint(err error) string {
	var ie *InternalError
	if errors.As(err, &ie) && ie.DisplayError != "" {
		return ie.DisplayError
	}
	hints := errors.GetAllHints(err)
	if len(hints) > 0 {
		return hints[len(hints)-1]
	}
	return ""
}

// GetReportableDetails returns the reportable details attached to err.
func GetReportableDetails(err error) map[string]interface{} {
	var ie *InternalError
	if errors.As(err, &ie) {
		return ie.ReportableDetails
	}
	return nil
}
