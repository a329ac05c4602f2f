package errors

import "net/http"

// ErrorResponse is the JSON body returned for every failed API call.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Display       string                 `json:"message"`
	InternalError string                 `json:"internal_error,omitempty"`
	Details       map[string]interface{} `json:"details,omitempty"`
}

// HTTPStatusFromErr maps a marked error to its HTTP status code.
func HTTPStatusFromErr(err error) int {
	switch {
	case IsValidation(err):
		return http.StatusBadRequest
	case IsNotFound(err):
		return http.StatusNotFound
	case IsDuplicatePeriodPayment(err), IsAlreadyExists(err), Is(err, ErrVersionConflict), IsRunInProgress(err):
		return http.StatusConflict
	case IsRefundExceedsOriginal(err), IsInvalidOperation(err):
		return http.StatusUnprocessableEntity
	case IsGateway(err):
		return http.StatusPaymentRequired
	case IsPermissionDenied(err):
		return http.StatusForbidden
	case Is(err, ErrHTTPClient):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// NewErrorResponse builds the API body for err. Internal detail is only exposed
// for client errors.
func NewErrorResponse(err error) ErrorResponse {
	status := HTTPStatusFromErr(err)
	display := GetHint(err)
	if display == "" {
		display = http.StatusText(status)
	}
	resp := ErrorResponse{
		Success: false,
		Error: ErrorDetail{
			Display: display,
			Details: GetReportableDetails(err),
		},
	}
	if status < http.StatusInternalServerError {
		resp.Error.InternalError = err.Error()
	}
	return resp
}
