package types

import ierr "github.com/rentpay/rentpay/internal/errors"

const (
	FILTER_DEFAULT_LIMIT = 50
	FILTER_MAX_LIMIT     = 500
)

// QueryFilter carries pagination shared by all list filters.
type QueryFilter struct {
	Limit  *int `json:"limit,omitempty" form:"limit" validate:"omitempty,min=1,max=500"`
	Offset *int `json:"offset,omitempty" form:"offset" validate:"omitempty,min=0"`
}

func NewDefaultQueryFilter() *QueryFilter {
	limit := FILTER_DEFAULT_LIMIT
	offset := 0
	return &QueryFilter{Limit: &limit, Offset: &offset}
}

func NewNoLimitQueryFilter() *QueryFilter {
	return &QueryFilter{}
}

func (f *QueryFilter) GetLimit() int {
	if f == nil || f.Limit == nil {
		return 0
	}
	return *f.Limit
}

func (f *QueryFilter) GetOffset() int {
	if f == nil || f.Offset == nil {
		return 0
	}
	return *f.Offset
}

func (f *QueryFilter) IsUnlimited() bool {
	return f == nil || f.Limit == nil
}

func (f *QueryFilter) Validate() error {
	if f == nil {
		return nil
	}
	if f.Limit != nil && (*f.Limit <= 0 || *f.Limit > FILTER_MAX_LIMIT) {
		return ierr.NewError("invalid limit").
			WithHintf("Limit must be between 1 and %d", FILTER_MAX_LIMIT).
			Mark(ierr.ErrValidation)
	}
	if f.Offset != nil && *f.Offset < 0 {
		return ierr.NewError("invalid offset").
			WithHint("Offset must not be negative").
			Mark(ierr.ErrValidation)
	}
	return nil
}

// RentPaymentFilter narrows rent payment listings.
type RentPaymentFilter struct {
	*QueryFilter
	TenantID            string          `json:"tenant_id,omitempty" form:"tenant_id"`
	LeaseIDs            []string        `json:"lease_ids,omitempty" form:"lease_ids"`
	Statuses            []PaymentStatus `json:"statuses,omitempty" form:"statuses"`
	PaymentMonth        int             `json:"payment_month,omitempty" form:"payment_month" validate:"omitempty,min=1,max=12"`
	PaymentYear         int             `json:"payment_year,omitempty" form:"payment_year"`
	RecurringScheduleID string          `json:"recurring_schedule_id,omitempty" form:"recurring_schedule_id"`
}

func NewRentPaymentFilter() *RentPaymentFilter {
	return &RentPaymentFilter{QueryFilter: NewDefaultQueryFilter()}
}

func (f *RentPaymentFilter) Validate() error {
	if f == nil {
		return nil
	}
	for _, s := range f.Statuses {
		if err := s.Validate(); err != nil {
			return err
		}
	}
	if f.PaymentMonth != 0 && (f.PaymentMonth < 1 || f.PaymentMonth > 12) {
		return ierr.NewError("invalid payment month").
			WithHint("Payment month must be between 1 and 12").
			Mark(ierr.ErrValidation)
	}
	return f.QueryFilter.Validate()
}

// PaymentMethodFilter narrows payment method listings.
type PaymentMethodFilter struct {
	*QueryFilter
	TenantID string                `json:"tenant_id,omitempty"`
	Statuses []PaymentMethodStatus `json:"statuses,omitempty"`
}

func NewPaymentMethodFilter() *PaymentMethodFilter {
	return &PaymentMethodFilter{QueryFilter: NewNoLimitQueryFilter()}
}

// RecurringScheduleFilter narrows recurring schedule listings.
type RecurringScheduleFilter struct {
	*QueryFilter
	TenantID        string `json:"tenant_id,omitempty"`
	LeaseID         string `json:"lease_id,omitempty"`
	PaymentMethodID string `json:"payment_method_id,omitempty"`
	ActiveOnly      bool   `json:"active_only,omitempty"`
}

func NewRecurringScheduleFilter() *RecurringScheduleFilter {
	return &RecurringScheduleFilter{QueryFilter: NewNoLimitQueryFilter()}
}

// ScheduleRunFilter narrows runner audit listings.
type ScheduleRunFilter struct {
	*QueryFilter
	Trigger ScheduleRunTrigger `json:"trigger,omitempty"`
}

func NewScheduleRunFilter() *ScheduleRunFilter {
	return &ScheduleRunFilter{QueryFilter: NewDefaultQueryFilter()}
}

// PaginationResponse echoes the paging applied to a list.
type PaginationResponse struct {
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// ListResponse is the envelope returned by list endpoints.
type ListResponse[T any] struct {
	Items      []T                `json:"items"`
	Pagination PaginationResponse `json:"pagination"`
}

func NewListResponse[T any](items []T, total, limit, offset int) *ListResponse[T] {
	if items == nil {
		items = []T{}
	}
	return &ListResponse[T]{
		Items:      items,
		Pagination: PaginationResponse{Total: total, Limit: limit, Offset: offset},
	}
}
