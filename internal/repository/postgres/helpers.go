package postgres

import (
	"context"
	"database/sql/driver"
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"
	jsoniter "github.com/json-iterator/go"
	"github.com/rentpay/rentpay/internal/types"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const dateLayout = "2006-01-02"

// StartRepositorySpan opens a span for a repository call when the context
// carries a Sentry hub.
func StartRepositorySpan(ctx context.Context, repository, operation string, params map[string]interface{}) *sentry.Span {
	if sentry.GetHubFromContext(ctx) == nil {
		return nil
	}
	span := sentry.StartSpan(ctx, "repository."+repository+"."+operation)
	span.Op = "db.repository"
	span.Description = repository + "." + operation
	for k, v := range params {
		span.SetData(k, v)
	}
	return span
}

func FinishSpan(span *sentry.Span) {
	if span != nil {
		span.Finish()
	}
}

func SetSpanError(span *sentry.Span, err error) {
	if span == nil || err == nil {
		return
	}
	span.Status = sentry.SpanStatusInternalError
	span.SetData("error", err.Error())
}

func SetSpanSuccess(span *sentry.Span) {
	if span != nil {
		span.Status = sentry.SpanStatusOK
	}
}

// date is a nullable DATE column. It is written as YYYY-MM-DD so Postgres
// never shifts it by zone.
type date struct {
	Time  time.Time
	Valid bool
}

func dateOf(t time.Time) date {
	return date{Time: t, Valid: true}
}

func nullDateOf(t *time.Time) date {
	if t == nil {
		return date{}
	}
	return dateOf(*t)
}

func (d *date) Scan(value interface{}) error {
	switch v := value.(type) {
	case nil:
		*d = date{}
	case time.Time:
		*d = dateOf(v)
	case []byte:
		return d.parse(string(v))
	case string:
		return d.parse(v)
	default:
		return fmt.Errorf("cannot scan %T into date", value)
	}
	return nil
}

func (d *date) parse(s string) error {
	t, err := time.Parse(dateLayout, s[:min(len(s), len(dateLayout))])
	if err != nil {
		return err
	}
	*d = dateOf(t)
	return nil
}

func (d date) Value() (driver.Value, error) {
	if !d.Valid {
		return nil, nil
	}
	return d.Time.Format(dateLayout), nil
}

func (date) GormDataType() string {
	return "date"
}

// In rebuilds the calendar day as midnight in loc.
func (d date) In(loc *time.Location) time.Time {
	return types.ClampedDate(d.Time.Year(), d.Time.Month(), d.Time.Day(), loc)
}

func (d date) Ptr(loc *time.Location) *time.Time {
	if !d.Valid {
		return nil
	}
	t := d.In(loc)
	return &t
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// jsonColumn marshals v, writing empty when v encodes to null.
func jsonColumn(v interface{}, empty string) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return datatypes.JSON(empty), nil
	}
	return datatypes.JSON(b), nil
}

// paginate applies limit and offset unless the filter is unlimited.
func paginate(f *types.QueryFilter) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if f == nil || f.IsUnlimited() {
			return db
		}
		return db.Limit(f.GetLimit()).Offset(f.GetOffset())
	}
}

// AuditColumns maps types.BaseModel. Timestamps are set by the domain, not gorm.
type AuditColumns struct {
	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime:false"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime:false"`
	CreatedBy string    `gorm:"column:created_by"`
	UpdatedBy string    `gorm:"column:updated_by"`
}

func auditOf(b types.BaseModel) AuditColumns {
	return AuditColumns{CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt, CreatedBy: b.CreatedBy, UpdatedBy: b.UpdatedBy}
}

func (a AuditColumns) base() types.BaseModel {
	return types.BaseModel{CreatedAt: a.CreatedAt, UpdatedAt: a.UpdatedAt, CreatedBy: a.CreatedBy, UpdatedBy: a.UpdatedBy}
}
