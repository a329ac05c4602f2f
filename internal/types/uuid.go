package types

import (
	"fmt"

	"github.com/oklog/ulid/v2"
)

const (
	UUID_PREFIX_LEASE              = "lease"
	UUID_PREFIX_PAYMENT_METHOD     = "pm"
	UUID_PREFIX_RENT_PAYMENT       = "rpay"
	UUID_PREFIX_RECURRING_SCHEDULE = "rsch"
	UUID_PREFIX_SCHEDULE_RUN       = "srun"
	UUID_PREFIX_EVENT              = "evt"
	UUID_PREFIX_REQUEST            = "req"
)

// GenerateUUID returns a k-sortable unique identifier.
func GenerateUUID() string {
	return ulid.Make().String()
}

// GenerateUUIDWithPrefix returns prefix_<ulid>.
func GenerateUUIDWithPrefix(prefix string) string {
	if prefix == "" {
		return GenerateUUID()
	}
	return fmt.Sprintf("%s_%s", prefix, GenerateUUID())
}
