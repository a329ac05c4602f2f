package types

import (
	"strings"
	"time"

	ierr "github.com/rentpay/rentpay/internal/errors"
)

// timezoneAbbreviationMap maps common abbreviations to IANA identifiers so
// operators can configure the scheduler with either form.
var timezoneAbbreviationMap = map[string]string{
	"EST":  "America/New_York",
	"CST":  "America/Chicago",
	"MST":  "America/Denver",
	"PST":  "America/Los_Angeles",
	"HST":  "Pacific/Honolulu",
	"AKST": "America/Anchorage",
	"GMT":  "Europe/London",
	"BST":  "Europe/London",
	"CET":  "Europe/Berlin",
	"EET":  "Europe/Athens",
	"IST":  "Asia/Kolkata",
	"JST":  "Asia/Tokyo",
	"AEST": "Australia/Sydney",
}

// ResolveTimezone converts a timezone abbreviation to its IANA identifier or
// returns the input unchanged.
func ResolveTimezone(timezone string) string {
	if ianaName, exists := timezoneAbbreviationMap[strings.ToUpper(timezone)]; exists {
		return ianaName
	}
	return timezone
}

// ValidateTimezone checks that the timezone resolves to a loadable location.
func ValidateTimezone(timezone string) error {
	_, err := LoadLocation(timezone)
	return err
}

// LoadLocation resolves abbreviations and loads the location. An empty
// timezone means UTC.
func LoadLocation(timezone string) (*time.Location, error) {
	if timezone == "" {
		return time.UTC, nil
	}
	loc, err := time.LoadLocation(ResolveTimezone(timezone))
	if err != nil {
		return nil, ierr.WithError(err).
			WithHintf("Unknown timezone %q", timezone).
			Mark(ierr.ErrValidation)
	}
	return loc, nil
}
