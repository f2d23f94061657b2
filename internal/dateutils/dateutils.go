// Package dateutils normalizes the two date representations the backend uses
// (calendar triples on debts, ISO timestamps on shipments) into time.Time.
package dateutils

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Common date format constants used throughout the application
const (
	DateLayoutISO       = "2006-01-02"
	DateLayoutEuropean  = "02.01.2006"
	DateLayoutUS        = "01/02/2006"
	DateLayoutFull      = "2006-01-02 15:04:05"
	DateLayoutWithMonth = "2-Jan-2006"
)

// CommonFormats is a list of standard formats to try when parsing dates
var CommonFormats = []string{
	DateLayoutISO,
	DateLayoutEuropean,
	DateLayoutUS,
	DateLayoutFull,
	DateLayoutWithMonth,
	"02-01-2006",
	"02/01/2006",
	"2006/01/02",
	"Jan 2, 2006",
	"January 2, 2006",
}

// timestampFormats are tried by ParseTimestamp before falling back to CommonFormats.
var timestampFormats = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05",
	DateLayoutFull,
}

var whitespace = regexp.MustCompile(`\s+`)

// ParseDate attempts to parse a date string using multiple common formats.
// Returns the parsed time and the detected format.
func ParseDate(dateStr string) (time.Time, string, error) {
	dateStr = CleanDateString(dateStr)

	for _, format := range CommonFormats {
		if t, err := time.Parse(format, dateStr); err == nil {
			return t, format, nil
		}
	}

	return time.Time{}, "", fmt.Errorf("unable to parse date: %s", dateStr)
}

// ParseTimestamp parses an ISO-8601 timestamp (created_at) or any CommonFormats date.
func ParseTimestamp(s string) (time.Time, error) {
	s = CleanDateString(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	t, _, err := ParseDate(s)
	return t, err
}

// CalendarDate builds a date from a {year, month, day} triple. The triple is
// rendered as a zero-padded ISO string first so 2024-3-7 and 2024-03-07 are the
// same day, and impossible dates (month 13, Feb 30) are rejected.
func CalendarDate(year, month, day int) (time.Time, error) {
	iso := ISODateString(year, month, day)
	t, err := time.Parse(DateLayoutISO, iso)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid calendar date %d-%d-%d: %w", year, month, day, err)
	}
	return t, nil
}

// ISODateString zero-pads a calendar triple to YYYY-MM-DD.
func ISODateString(year, month, day int) string {
	return fmt.Sprintf("%04d-%02d-%02d", year, month, day)
}

// FormatDate formats a time.Time value according to the specified layout.
// If no layout is provided, DateLayoutISO is used.
func FormatDate(date time.Time, layout string) string {
	if date.IsZero() {
		return ""
	}
	if layout == "" {
		layout = DateLayoutISO
	}
	return date.Format(layout)
}

// ToISODate formats a time.Time value as an ISO date (YYYY-MM-DD)
func ToISODate(date time.Time) string {
	return FormatDate(date, DateLayoutISO)
}

// CleanDateString trims and collapses whitespace.
func CleanDateString(dateStr string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(dateStr), " ")
}

// Day truncates t to its calendar day in UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// CompareDates compares two dates by calendar day and returns:
//
//	-1 if date1 is before date2
//	 0 if date1 is equal to date2
//	 1 if date1 is after date2
func CompareDates(date1, date2 time.Time) int {
	date1 = Day(date1)
	date2 = Day(date2)

	if date1.Before(date2) {
		return -1
	} else if date1.After(date2) {
		return 1
	}
	return 0
}

// InRange reports whether t falls within [from, to] inclusive, by calendar day.
func InRange(t, from, to time.Time) bool {
	return CompareDates(t, from) >= 0 && CompareDates(t, to) <= 0
}
