package student

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/f4r424hm3d/Agent-crm-sub003/core"
)

var (
	NowFunc = time.Now // mockable

	dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02T15:04:05.000Z07:00"}
)

type (
	DateOpts struct {
		Past   bool // strictly before today
		Future bool // strictly after today
		Label  string
	}

	NumberOpts struct {
		Min      *float64
		Max      *float64
		Positive bool // >= 0
		Label    string
	}
)

func Float(f float64) *float64 { return &f }

// Required fails if value is empty or whitespace-only.
func Required(value, label string) string {
	if err := core.Validate.Var(value, core.NotBlankTag); err != nil {
		return label + " is required"
	}
	return ""
}

// Email fails if value is missing or not shaped like local@domain.tld.
func Email(value string) string {
	value = strings.TrimSpace(value)
	if msg := Required(value, "Email"); msg != "" {
		return msg
	}
	if err := core.Validate.Var(value, core.EmailAddrTag); err != nil {
		return "Please enter a valid email address"
	}
	return ""
}

// Mobile fails unless value is exactly 10 ASCII digits.
func Mobile(value string) string {
	value = strings.TrimSpace(value)
	if msg := Required(value, "Mobile number"); msg != "" {
		return msg
	}
	if err := core.Validate.Var(value, core.MobileTag); err != nil {
		return "Mobile number must be exactly 10 digits"
	}
	return ""
}

// Date validates an optional calendar date. Past/Future compare against local midnight of NowFunc().
func Date(value string, opts DateOpts) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	label := opts.Label
	if label == "" {
		label = "Date"
	}

	d, ok := ParseDate(value)
	if !ok {
		return "Please enter a valid " + strings.ToLower(label)
	}
	today := Today()
	if opts.Past && !d.Before(today) {
		return label + " must be in the past"
	}
	if opts.Future && !d.After(today) {
		return label + " must be in the future"
	}
	return ""
}

// Number validates an optional numeric value. Bounds are inclusive.
func Number(value string, opts NumberOpts) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return ""
	}
	label := opts.Label
	if label == "" {
		label = "Value"
	}

	if err := core.Validate.Var(value, "numeric"); err != nil {
		return label + " must be a number"
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return label + " must be a number"
	}
	if opts.Positive && n < 0 {
		return label + " cannot be negative"
	}
	if opts.Min != nil && n < *opts.Min {
		return fmt.Sprintf("%s must be at least %s", label, formatFloat(*opts.Min))
	}
	if opts.Max != nil && n > *opts.Max {
		return fmt.Sprintf("%s must be at most %s", label, formatFloat(*opts.Max))
	}
	return ""
}

// ParseDate parses a calendar date, rejecting impossible ones (e.g. 2021-02-30).
// Only the date part is kept, at local midnight.
func ParseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			y, m, d := t.Date()
			return time.Date(y, m, d, 0, 0, 0, 0, time.Local), true
		}
	}
	return time.Time{}, false
}

// Today returns local midnight of NowFunc().
func Today() time.Time {
	y, m, d := NowFunc().In(time.Local).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.Local)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
