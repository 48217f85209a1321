package validation

import (
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// MaxEmailLength is the longest address accepted by the site forms.
	MaxEmailLength = 254
	// MaxPhoneLength is the longest phone number accepted by the contact form.
	MaxPhoneLength = 32
)

// Required flags field when value is blank after trimming.
func Required(errs *Errors, field, value string) bool {
	if strings.TrimSpace(value) == "" {
		errs.Add(field, "is required")
		return false
	}
	return true
}

// Length flags field when its trimmed rune count falls outside [min, max].
// A zero min allows empty values.
func Length(errs *Errors, field, value string, min, max int) bool {
	n := utf8.RuneCountInString(strings.TrimSpace(value))
	if n < min {
		errs.Add(field, "must be at least %d characters", min)
		return false
	}
	if max > 0 && n > max {
		errs.Add(field, "must be at most %d characters", max)
		return false
	}
	return true
}

// Email flags field unless value is a single bare address.
func Email(errs *Errors, field, value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		errs.Add(field, "is required")
		return false
	}
	if len(trimmed) > MaxEmailLength {
		errs.Add(field, "must be at most %d characters", MaxEmailLength)
		return false
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil || addr.Address != trimmed || !strings.Contains(addr.Address[strings.LastIndex(addr.Address, "@"):], ".") {
		errs.Add(field, "must be a valid email address")
		return false
	}
	return true
}

// Phone flags field when value contains anything other than digits, spaces and +()-.
// Empty values are accepted.
func Phone(errs *Errors, field, value string) bool {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return true
	}
	if len(trimmed) > MaxPhoneLength {
		errs.Add(field, "must be at most %d characters", MaxPhoneLength)
		return false
	}
	digits := 0
	for _, r := range trimmed {
		switch {
		case unicode.IsDigit(r):
			digits++
		case r == ' ' || r == '+' || r == '(' || r == ')' || r == '-':
		default:
			errs.Add(field, "contains invalid character %q", r)
			return false
		}
	}
	if digits < 6 {
		errs.Add(field, "must contain at least 6 digits")
		return false
	}
	return true
}

// OneOf flags field unless value is empty or one of allowed.
func OneOf(errs *Errors, field, value string, allowed ...string) bool {
	if value == "" {
		return true
	}
	for _, candidate := range allowed {
		if value == candidate {
			return true
		}
	}
	errs.Add(field, "must be one of %s", strings.Join(allowed, ", "))
	return false
}

// NormalizeEmail lower-cases and trims an address for identity comparisons.
func NormalizeEmail(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
