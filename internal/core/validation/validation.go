// Package validation holds the input rules shared by the HTTP layer and the
// services: identifier shape, username and password length, and the minimum
// age for an account holder.
package validation

import (
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/identitystore/identity-service/internal/core/domain"
)

const (
	MinUsernameLength = 4
	MinPasswordLength = 8
	MinAgeYears       = 14

	// canonicalIDLength is the length of the 8-4-4-4-12 textual UUID form.
	canonicalIDLength = 36
)

// IsIdentifier reports whether s is a UUID in canonical 8-4-4-4-12 form.
// uuid.Parse alone also accepts the urn:, braced and undashed forms.
func IsIdentifier(s string) bool {
	if len(s) != canonicalIDLength {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}

// CheckUsername enforces the minimum username length.
func CheckUsername(username string) error {
	if utf8.RuneCountInString(username) < MinUsernameLength {
		return domain.NewValidationError(domain.CodeUsernameInvalid, "username must be at least 4 characters")
	}
	return nil
}

// CheckPassword enforces the minimum password length.
func CheckPassword(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return domain.NewValidationError(domain.CodeInvalidPassword, "password must be at least 8 characters")
	}
	return nil
}

// CheckDateOfBirth rejects a zero date and anyone younger than MinAgeYears at now.
func CheckDateOfBirth(dob, now time.Time) error {
	if dob.IsZero() {
		return domain.NewValidationError(domain.CodeInvalidDOB, "date of birth is required")
	}
	if !OldEnough(dob, now) {
		return domain.NewValidationError(domain.CodeInvalidDOB, "your age must be at least 14")
	}
	return nil
}

// OldEnough reports whether someone born on dob is at least MinAgeYears old at now.
// Dates are compared at day granularity.
func OldEnough(dob, now time.Time) bool {
	born := truncateDay(dob)
	floor := truncateDay(now).AddDate(-MinAgeYears, 0, 0)
	return !born.After(floor)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
