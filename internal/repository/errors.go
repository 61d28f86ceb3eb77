package repository

import (
	"errors"

	"github.com/lib/pq"
)

var (
	// ErrNotFound is returned when no row matches the lookup key.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when an account already exists for the email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrReferralCodeTaken is returned when a generated referral code collides.
	ErrReferralCodeTaken = errors.New("referral code already taken")
)

const uniqueViolation = pq.ErrorCode("23505")

// uniqueViolationOn reports whether err is a unique violation, and on which constraint.
func uniqueViolationOn(err error) (string, bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}
