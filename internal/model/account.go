package model

import "time"

// Account is the identity provider's own credential record, distinct from UserRecord.
type Account struct {
	UID           string
	Email         string
	PasswordHash  string
	DisplayName   string
	EmailVerified bool
	CreatedAt     time.Time
}

// HasPassword reports whether the account was created with a password.
func (a *Account) HasPassword() bool {
	return a.PasswordHash != ""
}
