// Package provider defines the identity provider contract the sign-in core
// depends on. Implementations report failures as *Error carrying one of the
// provider's string codes.
package provider

import (
	"context"
	"errors"
	"fmt"

	"github.com/SinaHo/fyra-signin-backend/internal/model"
)

// Error codes reported by identity providers. The set is open; callers must
// keep a fallback for codes they do not know.
const (
	CodeInvalidEmail         = "auth/invalid-email"
	CodeEmailAlreadyInUse    = "auth/email-already-in-use"
	CodeUserNotFound         = "auth/user-not-found"
	CodeWrongPassword        = "auth/wrong-password"
	CodeWeakPassword         = "auth/weak-password"
	CodeTooManyRequests      = "auth/too-many-requests"
	CodeOperationNotAllowed  = "auth/operation-not-allowed"
	CodeUnauthorizedDomain   = "auth/unauthorized-domain"
	CodeInvalidActionCode    = "auth/invalid-action-code"
	CodeExpiredActionCode    = "auth/expired-action-code"
	CodeInternalError        = "auth/internal-error"
	CodeNetworkRequestFailed = "auth/network-request-failed"
)

// Error is a classified provider failure.
type Error struct {
	Code    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Code
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *Error) Unwrap() error { return e.Err }

func NewError(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap marks an unexpected failure as an internal provider error.
func Wrap(err error, message string) *Error {
	return &Error{Code: CodeInternalError, Message: fmt.Sprintf("%s: %v", message, err), Err: err}
}

// CodeOf returns the provider code carried by err, or "" when err is not a provider error.
func CodeOf(err error) string {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// ActionCodeSettings configure the link sent by SendSignInLink.
type ActionCodeSettings struct {
	URL               string
	HandleCodeInApp   bool
	DynamicLinkDomain string
}

// IdentityProvider is the hosted (or self-hosted) authentication backend.
type IdentityProvider interface {
	SendSignInLink(ctx context.Context, email string, settings ActionCodeSettings) error
	IsSignInLink(link string) bool
	SignInWithLink(ctx context.Context, email, link string) (*model.Identity, error)
	CreateAccount(ctx context.Context, email, password string) (*model.Identity, error)
	Authenticate(ctx context.Context, email, password string) (*model.Identity, error)
	UpdateDisplayName(ctx context.Context, uid, name string) error
}
