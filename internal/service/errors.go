package service

import (
	"errors"
	"fmt"

	"github.com/SinaHo/fyra-signin-backend/internal/provider"
)

// Kind groups sign-in failures by where they were caught.
type Kind string

const (
	KindValidation Kind = "validation"
	KindProvider   Kind = "provider"
	KindState      Kind = "state"
	KindUnknown    Kind = "unknown"
)

// Code is the closed set of sign-in failures.
type Code string

const (
	CodeMissingEmail          Code = "MissingEmail"
	CodeMissingCredentials    Code = "MissingCredentials"
	CodeMissingCode           Code = "MissingCode"
	CodeInvalidProfile        Code = "InvalidProfile"
	CodeInvalidEmail          Code = "InvalidEmail"
	CodeRateLimited           Code = "RateLimited"
	CodeProviderMisconfigured Code = "ProviderMisconfigured"
	CodeUnauthorizedOrigin    Code = "UnauthorizedOrigin"
	CodeSendFailed            Code = "SendFailed"
	CodeEmailInUse            Code = "EmailInUse"
	CodeUserNotFound          Code = "UserNotFound"
	CodeWrongPassword         Code = "WrongPassword"
	CodeWeakPassword          Code = "WeakPassword"
	CodeAuthFailed            Code = "AuthFailed"
	CodeMissingPendingEmail   Code = "MissingPendingEmail"
	CodeInvalidLink           Code = "InvalidLink"
	CodeLinkExpired           Code = "LinkExpired"
	CodeConfirmFailed         Code = "ConfirmFailed"
	CodeBusy                  Code = "Busy"
)

// Error is a classified sign-in failure. Message is safe to show to the user.
type Error struct {
	Kind    Kind
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by code, so errors.Is(err, ErrEmailInUse) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func newError(kind Kind, code Code, msg string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: msg, Err: cause}
}

// Sentinels for errors.Is comparisons.
var (
	ErrMissingEmail        = newError(KindValidation, CodeMissingEmail, "Please enter your email address", nil)
	ErrMissingCredentials  = newError(KindValidation, CodeMissingCredentials, "Please enter both email and password", nil)
	ErrMissingCode         = newError(KindValidation, CodeMissingCode, "Please enter the confirmation code", nil)
	ErrInvalidProfile      = newError(KindValidation, CodeInvalidProfile, "Your browser session could not be identified. Please reload the page.", nil)
	ErrInvalidEmail        = newError(KindValidation, CodeInvalidEmail, "Please enter a valid email address", nil)
	ErrMissingPendingEmail = newError(KindState, CodeMissingPendingEmail, "Email not found. Please try logging in again.", nil)
	ErrBusy                = newError(KindState, CodeBusy, "Please wait, your previous request is still in progress.", nil)
	ErrEmailInUse          = newError(KindProvider, CodeEmailInUse, "Email is already in use. Try signing in instead.", nil)
	ErrUserNotFound        = newError(KindProvider, CodeUserNotFound, "No account found with this email. Try signing up instead.", nil)
	ErrWeakPassword        = newError(KindProvider, CodeWeakPassword, "Password should be at least 6 characters.", nil)
	ErrWrongPassword       = newError(KindProvider, CodeWrongPassword, "Incorrect password. Please try again.", nil)
	ErrRateLimited         = newError(KindProvider, CodeRateLimited, "Too many requests. Please try again later", nil)
	ErrInvalidLink         = newError(KindState, CodeInvalidLink, "This sign-in link is invalid or has already been used. Please request a new one.", nil)
	ErrLinkExpired         = newError(KindState, CodeLinkExpired, "This sign-in link has expired. Please request a new one.", nil)
)

func with(base *Error, cause error) *Error {
	return &Error{Kind: base.Kind, Code: base.Code, Message: base.Message, Err: cause}
}

func rawMessage(err error) string {
	var pe *provider.Error
	if errors.As(err, &pe) && pe.Message != "" {
		return pe.Message
	}
	return err.Error()
}

// classifySend maps a failure of the link-send step.
func classifySend(err error) *Error {
	switch provider.CodeOf(err) {
	case provider.CodeInvalidEmail:
		return newError(KindProvider, CodeInvalidEmail, ErrInvalidEmail.Message, err)
	case provider.CodeTooManyRequests:
		return with(ErrRateLimited, err)
	case provider.CodeOperationNotAllowed:
		return newError(KindProvider, CodeProviderMisconfigured, "Email link authentication is not enabled. Please contact support", err)
	case provider.CodeUnauthorizedDomain:
		return newError(KindProvider, CodeUnauthorizedOrigin, "This domain is not authorized. Please contact support", err)
	default:
		return newError(KindUnknown, CodeSendFailed, "Failed to send login link: "+rawMessage(err), err)
	}
}

// classifyPassword maps a failure of the email+password path.
func classifyPassword(err error) *Error {
	switch provider.CodeOf(err) {
	case provider.CodeEmailAlreadyInUse:
		return with(ErrEmailInUse, err)
	case provider.CodeUserNotFound:
		return with(ErrUserNotFound, err)
	case provider.CodeWrongPassword:
		return with(ErrWrongPassword, err)
	case provider.CodeWeakPassword:
		return with(ErrWeakPassword, err)
	case provider.CodeInvalidEmail:
		return newError(KindProvider, CodeInvalidEmail, ErrInvalidEmail.Message, err)
	default:
		return newError(KindUnknown, CodeAuthFailed, "Authentication failed: "+rawMessage(err), err)
	}
}

// classifyConfirm maps a failure of the link-completion step.
func classifyConfirm(err error) *Error {
	switch provider.CodeOf(err) {
	case provider.CodeInvalidActionCode:
		return with(ErrInvalidLink, err)
	case provider.CodeExpiredActionCode:
		return with(ErrLinkExpired, err)
	default:
		return newError(KindUnknown, CodeConfirmFailed, "Failed to confirm login. Please try again.", err)
	}
}

// AsError returns err as *Error, wrapping foreign errors as unknown failures.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var se *Error
	if errors.As(err, &se) {
		return se
	}
	return newError(KindUnknown, CodeAuthFailed, "Something went wrong. Please try again.", err)
}
