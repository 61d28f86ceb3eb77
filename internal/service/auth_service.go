package service

import (
	"context"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"

	"github.com/SinaHo/fyra-signin-backend/internal/model"
	"github.com/SinaHo/fyra-signin-backend/internal/pending"
	"github.com/SinaHo/fyra-signin-backend/internal/provider"
	"github.com/SinaHo/fyra-signin-backend/internal/repository"
)

type SendLinkRequest struct {
	ProfileID string
	Email     string
	Origin    string
}

type ConfirmLinkRequest struct {
	ProfileID string
	// Link is the URL the user arrived on. Code is a code typed in by hand
	// and is only used when Link is not a sign-in link.
	Link string
	Code string
}

type PasswordRequest struct {
	Email    string
	Password string
	SignUp   bool
}

// Result is a completed sign-in.
type Result struct {
	Identity *model.Identity
	Record   *model.UserRecord
	// Created is true when this sign-in provisioned the user record.
	Created bool
}

// AuthService defines the sign-in business logic. Every failure it returns is an *Error.
type AuthService interface {
	SendLink(ctx context.Context, in SendLinkRequest) error
	IsSignInLink(link string) bool
	ConfirmLink(ctx context.Context, in ConfirmLinkRequest) (*Result, error)
	PasswordAuth(ctx context.Context, in PasswordRequest) (*Result, error)
	GetUserRecord(ctx context.Context, uid string) (*model.UserRecord, error)
}

type authService struct {
	idp       provider.IdentityProvider
	users     repository.UserRepository
	tracker   *pending.Tracker
	finalizer *Finalizer
	returnURL ReturnURLPolicy
	logger    *zap.SugaredLogger
}

// NewAuthService constructs a new AuthService.
func NewAuthService(
	idp provider.IdentityProvider,
	users repository.UserRepository,
	tracker *pending.Tracker,
	finalizer *Finalizer,
	returnURL ReturnURLPolicy,
	logger *zap.SugaredLogger,
) AuthService {
	return &authService{
		idp:       idp,
		users:     users,
		tracker:   tracker,
		finalizer: finalizer,
		returnURL: returnURL,
		logger:    logger,
	}
}

func validEmail(email string) bool {
	return validation.Validate(email, is.Email) == nil
}

// SendLink asks the provider to mail a sign-in link and remembers the email
// for the profile so the link can be completed later.
func (s *authService) SendLink(ctx context.Context, in SendLinkRequest) error {
	email := strings.TrimSpace(in.Email)
	if email == "" {
		return ErrMissingEmail
	}
	if !validEmail(email) {
		return ErrInvalidEmail
	}
	if in.ProfileID == "" {
		return ErrInvalidProfile
	}

	settings := s.returnURL.Settings(in.Origin)
	if err := s.idp.SendSignInLink(ctx, email, settings); err != nil {
		s.logger.Warnw("send sign-in link failed", "email", email, "error", err)
		return classifySend(err)
	}
	if err := s.tracker.Put(ctx, in.ProfileID, email); err != nil {
		s.logger.Errorw("store pending sign-in failed", "profile_id", in.ProfileID, "error", err)
		return newError(KindUnknown, CodeSendFailed, "Failed to send login link: "+err.Error(), err)
	}
	s.logger.Infow("sign-in link sent", "email", email, "continue_url", settings.URL)
	return nil
}

func (s *authService) IsSignInLink(link string) bool {
	return link != "" && s.idp.IsSignInLink(link)
}

// ConfirmLink completes a passwordless sign-in using the profile's pending email.
func (s *authService) ConfirmLink(ctx context.Context, in ConfirmLinkRequest) (*Result, error) {
	if in.ProfileID == "" {
		return nil, ErrInvalidProfile
	}
	link := strings.TrimSpace(in.Link)
	if !s.IsSignInLink(link) {
		code := strings.TrimSpace(in.Code)
		if code == "" {
			return nil, ErrMissingCode
		}
		link = s.returnURL.CodeLink(code)
	}

	email, ok, err := s.tracker.Peek(ctx, in.ProfileID)
	if err != nil {
		s.logger.Errorw("read pending sign-in failed", "profile_id", in.ProfileID, "error", err)
		return nil, classifyConfirm(err)
	}
	if !ok {
		return nil, ErrMissingPendingEmail
	}

	id, err := s.idp.SignInWithLink(ctx, email, link)
	if err != nil {
		s.logger.Warnw("complete sign-in link failed", "email", email, "error", err)
		return nil, classifyConfirm(err)
	}
	if err := s.tracker.Clear(ctx, in.ProfileID); err != nil {
		s.logger.Warnw("clear pending sign-in failed", "profile_id", in.ProfileID, "error", err)
	}

	rec, created, err := s.finalizer.Ensure(ctx, *id)
	if err != nil {
		s.logger.Errorw("finalize sign-in failed", "uid", id.UID, "error", err)
		return nil, classifyConfirm(err)
	}
	s.logger.Infow("signed in with link", "uid", id.UID, "record_created", created)
	return &Result{Identity: id, Record: rec, Created: created}, nil
}

// PasswordAuth signs a user up or in with email and password.
func (s *authService) PasswordAuth(ctx context.Context, in PasswordRequest) (*Result, error) {
	email := strings.TrimSpace(in.Email)
	if email == "" || in.Password == "" {
		return nil, ErrMissingCredentials
	}
	if !validEmail(email) {
		return nil, ErrInvalidEmail
	}

	var (
		id  *model.Identity
		err error
	)
	if in.SignUp {
		id, err = s.idp.CreateAccount(ctx, email, in.Password)
		if err != nil {
			s.logger.Infow("sign-up rejected", "email", email, "code", provider.CodeOf(err))
			return nil, classifyPassword(err)
		}
		name := model.LocalPart(id.Email)
		if err := s.idp.UpdateDisplayName(ctx, id.UID, name); err != nil {
			s.logger.Errorw("set display name failed", "uid", id.UID, "error", err)
			return nil, classifyPassword(err)
		}
		id.DisplayName = name
	} else {
		id, err = s.idp.Authenticate(ctx, email, in.Password)
		if err != nil {
			s.logger.Infow("sign-in rejected", "email", email, "code", provider.CodeOf(err))
			return nil, classifyPassword(err)
		}
	}

	seed := *id
	if seed.DisplayName == "" {
		seed.DisplayName = model.LocalPart(seed.Email)
	}
	rec, created, err := s.finalizer.Ensure(ctx, seed)
	if err != nil {
		s.logger.Errorw("finalize sign-in failed", "uid", id.UID, "error", err)
		return nil, classifyPassword(err)
	}
	s.logger.Infow("signed in with password", "uid", id.UID, "sign_up", in.SignUp, "record_created", created)
	return &Result{Identity: id, Record: rec, Created: created}, nil
}

// GetUserRecord returns the stored record for uid, or repository.ErrNotFound.
func (s *authService) GetUserRecord(ctx context.Context, uid string) (*model.UserRecord, error) {
	return s.users.GetByUID(ctx, uid)
}
