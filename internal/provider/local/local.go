// Package local is a self-hosted identity provider: accounts live in Postgres,
// passwords are bcrypt hashes and sign-in links carry a signed, single-use code.
package local

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/SinaHo/fyra-signin-backend/internal/mailer"
	"github.com/SinaHo/fyra-signin-backend/internal/model"
	"github.com/SinaHo/fyra-signin-backend/internal/provider"
	"github.com/SinaHo/fyra-signin-backend/internal/repository"
	"github.com/SinaHo/fyra-signin-backend/internal/token"
)

const (
	MinPasswordLength = 6

	linkModeParam = "mode"
	linkModeValue = "signIn"
	linkCodeParam = "oobCode"
)

type Options struct {
	EmailLinkEnabled  bool
	AuthorizedDomains []string
	LinkTTL           time.Duration
	IDTokenTTL        time.Duration
	LinkCooldown      time.Duration
}

type Provider struct {
	accounts repository.AccountRepository
	tokens   *token.Manager
	mail     mailer.Sender
	ledger   Ledger
	opts     Options
	logger   *zap.SugaredLogger
}

var _ provider.IdentityProvider = (*Provider)(nil)

func New(
	accounts repository.AccountRepository,
	tokens *token.Manager,
	mail mailer.Sender,
	ledger Ledger,
	opts Options,
	logger *zap.SugaredLogger,
) *Provider {
	if opts.LinkTTL <= 0 {
		opts.LinkTTL = time.Hour
	}
	if opts.IDTokenTTL <= 0 {
		opts.IDTokenTTL = time.Hour
	}
	return &Provider{
		accounts: accounts,
		tokens:   tokens,
		mail:     mail,
		ledger:   ledger,
		opts:     opts,
		logger:   logger,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkEmail(email string) error {
	if err := validation.Validate(email, validation.Required, is.Email); err != nil {
		return provider.NewError(provider.CodeInvalidEmail, "The email address is badly formatted.")
	}
	return nil
}

// SendSignInLink mails a single-use sign-in link that returns to settings.URL.
func (p *Provider) SendSignInLink(ctx context.Context, email string, settings provider.ActionCodeSettings) error {
	email = normalizeEmail(email)
	if err := checkEmail(email); err != nil {
		return err
	}
	if !p.opts.EmailLinkEnabled {
		return provider.NewError(provider.CodeOperationNotAllowed, "Email link sign-in is disabled.")
	}

	continueURL, err := url.Parse(settings.URL)
	if err != nil || continueURL.Host == "" {
		return provider.NewError(provider.CodeUnauthorizedDomain, "The continue URL is not valid.")
	}
	if !p.domainAuthorized(continueURL.Hostname()) {
		return provider.NewError(provider.CodeUnauthorizedDomain, "Domain not allowlisted: "+continueURL.Hostname())
	}

	cooldownKey := "cooldown:" + email
	if p.opts.LinkCooldown > 0 {
		ok, err := p.ledger.Claim(ctx, cooldownKey, p.opts.LinkCooldown)
		if err != nil {
			return provider.Wrap(err, "cooldown check")
		}
		if !ok {
			return provider.NewError(provider.CodeTooManyRequests, "Too many sign-in links requested for this address.")
		}
	}

	if err := p.deliverLink(ctx, email, settings.URL, continueURL); err != nil {
		// only links that went out count against the cooldown
		if p.opts.LinkCooldown > 0 {
			p.release(ctx, cooldownKey)
		}
		return err
	}
	p.logger.Infow("sign-in link sent", "email", email, "handle_code_in_app", settings.HandleCodeInApp)
	return nil
}

func (p *Provider) deliverLink(ctx context.Context, email, rawURL string, continueURL *url.URL) error {
	code, _, err := p.tokens.IssueLinkCode(email, rawURL, p.opts.LinkTTL)
	if err != nil {
		return provider.Wrap(err, "issue link code")
	}

	q := continueURL.Query()
	q.Set(linkModeParam, linkModeValue)
	q.Set(linkCodeParam, code)
	continueURL.RawQuery = q.Encode()

	if err := p.mail.SendSignInLink(ctx, email, continueURL.String()); err != nil {
		return provider.Wrap(err, "deliver sign-in link")
	}
	return nil
}

func (p *Provider) release(ctx context.Context, key string) {
	if err := p.ledger.Release(ctx, key); err != nil {
		p.logger.Warnw("release ledger claim failed", "key", key, "error", err)
	}
}

func (p *Provider) domainAuthorized(host string) bool {
	host = strings.ToLower(host)
	for _, d := range p.opts.AuthorizedDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if host == d || strings.HasSuffix(host, "."+d) {
			return true
		}
	}
	return false
}

func linkCode(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	q := u.Query()
	if q.Get(linkModeParam) != linkModeValue {
		return ""
	}
	return q.Get(linkCodeParam)
}

// IsSignInLink reports whether link carries a code minted by this provider.
func (p *Provider) IsSignInLink(link string) bool {
	code := linkCode(link)
	return code != "" && p.tokens.LooksLikeLinkCode(code)
}

// SignInWithLink completes a link sign-in, creating the account on first use.
func (p *Provider) SignInWithLink(ctx context.Context, email, link string) (*model.Identity, error) {
	email = normalizeEmail(email)
	code := linkCode(link)
	if code == "" {
		return nil, provider.NewError(provider.CodeInvalidActionCode, "The sign-in link is malformed.")
	}

	claims, err := p.tokens.ParseLinkCode(code)
	if err != nil {
		if errors.Is(err, token.ErrExpired) {
			return nil, provider.NewError(provider.CodeExpiredActionCode, "The sign-in link has expired.")
		}
		return nil, provider.NewError(provider.CodeInvalidActionCode, "The sign-in link is invalid.")
	}
	if claims.Email() != email {
		return nil, provider.NewError(provider.CodeInvalidEmail, "The email does not match the sign-in link.")
	}

	ttl := time.Until(claims.ExpiresAt.Time)
	if ttl <= 0 {
		ttl = time.Minute
	}
	codeKey := "code:" + claims.ID
	fresh, err := p.ledger.Claim(ctx, codeKey, ttl)
	if err != nil {
		return nil, provider.Wrap(err, "claim link code")
	}
	if !fresh {
		return nil, provider.NewError(provider.CodeInvalidActionCode, "The sign-in link has already been used.")
	}

	id, err := p.linkAccount(ctx, email)
	if err != nil {
		// the link stays usable when the sign-in did not complete
		p.release(ctx, codeKey)
		return nil, err
	}
	return id, nil
}

// linkAccount loads the account for a link sign-in, creating it on first use.
func (p *Provider) linkAccount(ctx context.Context, email string) (*model.Identity, error) {
	acc, err := p.accounts.GetByEmail(ctx, email)
	if errors.Is(err, repository.ErrNotFound) {
		acc, err = p.accounts.Create(ctx, email, "", "", true)
		if errors.Is(err, repository.ErrEmailTaken) {
			acc, err = p.accounts.GetByEmail(ctx, email)
		}
	}
	if err != nil {
		return nil, provider.Wrap(err, "load account")
	}
	return p.identity(acc)
}

func (p *Provider) CreateAccount(ctx context.Context, email, password string) (*model.Identity, error) {
	email = normalizeEmail(email)
	if err := checkEmail(email); err != nil {
		return nil, err
	}
	if len(password) < MinPasswordLength {
		return nil, provider.NewError(provider.CodeWeakPassword, "Password should be at least 6 characters.")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, provider.Wrap(err, "hash password")
	}

	acc, err := p.accounts.Create(ctx, email, string(hashed), "", false)
	if err != nil {
		if errors.Is(err, repository.ErrEmailTaken) {
			return nil, provider.NewError(provider.CodeEmailAlreadyInUse, "The email address is already in use by another account.")
		}
		return nil, provider.Wrap(err, "create account")
	}
	return p.identity(acc)
}

func (p *Provider) Authenticate(ctx context.Context, email, password string) (*model.Identity, error) {
	email = normalizeEmail(email)
	if err := checkEmail(email); err != nil {
		return nil, err
	}

	acc, err := p.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, provider.NewError(provider.CodeUserNotFound, "There is no user record corresponding to this identifier.")
		}
		return nil, provider.Wrap(err, "load account")
	}
	if !acc.HasPassword() {
		return nil, provider.NewError(provider.CodeWrongPassword, "The account has no password; sign in with an email link.")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, provider.NewError(provider.CodeWrongPassword, "The password is invalid.")
	}
	return p.identity(acc)
}

func (p *Provider) UpdateDisplayName(ctx context.Context, uid, name string) error {
	if err := p.accounts.UpdateDisplayName(ctx, uid, name); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return provider.NewError(provider.CodeUserNotFound, "There is no user record corresponding to this identifier.")
		}
		return provider.Wrap(err, "update display name")
	}
	return nil
}

func (p *Provider) identity(acc *model.Account) (*model.Identity, error) {
	idToken, err := p.tokens.IssueIDToken(acc.UID, acc.Email, acc.DisplayName, p.opts.IDTokenTTL)
	if err != nil {
		return nil, provider.Wrap(err, "issue id token")
	}
	return &model.Identity{
		UID:         acc.UID,
		Email:       acc.Email,
		DisplayName: acc.DisplayName,
		IDToken:     idToken,
	}, nil
}
