// Package token mints and parses the HS256 JWTs used as sign-in link codes
// and as ID tokens handed to clients after authentication.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AudienceLink    = "signin-link"
	AudienceIDToken = "id-token"
)

var (
	ErrInvalid = errors.New("token invalid")
	ErrExpired = errors.New("token expired")
)

// LinkClaims travel inside the oobCode of a sign-in link.
type LinkClaims struct {
	jwt.RegisteredClaims
	ContinueURL string `json:"continueUrl,omitempty"`
}

// Email is the address the link was sent to.
func (c *LinkClaims) Email() string { return c.Subject }

// IDClaims identify an authenticated account.
type IDClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

// UID is the provider account id.
func (c *IDClaims) UID() string { return c.Subject }

type Manager struct {
	key    []byte
	issuer string
	now    func() time.Time
}

func NewManager(signingKey, issuer string) *Manager {
	return &Manager{key: []byte(signingKey), issuer: issuer, now: time.Now}
}

// WithClock replaces the time source; used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// IssueLinkCode returns a signed link code and its unique id.
func (m *Manager) IssueLinkCode(email, continueURL string, ttl time.Duration) (code, id string, err error) {
	now := m.now()
	id = uuid.NewString()
	claims := LinkClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        id,
			Issuer:    m.issuer,
			Subject:   email,
			Audience:  jwt.ClaimStrings{AudienceLink},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		ContinueURL: continueURL,
	}
	code, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", "", fmt.Errorf("sign link code: %w", err)
	}
	return code, id, nil
}

// ParseLinkCode verifies signature, audience and expiry of a link code.
func (m *Manager) ParseLinkCode(code string) (*LinkClaims, error) {
	claims := &LinkClaims{}
	if err := m.parse(code, claims, AudienceLink); err != nil {
		return nil, err
	}
	return claims, nil
}

// LooksLikeLinkCode checks signature and audience only, so an expired link is
// still recognised as a sign-in link.
func (m *Manager) LooksLikeLinkCode(code string) bool {
	claims := &LinkClaims{}
	_, err := jwt.ParseWithClaims(code, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return false
	}
	for _, aud := range claims.Audience {
		if aud == AudienceLink {
			return true
		}
	}
	return false
}

func (m *Manager) IssueIDToken(uid, email, name string, ttl time.Duration) (string, error) {
	now := m.now()
	claims := IDClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   uid,
			Audience:  jwt.ClaimStrings{AudienceIDToken},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Email: email,
		Name:  name,
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.key)
	if err != nil {
		return "", fmt.Errorf("sign id token: %w", err)
	}
	return tok, nil
}

func (m *Manager) ParseIDToken(tok string) (*IDClaims, error) {
	claims := &IDClaims{}
	if err := m.parse(tok, claims, AudienceIDToken); err != nil {
		return nil, err
	}
	return claims, nil
}

func (m *Manager) parse(raw string, claims jwt.Claims, audience string) error {
	_, err := jwt.ParseWithClaims(raw, claims, m.keyFunc,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithIssuer(m.issuer),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpired
		}
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	return nil
}

func (m *Manager) keyFunc(t *jwt.Token) (interface{}, error) {
	if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.New("unexpected signing method")
	}
	return m.key, nil
}
