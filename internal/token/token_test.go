package token_test

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SinaHo/fyra-signin-backend/internal/token"
)

func TestLinkCode_RoundTrip(t *testing.T) {
	m := token.NewManager("secret", "fyra-signin")

	code, id, err := m.IssueLinkCode("user@example.com", "http://localhost:3001", time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, id)

	claims, err := m.ParseLinkCode(code)
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", claims.Email())
	assert.Equal(t, id, claims.ID)
	assert.Equal(t, "http://localhost:3001", claims.ContinueURL)
	assert.True(t, m.LooksLikeLinkCode(code))
}

func TestLinkCode_Expired(t *testing.T) {
	issued := time.Now().Add(-2 * time.Hour)
	m := token.NewManager("secret", "fyra-signin").WithClock(func() time.Time { return issued })
	code, _, err := m.IssueLinkCode("user@example.com", "", time.Hour)
	require.NoError(t, err)

	m.WithClock(time.Now)
	_, err = m.ParseLinkCode(code)
	assert.ErrorIs(t, err, token.ErrExpired)
	// still recognised as a link so the confirmation step can report expiry
	assert.True(t, m.LooksLikeLinkCode(code))
}

func TestLinkCode_WrongKeyOrAudience(t *testing.T) {
	m := token.NewManager("secret", "fyra-signin")
	other := token.NewManager("other", "fyra-signin")

	code, _, err := other.IssueLinkCode("user@example.com", "", time.Hour)
	require.NoError(t, err)
	_, err = m.ParseLinkCode(code)
	assert.ErrorIs(t, err, token.ErrInvalid)
	assert.False(t, m.LooksLikeLinkCode(code))

	idTok, err := m.IssueIDToken("uid-1", "user@example.com", "user", time.Hour)
	require.NoError(t, err)
	_, err = m.ParseLinkCode(idTok)
	assert.ErrorIs(t, err, token.ErrInvalid)
	assert.False(t, m.LooksLikeLinkCode(idTok))
	assert.False(t, m.LooksLikeLinkCode("not-a-jwt"))
}

func TestIDToken(t *testing.T) {
	m := token.NewManager("secret", "fyra-signin")

	tok, err := m.IssueIDToken("uid-1", "user@example.com", "user", time.Hour)
	require.NoError(t, err)

	claims, err := m.ParseIDToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "uid-1", claims.UID())
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "user", claims.Name)

	_, err = m.ParseIDToken(tok + "x")
	assert.True(t, errors.Is(err, token.ErrInvalid))
}
