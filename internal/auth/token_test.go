package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	"concertdesk/internal/auth"
	"concertdesk/internal/clock"
	"concertdesk/internal/models"
)

const secret = "test-secret-0123456789"

func TestIssueAndVerify(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	m := auth.NewTokenManager(secret, time.Hour, clk)

	token, expires, err := m.Issue(models.User{ID: 9, Email: "anna@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)
	require.Equal(t, clk.Now().Add(time.Hour), expires)

	p, err := m.Verify(token)
	require.NoError(t, err)
	require.Equal(t, models.Principal{UserID: 9, Email: "anna@example.com", Role: models.RoleAdmin}, p)
}

func TestVerifyRejectsExpired(t *testing.T) {
	clk := clock.NewManual(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC))
	m := auth.NewTokenManager(secret, time.Minute, clk)

	token, _, err := m.Issue(models.User{ID: 1, Role: models.RoleUser})
	require.NoError(t, err)

	clk.Advance(2 * time.Minute)
	_, err = m.Verify(token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyRejectsOtherSecret(t *testing.T) {
	issuer := auth.NewTokenManager(secret, time.Hour, nil)
	verifier := auth.NewTokenManager("another-secret-0123456789", time.Hour, nil)

	token, _, err := issuer.Issue(models.User{ID: 1})
	require.NoError(t, err)

	_, err = verifier.Verify(token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	m := auth.NewTokenManager(secret, time.Hour, nil)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, auth.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "1",
			Issuer:    "concertdesk",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: "admin",
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = m.Verify(token)
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestVerifyGarbage(t *testing.T) {
	m := auth.NewTokenManager(secret, time.Hour, nil)
	_, err := m.Verify("not.a.token")
	require.ErrorIs(t, err, auth.ErrInvalidToken)
}
