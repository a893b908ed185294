package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	svc := NewService("segredo-de-teste", time.Hour)

	tokenString, claims, err := svc.GenerateToken("user-1", "imob@exemplo.com")
	require.NoError(t, err)
	assert.NotEmpty(t, claims.SessionID())

	parsed, err := svc.ValidateToken(tokenString)
	require.NoError(t, err)
	assert.Equal(t, "user-1", parsed.UserID)
	assert.Equal(t, "imob@exemplo.com", parsed.Email)
	assert.Equal(t, claims.SessionID(), parsed.SessionID())
}

func TestValidateToken_Expired(t *testing.T) {
	svc := NewService("segredo-de-teste", time.Minute)
	issued := time.Now().Add(-time.Hour)
	svc.now = func() time.Time { return issued }

	tokenString, _, err := svc.GenerateToken("user-1", "a@b.com")
	require.NoError(t, err)

	svc.now = time.Now
	_, err = svc.ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateToken_WrongSecret(t *testing.T) {
	tokenString, _, err := NewService("um", time.Hour).GenerateToken("user-1", "a@b.com")
	require.NoError(t, err)

	_, err = NewService("outro", time.Hour).ValidateToken(tokenString)
	assert.Error(t, err)
}

func TestValidateToken_RejectsNoneAlgorithm(t *testing.T) {
	claims := &CustomClaims{
		UserID: "user-1",
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        "s1",
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewService("segredo", time.Hour).ValidateToken(unsigned)
	assert.Error(t, err)
}
