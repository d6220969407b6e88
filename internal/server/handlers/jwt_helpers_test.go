package handlers

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testJWTConfig() JWTConfig {
	return JWTConfig{
		Secret:         []byte("test-secret-key"),
		AccessTokenTTL: 15 * time.Minute,
	}
}

func TestAccessToken_RoundTrip(t *testing.T) {
	cfg := testJWTConfig()

	token, err := GenerateAccessToken(cfg, "clinic-1", "user-1")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateAccessToken(cfg, token)
	require.NoError(t, err)
	assert.Equal(t, "clinic-1", claims.TenantID)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "vetsync", claims.Issuer)
}

func TestValidateAccessToken_Failures(t *testing.T) {
	cfg := testJWTConfig()

	t.Run("wrong secret", func(t *testing.T) {
		token, err := GenerateAccessToken(JWTConfig{Secret: []byte("other"), AccessTokenTTL: time.Minute}, "clinic-1", "user-1")
		require.NoError(t, err)

		_, err = ValidateAccessToken(cfg, token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		expired := cfg
		expired.AccessTokenTTL = -time.Minute

		token, err := GenerateAccessToken(expired, "clinic-1", "user-1")
		require.NoError(t, err)

		_, err = ValidateAccessToken(cfg, token)
		assert.Error(t, err)
	})

	t.Run("garbage token", func(t *testing.T) {
		_, err := ValidateAccessToken(cfg, "not.a.token")
		assert.Error(t, err)
	})

	t.Run("token without tenant rejected", func(t *testing.T) {
		now := time.Now()
		claims := CustomClaims{
			UserID: "user-1",
			RegisteredClaims: jwt.RegisteredClaims{
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
				IssuedAt:  jwt.NewNumericDate(now),
			},
		}
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(cfg.Secret)
		require.NoError(t, err)

		_, err = ValidateAccessToken(cfg, token)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "tenant")
	})
}
