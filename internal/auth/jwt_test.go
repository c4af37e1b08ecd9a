package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	config := JWTConfig{Secret: "test-secret", Issuer: "cnc-server", ExpiryHours: 1}

	token, err := GenerateToken(config, 42, "operator")
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken(config.Secret, token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "operator", claims.Username)
	assert.Equal(t, "cnc-server", claims.Issuer)
}

func TestValidateTokenWrongSecret(t *testing.T) {
	config := JWTConfig{Secret: "test-secret", Issuer: "cnc-server", ExpiryHours: 1}

	token, err := GenerateToken(config, 42, "operator")
	require.NoError(t, err)

	_, err = ValidateToken("other-secret", token)
	assert.Error(t, err)
}

func TestValidateTokenGarbage(t *testing.T) {
	_, err := ValidateToken("test-secret", "not-a-jwt")
	assert.Error(t, err)
}
