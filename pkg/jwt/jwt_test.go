package jwt

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidate(t *testing.T) {
	s := NewSigner("secret-1", time.Hour)
	userID, tenantID := uuid.New(), uuid.New()

	token, err := s.GenerateToken(userID, tenantID, "kasir", "CASHIER")
	require.NoError(t, err)

	claims, err := s.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, tenantID, claims.TenantID)
	assert.Equal(t, "kasir", claims.Username)
	assert.Equal(t, "CASHIER", claims.Role)
}

func TestValidateRejectsForeignSecret(t *testing.T) {
	token, err := NewSigner("secret-1", time.Hour).GenerateToken(uuid.New(), uuid.New(), "a", "ADMIN")
	require.NoError(t, err)

	_, err = NewSigner("secret-2", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateMissingToken(t *testing.T) {
	_, err := NewSigner("x", 0).ValidateToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
}
