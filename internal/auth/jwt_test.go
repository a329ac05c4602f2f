package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rentpay/rentpay/internal/config"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuth() Provider {
	cfg := config.GetDefaultConfig()
	cfg.Auth.Secret = "test-secret"
	return NewJWTAuth(cfg)
}

func TestJWTAuth_RoundTrip(t *testing.T) {
	a := newTestAuth()

	token, err := a.GenerateToken(&Claims{UserID: "user_1", TenantID: "tenant_1", Role: types.RoleTenant}, time.Hour)
	require.NoError(t, err)

	claims, err := a.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, "user_1", claims.UserID)
	assert.Equal(t, "tenant_1", claims.TenantID)
	assert.Equal(t, types.RoleTenant, claims.Role)
}

func TestJWTAuth_Rejects(t *testing.T) {
	a := newTestAuth()
	sign := func(secret string, method jwt.SigningMethod, claims jwt.MapClaims) string {
		var key interface{} = []byte(secret)
		if method == jwt.SigningMethodNone {
			key = jwt.UnsafeAllowNoneSignatureType
		}
		token, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return token
	}
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"user_id":   "user_1",
			"tenant_id": "tenant_1",
			"role":      "tenant",
			"exp":       time.Now().Add(time.Hour).Unix(),
		}
	}

	tests := []struct {
		name  string
		token string
	}{
		{"garbage", "not-a-token"},
		{"wrong secret", sign("other", jwt.SigningMethodHS256, valid())},
		{"none algorithm", sign("", jwt.SigningMethodNone, valid())},
		{"expired", sign("test-secret", jwt.SigningMethodHS256, func() jwt.MapClaims {
			c := valid()
			c["exp"] = time.Now().Add(-time.Minute).Unix()
			return c
		}())},
		{"missing user", sign("test-secret", jwt.SigningMethodHS256, func() jwt.MapClaims {
			c := valid()
			delete(c, "user_id")
			return c
		}())},
		{"tenant without tenant id", sign("test-secret", jwt.SigningMethodHS256, func() jwt.MapClaims {
			c := valid()
			delete(c, "tenant_id")
			return c
		}())},
		{"unknown role", sign("test-secret", jwt.SigningMethodHS256, func() jwt.MapClaims {
			c := valid()
			c["role"] = "system"
			return c
		}())},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := a.ValidateToken(context.Background(), tt.token)
			assert.True(t, ierr.IsPermissionDenied(err), "unexpected error: %v", err)
		})
	}
}

func TestJWTAuth_AdminNeedsNoTenant(t *testing.T) {
	a := newTestAuth()
	token, err := a.GenerateToken(&Claims{UserID: "ops_1", Role: types.RoleAdmin}, time.Hour)
	require.NoError(t, err)

	claims, err := a.ValidateToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, types.RoleAdmin, claims.Role)
	assert.Empty(t, claims.TenantID)
}
