package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/rentpay/rentpay/internal/config"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
)

// Claims identifies an API caller.
type Claims struct {
	UserID string
	// TenantID is required for the tenant role and ignored for admins.
	TenantID string
	Role     types.Role
}

// Provider validates and issues bearer tokens.
type Provider interface {
	ValidateToken(ctx context.Context, token string) (*Claims, error)
	GenerateToken(claims *Claims, ttl time.Duration) (string, error)
}

type jwtAuth struct {
	AuthConfig config.AuthConfig
}

func NewJWTAuth(cfg *config.Configuration) Provider {
	return &jwtAuth{AuthConfig: cfg.Auth}
}

func (a *jwtAuth) ValidateToken(ctx context.Context, token string) (*Claims, error) {
	parsedToken, err := jwt.Parse(token, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ierr.NewError("unexpected signing method").
				WithHint(fmt.Sprintf("unexpected signing method: %v", token.Header["alg"])).
				Mark(ierr.ErrPermissionDenied)
		}
		return []byte(a.AuthConfig.Secret), nil
	})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("Token parse error").
			Mark(ierr.ErrPermissionDenied)
	}

	claims, ok := parsedToken.Claims.(jwt.MapClaims)
	if !ok || !parsedToken.Valid {
		return nil, ierr.NewError("invalid token claims").
			WithHint("Invalid token claims").
			Mark(ierr.ErrPermissionDenied)
	}

	userID, _ := claims["user_id"].(string)
	if userID == "" {
		return nil, ierr.NewError("token missing user ID").
			WithHint("Token missing user ID").
			Mark(ierr.ErrPermissionDenied)
	}

	role := types.Role(fmt.Sprint(claims["role"]))
	switch role {
	case types.RoleAdmin:
	case types.RoleTenant:
		if tenantID, _ := claims["tenant_id"].(string); tenantID == "" {
			return nil, ierr.NewError("token missing tenant ID").
				WithHint("Token missing tenant ID").
				Mark(ierr.ErrPermissionDenied)
		}
	default:
		return nil, ierr.NewError("token has unknown role").
			WithHint("Token role is not allowed").
			WithReportableDetails(map[string]interface{}{"role": role}).
			Mark(ierr.ErrPermissionDenied)
	}

	tenantID, _ := claims["tenant_id"].(string)
	return &Claims{UserID: userID, TenantID: tenantID, Role: role}, nil
}

func (a *jwtAuth) GenerateToken(c *Claims, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":   c.UserID,
		"tenant_id": c.TenantID,
		"role":      string(c.Role),
		"exp":       now.Add(ttl).Unix(),
		"iat":       now.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(a.AuthConfig.Secret))
	if err != nil {
		return "", ierr.WithError(err).
			WithHint("Failed to sign token").
			Mark(ierr.ErrSystem)
	}
	return signed, nil
}
