package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rentpay/rentpay/internal/auth"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/samber/lo"
)

const bearerPrefix = "Bearer "

// AuthenticateMiddleware requires a valid bearer token and places the caller
// on the request context.
func AuthenticateMiddleware(provider auth.Provider, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := extractBearer(c.GetHeader(types.HeaderAuthorization))
		if !ok {
			unauthorized(c, ierr.NewError("missing bearer token").
				WithHint("Authorization header with a bearer token is required").
				Mark(ierr.ErrPermissionDenied))
			return
		}

		claims, err := provider.ValidateToken(c.Request.Context(), token)
		if err != nil {
			log.Debugw("rejected bearer token", "error", err, "path", c.Request.URL.Path)
			unauthorized(c, err)
			return
		}

		ctx := c.Request.Context()
		ctx = types.SetUserID(ctx, claims.UserID)
		ctx = types.SetRole(ctx, claims.Role)
		if claims.TenantID != "" {
			ctx = types.SetTenantID(ctx, claims.TenantID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Set(string(types.CtxUserID), claims.UserID)
		c.Set(string(types.CtxTenantID), claims.TenantID)
		c.Set(string(types.CtxRole), claims.Role)
		c.Next()
	}
}

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(roles ...types.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := types.GetRole(c.Request.Context())
		if !lo.Contains(roles, role) {
			err := ierr.NewError("role not allowed").
				WithHintf("This operation is not available to the %q role", role).
				Mark(ierr.ErrPermissionDenied)
			c.AbortWithStatusJSON(http.StatusForbidden, ierr.NewErrorResponse(err))
			return
		}
		c.Next()
	}
}

func extractBearer(header string) (string, bool) {
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	return token, token != ""
}

func unauthorized(c *gin.Context, err error) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	c.AbortWithStatusJSON(http.StatusUnauthorized, ierr.NewErrorResponse(err))
}
