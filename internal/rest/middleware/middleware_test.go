package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rentpay/rentpay/internal/auth"
	"github.com/rentpay/rentpay/internal/config"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
	"github.com/rentpay/rentpay/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(t *testing.T) (*gin.Engine, auth.Provider) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.GetDefaultConfig()
	cfg.Auth.Secret = "middleware-secret"
	provider := auth.NewJWTAuth(cfg)
	log := logger.NewNopLogger()

	r := gin.New()
	r.Use(RequestIDMiddleware, ErrorHandler(log))
	private := r.Group("/", AuthenticateMiddleware(provider, log))
	private.GET("/whoami", func(c *gin.Context) {
		ctx := c.Request.Context()
		c.JSON(http.StatusOK, gin.H{
			"user_id":    types.GetUserID(ctx),
			"tenant_id":  types.GetTenantID(ctx),
			"role":       types.GetRole(ctx),
			"request_id": types.GetRequestID(ctx),
		})
	})
	private.GET("/admin", RequireRole(types.RoleAdmin), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	r.GET("/fail", func(c *gin.Context) {
		c.Error(ierr.NewError("lease not found").
			WithHint("Lease not found").
			Mark(ierr.ErrNotFound))
	})
	return r, provider
}

func token(t *testing.T, p auth.Provider, role types.Role, tenantID string) string {
	t.Helper()
	tok, err := p.GenerateToken(&auth.Claims{UserID: "user_1", TenantID: tenantID, Role: role}, time.Hour)
	require.NoError(t, err)
	return "Bearer " + tok
}

func TestAuthenticateMiddleware(t *testing.T) {
	r, p := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set(types.HeaderAuthorization, token(t, p, types.RoleTenant, "tenant_1"))
	req.Header.Set(types.HeaderRequestID, "req_given")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var body map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "user_1", body["user_id"])
	assert.Equal(t, "tenant_1", body["tenant_id"])
	assert.Equal(t, "tenant", body["role"])
	assert.Equal(t, "req_given", body["request_id"])
	assert.Equal(t, "req_given", w.Header().Get(types.HeaderRequestID))
}

func TestAuthenticateMiddleware_Rejects(t *testing.T) {
	r, _ := newTestRouter(t)

	for _, header := range []string{"", "Basic abc", "Bearer ", "Bearer not-a-jwt"} {
		req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
		if header != "" {
			req.Header.Set(types.HeaderAuthorization, header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code, "header %q", header)
		var resp ierr.ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.False(t, resp.Success)
	}
}

func TestRequireRole(t *testing.T) {
	r, p := newTestRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(types.HeaderAuthorization, token(t, p, types.RoleTenant, "tenant_1"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusForbidden, w.Code)

	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set(types.HeaderAuthorization, token(t, p, types.RoleAdmin, ""))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusNoContent, w.Code)
}

func TestErrorHandler(t *testing.T) {
	r, _ := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/fail", nil))

	require.Equal(t, http.StatusNotFound, w.Code)
	var resp ierr.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "Lease not found", resp.Error.Display)
	assert.NotEmpty(t, w.Header().Get(types.HeaderRequestID))
}
