package v1

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/types"
)

// callerTenantID is the tenant a tenant-role caller acts as. Admins get an
// empty string, which services treat as "any tenant".
func callerTenantID(c *gin.Context) string {
	ctx := c.Request.Context()
	if types.GetRole(ctx) == types.RoleTenant {
		return types.GetTenantID(ctx)
	}
	return ""
}

func bindJSON(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.Error(ierr.WithError(err).
			WithHint("Invalid request format").
			Mark(ierr.ErrValidation))
		return false
	}
	return true
}
