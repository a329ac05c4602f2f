package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/rentpay/rentpay/internal/types"
)

// RequestIDMiddleware propagates X-Request-ID or assigns a fresh one.
func RequestIDMiddleware(c *gin.Context) {
	requestID := c.GetHeader(types.HeaderRequestID)
	if requestID == "" {
		requestID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_REQUEST)
	}

	ctx := types.SetRequestID(c.Request.Context(), requestID)
	c.Request = c.Request.WithContext(ctx)
	c.Set(string(types.CtxRequestID), requestID)
	c.Header(types.HeaderRequestID, requestID)
	c.Next()
}
