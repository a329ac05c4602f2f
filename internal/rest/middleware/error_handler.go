package middleware

import (
	"github.com/gin-gonic/gin"
	ierr "github.com/rentpay/rentpay/internal/errors"
	"github.com/rentpay/rentpay/internal/logger"
)

// ErrorHandler renders the last error a handler attached with c.Error.
func ErrorHandler(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status := ierr.HTTPStatusFromErr(err)
		if status >= 500 {
			log.WithContext(c.Request.Context()).Errorw("request failed",
				"path", c.FullPath(),
				"error", err,
			)
		}
		c.JSON(status, ierr.NewErrorResponse(err))
	}
}
