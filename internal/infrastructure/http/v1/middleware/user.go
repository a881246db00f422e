package middleware

import (
	"github.com/gin-gonic/gin"

	appctx "stocklot/internal/core/context"
)

const (
	HeaderUserID    = "X-User-ID"
	HeaderUserEmail = "X-User-Email"
)

// UserContext propagates the operator identity supplied by the fronting
// application (which owns authentication) into the request context, so the
// ledger can stamp processedById on transactions.
func UserContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetHeader(HeaderUserID)
		if userID == "" {
			c.Next()
			return
		}

		user := &appctx.UserContext{
			UserID: userID,
			Email:  c.GetHeader(HeaderUserEmail),
		}
		ctx := appctx.WithUser(c.Request.Context(), user)
		c.Request = c.Request.WithContext(ctx)
		c.Set("user_id", userID)

		c.Next()
	}
}
