package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"stocklot/internal/domain/audit"
)

const maxAuditBodyBytes = 4 << 20 // 4 MiB

// Audit records mutating API calls to the audit trail after they succeed.
// The request body is captured up front; oversized bodies are truncated
// rather than rejected because auditing must never block the operation.
func Audit(recorder audit.Recorder) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost &&
			c.Request.Method != http.MethodPut &&
			c.Request.Method != http.MethodPatch &&
			c.Request.Method != http.MethodDelete {
			c.Next()
			return
		}

		var body []byte
		if c.Request.Body != nil {
			limited := io.LimitReader(c.Request.Body, maxAuditBodyBytes)
			body, _ = io.ReadAll(limited)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		c.Next()

		if c.Writer.Status() >= http.StatusBadRequest {
			return
		}

		recorder.Record(c.Request.Context(), audit.Entry{
			Action:  c.Request.Method,
			Entity:  c.FullPath(),
			Payload: body,
		})
	}
}
