package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"webstarter/internal/auth"
)

const identityKey = "identity"

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

func requestLogger(logger logrus.FieldLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.WithFields(logrus.Fields{
			"method":  c.Request.Method,
			"path":    c.Request.URL.Path,
			"status":  c.Writer.Status(),
			"latency": time.Since(start).String(),
			"ip":      c.ClientIP(),
		}).Info("request")
	}
}

// requireAuth rejects requests without a valid bearer token and live
// session, and stores the caller identity on the gin and request contexts.
func (h *Handler) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := h.guard.Authenticate(c.Request.Context(), c.GetHeader("Authorization"))
		if err != nil {
			var authErr *auth.Error
			if errors.As(err, &authErr) {
				h.logger.WithField("reason", authErr.Reason).Debug("request rejected")
				c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Message: authErr.Message()})
				return
			}
			h.logger.WithError(err).Error("authenticate request")
			c.AbortWithStatusJSON(http.StatusInternalServerError, envelope{Message: msgInternal})
			return
		}

		c.Set(identityKey, id)
		c.Request = c.Request.WithContext(auth.WithIdentity(c.Request.Context(), id))
		c.Next()
	}
}

// mustIdentity is only valid behind requireAuth.
func mustIdentity(c *gin.Context) *auth.Identity {
	return c.MustGet(identityKey).(*auth.Identity)
}
