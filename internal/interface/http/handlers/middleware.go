package handlers

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/ivnmtz09/yonna-akademia/pkg/logger"
)

const (
	ctxRequestID = "request_id"
	ctxUserID    = "user_id"

	// HeaderRequestID is echoed on every response.
	HeaderRequestID = "X-Request-ID"
)

// RequestIDFrom returns the request id set by RequestID.
func RequestIDFrom(c *gin.Context) string {
	return c.GetString(ctxRequestID)
}

// UserIDFrom returns the authenticated user id set by Auth.
func UserIDFrom(c *gin.Context) string {
	return c.GetString(ctxUserID)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST ID + LOGGING
// ══════════════════════════════════════════════════════════════════════════════

// RequestID assigns a request id and stores a request-scoped logger in the
// request context.
func RequestID(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)

		ctx := logger.WithContext(c.Request.Context(), log.WithRequestID(id))
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// RequestLogger logs one line per request at a level matching the status.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		fields := []logger.Field{
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.Int("status", status),
			logger.Latency(time.Since(start)),
			logger.String("ip", c.ClientIP()),
			logger.String("request_id", RequestIDFrom(c)),
		}
		if uid := UserIDFrom(c); uid != "" {
			fields = append(fields, logger.UserID(uid))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, logger.String("errors", c.Errors.String()))
		}

		switch {
		case status >= 500:
			log.Error("http request", fields...)
		case status >= 400:
			log.Warn("http request", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// RECOVERY
// ══════════════════════════════════════════════════════════════════════════════

// SystemErrorNotifier alerts administrators about unrecovered failures.
type SystemErrorNotifier interface {
	NotifySystemError(ctx context.Context, errMsg, trace string) (int, error)
}

// Recovery turns panics into 500 responses and a system-error notification.
func Recovery(log *logger.Logger, notifier SystemErrorNotifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			stack := string(debug.Stack())
			errMsg := fmt.Sprint(rec)
			log.Error("panic recovered",
				logger.String("error", errMsg),
				logger.String("stack", stack),
				logger.String("path", c.Request.URL.Path),
				logger.String("request_id", RequestIDFrom(c)),
			)
			if notifier != nil {
				ctx := context.WithoutCancel(c.Request.Context())
				if _, err := notifier.NotifySystemError(ctx, errMsg, stack); err != nil {
					log.Warn("failed to notify administrators", logger.Err(err))
				}
			}
			Fail(c, http.StatusInternalServerError, "internal_server_error", "An unexpected error occurred")
		}()
		c.Next()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// CORS + RATE LIMIT
// ══════════════════════════════════════════════════════════════════════════════

// CORS allows the configured origins; "*" allows any.
func CORS(allowed []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")
		for _, o := range allowed {
			if o == "*" || o == origin {
				c.Header("Access-Control-Allow-Origin", origin)
				c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
				c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
				c.Header("Access-Control-Max-Age", "86400")
				break
			}
		}
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// RateLimit rejects clients over their per-window budget.
func RateLimit(limiter *RateLimiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !limiter.Allow(c.ClientIP()) {
			c.Header("Retry-After", fmt.Sprintf("%d", int(limiter.window.Seconds())))
			Fail(c, http.StatusTooManyRequests, "rate_limit_exceeded", "Too many requests, please try again later")
			return
		}
		c.Next()
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// AUTHENTICATION
// ══════════════════════════════════════════════════════════════════════════════

// Auth requires a valid bearer token. Websocket clients that cannot set
// headers pass it as the token query parameter.
func Auth(verifier *TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := ""
		if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
			raw = strings.TrimPrefix(h, "Bearer ")
		}
		if raw == "" {
			raw = c.Query("token")
		}
		if raw == "" {
			Fail(c, http.StatusUnauthorized, "missing_token", "Bearer token is required")
			return
		}

		userID, err := verifier.Verify(raw)
		if err != nil {
			Fail(c, http.StatusUnauthorized, "invalid_token", "Invalid or expired token")
			return
		}
		c.Set(ctxUserID, userID)
		c.Next()
	}
}
