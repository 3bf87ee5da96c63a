package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/erp/backoffice/internal/infrastructure/auth"
	"github.com/erp/backoffice/internal/interfaces/http/dto"
)

// Context keys set by WorkerAuth
const (
	WorkerClaimsKey = "worker_claims"
	AuthHeaderKey   = "Authorization"
	BearerPrefix    = "Bearer "
)

// WorkerTokenValidator verifies worker bearer tokens
type WorkerTokenValidator interface {
	Validate(token string) (*auth.WorkerClaims, error)
}

// WorkerAuthConfig holds worker authentication middleware configuration
type WorkerAuthConfig struct {
	Tokens     WorkerTokenValidator
	Revocation auth.TokenRevocation // optional
	Logger     *zap.Logger
}

// WorkerAuth authenticates out-of-process collection workers by their
// job-scoped bearer token and stores the claims under WorkerClaimsKey.
func WorkerAuth(cfg WorkerAuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Tokens == nil {
		return func(c *gin.Context) {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeUnavailable, "Worker callbacks are not configured", getRequestID(c)))
		}
	}

	return func(c *gin.Context) {
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			abortUnauthorized(c, log, dto.ErrCodeUnauthorized, "Missing authorization header", auth.ErrInvalidToken)
			return
		}
		if !strings.HasPrefix(authHeader, BearerPrefix) {
			abortUnauthorized(c, log, dto.ErrCodeTokenInvalid, "Invalid authorization header format", auth.ErrInvalidToken)
			return
		}
		tokenString := strings.TrimSpace(strings.TrimPrefix(authHeader, BearerPrefix))
		if tokenString == "" {
			abortUnauthorized(c, log, dto.ErrCodeTokenInvalid, "Missing token", auth.ErrInvalidToken)
			return
		}

		claims, err := cfg.Tokens.Validate(tokenString)
		if err != nil {
			code, message := dto.ErrCodeTokenInvalid, "Invalid token"
			if errors.Is(err, auth.ErrExpiredToken) {
				code, message = dto.ErrCodeTokenExpired, "Token has expired"
			}
			abortUnauthorized(c, log, code, message, err)
			return
		}

		if cfg.Revocation != nil && claims.ID != "" {
			revoked, err := cfg.Revocation.IsRevoked(c.Request.Context(), claims.ID)
			switch {
			case err != nil:
				// Fail open: a stale completion is still rejected by the job state
				log.Error("Failed to check worker token revocation",
					zap.String("jti", claims.ID),
					zap.Error(err),
				)
			case revoked:
				abortUnauthorized(c, log, dto.ErrCodeTokenRevoked, "Token has been revoked", auth.ErrTokenRevoked)
				return
			}
		}

		c.Set(WorkerClaimsKey, claims)
		c.Next()
	}
}

// RequireJobParam rejects requests whose :param differs from the token's job
func RequireJobParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetWorkerClaims(c)
		if claims == nil || !strings.EqualFold(claims.JobID, c.Param(param)) {
			abortForbidden(c, "Token does not cover this collection job")
			return
		}
		c.Next()
	}
}

// RequireSupplierParam rejects requests whose :param differs from the
// token's supplier
func RequireSupplierParam(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := GetWorkerClaims(c)
		if claims == nil || !strings.EqualFold(claims.SupplierID, c.Param(param)) {
			abortForbidden(c, "Token does not cover this supplier")
			return
		}
		c.Next()
	}
}

// GetWorkerClaims returns the claims stored by WorkerAuth, or nil
func GetWorkerClaims(c *gin.Context) *auth.WorkerClaims {
	if v, ok := c.Get(WorkerClaimsKey); ok {
		if claims, ok := v.(*auth.WorkerClaims); ok {
			return claims
		}
	}
	return nil
}

func abortUnauthorized(c *gin.Context, log *zap.Logger, code, message string, err error) {
	log.Warn("Worker authentication failed",
		zap.String("code", code),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err),
	)
	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

func abortForbidden(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusForbidden, dto.NewErrorResponseWithRequestID(dto.ErrCodeForbidden, message, getRequestID(c)))
}
