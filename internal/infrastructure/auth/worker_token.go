// Package auth issues and verifies the job-scoped tokens out-of-process
// collection workers present when they call back into the service.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/erp/backoffice/internal/infrastructure/config"
)

// TokenScope names what a worker token allows
type TokenScope string

const (
	// ScopeCollectionJob lets a worker upsert products for the job's
	// supplier and report the job's completion
	ScopeCollectionJob TokenScope = "collection_job"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrInvalidScope     = errors.New("invalid token scope")
	ErrTokenRevoked     = errors.New("token has been revoked")
	ErrMissingSecret    = errors.New("worker token secret is required")
)

// WorkerClaims are the JWT claims of a worker token
type WorkerClaims struct {
	jwt.RegisteredClaims
	JobID      string     `json:"job_id"`
	SupplierID string     `json:"supplier_id"`
	Scope      TokenScope `json:"scope"`
}

// JobUUID parses the job id claim
func (c *WorkerClaims) JobUUID() (uuid.UUID, error) {
	return uuid.Parse(c.JobID)
}

// SupplierUUID parses the supplier id claim
func (c *WorkerClaims) SupplierUUID() (uuid.UUID, error) {
	return uuid.Parse(c.SupplierID)
}

// IssuedToken is a signed token and its expiry
type IssuedToken struct {
	Token     string
	ID        string
	ExpiresAt time.Time
}

// WorkerTokenService signs and validates worker tokens with HS256
type WorkerTokenService struct {
	secret     []byte
	issuer     string
	expiration time.Duration
	now        func() time.Time
}

// NewWorkerTokenService creates a new worker token service
func NewWorkerTokenService(cfg config.WorkerConfig) (*WorkerTokenService, error) {
	if cfg.TokenSecret == "" {
		return nil, ErrMissingSecret
	}
	expiration := cfg.TokenTTL
	if expiration <= 0 {
		expiration = 2 * time.Hour
	}
	issuer := cfg.TokenIssuer
	if issuer == "" {
		issuer = "backoffice"
	}
	return &WorkerTokenService{
		secret:     []byte(cfg.TokenSecret),
		issuer:     issuer,
		expiration: expiration,
		now:        time.Now,
	}, nil
}

// Issue signs a token bound to one job and its supplier
func (s *WorkerTokenService) Issue(jobID, supplierID uuid.UUID) (*IssuedToken, error) {
	now := s.now()
	expiresAt := now.Add(s.expiration)
	jti := uuid.New().String()

	claims := &WorkerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   jobID.String(),
			Audience:  jwt.ClaimStrings{s.issuer},
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		JobID:      jobID.String(),
		SupplierID: supplierID.String(),
		Scope:      ScopeCollectionJob,
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, err
	}
	return &IssuedToken{Token: token, ID: jti, ExpiresAt: expiresAt}, nil
}

// Validate verifies a worker token and returns its claims
func (s *WorkerTokenService) Validate(tokenString string) (*WorkerClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &WorkerClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.issuer),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*WorkerClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}
	if claims.Scope != ScopeCollectionJob {
		return nil, ErrInvalidScope
	}
	if _, err := claims.JobUUID(); err != nil {
		return nil, ErrInvalidClaims
	}
	if _, err := claims.SupplierUUID(); err != nil {
		return nil, ErrInvalidClaims
	}
	return claims, nil
}

// RemainingTTL returns how long the claims stay valid
func (s *WorkerTokenService) RemainingTTL(claims *WorkerClaims) time.Duration {
	if claims.ExpiresAt == nil {
		return 0
	}
	return max(claims.ExpiresAt.Sub(s.now()), 0)
}
