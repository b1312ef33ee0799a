package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/warta-go-api/internal/models"
)

// Password gate states carried in the token's pwd_state claim.
const (
	PasswordStateOK      = "ok"
	PasswordStateWarn    = "warn"
	PasswordStateExpired = "expired"
)

// ErrTokenInvalid covers every way a presented token can fail validation:
// bad signature, expiry, revocation or malformed claims.
var ErrTokenInvalid = errors.New("token invalid")

// SessionClaims is the decoded content of an access token. Sessions are
// client-held; the server keeps only a revocation denylist.
type SessionClaims struct {
	UserID        uint
	Email         string
	Role          string
	JTI           string
	PasswordState string
	ExpiresAt     time.Time
}

// TokenService issues, validates and revokes access tokens.
type TokenService interface {
	Issue(user models.User, passwordState string) (string, error)
	Validate(ctx context.Context, token string) (SessionClaims, error)
	Revoke(ctx context.Context, claims SessionClaims) error
}

type tokenService struct {
	secret []byte
	ttl    time.Duration
	redis  *redis.Client
	logger zerolog.Logger
}

// NewTokenService constructs the token service.
func NewTokenService(secret string, ttl time.Duration, redisClient *redis.Client, logger zerolog.Logger) TokenService {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}

	return &tokenService{
		secret: []byte(secret),
		ttl:    ttl,
		redis:  redisClient,
		logger: logger.With().Str("component", "token_service").Logger(),
	}
}

func (s *tokenService) Issue(user models.User, passwordState string) (string, error) {
	if passwordState == "" {
		passwordState = PasswordStateOK
	}

	now := time.Now()
	claims := jwt.MapClaims{
		"sub":       fmt.Sprintf("%d", user.ID),
		"email":     user.Email,
		"role":      user.Role,
		"jti":       uuid.NewString(),
		"pwd_state": passwordState,
		"iat":       now.Unix(),
		"exp":       now.Add(s.ttl).Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return signed, nil
}

func (s *tokenService) Validate(ctx context.Context, tokenString string) (SessionClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return SessionClaims{}, ErrTokenInvalid
	}

	mapClaims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return SessionClaims{}, ErrTokenInvalid
	}

	claims, err := decodeSessionClaims(mapClaims)
	if err != nil {
		return SessionClaims{}, ErrTokenInvalid
	}

	revoked, err := s.isRevoked(ctx, claims.JTI)
	if err != nil {
		// Failing open on a revocation lookup would honor revoked sessions.
		return SessionClaims{}, fmt.Errorf("revocation check failed: %w", err)
	}
	if revoked {
		return SessionClaims{}, ErrTokenInvalid
	}

	return claims, nil
}

// Revoke denylists the token's JTI until its natural expiry, after which the
// signature check alone rejects it.
func (s *tokenService) Revoke(ctx context.Context, claims SessionClaims) error {
	if s.redis == nil || claims.JTI == "" {
		return nil
	}

	ttl := time.Until(claims.ExpiresAt)
	if ttl <= 0 {
		return nil
	}

	if err := s.redis.Set(ctx, revocationKey(claims.JTI), "revoked", ttl).Err(); err != nil {
		return fmt.Errorf("failed to denylist token: %w", err)
	}

	return nil
}

func (s *tokenService) isRevoked(ctx context.Context, jti string) (bool, error) {
	if s.redis == nil || jti == "" {
		return false, nil
	}

	err := s.redis.Get(ctx, revocationKey(jti)).Err()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, nil
}

func revocationKey(jti string) string {
	return "warta:revoked:" + jti
}

func decodeSessionClaims(claims jwt.MapClaims) (SessionClaims, error) {
	subject, err := claims.GetSubject()
	if err != nil || subject == "" {
		return SessionClaims{}, fmt.Errorf("missing subject")
	}

	var userID uint
	if _, err := fmt.Sscanf(subject, "%d", &userID); err != nil {
		return SessionClaims{}, fmt.Errorf("invalid subject")
	}

	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return SessionClaims{}, fmt.Errorf("missing expiry")
	}

	return SessionClaims{
		UserID:        userID,
		Email:         stringClaim(claims, "email"),
		Role:          stringClaim(claims, "role"),
		JTI:           stringClaim(claims, "jti"),
		PasswordState: stringClaim(claims, "pwd_state"),
		ExpiresAt:     expiry.Time,
	}, nil
}

func stringClaim(claims jwt.MapClaims, key string) string {
	if value, ok := claims[key]; ok {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return ""
}
