// Package service contains the business logic behind the HTTP API.
package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"skillswap/internal/middleware"
	"skillswap/internal/models"
	"skillswap/internal/observability"
	"skillswap/internal/repository"
	"skillswap/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
)

const (
	tokenIssuer   = "skillswap-api"
	tokenAudience = "skillswap-client"
)

// ErrInvalidCredentials is returned by Login for an unknown username and for
// a wrong password alike.
var ErrInvalidCredentials = models.NewUnauthorizedError("Invalid credentials")

// AuthConfig holds token and hashing settings.
type AuthConfig struct {
	Secret     string
	TTL        time.Duration
	BcryptCost int
}

type tokenClaims struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	jwt.RegisteredClaims
}

// AuthService issues and verifies bearer tokens.
type AuthService struct {
	users  repository.UserRepository
	rdb    *redis.Client
	secret []byte
	ttl    time.Duration
	cost   int
	now    func() time.Time

	dummyOnce sync.Once
	dummyHash []byte
}

// NewAuthService returns an AuthService. rdb may be nil, in which case tokens
// cannot be revoked.
func NewAuthService(users repository.UserRepository, rdb *redis.Client, cfg AuthConfig) *AuthService {
	cost := cfg.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &AuthService{
		users:  users,
		rdb:    rdb,
		secret: []byte(cfg.Secret),
		ttl:    ttl,
		cost:   cost,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for issuing and verifying tokens.
func (s *AuthService) WithClock(now func() time.Time) *AuthService {
	s.now = now
	return s
}

// Login checks credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, username, password string) (token string, err error) {
	ctx, end := observability.StartSpan(ctx, "auth.Login")
	defer func() { end(err) }()

	var errs validation.Errors
	if strings.TrimSpace(username) == "" {
		errs.Add("username", "username is required")
	}
	errs.Check("password", validation.ValidateLoginPassword(password))
	if err := errs.Err(); err != nil {
		return "", err
	}

	user, err := s.users.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		return "", err
	}
	if user == nil {
		// Burn comparable time so unknown usernames are not distinguishable.
		_ = bcrypt.CompareHashAndPassword(s.dummy(), []byte(password))
		observability.LoginAttemptsTotal.WithLabelValues("unknown_user").Inc()
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		observability.LoginAttemptsTotal.WithLabelValues("bad_password").Inc()
		return "", ErrInvalidCredentials
	}

	observability.LoginAttemptsTotal.WithLabelValues("success").Inc()
	return s.IssueToken(user)
}

func (s *AuthService) dummy() []byte {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = bcrypt.GenerateFromPassword([]byte("not-a-real-password"), s.cost)
	})
	return s.dummyHash
}

// IssueToken signs a token carrying user's identity snapshot.
func (s *AuthService) IssueToken(user *models.User) (string, error) {
	if len(s.secret) == 0 {
		return "", models.NewInternalError(fmt.Errorf("JWT secret not configured"))
	}
	now := s.now()
	claims := tokenClaims{
		Username: user.Username,
		Name:     user.Name,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(uint64(user.ID), 10),
			Issuer:    tokenIssuer,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateJTI(now),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", models.NewInternalError(err)
	}
	return signed, nil
}

// generateJTI creates a unique JWT ID used for revocation
func generateJTI(now time.Time) string {
	return fmt.Sprintf("%d-%s", now.Unix(), uuid.New().String()[:8])
}

// VerifyToken maps a bearer token back to the identity it was issued for.
func (s *AuthService) VerifyToken(ctx context.Context, token string) (*models.Identity, error) {
	if token == "" {
		return nil, models.NewUnauthorizedError("Authorization required")
	}
	var claims tokenClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithAudience(tokenAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	userID, err := strconv.ParseUint(claims.Subject, 10, 32)
	if err != nil || userID == 0 {
		return nil, models.NewUnauthorizedError("Invalid or expired token")
	}

	if claims.ID != "" && s.rdb != nil {
		revoked, err := s.rdb.Exists(ctx, blacklistKey(claims.ID)).Result()
		if err != nil {
			middleware.Logger.WarnContext(ctx, "token blacklist lookup failed", "error", err)
		} else if revoked > 0 {
			return nil, models.NewUnauthorizedError("Token has been revoked")
		}
	}

	return &models.Identity{
		UserID:    uint(userID),
		Username:  claims.Username,
		Name:      claims.Name,
		TokenID:   claims.ID,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// Logout revokes the token behind identity until it would have expired.
// Without Redis it is a no-op.
func (s *AuthService) Logout(ctx context.Context, identity *models.Identity) error {
	if s.rdb == nil || identity == nil || identity.TokenID == "" {
		return nil
	}
	ttl := identity.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	if err := s.rdb.Set(ctx, blacklistKey(identity.TokenID), "1", ttl).Err(); err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func hashPassword(password string, cost int) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", models.NewValidationError("Password must not exceed 72 characters")
		}
		return "", models.NewInternalError(err)
	}
	return string(hash), nil
}

func blacklistKey(jti string) string {
	return "blacklist:" + jti
}
