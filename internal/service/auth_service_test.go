package service

import (
	"context"
	"testing"
	"time"

	"skillswap/internal/models"
	"skillswap/internal/testutil"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "test-secret-with-enough-length-0123456789"

func newAuth(r testRepos) *AuthService {
	return NewAuthService(r.users, nil, AuthConfig{Secret: testSecret, TTL: 12 * time.Hour, BcryptCost: bcrypt.MinCost})
}

func TestAuthService_LoginRoundTrip(t *testing.T) {
	repos := newTestRepos(t)
	user := mustRegister(t, repos.userService(nil), registerInput("alice", "Guitar"))
	auth := newAuth(repos)

	token, err := auth.Login(context.Background(), "alice", testPassword)
	require.NoError(t, err)

	identity, err := auth.VerifyToken(context.Background(), token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, identity.UserID)
	assert.Equal(t, "alice", identity.Username)
	assert.Equal(t, user.Name, identity.Name)
	assert.NotEmpty(t, identity.TokenID)
}

func TestAuthService_LoginErrorsAreIndistinguishable(t *testing.T) {
	repos := newTestRepos(t)
	mustRegister(t, repos.userService(nil), registerInput("alice", "Guitar"))
	auth := newAuth(repos)

	_, unknownErr := auth.Login(context.Background(), "nobody", testPassword)
	_, wrongErr := auth.Login(context.Background(), "alice", "Wr0ng$pass")

	require.Error(t, unknownErr)
	require.Error(t, wrongErr)
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
	assert.Equal(t, models.StatusFor(unknownErr), models.StatusFor(wrongErr))
	assert.Equal(t, models.CodeUnauthorized, appErrorOf(t, wrongErr).Code)
}

func TestAuthService_LoginValidation(t *testing.T) {
	auth := newAuth(newTestRepos(t))
	_, err := auth.Login(context.Background(), "", "short")
	appErr := appErrorOf(t, err)
	assert.Equal(t, models.CodeValidation, appErr.Code)
	require.Len(t, appErr.Fields, 2)
	assert.Equal(t, "username", appErr.Fields[0].Field)
	assert.Equal(t, "password", appErr.Fields[1].Field)
}

func TestAuthService_TokenExpiry(t *testing.T) {
	repos := newTestRepos(t)
	user := mustRegister(t, repos.userService(nil), registerInput("alice", "Guitar"))

	issued := time.Date(2024, 3, 1, 8, 0, 0, 0, time.UTC)
	now := issued
	auth := newAuth(repos).WithClock(func() time.Time { return now })

	token, err := auth.IssueToken(user)
	require.NoError(t, err)

	now = issued.Add(11*time.Hour + 59*time.Minute)
	_, err = auth.VerifyToken(context.Background(), token)
	assert.NoError(t, err, "token is valid just before the 12h lifetime ends")

	now = issued.Add(12*time.Hour + time.Second)
	_, err = auth.VerifyToken(context.Background(), token)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	auth := newAuth(newTestRepos(t))
	now := time.Now()

	sign := func(claims jwt.Claims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := jwt.RegisteredClaims{
		Subject:   "1",
		Issuer:    tokenIssuer,
		Audience:  jwt.ClaimStrings{tokenAudience},
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
	}
	wrongAud := valid
	wrongAud.Audience = jwt.ClaimStrings{"someone-else"}
	noExp := valid
	noExp.ExpiresAt = nil
	badSub := valid
	badSub.Subject = "not-a-number"

	tests := map[string]string{
		"empty":          "",
		"malformed":      "not.a.jwt",
		"wrong secret":   sign(valid, "another-secret"),
		"wrong audience": sign(wrongAud, testSecret),
		"no expiry":      sign(noExp, testSecret),
		"bad subject":    sign(badSub, testSecret),
		"none alg":       func() string { s, _ := jwt.NewWithClaims(jwt.SigningMethodNone, valid).SignedString(jwt.UnsafeAllowNoneSignatureType); return s }(),
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := auth.VerifyToken(context.Background(), token)
			assert.True(t, models.IsCode(err, models.CodeUnauthorized))
		})
	}

	_, err := auth.VerifyToken(context.Background(), sign(valid, testSecret))
	assert.NoError(t, err)
}

func TestAuthService_LogoutRevokesToken(t *testing.T) {
	repos := newTestRepos(t)
	user := mustRegister(t, repos.userService(nil), registerInput("alice", "Guitar"))
	mr, rdb := testutil.NewTestRedis(t)
	auth := NewAuthService(repos.users, rdb, AuthConfig{Secret: testSecret, TTL: time.Hour, BcryptCost: bcrypt.MinCost})
	ctx := context.Background()

	token, err := auth.IssueToken(user)
	require.NoError(t, err)
	identity, err := auth.VerifyToken(ctx, token)
	require.NoError(t, err)

	require.NoError(t, auth.Logout(ctx, identity))
	assert.True(t, mr.Exists(blacklistKey(identity.TokenID)))
	ttl := mr.TTL(blacklistKey(identity.TokenID))
	assert.True(t, ttl > 0 && ttl <= time.Hour)

	_, err = auth.VerifyToken(ctx, token)
	assert.True(t, models.IsCode(err, models.CodeUnauthorized))
}

func TestAuthService_LogoutWithoutRedis(t *testing.T) {
	auth := newAuth(newTestRepos(t))
	assert.NoError(t, auth.Logout(context.Background(), &models.Identity{TokenID: "x", ExpiresAt: time.Now().Add(time.Hour)}))
}
