package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/qbdsync/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWTService() *JWTService {
	return NewJWTService(config.JWTConfig{
		Secret:                "test-secret-key-at-least-32-chars",
		AccessTokenExpiration: 15 * time.Minute,
		Issuer:                "test-issuer",
	})
}

func TestJWTService_IssueAndValidate(t *testing.T) {
	svc := newTestJWTService()
	realmID := uuid.New()

	issued, err := svc.Issue(realmID, "billing-app")
	require.NoError(t, err)
	assert.Equal(t, "Bearer", issued.TokenType)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), issued.ExpiresAt, 5*time.Second)

	claims, err := svc.Validate(issued.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, realmID.String(), claims.RealmID)
	assert.Equal(t, "billing-app", claims.Subject)
	assert.Equal(t, "test-issuer", claims.Issuer)

	got, err := claims.RealmUUID()
	require.NoError(t, err)
	assert.Equal(t, realmID, got)
}

func TestJWTService_IssueRequiresRealm(t *testing.T) {
	_, err := newTestJWTService().Issue(uuid.Nil, "x")
	assert.ErrorIs(t, err, ErrMissingRealmID)
}

func TestJWTService_Validate(t *testing.T) {
	svc := newTestJWTService()

	t.Run("expired token", func(t *testing.T) {
		issued, err := svc.Issue(uuid.New(), "x")
		require.NoError(t, err)

		later := *svc
		later.now = func() time.Time { return time.Now().Add(time.Hour) }
		_, err = later.Validate(issued.AccessToken)
		assert.ErrorIs(t, err, ErrExpiredToken)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "another-secret-key-at-least-32-ch",
			AccessTokenExpiration: time.Minute,
			Issuer:                "test-issuer",
		})
		issued, err := other.Issue(uuid.New(), "x")
		require.NoError(t, err)

		_, err = svc.Validate(issued.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewJWTService(config.JWTConfig{
			Secret:                "test-secret-key-at-least-32-chars",
			AccessTokenExpiration: time.Minute,
			Issuer:                "someone-else",
		})
		issued, err := other.Issue(uuid.New(), "x")
		require.NoError(t, err)

		_, err = svc.Validate(issued.AccessToken)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := svc.Validate("not.a.token")
		assert.ErrorIs(t, err, ErrInvalidToken)
	})

	t.Run("missing realm claim", func(t *testing.T) {
		now := time.Now()
		claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "test-issuer",
			Audience:  jwt.ClaimStrings{"test-issuer"},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
		}}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(svc.secret)
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		assert.ErrorIs(t, err, ErrMissingRealmID)
	})

	t.Run("none algorithm is rejected", func(t *testing.T) {
		claims := &Claims{RealmID: uuid.NewString()}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.Validate(signed)
		assert.ErrorIs(t, err, ErrInvalidToken)
	})
}
