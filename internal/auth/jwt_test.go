package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roudra323/TeamFlow/internal/models"
)

func TestTokenRoundTrip(t *testing.T) {
	service, err := NewService("test-secret", time.Hour)
	require.NoError(t, err)

	user := models.User{ID: 7, Email: "test@example.com"}
	token, err := service.GenerateToken(user)
	require.NoError(t, err)

	parsed, err := service.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, User{ID: 7, Email: "test@example.com"}, parsed)
}

func TestParseTokenRejects(t *testing.T) {
	service, err := NewService("test-secret", time.Hour)
	require.NoError(t, err)
	other, err := NewService("other-secret", time.Hour)
	require.NoError(t, err)

	foreign, err := other.GenerateToken(models.User{ID: 1})
	require.NoError(t, err)
	_, err = service.ParseToken(foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		UserID: 1,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	signed, err := expired.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	_, err = service.ParseToken(signed)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = service.ParseToken("not-a-token")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewServiceRequiresSecret(t *testing.T) {
	_, err := NewService("", time.Hour)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, ComparePassword(hash, "correct horse"))
	assert.False(t, ComparePassword(hash, "battery staple"))
}

func TestUserContext(t *testing.T) {
	_, ok := UserFromContext(context.Background())
	assert.False(t, ok)

	ctx := WithUser(context.Background(), User{ID: 3})
	user, ok := UserFromContext(ctx)
	require.True(t, ok)
	assert.Equal(t, int64(3), user.ID)
}
