package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fleet-records-backend/internal/model"
)

func testUser() *model.User {
	return &model.User{ID: 42, Username: "acme_service", Role: model.RoleServiceCompany}
}

func TestAccessTokenRoundTrip(t *testing.T) {
	m := NewManager("test-secret", 15*time.Minute, 24*time.Hour)

	token, err := m.AccessToken(testUser())
	require.NoError(t, err)

	claims, err := m.Parse(token, TokenAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "acme_service", claims.Username)
	assert.Equal(t, model.RoleServiceCompany, claims.Role)
	assert.NotEmpty(t, claims.ID, "tokens must carry a unique JTI")
}

func TestRefreshTokenCannotAuthenticate(t *testing.T) {
	m := NewManager("test-secret", 15*time.Minute, 24*time.Hour)

	token, err := m.RefreshToken(testUser())
	require.NoError(t, err)

	_, err = m.Parse(token, TokenAccess)
	assert.Error(t, err)

	_, err = m.Parse(token, TokenRefresh)
	assert.NoError(t, err)
}

func TestParseRejectsWrongSecret(t *testing.T) {
	m := NewManager("test-secret", 15*time.Minute, 24*time.Hour)
	other := NewManager("different-secret", 15*time.Minute, 24*time.Hour)

	token, err := m.AccessToken(testUser())
	require.NoError(t, err)

	_, err = other.Parse(token, TokenAccess)
	assert.Error(t, err)
}

func TestParseRejectsExpiredToken(t *testing.T) {
	m := NewManager("test-secret", -time.Minute, 24*time.Hour)

	token, err := m.AccessToken(testUser())
	require.NoError(t, err)

	_, err = m.Parse(token, TokenAccess)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("hunter2hunter2")
	require.NoError(t, err)

	assert.True(t, CheckPassword(hash, "hunter2hunter2"))
	assert.False(t, CheckPassword(hash, "hunter3hunter3"))
}

func TestTempPasswordsDiffer(t *testing.T) {
	a, err := TempPassword()
	require.NoError(t, err)
	b, err := TempPassword()
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, len(a), 12)
}
