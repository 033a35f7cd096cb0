package session

import (
	"testing"
	"time"

	"devstudio/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-secret-test-secret-test-secret"))
	require.NoError(t, err)
	return s
}

func newTestSession(t *testing.T) (*Session, *KeyringStore) {
	t.Helper()
	keyring.MockInit()
	store := NewKeyringStore("devstudio-test")
	return New(store), store
}

func TestInitWithEmptyStore(t *testing.T) {
	s, _ := newTestSession(t)

	require.NoError(t, s.Init())
	assert.False(t, s.IsAuthenticated())
	_, ok := s.Token()
	assert.False(t, ok)
}

func TestSignInPersistsAndHydrates(t *testing.T) {
	s, store := newTestSession(t)
	token := signedToken(t, time.Now().Add(time.Hour))

	err := s.SignIn(&models.AuthResponse{
		Token: token,
		User:  models.User{ID: "u1", Name: "Ada Lovelace", Email: "ada@example.com"},
	})
	require.NoError(t, err)

	got, ok := s.Token()
	assert.True(t, ok)
	assert.Equal(t, token, got)

	// a fresh session over the same store picks the credentials up
	restored := New(store)
	require.NoError(t, restored.Init())
	assert.True(t, restored.IsAuthenticated())
	user, ok := restored.User()
	require.True(t, ok)
	assert.Equal(t, "Ada Lovelace", user.Name)
}

func TestExpiredTokenIsNotAuthenticated(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.SignIn(&models.AuthResponse{Token: signedToken(t, time.Now().Add(time.Minute))}))

	s.now = func() time.Time { return time.Now().Add(2 * time.Minute) }

	assert.False(t, s.IsAuthenticated())
	_, ok := s.Token()
	assert.False(t, ok)
}

func TestOpaqueTokenNeverExpiresLocally(t *testing.T) {
	s, _ := newTestSession(t)
	require.NoError(t, s.SignIn(&models.AuthResponse{Token: "opaque-token"}))

	s.now = func() time.Time { return time.Now().Add(24 * 365 * time.Hour) }
	assert.True(t, s.IsAuthenticated())
}

func TestTeardownClearsStore(t *testing.T) {
	s, store := newTestSession(t)
	require.NoError(t, s.SignIn(&models.AuthResponse{Token: "opaque-token"}))

	require.NoError(t, s.Teardown())
	assert.False(t, s.IsAuthenticated())

	_, err := store.Load()
	assert.ErrorIs(t, err, ErrNoCredentials)

	// clearing twice is fine
	assert.NoError(t, s.Teardown())
}

func TestSignInRejectsEmptyToken(t *testing.T) {
	s, _ := newTestSession(t)
	assert.Error(t, s.SignIn(&models.AuthResponse{}))
	assert.Error(t, s.SignIn(nil))
}
