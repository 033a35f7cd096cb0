package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"devstudio/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Session is the explicit auth context handed to every controller that
// performs authenticated writes.
//
// Lifecycle: Init hydrates from the Store, SignIn/Teardown move between the
// authenticated and unauthenticated states. Teardown also clears the Store.
type Session struct {
	mu    sync.RWMutex
	store Store
	creds *Credentials
	now   func() time.Time
}

func New(store Store) *Session {
	return &Session{store: store, now: time.Now}
}

// Init loads persisted credentials. An empty store is not an error.
func (s *Session) Init() error {
	creds, err := s.store.Load()
	if errors.Is(err, ErrNoCredentials) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
	return nil
}

// SignIn stores the login result and makes the session authenticated.
func (s *Session) SignIn(auth *models.AuthResponse) error {
	if auth == nil || auth.Token == "" {
		return errors.New("login response carries no token")
	}
	creds := &Credentials{
		Token:      auth.Token,
		UserID:     auth.User.ID,
		Name:       auth.User.Name,
		Email:      auth.User.Email,
		Role:       auth.User.Role,
		ProfilePic: auth.User.ProfilePic,
		ExpiresAt:  tokenExpiry(auth.Token),
	}
	if err := s.store.Save(creds); err != nil {
		return fmt.Errorf("failed to persist session: %w", err)
	}

	s.mu.Lock()
	s.creds = creds
	s.mu.Unlock()
	return nil
}

// Teardown forgets the user locally and in the Store.
func (s *Session) Teardown() error {
	s.mu.Lock()
	s.creds = nil
	s.mu.Unlock()
	return s.store.Clear()
}

// Token returns the bearer token while it is present and unexpired.
func (s *Session) Token() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return "", false
	}
	return s.creds.Token, true
}

func (s *Session) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.validLocked()
}

// User returns the signed-in user, if any.
func (s *Session) User() (models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.validLocked() {
		return models.User{}, false
	}
	return models.User{
		ID:         s.creds.UserID,
		Name:       s.creds.Name,
		Email:      s.creds.Email,
		Role:       s.creds.Role,
		ProfilePic: s.creds.ProfilePic,
	}, true
}

func (s *Session) validLocked() bool {
	if s.creds == nil || s.creds.Token == "" {
		return false
	}
	if s.creds.ExpiresAt == 0 {
		return true
	}
	return s.now().Unix() < s.creds.ExpiresAt
}

// tokenExpiry reads the exp claim without verifying the signature; the server
// remains the judge of validity. Opaque or exp-less tokens never expire locally.
func tokenExpiry(token string) int64 {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return 0
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return 0
	}
	return exp.Unix()
}
