package session

import (
	"encoding/json"
	"errors"

	"github.com/zalando/go-keyring"
)

// ErrNoCredentials is returned by a Store holding nothing.
var ErrNoCredentials = errors.New("no stored credentials")

// Credentials is the persisted part of a session.
type Credentials struct {
	Token      string `json:"token"`
	UserID     string `json:"user_id"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Role       string `json:"role,omitempty"`
	ProfilePic string `json:"profile_pic,omitempty"`
	ExpiresAt  int64  `json:"expires_at"`
}

// Store persists credentials between runs.
type Store interface {
	Load() (*Credentials, error)
	Save(creds *Credentials) error
	Clear() error
}

const tokenKey = "auth_tokens"

// KeyringStore keeps credentials in the OS keyring.
type KeyringStore struct {
	service string
}

func NewKeyringStore(service string) *KeyringStore {
	return &KeyringStore{service: service}
}

func (s *KeyringStore) Save(creds *Credentials) error {
	data, err := json.Marshal(creds)
	if err != nil {
		return err
	}
	return keyring.Set(s.service, tokenKey, string(data))
}

func (s *KeyringStore) Load() (*Credentials, error) {
	value, err := keyring.Get(s.service, tokenKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil, ErrNoCredentials
	}
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(value), &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (s *KeyringStore) Clear() error {
	err := keyring.Delete(s.service, tokenKey)
	if errors.Is(err, keyring.ErrNotFound) {
		return nil
	}
	return err
}
