// Package session persists the staff session (auth tokens and profile) across
// runs, using the platform keyring with a file fallback for headless use.
package session

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/99designs/keyring"
	stowhub "github.com/stowhub/go-stowhub-api"
)

// ErrNoSession is returned by Load when no session has been saved.
var ErrNoSession = errors.New("no stored session")

const sessionKey = "session"

// Session is the persisted state of a logged-in staff member. It is restored
// on startup and cleared on logout or when the API deauthenticates us.
type Session struct {
	UID          string
	AccessToken  string
	RefreshToken string

	User stowhub.User
}

type Store struct {
	kr keyring.Keyring
}

// NewStore opens the session store. The file backend writes under dir, which
// is only used when no platform keyring is available.
func NewStore(serviceName, dir string) (*Store, error) {
	kr, err := keyring.Open(keyring.Config{
		ServiceName: serviceName,

		FileDir:          dir,
		FilePasswordFunc: keyring.FixedStringPrompt(serviceName),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open keyring: %w", err)
	}

	return &Store{kr: kr}, nil
}

func (s *Store) Save(session Session) error {
	data, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to serialize session: %w", err)
	}

	return s.kr.Set(keyring.Item{
		Key:  sessionKey,
		Data: data,
	})
}

func (s *Store) Load() (Session, error) {
	item, err := s.kr.Get(sessionKey)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return Session{}, ErrNoSession
		}

		return Session{}, fmt.Errorf("failed to read session: %w", err)
	}

	var session Session

	if err := json.Unmarshal(item.Data, &session); err != nil {
		return Session{}, fmt.Errorf("failed to parse session: %w", err)
	}

	return session, nil
}

// Clear removes the stored session. Clearing an empty store is not an error.
func (s *Store) Clear() error {
	if err := s.kr.Remove(sessionKey); err != nil && !errors.Is(err, keyring.ErrKeyNotFound) {
		return err
	}

	return nil
}
