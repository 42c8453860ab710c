package backend

import (
	"bytes"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
	stowhub "github.com/stowhub/go-stowhub-api"
)

func newToken() string {
	return base64.RawURLEncoding.EncodeToString([]byte(uuid.NewString()))
}

// NewAuth authenticates a staff account by email and password and creates a
// fresh session for it.
func (b *Backend) NewAuth(email string, password []byte) (stowhub.Auth, error) {
	return withAccEmail(b, email, func(acc *account) (stowhub.Auth, error) {
		if !bytes.Equal(acc.password, password) {
			return stowhub.Auth{}, ErrWrongPassword
		}

		if bool(acc.user.Banned) {
			return stowhub.Auth{}, ErrBanned
		}

		if acc.user.Role != stowhub.RoleStaff {
			return stowhub.Auth{}, ErrStaffRequired
		}

		authUID, auth := uuid.NewString(), newAuth()

		acc.auth[authUID] = auth

		return auth.toAuth(acc.user, authUID, b.authLife), nil
	})
}

// NewAuthRef exchanges a refresh token for rotated session tokens.
func (b *Backend) NewAuthRef(authUID, authRef string) (stowhub.Auth, error) {
	b.accLock.Lock()
	defer b.accLock.Unlock()

	for _, acc := range b.accounts {
		auth, ok := acc.auth[authUID]
		if !ok {
			continue
		}

		if auth.ref != authRef {
			return stowhub.Auth{}, ErrInvalidAuth
		}

		newAuth := newAuth()

		acc.auth[authUID] = newAuth

		return newAuth.toAuth(acc.user, authUID, b.authLife), nil
	}

	return stowhub.Auth{}, ErrInvalidAuth
}

// VerifyAuth checks an access token, returning the staff member it belongs
// to. Expired access tokens are invalidated but keep their refresh token, so
// the session can still be refreshed.
func (b *Backend) VerifyAuth(authUID, authAcc string) (string, error) {
	b.accLock.Lock()
	defer b.accLock.Unlock()

	for _, acc := range b.accounts {
		val, ok := acc.auth[authUID]
		if !ok {
			continue
		}

		if time.Since(val.creation) > b.authLife {
			acc.auth[authUID] = auth{ref: val.ref, creation: val.creation}
			return "", ErrInvalidAuth
		}

		if val.acc != authAcc {
			return "", ErrInvalidAuth
		}

		if bool(acc.user.Banned) {
			return "", ErrBanned
		}

		return acc.user.ID, nil
	}

	return "", ErrInvalidAuth
}

// DeleteAuth removes the session, invalidating its tokens.
func (b *Backend) DeleteAuth(userID, authUID string) error {
	_, err := withAcc(b, userID, func(acc *account) (struct{}, error) {
		delete(acc.auth, authUID)

		return struct{}{}, nil
	})

	return err
}

// ExpireAuth backdates the session's access token so that the next call with
// it fails with 401. Used to exercise deauth handling in tests.
func (b *Backend) ExpireAuth(authUID string) error {
	b.accLock.Lock()
	defer b.accLock.Unlock()

	for _, acc := range b.accounts {
		val, ok := acc.auth[authUID]
		if !ok {
			continue
		}

		val.creation = time.Time{}

		acc.auth[authUID] = val

		return nil
	}

	return ErrInvalidAuth
}

// RevokeAuth drops all sessions of the given user.
func (b *Backend) RevokeAuth(userID string) error {
	_, err := withAcc(b, userID, func(acc *account) (struct{}, error) {
		acc.auth = make(map[string]auth)

		return struct{}{}, nil
	})

	return err
}
