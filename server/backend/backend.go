// Package backend holds the in-memory state of the test server: marketplace
// users, staff sessions, workflow requests, orders and payouts.
package backend

import (
	"sync"
	"time"

	stowhub "github.com/stowhub/go-stowhub-api"
)

type Backend struct {
	accounts map[string]*account
	accLock  sync.RWMutex

	requests map[string]stowhub.Request
	reqLock  sync.RWMutex

	orders  map[string]stowhub.Order
	ordLock sync.RWMutex

	payouts map[string]stowhub.Payout
	payLock sync.RWMutex

	authLife time.Duration
}

func New(authLife time.Duration) *Backend {
	return &Backend{
		accounts: make(map[string]*account),
		requests: make(map[string]stowhub.Request),
		orders:   make(map[string]stowhub.Order),
		payouts:  make(map[string]stowhub.Payout),

		authLife: authLife,
	}
}

func (b *Backend) SetAuthLife(authLife time.Duration) {
	b.authLife = authLife
}

type account struct {
	user     stowhub.User
	password []byte

	auth map[string]auth
}

type auth struct {
	acc, ref string

	creation time.Time
}

func newAuth() auth {
	return auth{
		acc: newToken(),
		ref: newToken(),

		creation: time.Now(),
	}
}

func (a auth) toAuth(user stowhub.User, authUID string, authLife time.Duration) stowhub.Auth {
	return stowhub.Auth{
		UserID: user.ID,

		UID:          authUID,
		AccessToken:  a.acc,
		RefreshToken: a.ref,
		ExpiresIn:    int64(authLife.Seconds()),

		Scope: "staff",

		User: user,
	}
}

// withAcc takes the write lock: most callers mutate the account's session or
// ban state, and this is a test server.
func withAcc[T any](b *Backend, userID string, fn func(acc *account) (T, error)) (T, error) {
	b.accLock.Lock()
	defer b.accLock.Unlock()

	for _, acc := range b.accounts {
		if acc.user.ID == userID {
			return fn(acc)
		}
	}

	return *new(T), ErrNoSuchUser
}

func withAccEmail[T any](b *Backend, email string, fn func(acc *account) (T, error)) (T, error) {
	b.accLock.Lock()
	defer b.accLock.Unlock()

	for _, acc := range b.accounts {
		if acc.user.Email == email {
			return fn(acc)
		}
	}

	return *new(T), ErrNoSuchUser
}
