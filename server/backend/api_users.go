package backend

import (
	"time"

	"github.com/bradenaw/juniper/xslices"
	"github.com/google/uuid"
	stowhub "github.com/stowhub/go-stowhub-api"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// CreateUser adds a marketplace user with the given role.
func (b *Backend) CreateUser(email, username string, password []byte, role stowhub.UserRole) (stowhub.User, error) {
	b.accLock.Lock()
	defer b.accLock.Unlock()

	for _, acc := range b.accounts {
		if acc.user.Email == email {
			return stowhub.User{}, ErrEmailTaken
		}
	}

	user := stowhub.User{
		ID:       uuid.NewString(),
		Email:    email,
		Username: username,

		Role: role,

		CreateTime: time.Now().Unix(),
	}

	b.accounts[user.ID] = &account{
		user:     user,
		password: password,

		auth: make(map[string]auth),
	}

	return user, nil
}

func (b *Backend) GetUser(userID string) (stowhub.User, error) {
	return withAcc(b, userID, func(acc *account) (stowhub.User, error) {
		return acc.user, nil
	})
}

func (b *Backend) GetUsers(filter stowhub.UserFilter) []stowhub.User {
	b.accLock.RLock()
	defer b.accLock.RUnlock()

	users := xslices.Map(maps.Values(b.accounts), func(acc *account) stowhub.User {
		return acc.user
	})

	users = xslices.Filter(users, func(user stowhub.User) bool {
		if filter.Role != 0 && user.Role != filter.Role {
			return false
		}

		if filter.Banned != nil && bool(user.Banned) != *filter.Banned {
			return false
		}

		return true
	})

	slices.SortFunc(users, func(a, b stowhub.User) bool {
		if a.CreateTime != b.CreateTime {
			return a.CreateTime < b.CreateTime
		}

		return a.ID < b.ID
	})

	return paginate(users, filter.Page, filter.PageSize)
}

// SetBanned flips the user's ban flag; banning also revokes their sessions.
func (b *Backend) SetBanned(userID string, banned bool) (stowhub.User, error) {
	return withAcc(b, userID, func(acc *account) (stowhub.User, error) {
		acc.user.Banned = stowhub.Bool(banned)

		if banned {
			acc.auth = make(map[string]auth)
		}

		return acc.user, nil
	})
}

// paginate applies page/pageSize to an already sorted slice. Page is
// zero-based and a negative page means the first page; a zero or negative
// pageSize means no pagination.
func paginate[T any](items []T, page, pageSize int) []T {
	if pageSize <= 0 {
		return items
	}

	if page < 0 {
		page = 0
	}

	lo := page * pageSize
	if lo >= len(items) {
		return nil
	}

	hi := lo + pageSize
	if hi > len(items) {
		hi = len(items)
	}

	return items[lo:hi]
}
