package stowhub_test

import (
	"context"
	"errors"
	"testing"
	"time"

	stowhub "github.com/stowhub/go-stowhub-api"
	"github.com/stowhub/go-stowhub-api/server"
	"github.com/stowhub/go-stowhub-api/session"
	"github.com/stretchr/testify/require"
)

func TestAuth(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	m := stowhub.New(
		stowhub.WithHostURL(s.GetHostURL()),
		stowhub.WithTransport(stowhub.InsecureTransport()),
	)
	defer m.Close()

	c, auth, err := m.NewClientWithLogin(context.Background(), "staff@stowhub.test", []byte("password"))
	require.NoError(t, err)
	defer c.Close()

	require.NotEmpty(t, auth.UID)
	require.NotEmpty(t, auth.AccessToken)
	require.NotEmpty(t, auth.RefreshToken)
	require.Equal(t, "staff", auth.User.Username)
	require.Equal(t, stowhub.RoleStaff, auth.User.Role)

	// The session should be usable.
	users, err := c.GetUsers(context.Background(), stowhub.UserFilter{})
	require.NoError(t, err)
	require.Len(t, users, 1)

	// Log out; the session should no longer work.
	require.NoError(t, c.AuthDelete(context.Background()))

	_, err = c.GetUsers(context.Background(), stowhub.UserFilter{})
	require.Error(t, err)
}

func TestAuthWrongPassword(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	m := stowhub.New(
		stowhub.WithHostURL(s.GetHostURL()),
		stowhub.WithTransport(stowhub.InsecureTransport()),
	)
	defer m.Close()

	_, _, err = m.NewClientWithLogin(context.Background(), "staff@stowhub.test", []byte("wrong"))
	require.Error(t, err)

	apiErr := new(stowhub.Error)
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, stowhub.PasswordWrong, apiErr.Code)
}

func TestAuthNonStaffRejected(t *testing.T) {
	s := server.New()
	defer s.Close()

	// Marketplace accounts have no admin password; the role check still
	// rejects them before any session is created.
	_, err := s.CreateRenter("renter@stowhub.test", "renter")
	require.NoError(t, err)

	m := stowhub.New(
		stowhub.WithHostURL(s.GetHostURL()),
		stowhub.WithTransport(stowhub.InsecureTransport()),
	)
	defer m.Close()

	_, _, err = m.NewClientWithLogin(context.Background(), "renter@stowhub.test", []byte{})
	require.Error(t, err)

	apiErr := new(stowhub.Error)
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, stowhub.StaffRoleRequired, apiErr.Code)
}

func TestAuthBannedRejected(t *testing.T) {
	s := server.New()
	defer s.Close()

	staffID, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	require.NoError(t, s.SetBanned(staffID, true))

	m := stowhub.New(
		stowhub.WithHostURL(s.GetHostURL()),
		stowhub.WithTransport(stowhub.InsecureTransport()),
	)
	defer m.Close()

	_, _, err = m.NewClientWithLogin(context.Background(), "staff@stowhub.test", []byte("password"))
	require.Error(t, err)

	apiErr := new(stowhub.Error)
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, stowhub.AccountBanned, apiErr.Code)
}

func TestAuthRefresh(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	m := stowhub.New(
		stowhub.WithHostURL(s.GetHostURL()),
		stowhub.WithTransport(stowhub.InsecureTransport()),
	)
	defer m.Close()

	c1, auth, err := m.NewClientWithLogin(context.Background(), "staff@stowhub.test", []byte("password"))
	require.NoError(t, err)
	defer c1.Close()

	c2, _, err := m.NewClientWithRefresh(context.Background(), auth.UID, auth.RefreshToken)
	require.NoError(t, err)
	defer c2.Close()

	_, err = c2.GetUsers(context.Background(), stowhub.UserFilter{})
	require.NoError(t, err)
}

func TestAuthRestoredSessionRefreshes(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	m := stowhub.New(
		stowhub.WithHostURL(s.GetHostURL()),
		stowhub.WithTransport(stowhub.InsecureTransport()),
	)
	defer m.Close()

	c1, auth, err := m.NewClientWithLogin(context.Background(), "staff@stowhub.test", []byte("password"))
	require.NoError(t, err)
	defer c1.Close()

	// Restore the session with a zero expiry; the first call must refresh the
	// tokens and report the new auth to the handler.
	c2 := m.NewClient(auth.UID, auth.AccessToken, auth.RefreshToken, time.Time{})
	defer c2.Close()

	authCh := make(chan stowhub.Auth, 1)

	c2.AddAuthHandler(func(auth stowhub.Auth) {
		authCh <- auth
	})

	_, err = c2.GetUsers(context.Background(), stowhub.UserFilter{})
	require.NoError(t, err)

	newAuth := <-authCh
	require.NotEmpty(t, newAuth.AccessToken)
	require.NotEqual(t, auth.AccessToken, newAuth.AccessToken)
}

func TestAuthExpiredTokenRefreshes(t *testing.T) {
	s := server.New(server.WithAuthLife(time.Second))
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	m := stowhub.New(
		stowhub.WithHostURL(s.GetHostURL()),
		stowhub.WithTransport(stowhub.InsecureTransport()),
	)
	defer m.Close()

	c, _, err := m.NewClientWithLogin(context.Background(), "staff@stowhub.test", []byte("password"))
	require.NoError(t, err)
	defer c.Close()

	// Wait for the access token to expire.
	time.Sleep(1500 * time.Millisecond)

	// The token has expired, but the call succeeds after a refresh.
	_, err = c.GetUsers(context.Background(), stowhub.UserFilter{})
	require.NoError(t, err)
}

func TestDeauthHandlerCalledOnce(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	m := stowhub.New(
		stowhub.WithHostURL(s.GetHostURL()),
		stowhub.WithTransport(stowhub.InsecureTransport()),
	)
	defer m.Close()

	c, auth, err := m.NewClientWithLogin(context.Background(), "staff@stowhub.test", []byte("password"))
	require.NoError(t, err)
	defer c.Close()

	store, err := session.NewStore("stowhub-test", t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(session.Session{
		UID:          auth.UID,
		AccessToken:  auth.AccessToken,
		RefreshToken: auth.RefreshToken,
		User:         auth.User,
	}))

	var deauths int

	c.AddDeauthHandler(func() {
		deauths++

		require.NoError(t, store.Clear())
	})

	// Invalidate the session server-side; the client still believes its token
	// is valid and will hit a 401.
	require.NoError(t, s.ExpireSession(auth.UID))

	_, err = c.GetUsers(context.Background(), stowhub.UserFilter{})
	require.Error(t, err)

	_, err = c.GetUsers(context.Background(), stowhub.UserFilter{})
	require.Error(t, err)

	// However often the 401 repeats, the handler fires once.
	require.Equal(t, 1, deauths)

	// The stored session is gone.
	_, err = store.Load()
	require.ErrorIs(t, err, session.ErrNoSession)
}
