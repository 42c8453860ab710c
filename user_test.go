package stowhub_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-resty/resty/v2"
	stowhub "github.com/stowhub/go-stowhub-api"
	"github.com/stowhub/go-stowhub-api/server"
	"github.com/stretchr/testify/require"
)

func TestGetUsers(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	for _, email := range []string{"r1@stowhub.test", "r2@stowhub.test"} {
		_, err := s.CreateRenter(email, email)
		require.NoError(t, err)
	}

	for _, email := range []string{"k1@stowhub.test", "k2@stowhub.test", "k3@stowhub.test"} {
		_, err := s.CreateKeeper(email, email)
		require.NoError(t, err)
	}

	c := newTestClient(t, s)
	defer c.Close()

	// All users.
	users, err := c.GetUsers(context.Background(), stowhub.UserFilter{})
	require.NoError(t, err)
	require.Len(t, users, 6)

	// Keepers only.
	keepers, err := c.GetUsers(context.Background(), stowhub.UserFilter{Role: stowhub.RoleKeeper})
	require.NoError(t, err)
	require.Len(t, keepers, 3)

	for _, keeper := range keepers {
		require.Equal(t, stowhub.RoleKeeper, keeper.Role)
	}

	// Keepers, two per page.
	page0, err := c.GetUsers(context.Background(), stowhub.UserFilter{Role: stowhub.RoleKeeper, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page0, 2)

	page1, err := c.GetUsers(context.Background(), stowhub.UserFilter{Role: stowhub.RoleKeeper, Page: 1, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, page1, 1)

	// The pages must not overlap.
	require.NotEqual(t, page0[0].ID, page1[0].ID)
	require.NotEqual(t, page0[1].ID, page1[0].ID)
}

func TestGetUsersNegativePage(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	for _, email := range []string{"r1@stowhub.test", "r2@stowhub.test", "r3@stowhub.test"} {
		_, err := s.CreateRenter(email, email)
		require.NoError(t, err)
	}

	c := newTestClient(t, s)
	defer c.Close()

	// Force query values the typed filter never emits; the server must treat
	// them as the first page rather than fail.
	c.AddPreRequestHook(func(_ *resty.Client, r *resty.Request) error {
		r.SetQueryParam("Page", "-1")
		r.SetQueryParam("PageSize", "2")

		return nil
	})

	users, err := c.GetUsers(context.Background(), stowhub.UserFilter{})
	require.NoError(t, err)
	require.Len(t, users, 2)
}

func TestGetUser(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	renterID, err := s.CreateRenter("renter@stowhub.test", "renter")
	require.NoError(t, err)

	c := newTestClient(t, s)
	defer c.Close()

	user, err := c.GetUser(context.Background(), renterID)
	require.NoError(t, err)
	require.Equal(t, renterID, user.ID)
	require.Equal(t, "renter@stowhub.test", user.Email)
	require.Equal(t, stowhub.RoleRenter, user.Role)
	require.False(t, bool(user.Banned))

	_, err = c.GetUser(context.Background(), "no-such-user")
	require.Error(t, err)

	apiErr := new(stowhub.Error)
	require.True(t, errors.As(err, &apiErr))
	require.Equal(t, stowhub.InvalidValue, apiErr.Code)
}

func TestBanUser(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	keeperID, err := s.CreateKeeper("keeper@stowhub.test", "keeper")
	require.NoError(t, err)

	c := newTestClient(t, s)
	defer c.Close()

	require.NoError(t, c.BanUser(context.Background(), keeperID))

	user, err := c.GetUser(context.Background(), keeperID)
	require.NoError(t, err)
	require.True(t, bool(user.Banned))

	// The banned filter should find exactly the banned keeper.
	banned := true

	users, err := c.GetUsers(context.Background(), stowhub.UserFilter{Banned: &banned})
	require.NoError(t, err)
	require.Len(t, users, 1)
	require.Equal(t, keeperID, users[0].ID)

	require.NoError(t, c.UnbanUser(context.Background(), keeperID))

	user, err = c.GetUser(context.Background(), keeperID)
	require.NoError(t, err)
	require.False(t, bool(user.Banned))
}

func TestBanRevokesSessions(t *testing.T) {
	s := server.New()
	defer s.Close()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	otherID, err := s.CreateStaff("other@stowhub.test", "other", []byte("password"))
	require.NoError(t, err)

	m := stowhub.New(
		stowhub.WithHostURL(s.GetHostURL()),
		stowhub.WithTransport(stowhub.InsecureTransport()),
	)
	defer m.Close()

	c1, _, err := m.NewClientWithLogin(context.Background(), "staff@stowhub.test", []byte("password"))
	require.NoError(t, err)
	defer c1.Close()

	c2, _, err := m.NewClientWithLogin(context.Background(), "other@stowhub.test", []byte("password"))
	require.NoError(t, err)
	defer c2.Close()

	// Banning the other staff member kills their live session.
	require.NoError(t, c1.BanUser(context.Background(), otherID))

	_, err = c2.GetUsers(context.Background(), stowhub.UserFilter{})
	require.Error(t, err)
}

// newTestClient logs in the staff account created by the test.
func newTestClient(t *testing.T, s *server.Server) *stowhub.Client {
	t.Helper()

	m := stowhub.New(
		stowhub.WithHostURL(s.GetHostURL()),
		stowhub.WithTransport(stowhub.InsecureTransport()),
	)

	t.Cleanup(m.Close)

	c, _, err := m.NewClientWithLogin(context.Background(), "staff@stowhub.test", []byte("password"))
	require.NoError(t, err)

	return c
}
