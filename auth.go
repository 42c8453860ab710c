package stowhub

import (
	"context"
	"time"

	"github.com/go-resty/resty/v2"
)

// NewClient returns a client with the given auth material, without checking
// it against the API. It is intended for restoring a previously saved session.
func (m *Manager) NewClient(uid, acc, ref string, exp time.Time) *Client {
	return newClient(m, uid).withAuth(acc, ref, exp)
}

// NewClientWithLogin authenticates the given staff account and returns a
// client for its session. Non-staff accounts are rejected by the API.
func (m *Manager) NewClientWithLogin(ctx context.Context, email string, password []byte) (*Client, Auth, error) {
	auth, err := m.auth(ctx, AuthReq{Email: email, Password: string(password)})
	if err != nil {
		return nil, Auth{}, err
	}

	return m.NewClient(auth.UID, auth.AccessToken, auth.RefreshToken, expiry(auth.ExpiresIn)), auth, nil
}

// NewClientWithRefresh exchanges the given refresh token for fresh auth
// material and returns a client for the session.
func (m *Manager) NewClientWithRefresh(ctx context.Context, uid, ref string) (*Client, Auth, error) {
	auth, err := m.authRefresh(ctx, uid, ref)
	if err != nil {
		return nil, Auth{}, err
	}

	return m.NewClient(auth.UID, auth.AccessToken, auth.RefreshToken, expiry(auth.ExpiresIn)), auth, nil
}

func (m *Manager) auth(ctx context.Context, req AuthReq) (Auth, error) {
	var res struct {
		Auth
	}

	if _, err := m.r(ctx).SetBody(req).SetResult(&res).Post("/core/v1/auth"); err != nil {
		return Auth{}, err
	}

	return res.Auth, nil
}

func (m *Manager) authRefresh(ctx context.Context, uid, ref string) (Auth, error) {
	var res struct {
		Auth
	}

	req := AuthRefreshReq{
		UID:          uid,
		RefreshToken: ref,
		ResponseType: "token",
		GrantType:    "refresh_token",
	}

	if _, err := m.r(ctx).SetHeader(hdrSessionUID, uid).SetBody(req).SetResult(&res).Post("/core/v1/auth/refresh"); err != nil {
		return Auth{}, err
	}

	return res.Auth, nil
}

// AuthDelete logs the session out, invalidating its tokens.
func (c *Client) AuthDelete(ctx context.Context) error {
	return c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Delete("/core/v1/auth")
	})
}

func expiry(expiresIn int64) time.Time {
	return time.Now().Add(time.Duration(expiresIn) * time.Second)
}
