package stowhub

import (
	"context"
	"strconv"

	"github.com/go-resty/resty/v2"
)

// GetUsers returns the marketplace users matching the given filter.
func (c *Client) GetUsers(ctx context.Context, filter UserFilter) ([]User, error) {
	var res struct {
		Users []User
		Total int
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		if filter.Role != 0 {
			r.SetQueryParam("Role", strconv.Itoa(int(filter.Role)))
		}

		if filter.Banned != nil {
			r.SetQueryParam("Banned", strconv.FormatBool(*filter.Banned))
		}

		return r.SetQueryParams(pageParams(filter.Page, filter.PageSize)).SetResult(&res).Get("/core/v1/users")
	}); err != nil {
		return nil, err
	}

	return res.Users, nil
}

func (c *Client) GetUser(ctx context.Context, userID string) (User, error) {
	var res struct {
		User User
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&res).Get("/core/v1/users/" + userID)
	}); err != nil {
		return User{}, err
	}

	return res.User, nil
}

// BanUser blocks the given user from the marketplace.
func (c *Client) BanUser(ctx context.Context, userID string) error {
	return c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Put("/core/v1/users/" + userID + "/ban")
	})
}

// UnbanUser lifts a previously placed ban.
func (c *Client) UnbanUser(ctx context.Context, userID string) error {
	return c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.Put("/core/v1/users/" + userID + "/unban")
	})
}

func pageParams(page, pageSize int) map[string]string {
	params := make(map[string]string)

	if page > 0 {
		params["Page"] = strconv.Itoa(page)
	}

	if pageSize > 0 {
		params["PageSize"] = strconv.Itoa(pageSize)
	}

	return params
}
