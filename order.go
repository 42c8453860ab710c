package stowhub

import (
	"context"
	"strconv"

	"github.com/go-resty/resty/v2"
)

// GetOrders returns the orders matching the given filter.
func (c *Client) GetOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	var res struct {
		Orders []Order
		Total  int
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		if filter.KeeperID != "" {
			r.SetQueryParam("KeeperID", filter.KeeperID)
		}

		if filter.RenterID != "" {
			r.SetQueryParam("RenterID", filter.RenterID)
		}

		if filter.Status != nil {
			r.SetQueryParam("Status", strconv.Itoa(int(*filter.Status)))
		}

		return r.SetQueryParams(pageParams(filter.Page, filter.PageSize)).SetResult(&res).Get("/core/v1/orders")
	}); err != nil {
		return nil, err
	}

	return res.Orders, nil
}

func (c *Client) GetOrder(ctx context.Context, orderID string) (Order, error) {
	var res struct {
		Order Order
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&res).Get("/core/v1/orders/" + orderID)
	}); err != nil {
		return Order{}, err
	}

	return res.Order, nil
}
