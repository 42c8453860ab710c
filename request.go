package stowhub

import (
	"context"
	"strconv"

	"github.com/go-resty/resty/v2"
)

// GetRequests returns the workflow requests matching the given filter.
func (c *Client) GetRequests(ctx context.Context, filter RequestFilter) ([]Request, error) {
	var res struct {
		Requests []Request
		Total    int
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		if filter.Kind != 0 {
			r.SetQueryParam("Kind", strconv.Itoa(int(filter.Kind)))
		}

		if filter.Status != nil {
			r.SetQueryParam("Status", strconv.Itoa(int(*filter.Status)))
		}

		return r.SetQueryParams(pageParams(filter.Page, filter.PageSize)).SetResult(&res).Get("/core/v1/requests")
	}); err != nil {
		return nil, err
	}

	return res.Requests, nil
}

func (c *Client) GetRequest(ctx context.Context, requestID string) (Request, error) {
	var res struct {
		Request Request
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&res).Get("/core/v1/requests/" + requestID)
	}); err != nil {
		return Request{}, err
	}

	return res.Request, nil
}

// ApproveRequest moves a pending request to approved. The API rejects the
// call if the request is no longer pending.
func (c *Client) ApproveRequest(ctx context.Context, requestID string) (Request, error) {
	var res struct {
		Request Request
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&res).Put("/core/v1/requests/" + requestID + "/approve")
	}); err != nil {
		return Request{}, err
	}

	return res.Request, nil
}

// RejectRequest moves a pending request to rejected, recording the reason.
func (c *Client) RejectRequest(ctx context.Context, requestID, reason string) (Request, error) {
	var res struct {
		Request Request
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(RejectRequestReq{Reason: reason}).SetResult(&res).Put("/core/v1/requests/" + requestID + "/reject")
	}); err != nil {
		return Request{}, err
	}

	return res.Request, nil
}
