package stowhub

import (
	"context"
	"io"
	"strconv"
	"strings"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

// GetPayouts returns the payouts matching the given filter.
func (c *Client) GetPayouts(ctx context.Context, filter PayoutFilter) ([]Payout, error) {
	var res struct {
		Payouts []Payout
		Total   int
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		if filter.KeeperID != "" {
			r.SetQueryParam("KeeperID", filter.KeeperID)
		}

		if filter.Status != nil {
			r.SetQueryParam("Status", strconv.Itoa(int(*filter.Status)))
		}

		return r.SetQueryParams(pageParams(filter.Page, filter.PageSize)).SetResult(&res).Get("/core/v1/payouts")
	}); err != nil {
		return nil, err
	}

	return res.Payouts, nil
}

func (c *Client) GetPayout(ctx context.Context, payoutID string) (Payout, error) {
	var res struct {
		Payout Payout
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&res).Get("/core/v1/payouts/" + payoutID)
	}); err != nil {
		return Payout{}, err
	}

	return res.Payout, nil
}

// StartPayout moves the payout from not-paid to busy, recording the calling
// staff member as its processor.
func (c *Client) StartPayout(ctx context.Context, payoutID string) (Payout, error) {
	var res struct {
		Payout Payout
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetResult(&res).Put("/core/v1/payouts/" + payoutID + "/start")
	}); err != nil {
		return Payout{}, err
	}

	return res.Payout, nil
}

// UploadPayoutProof attaches an image proving the transfer was made. The
// payout must be busy and must not already carry a proof.
func (c *Client) UploadPayoutProof(ctx context.Context, payoutID, filename string, proof io.Reader) (Payout, error) {
	var res struct {
		Payout Payout
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetFileReader("Proof", filename, proof).SetResult(&res).Post("/core/v1/payouts/" + payoutID + "/proof")
	}); err != nil {
		return Payout{}, err
	}

	return res.Payout, nil
}

// CompletePayout moves the payout from busy to paid, freezing the record.
// A blank transaction code is filled in with a generated reference.
func (c *Client) CompletePayout(ctx context.Context, payoutID string, req CompletePayoutReq) (Payout, error) {
	if req.TransactionCode == "" {
		req.TransactionCode = newTransactionCode()
	}

	var res struct {
		Payout Payout
	}

	if err := c.do(ctx, func(r *resty.Request) (*resty.Response, error) {
		return r.SetBody(req).SetResult(&res).Put("/core/v1/payouts/" + payoutID + "/complete")
	}); err != nil {
		return Payout{}, err
	}

	return res.Payout, nil
}

func newTransactionCode() string {
	return "TX-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
}
