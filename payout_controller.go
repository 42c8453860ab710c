package stowhub

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// ErrPayoutActionInFlight is returned when an action is attempted on a payout
// which already has an action in flight.
var ErrPayoutActionInFlight = fmt.Errorf("an action for this payout is already in flight")

// ErrPayoutUnknown is returned when the controller has no record of the payout.
var ErrPayoutUnknown = fmt.Errorf("unknown payout")

// PayoutController drives payouts through their three-state lifecycle.
//
// It rejects out-of-order transitions before any remote call is made, allows
// at most one in-flight action per payout, and updates its local records only
// after the API confirms the transition. Remote failures are returned as-is
// and leave the local records untouched.
type PayoutController struct {
	c *Client

	payouts  map[string]Payout
	inFlight map[string]struct{}
	lock     sync.Mutex
}

func NewPayoutController(c *Client) *PayoutController {
	return &PayoutController{
		c: c,

		payouts:  make(map[string]Payout),
		inFlight: make(map[string]struct{}),
	}
}

// Load fetches the payouts matching the filter into the controller.
func (ctl *PayoutController) Load(ctx context.Context, filter PayoutFilter) ([]Payout, error) {
	payouts, err := ctl.c.GetPayouts(ctx, filter)
	if err != nil {
		return nil, err
	}

	ctl.lock.Lock()
	defer ctl.lock.Unlock()

	for _, payout := range payouts {
		ctl.payouts[payout.ID] = payout
	}

	return payouts, nil
}

// Get returns the controller's current record of the payout.
func (ctl *PayoutController) Get(payoutID string) (Payout, bool) {
	ctl.lock.Lock()
	defer ctl.lock.Unlock()

	payout, ok := ctl.payouts[payoutID]

	return payout, ok
}

// StartProcessing moves the payout from not-paid to busy.
func (ctl *PayoutController) StartProcessing(ctx context.Context, payoutID string) (Payout, error) {
	return ctl.transition(payoutID, func(payout Payout) error {
		return payout.CanStartProcessing()
	}, func() (Payout, error) {
		return ctl.c.StartPayout(ctx, payoutID)
	})
}

// AttachProof uploads the transfer proof image for a busy payout.
func (ctl *PayoutController) AttachProof(ctx context.Context, payoutID, filename string, proof io.Reader) (Payout, error) {
	return ctl.transition(payoutID, func(payout Payout) error {
		return payout.CanAttachProof()
	}, func() (Payout, error) {
		return ctl.c.UploadPayoutProof(ctx, payoutID, filename, proof)
	})
}

// Complete moves the payout from busy to paid. The proof must have been
// attached first; violations are rejected without a remote call.
func (ctl *PayoutController) Complete(ctx context.Context, payoutID string, req CompletePayoutReq) (Payout, error) {
	return ctl.transition(payoutID, func(payout Payout) error {
		return payout.CanComplete()
	}, func() (Payout, error) {
		return ctl.c.CompletePayout(ctx, payoutID, req)
	})
}

func (ctl *PayoutController) transition(payoutID string, guard func(Payout) error, call func() (Payout, error)) (Payout, error) {
	if err := ctl.begin(payoutID, guard); err != nil {
		return Payout{}, err
	}

	payout, err := call()

	ctl.end(payoutID, payout, err)

	if err != nil {
		return Payout{}, err
	}

	return payout, nil
}

func (ctl *PayoutController) begin(payoutID string, guard func(Payout) error) error {
	ctl.lock.Lock()
	defer ctl.lock.Unlock()

	payout, ok := ctl.payouts[payoutID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrPayoutUnknown, payoutID)
	}

	if _, ok := ctl.inFlight[payoutID]; ok {
		return ErrPayoutActionInFlight
	}

	if err := guard(payout); err != nil {
		return err
	}

	ctl.inFlight[payoutID] = struct{}{}

	return nil
}

func (ctl *PayoutController) end(payoutID string, payout Payout, err error) {
	ctl.lock.Lock()
	defer ctl.lock.Unlock()

	delete(ctl.inFlight, payoutID)

	if err == nil {
		ctl.payouts[payoutID] = payout
	}
}
