package backend

import (
	"time"

	"github.com/bradenaw/juniper/xslices"
	"github.com/google/uuid"
	stowhub "github.com/stowhub/go-stowhub-api"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func (b *Backend) CreatePayout(orderID, keeperID string, amount int64) stowhub.Payout {
	b.payLock.Lock()
	defer b.payLock.Unlock()

	now := time.Now().Unix()

	payout := stowhub.Payout{
		ID:       uuid.NewString(),
		OrderID:  orderID,
		KeeperID: keeperID,

		Amount: amount,

		Status: stowhub.PayoutNotPaid,

		CreateTime: now,
		ModifyTime: now,
	}

	b.payouts[payout.ID] = payout

	return payout
}

func (b *Backend) GetPayout(payoutID string) (stowhub.Payout, error) {
	b.payLock.RLock()
	defer b.payLock.RUnlock()

	payout, ok := b.payouts[payoutID]
	if !ok {
		return stowhub.Payout{}, ErrNoSuchPayout
	}

	return payout, nil
}

func (b *Backend) GetPayouts(filter stowhub.PayoutFilter) []stowhub.Payout {
	b.payLock.RLock()
	defer b.payLock.RUnlock()

	payouts := xslices.Filter(maps.Values(b.payouts), func(payout stowhub.Payout) bool {
		if filter.KeeperID != "" && payout.KeeperID != filter.KeeperID {
			return false
		}

		if filter.Status != nil && payout.Status != *filter.Status {
			return false
		}

		return true
	})

	slices.SortFunc(payouts, func(a, b stowhub.Payout) bool {
		if a.CreateTime != b.CreateTime {
			return a.CreateTime < b.CreateTime
		}

		return a.ID < b.ID
	})

	return paginate(payouts, filter.Page, filter.PageSize)
}

// StartPayout moves the payout to busy, recording the staff member who
// picked it up. The payout must not have been picked up before.
func (b *Backend) StartPayout(payoutID, staffID string) (stowhub.Payout, error) {
	return b.updatePayout(payoutID, func(payout stowhub.Payout) (stowhub.Payout, error) {
		if err := payout.CanStartProcessing(); err != nil {
			return stowhub.Payout{}, err
		}

		payout.Status = stowhub.PayoutBusy
		payout.StaffID = staffID

		return payout, nil
	})
}

// AttachPayoutProof stores the uploaded proof image's URL on a busy payout.
func (b *Backend) AttachPayoutProof(payoutID, proofURL string) (stowhub.Payout, error) {
	return b.updatePayout(payoutID, func(payout stowhub.Payout) (stowhub.Payout, error) {
		if err := payout.CanAttachProof(); err != nil {
			return stowhub.Payout{}, err
		}

		payout.ProofImageURL = proofURL

		return payout, nil
	})
}

// CompletePayout moves a busy payout with proof attached to paid, freezing
// the record.
func (b *Backend) CompletePayout(payoutID, description, transactionCode string) (stowhub.Payout, error) {
	return b.updatePayout(payoutID, func(payout stowhub.Payout) (stowhub.Payout, error) {
		if err := payout.CanComplete(); err != nil {
			return stowhub.Payout{}, err
		}

		payout.Status = stowhub.PayoutPaid
		payout.Description = description
		payout.TransactionCode = transactionCode

		return payout, nil
	})
}

func (b *Backend) updatePayout(payoutID string, fn func(stowhub.Payout) (stowhub.Payout, error)) (stowhub.Payout, error) {
	b.payLock.Lock()
	defer b.payLock.Unlock()

	payout, ok := b.payouts[payoutID]
	if !ok {
		return stowhub.Payout{}, ErrNoSuchPayout
	}

	payout, err := fn(payout)
	if err != nil {
		return stowhub.Payout{}, err
	}

	payout.ModifyTime = time.Now().Unix()

	b.payouts[payoutID] = payout

	return payout, nil
}
