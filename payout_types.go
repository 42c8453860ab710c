package stowhub

import "fmt"

type PayoutStatus int

const (
	PayoutNotPaid PayoutStatus = iota
	PayoutBusy
	PayoutPaid
)

func (s PayoutStatus) String() string {
	switch s {
	case PayoutNotPaid:
		return "not-paid"

	case PayoutBusy:
		return "busy"

	case PayoutPaid:
		return "paid"

	default:
		return "unknown"
	}
}

// Payout is a scheduled transfer of funds to a keeper. Its status only ever
// moves forward: not-paid, then busy, then paid.
type Payout struct {
	ID       string
	OrderID  string
	KeeperID string

	// StaffID is the staff member who started processing the payout.
	StaffID string

	// Amount is the payout total in the smallest currency unit.
	Amount int64

	Status PayoutStatus

	ProofImageURL   string
	TransactionCode string
	Description     string

	CreateTime int64
	ModifyTime int64
}

type PayoutFilter struct {
	KeeperID string
	Status   *PayoutStatus

	Page     int
	PageSize int
}

type CompletePayoutReq struct {
	Description     string
	TransactionCode string
}

// TransitionError is returned when a payout action is attempted out of order.
type TransitionError struct {
	PayoutID string
	From     PayoutStatus
	Action   string
	Reason   string
}

func (err *TransitionError) Error() string {
	return fmt.Sprintf("payout %s: cannot %s while %s: %s", err.PayoutID, err.Action, err.From, err.Reason)
}

// CanStartProcessing reports whether the payout may move from not-paid to
// busy. Only a payout that nobody has picked up yet may be started.
func (p Payout) CanStartProcessing() error {
	if p.Status != PayoutNotPaid {
		return &TransitionError{
			PayoutID: p.ID,
			From:     p.Status,
			Action:   "start processing",
			Reason:   "already picked up",
		}
	}

	return nil
}

// CanAttachProof reports whether a transfer proof may be attached. The payout
// must be busy and must not already carry a proof.
func (p Payout) CanAttachProof() error {
	if p.Status != PayoutBusy {
		return &TransitionError{
			PayoutID: p.ID,
			From:     p.Status,
			Action:   "attach proof",
			Reason:   "not being processed",
		}
	}

	if p.ProofImageURL != "" {
		return &TransitionError{
			PayoutID: p.ID,
			From:     p.Status,
			Action:   "attach proof",
			Reason:   "proof already attached",
		}
	}

	return nil
}

// CanComplete reports whether the payout may move from busy to paid. A proof
// of transfer must have been attached first.
func (p Payout) CanComplete() error {
	if p.Status != PayoutBusy {
		return &TransitionError{
			PayoutID: p.ID,
			From:     p.Status,
			Action:   "complete",
			Reason:   "not being processed",
		}
	}

	if p.ProofImageURL == "" {
		return &TransitionError{
			PayoutID: p.ID,
			From:     p.Status,
			Action:   "complete",
			Reason:   "no proof attached",
		}
	}

	return nil
}
