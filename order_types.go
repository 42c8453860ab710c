package stowhub

type OrderStatus int

const (
	OrderPending OrderStatus = iota
	OrderActive
	OrderCompleted
	OrderCanceled
)

func (s OrderStatus) String() string {
	switch s {
	case OrderPending:
		return "pending"

	case OrderActive:
		return "active"

	case OrderCompleted:
		return "completed"

	case OrderCanceled:
		return "canceled"

	default:
		return "unknown"
	}
}

// Order is a storage rental: a renter paying a keeper for space.
type Order struct {
	ID        string
	RenterID  string
	KeeperID  string
	StorageID string

	// Amount is the order total in the smallest currency unit.
	Amount int64
	Months int

	Status OrderStatus

	CreateTime int64
}

type OrderFilter struct {
	KeeperID string
	RenterID string
	Status   *OrderStatus

	Page     int
	PageSize int
}
