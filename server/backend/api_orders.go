package backend

import (
	"time"

	"github.com/bradenaw/juniper/xslices"
	"github.com/google/uuid"
	stowhub "github.com/stowhub/go-stowhub-api"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func (b *Backend) CreateOrder(renterID, keeperID, storageID string, amount int64, months int) stowhub.Order {
	b.ordLock.Lock()
	defer b.ordLock.Unlock()

	order := stowhub.Order{
		ID:        uuid.NewString(),
		RenterID:  renterID,
		KeeperID:  keeperID,
		StorageID: storageID,

		Amount: amount,
		Months: months,

		Status: stowhub.OrderActive,

		CreateTime: time.Now().Unix(),
	}

	b.orders[order.ID] = order

	return order
}

func (b *Backend) GetOrder(orderID string) (stowhub.Order, error) {
	b.ordLock.RLock()
	defer b.ordLock.RUnlock()

	order, ok := b.orders[orderID]
	if !ok {
		return stowhub.Order{}, ErrNoSuchOrder
	}

	return order, nil
}

func (b *Backend) GetOrders(filter stowhub.OrderFilter) []stowhub.Order {
	b.ordLock.RLock()
	defer b.ordLock.RUnlock()

	orders := xslices.Filter(maps.Values(b.orders), func(order stowhub.Order) bool {
		if filter.KeeperID != "" && order.KeeperID != filter.KeeperID {
			return false
		}

		if filter.RenterID != "" && order.RenterID != filter.RenterID {
			return false
		}

		if filter.Status != nil && order.Status != *filter.Status {
			return false
		}

		return true
	})

	slices.SortFunc(orders, func(a, b stowhub.Order) bool {
		if a.CreateTime != b.CreateTime {
			return a.CreateTime < b.CreateTime
		}

		return a.ID < b.ID
	})

	return paginate(orders, filter.Page, filter.PageSize)
}

func (b *Backend) SetOrderStatus(orderID string, status stowhub.OrderStatus) (stowhub.Order, error) {
	b.ordLock.Lock()
	defer b.ordLock.Unlock()

	order, ok := b.orders[orderID]
	if !ok {
		return stowhub.Order{}, ErrNoSuchOrder
	}

	order.Status = status

	b.orders[orderID] = order

	return order, nil
}
