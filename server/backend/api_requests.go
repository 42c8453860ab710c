package backend

import (
	"time"

	"github.com/bradenaw/juniper/xslices"
	"github.com/google/uuid"
	stowhub "github.com/stowhub/go-stowhub-api"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

func (b *Backend) CreateRequest(userID string, kind stowhub.RequestKind, note, storageID string) stowhub.Request {
	b.reqLock.Lock()
	defer b.reqLock.Unlock()

	now := time.Now().Unix()

	request := stowhub.Request{
		ID:     uuid.NewString(),
		UserID: userID,

		Kind:   kind,
		Status: stowhub.RequestPending,

		StorageID: storageID,
		Note:      note,

		CreateTime: now,
		ModifyTime: now,
	}

	b.requests[request.ID] = request

	return request
}

func (b *Backend) GetRequest(requestID string) (stowhub.Request, error) {
	b.reqLock.RLock()
	defer b.reqLock.RUnlock()

	request, ok := b.requests[requestID]
	if !ok {
		return stowhub.Request{}, ErrNoSuchRequest
	}

	return request, nil
}

func (b *Backend) GetRequests(filter stowhub.RequestFilter) []stowhub.Request {
	b.reqLock.RLock()
	defer b.reqLock.RUnlock()

	requests := xslices.Filter(maps.Values(b.requests), func(request stowhub.Request) bool {
		if filter.Kind != 0 && request.Kind != filter.Kind {
			return false
		}

		if filter.Status != nil && request.Status != *filter.Status {
			return false
		}

		return true
	})

	slices.SortFunc(requests, func(a, b stowhub.Request) bool {
		if a.CreateTime != b.CreateTime {
			return a.CreateTime < b.CreateTime
		}

		return a.ID < b.ID
	})

	return paginate(requests, filter.Page, filter.PageSize)
}

// SetRequestStatus resolves a pending request. Requests that have already
// been resolved cannot change status again.
func (b *Backend) SetRequestStatus(requestID string, status stowhub.RequestStatus, reason string) (stowhub.Request, error) {
	b.reqLock.Lock()
	defer b.reqLock.Unlock()

	request, ok := b.requests[requestID]
	if !ok {
		return stowhub.Request{}, ErrNoSuchRequest
	}

	if request.Status != stowhub.RequestPending {
		return stowhub.Request{}, ErrRequestNotPending
	}

	request.Status = status
	request.Reason = reason
	request.ModifyTime = time.Now().Unix()

	b.requests[requestID] = request

	return request, nil
}
