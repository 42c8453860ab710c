package stowhub

type RequestKind int

const (
	KeeperRegistrationRequest RequestKind = iota + 1
	CreateStorageRequest
	DeleteStorageRequest
)

func (k RequestKind) String() string {
	switch k {
	case KeeperRegistrationRequest:
		return "keeper-registration"

	case CreateStorageRequest:
		return "create-storage"

	case DeleteStorageRequest:
		return "delete-storage"

	default:
		return "unknown"
	}
}

type RequestStatus int

const (
	RequestPending RequestStatus = iota
	RequestApproved
	RequestRejected
)

func (s RequestStatus) String() string {
	switch s {
	case RequestPending:
		return "pending"

	case RequestApproved:
		return "approved"

	case RequestRejected:
		return "rejected"

	default:
		return "unknown"
	}
}

// Request is a workflow item awaiting staff approval or rejection.
type Request struct {
	ID     string
	UserID string

	Kind   RequestKind
	Status RequestStatus

	// StorageID is set for storage creation/deletion requests.
	StorageID string

	Note   string
	Reason string

	CreateTime int64
	ModifyTime int64
}

type RequestFilter struct {
	Kind   RequestKind
	Status *RequestStatus

	Page     int
	PageSize int
}

type RejectRequestReq struct {
	Reason string
}
