package stowhub

type UserRole int

const (
	RoleRenter UserRole = iota + 1
	RoleKeeper
	RoleStaff
)

func (r UserRole) String() string {
	switch r {
	case RoleRenter:
		return "renter"

	case RoleKeeper:
		return "keeper"

	case RoleStaff:
		return "staff"

	default:
		return "unknown"
	}
}

type User struct {
	ID       string
	Email    string
	Username string
	Phone    string

	Role   UserRole
	Banned Bool

	CreateTime int64
}

// UserFilter narrows down the users returned by GetUsers. Zero values mean
// "no constraint"; pagination is applied after filtering.
type UserFilter struct {
	Role   UserRole
	Banned *bool

	Page     int
	PageSize int
}
