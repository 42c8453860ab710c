package backend

import "errors"

var (
	ErrNoSuchUser    = errors.New("no such user")
	ErrNoSuchRequest = errors.New("no such request")
	ErrNoSuchOrder   = errors.New("no such order")
	ErrNoSuchPayout  = errors.New("no such payout")

	ErrEmailTaken    = errors.New("email already taken")
	ErrWrongPassword = errors.New("wrong password")
	ErrStaffRequired = errors.New("account is not a staff account")
	ErrBanned        = errors.New("account is banned")
	ErrInvalidAuth   = errors.New("invalid auth")

	ErrRequestNotPending = errors.New("request is no longer pending")
)
