package stowhub

import (
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Header names used when communicating with the API.
const (
	hdrSessionUID = "x-stow-uid"
	hdrAppVersion = "x-stow-appversion"
)

type Code int

const (
	SuccessCode           Code = 1000
	InvalidValue          Code = 2001
	AppVersionMissingCode Code = 5001
	AppVersionBadCode     Code = 5003
	PasswordWrong         Code = 8002
	StaffRoleRequired     Code = 8004
	AccountBanned         Code = 8005
	AuthRefreshInvalid    Code = 10013
	RequestNotPending     Code = 12001
	PayoutBadTransition   Code = 12002
	PayoutProofMissing    Code = 12003
)

type Error struct {
	Code    Code
	Message string `json:"Error"`
}

func (err Error) Error() string {
	return err.Message
}

func catchAPIError(_ *resty.Client, res *resty.Response) error {
	if !res.IsError() {
		return nil
	}

	var err error

	if apiErr, ok := res.Error().(*Error); ok {
		err = apiErr
	} else {
		err = fmt.Errorf("%v", res.Status())
	}

	return fmt.Errorf("%v: %w", res.StatusCode(), err)
}

func catchDialError(res *resty.Response, err error) bool {
	return res.RawResponse == nil
}
