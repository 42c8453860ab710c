package stowhub

type AuthReq struct {
	Email    string
	Password string
}

type Auth struct {
	UserID string

	UID          string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64

	Scope string

	User User
}

type AuthRefreshReq struct {
	UID          string
	RefreshToken string
	ResponseType string
	GrantType    string
}
