package server

import (
	"encoding/json"
	"net/http/httptest"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gin-gonic/gin"
	stowhub "github.com/stowhub/go-stowhub-api"
	"github.com/stowhub/go-stowhub-api/server/backend"
)

// Server is a test double of the Stowhub admin API.
type Server struct {
	// r is the gin router.
	r *gin.Engine

	// s is the underlying server.
	s *httptest.Server

	// b is the server backend, which manages users, requests, orders and payouts.
	b *backend.Backend

	// hub pushes notification frames to connected staff sessions.
	hub *hub

	// callWatchers records calls received by the server.
	callWatchers     []callWatcher
	callWatchersLock sync.RWMutex

	// minAppVersion is the minimum app version that the server will accept.
	minAppVersion *semver.Version

	// offline is whether to pretend the server is offline and return 5xx errors.
	offline bool
}

func New(opts ...Option) *Server {
	builder := newServerBuilder()

	for _, opt := range opts {
		opt.config(builder)
	}

	return builder.build()
}

func (s *Server) GetHostURL() string {
	return s.s.URL
}

func (s *Server) Close() {
	s.hub.dropAll()
	s.s.Close()
}

// SetAuthLife sets how long session access tokens remain valid.
func (s *Server) SetAuthLife(authLife time.Duration) {
	s.b.SetAuthLife(authLife)
}

// SetOffline makes the server answer every call with 503 until turned off again.
func (s *Server) SetOffline(offline bool) {
	s.offline = offline
}

func (s *Server) AddCallWatcher(fn func(Call), paths ...string) {
	s.callWatchersLock.Lock()
	defer s.callWatchersLock.Unlock()

	s.callWatchers = append(s.callWatchers, newCallWatcher(fn, paths...))
}

// CreateStaff adds a staff account which may log in to the admin API.
func (s *Server) CreateStaff(email, username string, password []byte) (string, error) {
	user, err := s.b.CreateUser(email, username, password, stowhub.RoleStaff)
	if err != nil {
		return "", err
	}

	return user.ID, nil
}

// CreateRenter adds a marketplace user with the renter role.
func (s *Server) CreateRenter(email, username string) (string, error) {
	user, err := s.b.CreateUser(email, username, nil, stowhub.RoleRenter)
	if err != nil {
		return "", err
	}

	return user.ID, nil
}

// CreateKeeper adds a marketplace user with the keeper role.
func (s *Server) CreateKeeper(email, username string) (string, error) {
	user, err := s.b.CreateUser(email, username, nil, stowhub.RoleKeeper)
	if err != nil {
		return "", err
	}

	return user.ID, nil
}

func (s *Server) SetBanned(userID string, banned bool) error {
	_, err := s.b.SetBanned(userID, banned)
	return err
}

func (s *Server) CreateRequest(userID string, kind stowhub.RequestKind, note, storageID string) string {
	return s.b.CreateRequest(userID, kind, note, storageID).ID
}

func (s *Server) CreateOrder(renterID, keeperID, storageID string, amount int64, months int) string {
	return s.b.CreateOrder(renterID, keeperID, storageID, amount, months).ID
}

func (s *Server) SetOrderStatus(orderID string, status stowhub.OrderStatus) error {
	_, err := s.b.SetOrderStatus(orderID, status)
	return err
}

func (s *Server) CreatePayout(orderID, keeperID string, amount int64) string {
	return s.b.CreatePayout(orderID, keeperID, amount).ID
}

func (s *Server) GetPayout(payoutID string) (stowhub.Payout, error) {
	return s.b.GetPayout(payoutID)
}

// ExpireSession backdates the session's access token so that its next call
// fails with 401.
func (s *Server) ExpireSession(authUID string) error {
	return s.b.ExpireAuth(authUID)
}

// RevokeSessions drops all of the user's sessions.
func (s *Server) RevokeSessions(userID string) error {
	return s.b.RevokeAuth(userID)
}

// PushNotification broadcasts a notification frame to the staff group.
func (s *Server) PushNotification(kind stowhub.FeedEventKind, message string, payload any) error {
	var raw json.RawMessage

	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}

		raw = data
	}

	data, err := json.Marshal(stowhub.FeedFrame{
		Type:    string(kind),
		Message: message,
		Payload: raw,
	})
	if err != nil {
		return err
	}

	s.hub.broadcast(stowhub.StaffGroup, data)

	return nil
}

// PushRaw broadcasts an arbitrary frame to the staff group, valid or not.
func (s *Server) PushRaw(data []byte) {
	s.hub.broadcast(stowhub.StaffGroup, data)
}

// DropFeedConns force-closes all push connections, as seen on network loss.
func (s *Server) DropFeedConns() {
	s.hub.dropAll()
}

// FeedGroupSize returns how many connections are currently in the group.
func (s *Server) FeedGroupSize(group string) int {
	return s.hub.groupSize(group)
}

// FeedJoinCount returns how many join invocations the group has received.
func (s *Server) FeedJoinCount(group string) int {
	return s.hub.joinCount(group)
}
