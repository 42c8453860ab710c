package stowhub_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	stowhub "github.com/stowhub/go-stowhub-api"
	"github.com/stowhub/go-stowhub-api/server"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestFeed(t *testing.T) {
	s := server.New()

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	m := stowhub.New(
		stowhub.WithHostURL(s.GetHostURL()),
		stowhub.WithTransport(stowhub.InsecureTransport()),
	)

	c, _, err := m.NewClientWithLogin(context.Background(), "staff@stowhub.test", []byte("password"))
	require.NoError(t, err)

	feed := c.NewFeed()

	eventCh := make(chan stowhub.FeedEvent, 8)

	feed.Subscribe(stowhub.FeedPayoutRequest, func(event stowhub.FeedEvent) {
		eventCh <- event
	})

	require.NoError(t, feed.Start(context.Background()))
	require.True(t, feed.IsActive())
	require.Equal(t, stowhub.FeedConnected, feed.State())

	waitForGroupSize(t, s, 1)

	// A payout request without a message gets a derived one.
	require.NoError(t, s.PushNotification(stowhub.FeedPayoutRequest, "", stowhub.PayoutRequestPayload{
		PayoutID: "payout-1",
		KeeperID: "keeper-1",
		Amount:   500000,
	}))

	event := <-eventCh
	require.Equal(t, stowhub.FeedPayoutRequest, event.Kind)
	require.Equal(t, "A keeper requested a payout of 500000", event.Message)

	var payload stowhub.PayoutRequestPayload
	require.NoError(t, json.Unmarshal(event.Payload, &payload))
	require.Equal(t, "payout-1", payload.PayoutID)
	require.Equal(t, int64(500000), payload.Amount)

	// The event is retained.
	recent := feed.Recent()
	require.Len(t, recent, 1)
	require.Equal(t, stowhub.FeedPayoutRequest, recent[0].Kind)

	feed.Stop()
	require.False(t, feed.IsActive())
	require.Equal(t, stowhub.FeedDisconnected, feed.State())

	c.Close()
	m.Close()
	s.Close()

	// Stopping the feed must not leave its pump goroutines behind.
	goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("net/http.(*persistConn).readLoop"),
		goleak.IgnoreTopFunction("net/http.(*persistConn).writeLoop"),
		goleak.IgnoreTopFunction("internal/poll.runtime_pollWait"),
	)
}

func TestFeedStartIdempotent(t *testing.T) {
	s, _, feed := newTestFeed(t)

	require.NoError(t, feed.Start(context.Background()))
	require.NoError(t, feed.Start(context.Background()))
	defer feed.Stop()

	waitForGroupSize(t, s, 1)

	// The second Start was a no-op: one connection, one join.
	require.Equal(t, 1, s.FeedGroupSize(stowhub.StaffGroup))
	require.Equal(t, 1, s.FeedJoinCount(stowhub.StaffGroup))
}

func TestFeedRecentBounded(t *testing.T) {
	s, _, feed := newTestFeed(t, stowhub.FeedWithCapacity(3))

	eventCh := make(chan stowhub.FeedEvent, 8)

	feed.Subscribe(stowhub.FeedGeneric, func(event stowhub.FeedEvent) {
		eventCh <- event
	})

	require.NoError(t, feed.Start(context.Background()))
	defer feed.Stop()

	waitForGroupSize(t, s, 1)

	for i := 0; i < 5; i++ {
		require.NoError(t, s.PushNotification(stowhub.FeedGeneric, fmt.Sprintf("n-%d", i), nil))
	}

	for i := 0; i < 5; i++ {
		<-eventCh
	}

	// Only the newest events are retained, newest first.
	recent := feed.Recent()
	require.Len(t, recent, 3)
	require.Equal(t, "n-4", recent[0].Message)
	require.Equal(t, "n-3", recent[1].Message)
	require.Equal(t, "n-2", recent[2].Message)

	feed.Clear()
	require.Empty(t, feed.Recent())
}

func TestFeedReconnect(t *testing.T) {
	s, _, feed := newTestFeed(t, stowhub.FeedWithRetrySchedule(10*time.Millisecond))

	eventCh := make(chan stowhub.FeedEvent, 8)

	feed.Subscribe(stowhub.FeedCreateStorage, func(event stowhub.FeedEvent) {
		eventCh <- event
	})

	require.NoError(t, feed.Start(context.Background()))
	defer feed.Stop()

	waitForGroupSize(t, s, 1)

	// Kill the connection server-side, as seen on network loss.
	s.DropFeedConns()

	// The feed reconnects and rejoins the staff group.
	require.Eventually(t, func() bool {
		return s.FeedGroupSize(stowhub.StaffGroup) == 1 && feed.IsActive()
	}, 5*time.Second, 10*time.Millisecond)

	require.Equal(t, 2, s.FeedJoinCount(stowhub.StaffGroup))

	// Events flow again.
	require.NoError(t, s.PushNotification(stowhub.FeedCreateStorage, "new storage", nil))

	event := <-eventCh
	require.Equal(t, stowhub.FeedCreateStorage, event.Kind)
	require.Equal(t, "new storage", event.Message)
}

func TestFeedStopDuringReconnect(t *testing.T) {
	s := server.New()
	t.Cleanup(s.Close)

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	// Stall the token refresh so the reconnection dial is reliably in flight
	// when Stop is called.
	rt := &stallingRoundTripper{
		RoundTripper: stowhub.InsecureTransport(),
		entered:      make(chan struct{}),
	}

	m := stowhub.New(
		stowhub.WithHostURL(s.GetHostURL()),
		stowhub.WithTransport(rt),
	)
	t.Cleanup(m.Close)

	_, auth, err := m.NewClientWithLogin(context.Background(), "staff@stowhub.test", []byte("password"))
	require.NoError(t, err)

	// A short expiry forces the reconnection dial to refresh the tokens first,
	// which is where the round tripper stalls it.
	c := m.NewClient(auth.UID, auth.AccessToken, auth.RefreshToken, time.Now().Add(200*time.Millisecond))
	t.Cleanup(c.Close)

	feed := c.NewFeed(stowhub.FeedWithRetrySchedule(10 * time.Millisecond))

	require.NoError(t, feed.Start(context.Background()))

	waitForGroupSize(t, s, 1)

	// Let the tokens expire, then kill the connection to trigger a reconnect.
	time.Sleep(250 * time.Millisecond)
	s.DropFeedConns()

	// Once the dial is under way, stop the feed out from under it.
	<-rt.entered

	stopped := make(chan struct{})

	go func() {
		feed.Stop()
		close(stopped)
	}()

	select {
	case <-stopped:
		// ...

	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return while a reconnection dial was in flight")
	}

	require.False(t, feed.IsActive())
	require.Equal(t, stowhub.FeedDisconnected, feed.State())

	// The connection the dial produced was discarded, not adopted.
	require.Eventually(t, func() bool {
		return s.FeedGroupSize(stowhub.StaffGroup) == 0
	}, 5*time.Second, 10*time.Millisecond)
}

type stallingRoundTripper struct {
	http.RoundTripper

	entered chan struct{}
	once    sync.Once
}

func (rt *stallingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	if strings.Contains(req.URL.Path, "/auth/refresh") {
		rt.once.Do(func() { close(rt.entered) })
		time.Sleep(500 * time.Millisecond)
	}

	return rt.RoundTripper.RoundTrip(req)
}

func TestFeedGivesUp(t *testing.T) {
	s, _, feed := newTestFeed(t,
		stowhub.FeedWithRetrySchedule(time.Millisecond),
		stowhub.FeedWithMaxAttempts(2),
	)

	require.NoError(t, feed.Start(context.Background()))

	waitForGroupSize(t, s, 1)

	// Take the server away entirely; every reconnection attempt fails and the
	// feed eventually stops trying.
	s.Close()

	require.Eventually(t, func() bool {
		return feed.State() == stowhub.FeedDisconnected
	}, 5*time.Second, 10*time.Millisecond)
}

func TestFeedMalformedFrame(t *testing.T) {
	s, _, feed := newTestFeed(t)

	eventCh := make(chan stowhub.FeedEvent, 8)

	feed.Subscribe(stowhub.FeedGeneric, func(event stowhub.FeedEvent) {
		eventCh <- event
	})

	require.NoError(t, feed.Start(context.Background()))
	defer feed.Stop()

	waitForGroupSize(t, s, 1)

	// Frames that fail to parse degrade to a generic notification instead of
	// being dropped or killing the connection.
	s.PushRaw([]byte("certainly not json"))

	event := <-eventCh
	require.Equal(t, stowhub.FeedGeneric, event.Kind)
	require.Equal(t, "You have a new notification", event.Message)

	// The feed is still alive.
	require.True(t, feed.IsActive())
}

func TestFeedSubscriberPanic(t *testing.T) {
	s, _, feed := newTestFeed(t)

	eventCh := make(chan stowhub.FeedEvent, 8)

	feed.Subscribe(stowhub.FeedGeneric, func(stowhub.FeedEvent) {
		panic("bad subscriber")
	})

	feed.Subscribe(stowhub.FeedGeneric, func(event stowhub.FeedEvent) {
		eventCh <- event
	})

	require.NoError(t, feed.Start(context.Background()))
	defer feed.Stop()

	waitForGroupSize(t, s, 1)

	// A panicking subscriber affects neither the other subscribers nor the feed.
	require.NoError(t, s.PushNotification(stowhub.FeedGeneric, "first", nil))
	require.Equal(t, "first", (<-eventCh).Message)

	require.NoError(t, s.PushNotification(stowhub.FeedGeneric, "second", nil))
	require.Equal(t, "second", (<-eventCh).Message)
}

func TestFeedKindScoped(t *testing.T) {
	s, _, feed := newTestFeed(t)

	eventCh := make(chan stowhub.FeedEvent, 8)

	feed.Subscribe(stowhub.FeedCreateStorage, func(event stowhub.FeedEvent) {
		eventCh <- event
	})

	require.NoError(t, feed.Start(context.Background()))
	defer feed.Stop()

	waitForGroupSize(t, s, 1)

	// Events of other kinds are not delivered to this subscriber.
	require.NoError(t, s.PushNotification(stowhub.FeedPayoutRequest, "payout", nil))
	require.NoError(t, s.PushNotification(stowhub.FeedCreateStorage, "storage", nil))

	event := <-eventCh
	require.Equal(t, stowhub.FeedCreateStorage, event.Kind)
	require.Equal(t, "storage", event.Message)
}

func TestFeedUnsubscribe(t *testing.T) {
	s, _, feed := newTestFeed(t)

	firstCh := make(chan stowhub.FeedEvent, 8)
	secondCh := make(chan stowhub.FeedEvent, 8)

	unsubscribe := feed.Subscribe(stowhub.FeedGeneric, func(event stowhub.FeedEvent) {
		firstCh <- event
	})

	feed.Subscribe(stowhub.FeedGeneric, func(event stowhub.FeedEvent) {
		secondCh <- event
	})

	require.NoError(t, feed.Start(context.Background()))
	defer feed.Stop()

	waitForGroupSize(t, s, 1)

	unsubscribe()

	require.NoError(t, s.PushNotification(stowhub.FeedGeneric, "after unsubscribe", nil))

	// The remaining subscriber sees the event, the removed one does not.
	require.Equal(t, "after unsubscribe", (<-secondCh).Message)
	require.Empty(t, firstCh)
}

// newTestFeed spins up a server with a logged-in staff session and returns an
// unstarted feed for it.
func newTestFeed(t *testing.T, opts ...stowhub.FeedOption) (*server.Server, *stowhub.Client, *stowhub.Feed) {
	t.Helper()

	s := server.New()
	t.Cleanup(s.Close)

	_, err := s.CreateStaff("staff@stowhub.test", "staff", []byte("password"))
	require.NoError(t, err)

	m := stowhub.New(
		stowhub.WithHostURL(s.GetHostURL()),
		stowhub.WithTransport(stowhub.InsecureTransport()),
	)
	t.Cleanup(m.Close)

	c, _, err := m.NewClientWithLogin(context.Background(), "staff@stowhub.test", []byte("password"))
	require.NoError(t, err)
	t.Cleanup(c.Close)

	return s, c, c.NewFeed(opts...)
}

func waitForGroupSize(t *testing.T, s *server.Server, n int) {
	t.Helper()

	require.Eventually(t, func() bool {
		return s.FeedGroupSize(stowhub.StaffGroup) == n
	}, 5*time.Second, 10*time.Millisecond)
}
