package stowhub

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/bradenaw/juniper/xslices"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// feedWriteWait is the time allowed to write a message to the peer.
	feedWriteWait = 10 * time.Second

	// feedPongWait is the time allowed to read the next pong from the peer.
	feedPongWait = 60 * time.Second

	// feedPingPeriod is how often pings are sent. Must be less than feedPongWait.
	feedPingPeriod = (feedPongWait * 8) / 10

	// defaultFeedCapacity is how many recent events the feed retains.
	defaultFeedCapacity = 100

	// defaultFeedMaxAttempts is how many reconnection attempts are made
	// before the feed gives up and stays disconnected.
	defaultFeedMaxAttempts = 10
)

// defaultFeedRetrySchedule is the delay before each reconnection attempt.
// Attempts beyond the schedule reuse its last entry.
var defaultFeedRetrySchedule = []time.Duration{
	2 * time.Second,
	5 * time.Second,
	10 * time.Second,
	20 * time.Second,
	30 * time.Second,
}

// Feed maintains a long-lived push connection to the API, scoped to the
// staff broadcast group, and delivers typed notification events to
// subscribers. Connection loss is retried with bounded backoff; the rest of
// the application stays usable while the feed is down.
type Feed struct {
	c *Client

	capacity    int
	schedule    []time.Duration
	maxAttempts int

	state atomic.Int32

	conn      *websocket.Conn
	connLock  sync.Mutex
	writeLock sync.Mutex

	stop chan struct{}
	done chan struct{}

	opLock sync.Mutex

	subs      map[FeedEventKind][]feedSub
	nextSubID uint64
	subsLock  sync.RWMutex

	recent     []FeedEvent
	recentLock sync.Mutex
}

type feedSub struct {
	id uint64
	fn func(FeedEvent)
}

// NewFeed returns a notification feed for the client's session. The feed does
// not connect until Start is called.
func (c *Client) NewFeed(opts ...FeedOption) *Feed {
	builder := newFeedBuilder()

	for _, opt := range opts {
		opt.config(builder)
	}

	return &Feed{
		c: c,

		capacity:    builder.capacity,
		schedule:    builder.schedule,
		maxAttempts: builder.maxAttempts,

		subs: make(map[FeedEventKind][]feedSub),
	}
}

// Start opens the push connection and joins the staff group. It is a no-op
// when the feed is already running. A dial failure leaves the feed
// disconnected and is returned to the caller; it is not fatal and Start may
// be called again.
func (f *Feed) Start(ctx context.Context) error {
	f.opLock.Lock()
	defer f.opLock.Unlock()

	if f.State() != FeedDisconnected {
		return nil
	}

	f.setState(FeedConnecting)

	conn, err := f.dial(ctx)
	if err != nil {
		f.setState(FeedDisconnected)
		return err
	}

	f.setConn(conn)

	f.stop = make(chan struct{})
	f.done = make(chan struct{})

	f.setState(FeedConnected)

	go f.run(conn, f.stop, f.done)

	return nil
}

// Stop leaves the staff group (best-effort), closes the connection and
// cancels any pending reconnection. It is safe to call when already stopped.
func (f *Feed) Stop() {
	f.opLock.Lock()
	defer f.opLock.Unlock()

	if f.State() == FeedDisconnected {
		return
	}

	close(f.stop)

	if conn := f.getConn(); conn != nil {
		// The server drops the membership when the socket goes away; the
		// explicit leave is a courtesy.
		if err := f.write(conn, FeedInvocation{Action: FeedActionLeave, Group: StaffGroup}); err != nil {
			logrus.WithError(err).Debug("Failed to send leave invocation")
		}

		conn.Close()
	}

	<-f.done

	f.setConn(nil)
	f.setState(FeedDisconnected)
}

// Subscribe registers fn for events of the given kind and returns a detached
// unsubscribe handle. Multiple subscribers per kind are allowed; events are
// delivered in arrival order.
func (f *Feed) Subscribe(kind FeedEventKind, fn func(FeedEvent)) func() {
	f.subsLock.Lock()
	defer f.subsLock.Unlock()

	f.nextSubID++

	id := f.nextSubID

	f.subs[kind] = append(f.subs[kind], feedSub{id: id, fn: fn})

	return func() {
		f.subsLock.Lock()
		defer f.subsLock.Unlock()

		f.subs[kind] = xslices.Filter(f.subs[kind], func(sub feedSub) bool {
			return sub.id != id
		})
	}
}

// IsActive reports whether the feed currently has a live connection.
func (f *Feed) IsActive() bool {
	return f.State() == FeedConnected
}

// State returns the current connection state.
func (f *Feed) State() FeedState {
	return FeedState(f.state.Load())
}

// Recent returns the retained events, newest first.
func (f *Feed) Recent() []FeedEvent {
	f.recentLock.Lock()
	defer f.recentLock.Unlock()

	return xslices.Clone(f.recent)
}

// Clear drops all retained events.
func (f *Feed) Clear() {
	f.recentLock.Lock()
	defer f.recentLock.Unlock()

	f.recent = nil
}

func (f *Feed) run(conn *websocket.Conn, stop, done chan struct{}) {
	defer close(done)

	for {
		stopPing := make(chan struct{})

		go f.ping(conn, stopPing)

		err := f.read(conn)

		close(stopPing)

		conn.Close()

		select {
		case <-stop:
			return

		default:
			// Unexpected close; fall through to reconnect.
		}

		logrus.WithError(err).Warn("Notification feed connection lost, reconnecting")

		conn = f.reconnect(stop)
		if conn == nil {
			f.setState(FeedDisconnected)
			return
		}
	}
}

func (f *Feed) read(conn *websocket.Conn) error {
	if err := conn.SetReadDeadline(time.Now().Add(feedPongWait)); err != nil {
		return err
	}

	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(feedPongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		if err := conn.SetReadDeadline(time.Now().Add(feedPongWait)); err != nil {
			return err
		}

		f.handle(decodeFrame(data, time.Now()))
	}
}

func (f *Feed) ping(conn *websocket.Conn, stop chan struct{}) {
	ticker := time.NewTicker(feedPingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return

		case <-ticker.C:
			f.writeLock.Lock()
			conn.SetWriteDeadline(time.Now().Add(feedWriteWait))
			err := conn.WriteMessage(websocket.PingMessage, nil)
			f.writeLock.Unlock()

			if err != nil {
				return
			}
		}
	}
}

// reconnect retries the connection per the feed's schedule, rejoining the
// staff group each time a dial succeeds. It returns nil once the maximum
// attempt count is exhausted or the feed is stopped.
func (f *Feed) reconnect(stop chan struct{}) *websocket.Conn {
	f.setState(FeedReconnecting)

	for attempt := 0; attempt < f.maxAttempts; attempt++ {
		delay := retryDelay(f.schedule, attempt)

		logrus.WithFields(logrus.Fields{
			"attempt": attempt + 1,
			"delay":   delay,
		}).Info("Reconnecting notification feed")

		select {
		case <-stop:
			return nil

		case <-time.After(delay):
			// ...
		}

		conn, err := f.dial(context.Background())
		if err != nil {
			logrus.WithError(err).Warn("Notification feed reconnect failed")
			continue
		}

		// Stop may have been called while the dial was in flight; the fresh
		// connection must not be adopted after that.
		select {
		case <-stop:
			conn.Close()
			return nil

		default:
			// ...
		}

		f.setConn(conn)
		f.setState(FeedConnected)

		return conn
	}

	logrus.Warn("Notification feed gave up reconnecting")

	return nil
}

// dial opens the websocket and joins the staff group. Group membership does
// not survive a reconnect, so every successful dial joins again.
func (f *Feed) dial(ctx context.Context) (*websocket.Conn, error) {
	header, err := f.c.authHeader(ctx)
	if err != nil {
		return nil, err
	}

	wsURL, err := feedURL(f.c.m.rc.BaseURL)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{
		HandshakeTimeout: feedWriteWait,
		TLSClientConfig:  tlsConfig(f.c.m.transport),
	}

	conn, res, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if res != nil {
			res.Body.Close()
		}

		return nil, err
	}

	if err := f.write(conn, FeedInvocation{Action: FeedActionJoin, Group: StaffGroup}); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

func (f *Feed) write(conn *websocket.Conn, v any) error {
	f.writeLock.Lock()
	defer f.writeLock.Unlock()

	conn.SetWriteDeadline(time.Now().Add(feedWriteWait))

	return conn.WriteJSON(v)
}

func (f *Feed) handle(event FeedEvent) {
	f.remember(event)
	f.dispatch(event)
}

func (f *Feed) remember(event FeedEvent) {
	f.recentLock.Lock()
	defer f.recentLock.Unlock()

	f.recent = append([]FeedEvent{event}, f.recent...)

	if len(f.recent) > f.capacity {
		f.recent = f.recent[:f.capacity]
	}
}

func (f *Feed) dispatch(event FeedEvent) {
	f.subsLock.RLock()
	subs := xslices.Clone(f.subs[event.Kind])
	f.subsLock.RUnlock()

	for _, sub := range subs {
		deliver(sub, event)
	}
}

// deliver isolates a failing subscriber: a panic in one callback must not
// prevent delivery to the others or take down the feed.
func deliver(sub feedSub, event FeedEvent) {
	defer func() {
		if r := recover(); r != nil {
			logrus.WithField("panic", r).Error("Notification subscriber panicked")
		}
	}()

	sub.fn(event)
}

func (f *Feed) setState(state FeedState) {
	f.state.Store(int32(state))
}

func (f *Feed) setConn(conn *websocket.Conn) {
	f.connLock.Lock()
	defer f.connLock.Unlock()

	f.conn = conn
}

func (f *Feed) getConn() *websocket.Conn {
	f.connLock.Lock()
	defer f.connLock.Unlock()

	return f.conn
}

// retryDelay returns the delay before the given zero-based attempt. Attempts
// beyond the schedule reuse its last entry, capping the backoff.
func retryDelay(schedule []time.Duration, attempt int) time.Duration {
	if len(schedule) == 0 {
		return 0
	}

	if attempt >= len(schedule) {
		attempt = len(schedule) - 1
	}

	return schedule[attempt]
}

// feedURL converts the API host URL into the websocket endpoint of the feed.
func feedURL(hostURL string) (string, error) {
	u, err := url.Parse(hostURL)
	if err != nil {
		return "", err
	}

	switch u.Scheme {
	case "https":
		u.Scheme = "wss"

	default:
		u.Scheme = "ws"
	}

	u.Path += "/core/v1/notifications/ws"

	return u.String(), nil
}

func tlsConfig(transport http.RoundTripper) *tls.Config {
	if transport, ok := transport.(*http.Transport); ok {
		return transport.TLSClientConfig
	}

	return nil
}
