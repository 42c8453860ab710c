package stowhub

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-resty/resty/v2"
)

// Status is the status of the connection to the API.
type Status int

const (
	// StatusUp means the API is reachable.
	StatusUp Status = iota

	// StatusDown means the API is unreachable.
	StatusDown
)

func (s Status) String() string {
	switch s {
	case StatusUp:
		return "up"

	case StatusDown:
		return "down"

	default:
		return "unknown"
	}
}

// StatusObserver is notified whenever the connection status changes.
type StatusObserver func(Status)

// Manager holds the shared HTTP client used by all sessions created from it.
type Manager struct {
	rc *resty.Client

	status     Status
	observers  []StatusObserver
	statusLock sync.Mutex

	errHandlers map[Code][]Handler
	handlerLock sync.RWMutex

	appVersion string
	transport  http.RoundTripper
}

func New(opts ...Option) *Manager {
	builder := newManagerBuilder()

	for _, opt := range opts {
		opt.config(builder)
	}

	return builder.build()
}

// r returns a new request to the API, to be executed by the caller.
func (m *Manager) r(ctx context.Context) *resty.Request {
	return m.rc.R().SetContext(ctx)
}

// Ping returns an error if the API is not reachable.
func (m *Manager) Ping(ctx context.Context) error {
	if _, err := m.r(ctx).Get("/core/v1/tests/ping"); err != nil {
		return err
	}

	return nil
}

// AddStatusObserver registers an observer which is called whenever the
// connection status flips between up and down.
func (m *Manager) AddStatusObserver(observer StatusObserver) {
	m.statusLock.Lock()
	defer m.statusLock.Unlock()

	m.observers = append(m.observers, observer)
}

// AddErrorHandler registers a handler for the given API error code.
func (m *Manager) AddErrorHandler(code Code, handler Handler) {
	m.handlerLock.Lock()
	defer m.handlerLock.Unlock()

	m.errHandlers[code] = append(m.errHandlers[code], handler)
}

func (m *Manager) Close() {
	m.rc.GetClient().CloseIdleConnections()
}

func (m *Manager) handleError(req *resty.Request, err error) {
	res, ok := err.(*resty.ResponseError)
	if !ok {
		return
	}

	apiErr, ok := res.Response.Error().(*Error)
	if !ok {
		return
	}

	m.handlerLock.RLock()
	defer m.handlerLock.RUnlock()

	for _, handler := range m.errHandlers[apiErr.Code] {
		handler()
	}
}

func (m *Manager) checkConnUp(_ *resty.Client, _ *resty.Response) error {
	m.setStatus(StatusUp)
	return nil
}

func (m *Manager) checkConnDown(req *resty.Request, err error) {
	if res, ok := err.(*resty.ResponseError); ok && res.Response.RawResponse != nil {
		return
	}

	m.setStatus(StatusDown)
}

func (m *Manager) setStatus(status Status) {
	m.statusLock.Lock()
	defer m.statusLock.Unlock()

	if status == m.status {
		return
	}

	m.status = status

	for _, observer := range m.observers {
		observer(status)
	}
}

type clientIDKey struct{}

// WithClient marks the context as belonging to the client with the given ID.
func WithClient(ctx context.Context, clientID uint64) context.Context {
	return context.WithValue(ctx, clientIDKey{}, clientID)
}

// ClientIDFromContext returns the ID of the client the context belongs to, if any.
func ClientIDFromContext(ctx context.Context) (uint64, bool) {
	clientID, ok := ctx.Value(clientIDKey{}).(uint64)
	return clientID, ok
}
