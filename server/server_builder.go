package server

import (
	"io"
	"net/http/httptest"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/gin-gonic/gin"
	"github.com/stowhub/go-stowhub-api/server/backend"
)

type serverBuilder struct {
	withTLS       bool
	logger        io.Writer
	authLife      time.Duration
	minAppVersion *semver.Version
}

func newServerBuilder() *serverBuilder {
	var logger io.Writer

	if os.Getenv("GO_STOWHUB_API_SERVER_LOGGER_ENABLED") != "" {
		logger = gin.DefaultWriter
	} else {
		logger = io.Discard
	}

	return &serverBuilder{
		withTLS:  true,
		logger:   logger,
		authLife: time.Hour,
	}
}

func (builder *serverBuilder) build() *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		r:   gin.New(),
		b:   backend.New(builder.authLife),
		hub: newHub(),

		minAppVersion: builder.minAppVersion,
	}

	if builder.withTLS {
		s.s = httptest.NewTLSServer(s.r)
	} else {
		s.s = httptest.NewServer(s.r)
	}

	s.r.Use(
		gin.LoggerWithConfig(gin.LoggerConfig{Output: builder.logger}),
		gin.Recovery(),
		s.logCalls(),
		s.handleOffline(),
	)

	initRouter(s)

	return s
}

// Option represents a type that can be used to configure the server.
type Option interface {
	config(*serverBuilder)
}

// WithTLS controls whether the server should serve over TLS.
func WithTLS(withTLS bool) Option {
	return &serverWithTLS{
		withTLS: withTLS,
	}
}

type serverWithTLS struct {
	withTLS bool
}

func (opt serverWithTLS) config(builder *serverBuilder) {
	builder.withTLS = opt.withTLS
}

// WithLogger controls where gin logs to.
func WithLogger(logger io.Writer) Option {
	return &serverWithLogger{
		logger: logger,
	}
}

type serverWithLogger struct {
	logger io.Writer
}

func (opt serverWithLogger) config(builder *serverBuilder) {
	builder.logger = opt.logger
}

// WithAuthLife sets how long session access tokens remain valid.
func WithAuthLife(authLife time.Duration) Option {
	return &serverWithAuthLife{
		authLife: authLife,
	}
}

type serverWithAuthLife struct {
	authLife time.Duration
}

func (opt serverWithAuthLife) config(builder *serverBuilder) {
	builder.authLife = opt.authLife
}

// WithMinAppVersion sets the minimum app version the server accepts.
func WithMinAppVersion(version *semver.Version) Option {
	return &serverWithMinAppVersion{
		version: version,
	}
}

type serverWithMinAppVersion struct {
	version *semver.Version
}

func (opt serverWithMinAppVersion) config(builder *serverBuilder) {
	builder.minAppVersion = opt.version
}
