package server

import (
	"bytes"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/gin-gonic/gin"
	stowhub "github.com/stowhub/go-stowhub-api"
)

func initRouter(s *Server) {
	s.r.Use(
		s.requireValidAppVersion(),
	)

	if core := s.r.Group("/core/v1"); core != nil {
		// These routes are not protected by authentication.
		if auth := core.Group("/auth"); auth != nil {
			auth.POST("", s.handlePostAuth())
			auth.POST("/refresh", s.handlePostAuthRefresh())
		}

		if tests := core.Group("/tests"); tests != nil {
			tests.GET("/ping", s.handleGetPing())
		}

		// These routes require auth.
		if core := core.Group("", s.requireAuth()); core != nil {
			if auth := core.Group("/auth"); auth != nil {
				auth.DELETE("", s.handleDeleteAuth())
			}

			if users := core.Group("/users"); users != nil {
				users.GET("", s.handleGetUsers())
				users.GET("/:userID", s.handleGetUser())
				users.PUT("/:userID/ban", s.handlePutUserBan())
				users.PUT("/:userID/unban", s.handlePutUserUnban())
			}

			if requests := core.Group("/requests"); requests != nil {
				requests.GET("", s.handleGetRequests())
				requests.GET("/:requestID", s.handleGetRequest())
				requests.PUT("/:requestID/approve", s.handlePutRequestApprove())
				requests.PUT("/:requestID/reject", s.handlePutRequestReject())
			}

			if orders := core.Group("/orders"); orders != nil {
				orders.GET("", s.handleGetOrders())
				orders.GET("/:orderID", s.handleGetOrder())
			}

			if payouts := core.Group("/payouts"); payouts != nil {
				payouts.GET("", s.handleGetPayouts())
				payouts.GET("/:payoutID", s.handleGetPayout())
				payouts.PUT("/:payoutID/start", s.handlePutPayoutStart())
				payouts.POST("/:payoutID/proof", s.handlePostPayoutProof())
				payouts.PUT("/:payoutID/complete", s.handlePutPayoutComplete())
			}

			if notifications := core.Group("/notifications"); notifications != nil {
				notifications.GET("/ws", s.handleNotificationsWS())
			}
		}
	}
}

func (s *Server) requireValidAppVersion() gin.HandlerFunc {
	return func(c *gin.Context) {
		appVersion := c.Request.Header.Get("x-stow-appversion")

		if appVersion == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, stowhub.Error{
				Code:    stowhub.AppVersionMissingCode,
				Message: "Missing x-stow-appversion header",
			})
		} else if ok := s.validateAppVersion(appVersion); !ok {
			c.AbortWithStatusJSON(http.StatusBadRequest, stowhub.Error{
				Code:    stowhub.AppVersionBadCode,
				Message: "This version of the app is no longer supported, please update to continue using the app",
			})
		}
	}
}

func (s *Server) logCalls() gin.HandlerFunc {
	return func(c *gin.Context) {
		req, err := io.ReadAll(c.Request.Body)
		if err != nil {
			panic(err)
		} else {
			c.Request.Body = io.NopCloser(bytes.NewReader(req))
		}

		res, err := newBodyWriter(c.Writer)
		if err != nil {
			panic(err)
		} else {
			c.Writer = res
		}

		c.Next()

		s.callWatchersLock.RLock()
		defer s.callWatchersLock.RUnlock()

		for _, call := range s.callWatchers {
			if call.isWatching(c.Request.URL.Path) {
				call.publish(Call{
					URL:    c.Request.URL,
					Method: c.Request.Method,
					Status: c.Writer.Status(),

					RequestHeader: c.Request.Header,
					RequestBody:   req,

					ResponseHeader: c.Writer.Header(),
					ResponseBody:   res.bytes(),
				})
			}
		}
	}
}

func (s *Server) handleOffline() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.offline {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
	}
}

func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authUID := c.Request.Header.Get("x-stow-uid")
		if authUID == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		auth := c.Request.Header.Get("Authorization")
		if auth == "" {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		userID, err := s.b.VerifyAuth(authUID, strings.Split(auth, " ")[1])
		if err != nil {
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Set("UserID", userID)

		c.Set("AuthUID", authUID)
	}
}

func (s *Server) validateAppVersion(appVersion string) bool {
	if s.minAppVersion == nil {
		return true
	}

	split := strings.Split(appVersion, "_")

	if len(split) != 2 {
		return false
	}

	version, err := semver.NewVersion(split[1])
	if err != nil {
		return false
	}

	return !version.LessThan(s.minAppVersion)
}

type bodyWriter struct {
	gin.ResponseWriter
	buf *bytes.Buffer
}

func newBodyWriter(w gin.ResponseWriter) (*bodyWriter, error) {
	if w == nil {
		return nil, errors.New("response writer is nil")
	}

	return &bodyWriter{
		ResponseWriter: w,

		buf: &bytes.Buffer{},
	}, nil
}

func (w bodyWriter) Write(b []byte) (int, error) {
	if n, err := w.buf.Write(b); err != nil {
		return n, err
	}

	return w.ResponseWriter.Write(b)
}

func (w bodyWriter) bytes() []byte {
	return w.buf.Bytes()
}
