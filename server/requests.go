package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	stowhub "github.com/stowhub/go-stowhub-api"
	"github.com/stowhub/go-stowhub-api/server/backend"
)

func (s *Server) handleGetRequests() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter stowhub.RequestFilter

		if kind, err := strconv.Atoi(c.Query("Kind")); err == nil {
			filter.Kind = stowhub.RequestKind(kind)
		}

		if v, err := strconv.Atoi(c.Query("Status")); err == nil {
			status := stowhub.RequestStatus(v)
			filter.Status = &status
		}

		filter.Page, filter.PageSize = pageQuery(c)

		requests := s.b.GetRequests(filter)

		c.JSON(http.StatusOK, gin.H{
			"Code":     stowhub.SuccessCode,
			"Requests": requests,
			"Total":    len(requests),
		})
	}
}

func (s *Server) handleGetRequest() gin.HandlerFunc {
	return func(c *gin.Context) {
		request, err := s.b.GetRequest(c.Param("requestID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, stowhub.Error{
				Code:    stowhub.InvalidValue,
				Message: "No such request",
			})

			return
		}

		c.JSON(http.StatusOK, gin.H{
			"Code":    stowhub.SuccessCode,
			"Request": request,
		})
	}
}

func (s *Server) handlePutRequestApprove() gin.HandlerFunc {
	return func(c *gin.Context) {
		s.handleSetRequestStatus(c, stowhub.RequestApproved, "")
	}
}

func (s *Server) handlePutRequestReject() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stowhub.RejectRequestReq

		if err := c.BindJSON(&req); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		s.handleSetRequestStatus(c, stowhub.RequestRejected, req.Reason)
	}
}

func (s *Server) handleSetRequestStatus(c *gin.Context, status stowhub.RequestStatus, reason string) {
	request, err := s.b.SetRequestStatus(c.Param("requestID"), status, reason)
	if err != nil {
		switch {
		case errors.Is(err, backend.ErrNoSuchRequest):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, stowhub.Error{
				Code:    stowhub.InvalidValue,
				Message: "No such request",
			})

		case errors.Is(err, backend.ErrRequestNotPending):
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, stowhub.Error{
				Code:    stowhub.RequestNotPending,
				Message: "This request has already been resolved",
			})

		default:
			c.AbortWithStatus(http.StatusInternalServerError)
		}

		return
	}

	c.JSON(http.StatusOK, gin.H{
		"Code":    stowhub.SuccessCode,
		"Request": request,
	})
}
