package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	stowhub "github.com/stowhub/go-stowhub-api"
	"github.com/stowhub/go-stowhub-api/server/backend"
)

func (s *Server) handleGetPayouts() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := stowhub.PayoutFilter{
			KeeperID: c.Query("KeeperID"),
		}

		if v, err := strconv.Atoi(c.Query("Status")); err == nil {
			status := stowhub.PayoutStatus(v)
			filter.Status = &status
		}

		filter.Page, filter.PageSize = pageQuery(c)

		payouts := s.b.GetPayouts(filter)

		c.JSON(http.StatusOK, gin.H{
			"Code":    stowhub.SuccessCode,
			"Payouts": payouts,
			"Total":   len(payouts),
		})
	}
}

func (s *Server) handleGetPayout() gin.HandlerFunc {
	return func(c *gin.Context) {
		payout, err := s.b.GetPayout(c.Param("payoutID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, stowhub.Error{
				Code:    stowhub.InvalidValue,
				Message: "No such payout",
			})

			return
		}

		c.JSON(http.StatusOK, gin.H{
			"Code":   stowhub.SuccessCode,
			"Payout": payout,
		})
	}
}

func (s *Server) handlePutPayoutStart() gin.HandlerFunc {
	return func(c *gin.Context) {
		payout, err := s.b.StartPayout(c.Param("payoutID"), c.GetString("UserID"))
		if err != nil {
			replyPayoutError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"Code":   stowhub.SuccessCode,
			"Payout": payout,
		})
	}
}

func (s *Server) handlePostPayoutProof() gin.HandlerFunc {
	return func(c *gin.Context) {
		file, err := c.FormFile("Proof")
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, stowhub.Error{
				Code:    stowhub.InvalidValue,
				Message: "Missing proof image",
			})

			return
		}

		proofURL := fmt.Sprintf("%s/proofs/%s/%s", s.s.URL, uuid.NewString(), file.Filename)

		payout, err := s.b.AttachPayoutProof(c.Param("payoutID"), proofURL)
		if err != nil {
			replyPayoutError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"Code":   stowhub.SuccessCode,
			"Payout": payout,
		})
	}
}

func (s *Server) handlePutPayoutComplete() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stowhub.CompletePayoutReq

		if err := c.BindJSON(&req); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		if req.TransactionCode == "" {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, stowhub.Error{
				Code:    stowhub.InvalidValue,
				Message: "Missing transaction code",
			})

			return
		}

		payout, err := s.b.CompletePayout(c.Param("payoutID"), req.Description, req.TransactionCode)
		if err != nil {
			replyPayoutError(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"Code":   stowhub.SuccessCode,
			"Payout": payout,
		})
	}
}

func replyPayoutError(c *gin.Context, err error) {
	if errors.Is(err, backend.ErrNoSuchPayout) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, stowhub.Error{
			Code:    stowhub.InvalidValue,
			Message: "No such payout",
		})

		return
	}

	if transitionErr := new(stowhub.TransitionError); errors.As(err, &transitionErr) {
		code := stowhub.PayoutBadTransition

		if transitionErr.Reason == "no proof attached" {
			code = stowhub.PayoutProofMissing
		}

		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, stowhub.Error{
			Code:    code,
			Message: transitionErr.Error(),
		})

		return
	}

	c.AbortWithStatus(http.StatusInternalServerError)
}
