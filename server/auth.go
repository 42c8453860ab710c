package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	stowhub "github.com/stowhub/go-stowhub-api"
	"github.com/stowhub/go-stowhub-api/server/backend"
)

func (s *Server) handleGetPing() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"Code": stowhub.SuccessCode,
		})
	}
}

func (s *Server) handlePostAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stowhub.AuthReq

		if err := c.BindJSON(&req); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		auth, err := s.b.NewAuth(req.Email, []byte(req.Password))
		if err != nil {
			switch {
			case errors.Is(err, backend.ErrNoSuchUser), errors.Is(err, backend.ErrWrongPassword):
				c.AbortWithStatusJSON(http.StatusUnauthorized, stowhub.Error{
					Code:    stowhub.PasswordWrong,
					Message: "Incorrect login credentials",
				})

			case errors.Is(err, backend.ErrStaffRequired):
				c.AbortWithStatusJSON(http.StatusForbidden, stowhub.Error{
					Code:    stowhub.StaffRoleRequired,
					Message: "Only staff accounts may use the admin API",
				})

			case errors.Is(err, backend.ErrBanned):
				c.AbortWithStatusJSON(http.StatusForbidden, stowhub.Error{
					Code:    stowhub.AccountBanned,
					Message: "This account is banned",
				})

			default:
				c.AbortWithStatus(http.StatusInternalServerError)
			}

			return
		}

		c.JSON(http.StatusOK, gin.H{
			"Code": stowhub.SuccessCode,

			"UserID": auth.UserID,

			"UID":          auth.UID,
			"AccessToken":  auth.AccessToken,
			"RefreshToken": auth.RefreshToken,
			"ExpiresIn":    auth.ExpiresIn,

			"Scope": auth.Scope,

			"User": auth.User,
		})
	}
}

func (s *Server) handlePostAuthRefresh() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req stowhub.AuthRefreshReq

		if err := c.BindJSON(&req); err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		auth, err := s.b.NewAuthRef(req.UID, req.RefreshToken)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, stowhub.Error{
				Code:    stowhub.AuthRefreshInvalid,
				Message: "Invalid refresh token",
			})

			return
		}

		c.JSON(http.StatusOK, gin.H{
			"Code": stowhub.SuccessCode,

			"UserID": auth.UserID,

			"UID":          auth.UID,
			"AccessToken":  auth.AccessToken,
			"RefreshToken": auth.RefreshToken,
			"ExpiresIn":    auth.ExpiresIn,

			"Scope": auth.Scope,

			"User": auth.User,
		})
	}
}

func (s *Server) handleDeleteAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := s.b.DeleteAuth(c.GetString("UserID"), c.GetString("AuthUID")); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"Code": stowhub.SuccessCode,
		})
	}
}
