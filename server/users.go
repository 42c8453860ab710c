package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	stowhub "github.com/stowhub/go-stowhub-api"
)

func (s *Server) handleGetUsers() gin.HandlerFunc {
	return func(c *gin.Context) {
		var filter stowhub.UserFilter

		if role, err := strconv.Atoi(c.Query("Role")); err == nil {
			filter.Role = stowhub.UserRole(role)
		}

		if banned, err := strconv.ParseBool(c.Query("Banned")); err == nil {
			filter.Banned = &banned
		}

		filter.Page, filter.PageSize = pageQuery(c)

		users := s.b.GetUsers(filter)

		c.JSON(http.StatusOK, gin.H{
			"Code":  stowhub.SuccessCode,
			"Users": users,
			"Total": len(users),
		})
	}
}

func (s *Server) handleGetUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.b.GetUser(c.Param("userID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, stowhub.Error{
				Code:    stowhub.InvalidValue,
				Message: "No such user",
			})

			return
		}

		c.JSON(http.StatusOK, gin.H{
			"Code": stowhub.SuccessCode,
			"User": user,
		})
	}
}

func (s *Server) handlePutUserBan() gin.HandlerFunc {
	return s.handleSetBanned(true)
}

func (s *Server) handlePutUserUnban() gin.HandlerFunc {
	return s.handleSetBanned(false)
}

func (s *Server) handleSetBanned(banned bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, err := s.b.SetBanned(c.Param("userID"), banned)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, stowhub.Error{
				Code:    stowhub.InvalidValue,
				Message: "No such user",
			})

			return
		}

		c.JSON(http.StatusOK, gin.H{
			"Code": stowhub.SuccessCode,
			"User": user,
		})
	}
}

func pageQuery(c *gin.Context) (int, int) {
	var page, pageSize int

	if v, err := strconv.Atoi(c.Query("Page")); err == nil && v > 0 {
		page = v
	}

	if v, err := strconv.Atoi(c.Query("PageSize")); err == nil && v > 0 {
		pageSize = v
	}

	return page, pageSize
}
