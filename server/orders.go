package server

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	stowhub "github.com/stowhub/go-stowhub-api"
)

func (s *Server) handleGetOrders() gin.HandlerFunc {
	return func(c *gin.Context) {
		filter := stowhub.OrderFilter{
			KeeperID: c.Query("KeeperID"),
			RenterID: c.Query("RenterID"),
		}

		if v, err := strconv.Atoi(c.Query("Status")); err == nil {
			status := stowhub.OrderStatus(v)
			filter.Status = &status
		}

		filter.Page, filter.PageSize = pageQuery(c)

		orders := s.b.GetOrders(filter)

		c.JSON(http.StatusOK, gin.H{
			"Code":   stowhub.SuccessCode,
			"Orders": orders,
			"Total":  len(orders),
		})
	}
}

func (s *Server) handleGetOrder() gin.HandlerFunc {
	return func(c *gin.Context) {
		order, err := s.b.GetOrder(c.Param("orderID"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnprocessableEntity, stowhub.Error{
				Code:    stowhub.InvalidValue,
				Message: "No such order",
			})

			return
		}

		c.JSON(http.StatusOK, gin.H{
			"Code":  stowhub.SuccessCode,
			"Order": order,
		})
	}
}
