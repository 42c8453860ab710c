package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,

	CheckOrigin: func(*http.Request) bool {
		return true
	},
}

// handleNotificationsWS upgrades the request to a websocket and hands the
// connection to the hub. The session controls its group membership with
// join/leave invocations.
func (s *Server) handleNotificationsWS() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			// Upgrade has already replied with an error.
			return
		}

		hc := s.hub.add(conn)

		go hc.writePump()

		s.hub.readPump(hc)
	}
}
