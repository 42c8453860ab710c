package server

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	stowhub "github.com/stowhub/go-stowhub-api"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 8) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 2048
)

// hub fans notification frames out to the connected staff sessions, tracking
// which broadcast groups each connection has joined.
type hub struct {
	conns  map[*hubConn]struct{}
	groups map[string]map[*hubConn]struct{}

	// joins counts join invocations per group, for tests.
	joins map[string]int

	lock sync.Mutex
}

// hubConn is a middleman between a websocket connection and the hub.
type hubConn struct {
	conn *websocket.Conn

	// send is the buffered channel of outbound frames.
	send chan []byte
}

func newHub() *hub {
	return &hub{
		conns:  make(map[*hubConn]struct{}),
		groups: make(map[string]map[*hubConn]struct{}),
		joins:  make(map[string]int),
	}
}

func (h *hub) add(conn *websocket.Conn) *hubConn {
	c := &hubConn{
		conn: conn,
		send: make(chan []byte, 16),
	}

	h.lock.Lock()
	defer h.lock.Unlock()

	h.conns[c] = struct{}{}

	return c
}

func (h *hub) remove(c *hubConn) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if _, ok := h.conns[c]; !ok {
		return
	}

	delete(h.conns, c)

	for _, members := range h.groups {
		delete(members, c)
	}

	close(c.send)
}

func (h *hub) join(c *hubConn, group string) {
	h.lock.Lock()
	defer h.lock.Unlock()

	if h.groups[group] == nil {
		h.groups[group] = make(map[*hubConn]struct{})
	}

	h.groups[group][c] = struct{}{}
	h.joins[group]++
}

func (h *hub) leave(c *hubConn, group string) {
	h.lock.Lock()
	defer h.lock.Unlock()

	delete(h.groups[group], c)
}

// broadcast queues the frame on every member of the group. Members whose
// send buffer is full are dropped rather than blocking the rest.
func (h *hub) broadcast(group string, data []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()

	for c := range h.groups[group] {
		select {
		case c.send <- data:

		default:
			delete(h.conns, c)
			delete(h.groups[group], c)
			close(c.send)
		}
	}
}

// dropAll force-closes every connection, as if the network went away.
func (h *hub) dropAll() {
	h.lock.Lock()
	defer h.lock.Unlock()

	for c := range h.conns {
		delete(h.conns, c)

		for _, members := range h.groups {
			delete(members, c)
		}

		close(c.send)

		c.conn.Close()
	}
}

func (h *hub) groupSize(group string) int {
	h.lock.Lock()
	defer h.lock.Unlock()

	return len(h.groups[group])
}

func (h *hub) joinCount(group string) int {
	h.lock.Lock()
	defer h.lock.Unlock()

	return h.joins[group]
}

// readPump relays join/leave invocations from the connection to the hub.
func (h *hub) readPump(c *hubConn) {
	defer func() {
		h.remove(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	c.conn.SetPingHandler(func(data string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return c.conn.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(writeWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var invocation stowhub.FeedInvocation

		if err := json.Unmarshal(data, &invocation); err != nil {
			continue
		}

		switch invocation.Action {
		case stowhub.FeedActionJoin:
			h.join(c, invocation.Group)

		case stowhub.FeedActionLeave:
			h.leave(c, invocation.Group)
		}
	}
}

// writePump relays frames from the hub to the connection.
func (c *hubConn) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			if !ok {
				c.conn.WriteControl(websocket.CloseMessage, nil, time.Now().Add(writeWait))
				return
			}

			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))

			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
