package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"
	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/samber/lo"

	"github.com/freeeve/partycards/internal/auth"
)

const (
	writeWait   = 10 * time.Second
	pongWait    = 60 * time.Second
	pingPeriod  = pongWait * 9 / 10
	maxMsgSize  = 4096
	sendBufSize = 256
)

// WSHandler upgrades authenticated sockets and feeds their announcements
// to the hub.
type WSHandler struct {
	hub      *Hub
	jwtMgr   *auth.JWTManager
	upgrader websocket.Upgrader
}

// NewWSHandler creates a WSHandler. allowedOrigins is "*" or a
// comma-separated list, matching the CORS setting.
func NewWSHandler(hub *Hub, jwtMgr *auth.JWTManager, allowedOrigins string) *WSHandler {
	origins := lo.Compact(lo.Map(strings.Split(allowedOrigins, ","), func(o string, _ int) string {
		return strings.TrimSpace(o)
	}))
	return &WSHandler{
		hub:    hub,
		jwtMgr: jwtMgr,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(origins, r.Header.Get("Origin"))
			},
		},
	}
}

// originAllowed accepts non-browser clients (no Origin) and any origin on
// the list.
func originAllowed(origins []string, origin string) bool {
	return origin == "" || lo.Contains(origins, "*") || lo.Contains(origins, origin)
}

func (c *WSConn) logger() *zerolog.Logger {
	l := log.With().Str("socketId", c.id).Str("playerGuid", c.playerGUID).Logger()
	return &l
}

// ServeWS handles GET /api/v1/ws. The socket token comes in ?token=
// because browsers cannot set headers on the upgrade request.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	tokenStr := r.URL.Query().Get("token")
	if tokenStr == "" {
		http.Error(w, `{"error":"missing token parameter"}`, http.StatusUnauthorized)
		return
	}

	claims, err := h.jwtMgr.ValidateToken(tokenStr)
	if err != nil {
		http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
		return
	}

	id, err := gonanoid.New(10)
	if err != nil {
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn().Err(err).Str("origin", r.Header.Get("Origin")).Msg("WebSocket upgrade failed")
		return
	}

	client := &WSConn{
		id:         id,
		conn:       conn,
		playerGUID: claims.PlayerGUID,
		send:       make(chan []byte, sendBufSize),
	}
	h.hub.Register(client)

	go h.writePump(client)
	go h.readPump(client)

	client.logger().Info().Int("total", h.hub.ConnectionCount()).Msg("WebSocket client connected")
}

// readPump reads announcements until the connection closes.
func (h *WSHandler) readPump(c *WSConn) {
	defer func() {
		h.hub.Unregister(c)
		c.conn.Close()
		c.logger().Info().Msg("WebSocket client disconnected")
	}()

	c.conn.SetReadLimit(maxMsgSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger().Warn().Err(err).Msg("WebSocket unexpected close")
			}
			break
		}
		h.handleMessage(c, message)
	}
}

// handleMessage treats every inbound frame as a game announcement. A
// frame naming a different player than the token is dropped.
func (h *WSHandler) handleMessage(c *WSConn, message []byte) {
	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		c.logger().Debug().Err(err).Msg("Ignoring malformed frame")
		return
	}
	if msg.GameID == "" {
		return
	}
	if msg.User.PlayerGUID != c.playerGUID {
		c.logger().Warn().Str("claimed", msg.User.PlayerGUID).Msg("Ignoring announcement for another player")
		return
	}
	h.hub.Announce(c, msg.GameID)
}

// writePump writes queued frames and keeps the connection alive.
func (h *WSHandler) writePump(c *WSConn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			// one frame per envelope; clients parse each message as JSON
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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
