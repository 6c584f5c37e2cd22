package handler

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/partycards/internal/model"
)

const presenceTimeout = 2 * time.Second

// IdleKicker arms and cancels the deferred kick of a player whose last
// socket in a game went away.
type IdleKicker interface {
	ScheduleIdleKick(gameID, guid string)
	CancelIdleKick(gameID, guid string)
}

// PresencePublisher shares reconnects with the other server processes,
// which may hold the idle kick armed when the player's old socket closed.
type PresencePublisher interface {
	PublishPresence(ctx context.Context, payload *model.PresencePayload) error
}

// ClientMessage is the announcement a client sends after connecting.
type ClientMessage struct {
	User struct {
		PlayerGUID string `json:"playerGuid"`
	} `json:"user"`
	GameID string `json:"gameId"`
}

// WSConn wraps a WebSocket connection with its player and socket id.
type WSConn struct {
	id         string
	conn       *websocket.Conn
	playerGUID string
	send       chan []byte
}

type connSet map[*WSConn]bool

// Hub tracks this process's sockets: by player, by announced game and the
// games each socket announced. It only ever delivers to local sockets.
type Hub struct {
	mu          sync.RWMutex
	connections connSet
	players     map[string]connSet          // playerGUID -> sockets
	games       map[string]connSet          // gameID -> announced sockets
	announced   map[*WSConn]map[string]bool // socket -> gameIDs
	kicker      IdleKicker
	presence    PresencePublisher
}

// NewHub creates a new Hub. kicker may be nil.
func NewHub(kicker IdleKicker) *Hub {
	return &Hub{
		connections: make(connSet),
		players:     make(map[string]connSet),
		games:       make(map[string]connSet),
		announced:   make(map[*WSConn]map[string]bool),
		kicker:      kicker,
	}
}

// SetPresence enables cross-process idle kick cancellation.
func (h *Hub) SetPresence(p PresencePublisher) {
	h.presence = p
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.connections[c] = true
	addConn(h.players, c.playerGUID, c)
}

// Announce associates a connection with a game and cancels any pending
// idle kick for its player there, here and, through presence, in every
// other process.
func (h *Hub) Announce(c *WSConn, gameID string) {
	h.mu.Lock()
	if !h.connections[c] {
		h.mu.Unlock()
		return
	}
	addConn(h.games, gameID, c)
	if h.announced[c] == nil {
		h.announced[c] = make(map[string]bool)
	}
	h.announced[c][gameID] = true
	h.mu.Unlock()

	if h.kicker != nil {
		h.kicker.CancelIdleKick(gameID, c.playerGUID)
	}
	if h.presence == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), presenceTimeout)
	defer cancel()
	payload := &model.PresencePayload{GameID: gameID, PlayerGUID: c.playerGUID}
	if err := h.presence.PublishPresence(ctx, payload); err != nil {
		log.Warn().Err(err).Str("gameId", gameID).Str("player", c.playerGUID).Msg("Failed to publish presence")
	}
}

// Unregister removes a connection from the hub. For every game the
// socket announced, an idle kick is armed unless the player still has
// another socket in that game.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	if !h.connections[c] {
		h.mu.Unlock()
		return
	}
	delete(h.connections, c)
	removeConn(h.players, c.playerGUID, c)

	var orphaned []string
	for gameID := range h.announced[c] {
		removeConn(h.games, gameID, c)
		if !h.playerInGameLocked(c.playerGUID, gameID) {
			orphaned = append(orphaned, gameID)
		}
	}
	delete(h.announced, c)
	close(c.send)
	h.mu.Unlock()

	if h.kicker == nil {
		return
	}
	for _, gameID := range orphaned {
		log.Debug().Str("gameId", gameID).Str("player", c.playerGUID).Msg("Last socket left game, arming idle kick")
		h.kicker.ScheduleIdleKick(gameID, c.playerGUID)
	}
}

func (h *Hub) playerInGameLocked(guid, gameID string) bool {
	for other := range h.games[gameID] {
		if other.playerGUID == guid {
			return true
		}
	}
	return false
}

// deliverGame sends data to every socket announced in the game and to
// every socket of the game's members, each socket once.
func (h *Hub) deliverGame(gameID string, members []string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	targets := make(connSet, len(h.games[gameID]))
	for c := range h.games[gameID] {
		targets[c] = true
	}
	for _, guid := range members {
		for c := range h.players[guid] {
			targets[c] = true
		}
	}
	for c := range targets {
		h.enqueue(c, gameID, data)
	}
}

// deliverChat sends data to the sockets announced in the game.
func (h *Hub) deliverChat(gameID string, data []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.games[gameID] {
		h.enqueue(c, gameID, data)
	}
}

func (h *Hub) enqueue(c *WSConn, gameID string, data []byte) {
	select {
	case c.send <- data:
	default:
		log.Warn().Str("socketId", c.id).Str("player", c.playerGUID).Str("gameId", gameID).Msg("Dropping WebSocket message, buffer full")
	}
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.connections)
}

// GameSubscriberCount returns the number of sockets announced in a game.
func (h *Hub) GameSubscriberCount(gameID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.games[gameID])
}

func addConn(m map[string]connSet, key string, c *WSConn) {
	if m[key] == nil {
		m[key] = make(connSet)
	}
	m[key][c] = true
}

func removeConn(m map[string]connSet, key string, c *WSConn) {
	if conns, ok := m[key]; ok {
		delete(conns, c)
		if len(conns) == 0 {
			delete(m, key)
		}
	}
}
