package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Hub holds one set of WebSocket clients per contest and relays Redis
// Pub/Sub leaderboard snapshots to them. It never originates a snapshot
// itself; the typing store publishes through RedisPublisher, and this Hub
// is the other end of the same channel.
type Hub struct {
	redis  *redis.Client
	logger *zap.Logger

	mu      sync.RWMutex
	clients map[string]map[*Client]bool

	register   chan *Client
	unregister chan *Client
}

func NewHub(redisClient *redis.Client, logger *zap.Logger) *Hub {
	return &Hub{
		redis:      redisClient,
		logger:     logger,
		clients:    make(map[string]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
	}
}

// Run drives client (un)registration. It must be started once, in its own
// goroutine, before Subscribe.
func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case c := <-h.register:
			h.mu.Lock()
			if h.clients[c.contestID] == nil {
				h.clients[c.contestID] = make(map[*Client]bool)
			}
			h.clients[c.contestID][c] = true
			h.mu.Unlock()
		case c := <-h.unregister:
			h.mu.Lock()
			if set, ok := h.clients[c.contestID]; ok {
				if _, ok := set[c]; ok {
					delete(set, c)
					close(c.send)
					if len(set) == 0 {
						delete(h.clients, c.contestID)
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// Subscribe blocks, consuming every contest:*:leaderboard channel and
// fanning each message out to that contest's registered clients. Run it
// in its own goroutine alongside Run.
func (h *Hub) Subscribe(ctx context.Context) {
	pubsub := h.redis.PSubscribe(ctx, "contest:*:leaderboard")
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			h.broadcast(msg.Channel, msg.Payload)
		}
	}
}

func (h *Hub) broadcast(channel, payload string) {
	var contestID string
	if _, err := fmt.Sscanf(channel, "contest:%s", &contestID); err != nil {
		h.logger.Warn("unparseable leaderboard channel", zap.String("channel", channel))
		return
	}
	contestID = contestID[:len(contestID)-len(":leaderboard")]

	var snapshot interface{}
	if err := json.Unmarshal([]byte(payload), &snapshot); err != nil {
		h.logger.Warn("unparseable leaderboard payload", zap.Error(err))
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients[contestID] {
		c.sendSnapshot(snapshot)
	}
}

// Register upgrades conn into a Client subscribed to contestID's
// leaderboard and starts its pumps.
func (h *Hub) Register(conn *websocket.Conn, contestID string) {
	c := newClient(h, conn, contestID, h.logger)
	h.register <- c
	go c.WritePump()
	go c.ReadPump()
}
