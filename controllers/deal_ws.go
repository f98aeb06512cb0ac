package controller

import (
	"log"
	"sync"

	"nexcrm/models"

	"github.com/gofiber/websocket/v2"
)

// BoardUpdate is pushed to kanban clients when a deal changes stage.
type BoardUpdate struct {
	TenantID uint   `json:"-"`
	DealID   uint   `json:"deal_id"`
	Stage    string `json:"stage"`
}

// BoardHub fans stage moves out to connected kanban boards. Connections are
// bucketed by tenant so updates never cross tenant lines.
type BoardHub struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]uint
}

func NewBoardHub() *BoardHub {
	return &BoardHub{conns: make(map[*websocket.Conn]uint)}
}

func (h *BoardHub) register(conn *websocket.Conn, tenantID uint) {
	h.mu.Lock()
	h.conns[conn] = tenantID
	h.mu.Unlock()
}

func (h *BoardHub) unregister(conn *websocket.Conn) {
	h.mu.Lock()
	delete(h.conns, conn)
	h.mu.Unlock()
}

// Broadcast sends the update to every connection in the same tenant. Dead
// connections are dropped on write failure.
func (h *BoardHub) Broadcast(update BoardUpdate) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn, tenantID := range h.conns {
		if tenantID != update.TenantID {
			continue
		}
		if err := conn.WriteJSON(update); err != nil {
			log.Printf("Error writing JSON: %v", err)
			conn.Close()
			delete(h.conns, conn)
		}
	}
}

// HandleBoardWS keeps a kanban client subscribed until it disconnects. The
// auth middleware runs before the upgrade, so the user is already bound.
func HandleBoardWS(hub *BoardHub) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		user, ok := c.Locals("user").(*models.User)
		if !ok {
			return
		}

		hub.register(c, user.TenantID)
		defer hub.unregister(c)

		// Drain incoming frames; the board is push-only.
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}
}
