package http

import (
	"context"
	"log/slog"
	"time"

	"github.com/egannguyen/pharma-storefront/internal/entity"
	"github.com/egannguyen/pharma-storefront/internal/messaging"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

// handleOrderEvents upgrades to a websocket and streams order events.
// Administrators receive every event, everyone else only their own orders.
func (h *Handler) handleOrderEvents(c *gin.Context) {
	actor := identity(c)
	if !actor.Authenticated() {
		respondError(c, entity.ErrUnauthenticated)
		return
	}
	if h.deps.Events == nil {
		respondError(c, entity.ErrNotFound)
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	streams := make([]<-chan entity.EventEnvelope, 0, len(messaging.Topics))
	for _, topic := range messaging.Topics {
		ch, err := h.deps.Events.Subscribe(ctx, topic)
		if err != nil {
			respondError(c, err)
			return
		}
		streams = append(streams, ch)
	}
	events := merge(ctx, streams...)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		slog.Warn("Websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()
	slog.Info("Order feed connected", "user_id", actor.UserID)

	go readUntilClosed(conn, cancel)

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("Order feed disconnected", "user_id", actor.UserID)
			return
		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case env, ok := <-events:
			if !ok {
				return
			}
			if !visibleTo(actor, env) {
				continue
			}
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(env); err != nil {
				slog.Warn("Order feed write failed", "user_id", actor.UserID, "err", err)
				return
			}
		}
	}
}

func visibleTo(actor entity.Identity, env entity.EventEnvelope) bool {
	return actor.Role.IsAdmin() || env.UserID == actor.UserID
}

// readUntilClosed drains client frames so pongs and close frames are
// processed, and cancels the feed once the peer goes away.
func readUntilClosed(conn *websocket.Conn, cancel context.CancelFunc) {
	defer cancel()
	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func merge(ctx context.Context, streams ...<-chan entity.EventEnvelope) <-chan entity.EventEnvelope {
	out := make(chan entity.EventEnvelope)
	for _, s := range streams {
		go func(s <-chan entity.EventEnvelope) {
			for env := range s {
				select {
				case out <- env:
				case <-ctx.Done():
					return
				}
			}
		}(s)
	}
	return out
}
