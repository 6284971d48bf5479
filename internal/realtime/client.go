package realtime

import (
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/context-subtitles/relay/config"
	"github.com/context-subtitles/relay/internal/metrics"
)

// Roles on the caption channel.
const (
	RolePresenter = "presenter"
	RoleAudience  = "audience"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // local classroom tool; viewers join by QR from any origin
	},
}

// Client represents a single WebSocket connection, presenter or audience.
type Client struct {
	ID       string
	Role     string
	JoinedAt time.Time

	hub          *Hub
	conn         *websocket.Conn
	send         chan []byte
	logger       *zap.Logger
	pingInterval time.Duration
	pongWait     time.Duration

	closeOnce sync.Once
}

// ServeWs handles the WebSocket upgrade and runs the client loop. The role
// query parameter selects presenter; anything else joins as audience.
func ServeWs(hub *Hub, logger *zap.Logger, cfg config.RealtimeConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := RoleAudience
		if c.Query("role") == RolePresenter {
			role = RolePresenter
		}

		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			logger.Warn("websocket upgrade failed", zap.Error(err))
			return
		}

		client := &Client{
			ID:           uuid.New().String(),
			Role:         role,
			JoinedAt:     time.Now(),
			hub:          hub,
			conn:         conn,
			send:         make(chan []byte, 256),
			logger:       logger,
			pingInterval: cfg.PingInterval,
			pongWait:     cfg.PongWait,
		}

		if role == RolePresenter {
			hub.RegisterPresenter(client)
		} else if !hub.RegisterAudience(client) {
			return
		}
		go client.writePump()
		client.readPump()
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(65536)
	_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			break
		}
		_ = c.conn.SetReadDeadline(time.Now().Add(c.pongWait))

		var msg Envelope
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.logger.Debug("invalid message", zap.String("client_id", c.ID), zap.Error(err))
			continue
		}

		switch msg.Type {
		case TypeCaption:
			// Only the presenter produces captions.
			if c.Role != RolePresenter {
				continue
			}
			c.hub.BroadcastCaption(raw)
			if len(msg.Words) > 0 {
				metrics.WordsRelayed.Add(float64(len(msg.Words)))
				if fn := c.hub.captionHandler(); fn != nil {
					fn(msg.Words)
				}
			}
		case TypeTap:
			lemma := msg.Lemma
			if lemma == "" {
				lemma = msg.Word
			}
			lemma = strings.ToLower(strings.TrimSpace(lemma))
			if lemma == "" {
				continue
			}
			if fn := c.hub.tapHandler(); fn != nil {
				fn(lemma)
			}
		default:
			// ignore
		}
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.pingInterval)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			_ = c.conn.SetWriteDeadline(time.Now().Add(heartbeatDeadline))
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(heartbeatDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// closeWith sends a close frame with the given code and reason, then closes
// the connection. Idempotent.
func (c *Client) closeWith(code int, reason string) {
	c.closeOnce.Do(func() {
		deadline := time.Now().Add(heartbeatDeadline)
		_ = c.conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(code, reason), deadline)
		_ = c.conn.Close()
	})
}
