package realtime

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/context-subtitles/relay/internal/metrics"
)

// Close reasons sent to clients on forced disconnect.
const (
	closeReasonSuperseded = "superseded by new presenter"
	closeReasonCapacity   = "server at capacity"
)

// AudienceChangeHandler is called with the current audience count whenever a
// viewer joins or leaves (e.g. for peak tracking).
type AudienceChangeHandler func(count int)

// CaptionHandler receives the words of every caption message accepted from
// the presenter.
type CaptionHandler func(words []CaptionWord)

// TapHandler receives the normalized lemma of every audience tap.
type TapHandler func(lemma string)

// Hub owns the presenter slot and the audience set, and fans caption
// messages out to every live viewer. It is the only writer of both
// structures; clients mutate membership exclusively through Register/
// Unregister.
type Hub struct {
	mu        sync.RWMutex
	presenter *Client
	audience  map[string]*Client
	maxConns  int
	logger    *zap.Logger

	onAudience AudienceChangeHandler
	onCaption  CaptionHandler
	onTap      TapHandler
}

// NewHub creates a hub with a total connection ceiling.
func NewHub(logger *zap.Logger, maxConns int) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{
		audience: make(map[string]*Client),
		maxConns: maxConns,
		logger:   logger,
	}
}

// SetAudienceChangeHandler sets the callback for audience count changes.
func (h *Hub) SetAudienceChangeHandler(fn AudienceChangeHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onAudience = fn
}

// SetCaptionHandler sets the callback invoked for each accepted caption batch.
func (h *Hub) SetCaptionHandler(fn CaptionHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCaption = fn
}

// SetTapHandler sets the callback invoked for each audience tap.
func (h *Hub) SetTapHandler(fn TapHandler) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onTap = fn
}

// RegisterPresenter adopts a new presenter connection. A prior presenter is
// closed with a superseded reason first; there is never more than one.
func (h *Hub) RegisterPresenter(c *Client) {
	h.mu.Lock()
	old := h.presenter
	h.presenter = c
	h.mu.Unlock()

	if old != nil {
		old.closeWith(websocket.CloseGoingAway, closeReasonSuperseded)
		// The old client no longer holds the slot, so its Unregister is a
		// no-op; account for it here.
		metrics.ActiveConnections.Dec()
		h.logger.Info("presenter superseded", zap.String("old_id", old.ID), zap.String("new_id", c.ID))
	}
	metrics.ActiveConnections.Inc()
	metrics.TotalConnections.Inc()
	h.logger.Info("presenter connected", zap.String("client_id", c.ID))
}

// RegisterAudience adds a viewer to the audience set. When the total
// connection count is at the ceiling the connection is refused with an
// overload close code and false is returned; the caller must not start pumps.
func (h *Hub) RegisterAudience(c *Client) bool {
	h.mu.Lock()
	total := len(h.audience)
	if h.presenter != nil {
		total++
	}
	if h.maxConns > 0 && total >= h.maxConns {
		h.mu.Unlock()
		c.closeWith(websocket.CloseTryAgainLater, closeReasonCapacity)
		metrics.ConnectionsRefused.Inc()
		h.logger.Warn("audience connection refused", zap.String("client_id", c.ID), zap.Int("max_connections", h.maxConns))
		return false
	}
	h.audience[c.ID] = c
	count := len(h.audience)
	onAudience := h.onAudience
	h.mu.Unlock()

	metrics.ActiveConnections.Inc()
	metrics.TotalConnections.Inc()
	if onAudience != nil {
		onAudience(count)
	}
	h.logger.Debug("audience joined", zap.String("client_id", c.ID), zap.Int("count", count))
	return true
}

// Unregister removes a client from whichever role set holds it. Safe to call
// more than once for the same client.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	removed := false
	if h.presenter == c {
		h.presenter = nil
		removed = true
	} else if _, ok := h.audience[c.ID]; ok {
		delete(h.audience, c.ID)
		removed = true
	}
	count := len(h.audience)
	onAudience := h.onAudience
	h.mu.Unlock()

	if !removed {
		return
	}
	metrics.ActiveConnections.Dec()
	if c.Role == RoleAudience && onAudience != nil {
		onAudience(count)
	}
	h.logger.Debug("client left", zap.String("client_id", c.ID), zap.String("role", c.Role), zap.Int("audience", count))
}

// BroadcastCaption fans the raw presenter frame out to every viewer. The
// frame is relayed verbatim, in arrival order. Viewers whose send buffer is
// full are treated as failed, collected during the sweep, and unregistered
// after it so one dead socket never blocks delivery to the rest.
func (h *Hub) BroadcastCaption(raw []byte) {
	h.mu.RLock()
	var failed []*Client
	for _, c := range h.audience {
		select {
		case c.send <- raw:
		default:
			failed = append(failed, c)
		}
	}
	h.mu.RUnlock()

	metrics.CaptionsBroadcast.Inc()
	for _, c := range failed {
		h.logger.Warn("dropping unresponsive viewer", zap.String("client_id", c.ID))
		c.closeWith(websocket.CloseGoingAway, "send buffer overflow")
		h.Unregister(c)
	}
}

// AudienceCount returns the number of connected viewers.
func (h *Hub) AudienceCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.audience)
}

// HasPresenter reports whether a presenter is currently connected.
func (h *Hub) HasPresenter() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.presenter != nil
}

// CloseAll force-closes every connection. Used on shutdown.
func (h *Hub) CloseAll(reason string) {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.audience)+1)
	if h.presenter != nil {
		clients = append(clients, h.presenter)
		h.presenter = nil
	}
	for id, c := range h.audience {
		clients = append(clients, c)
		delete(h.audience, id)
	}
	h.mu.Unlock()

	for _, c := range clients {
		c.closeWith(websocket.CloseGoingAway, reason)
	}
}

func (h *Hub) captionHandler() CaptionHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onCaption
}

func (h *Hub) tapHandler() TapHandler {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.onTap
}

// heartbeatDeadline is the grace period for a close handshake write.
const heartbeatDeadline = 10 * time.Second
