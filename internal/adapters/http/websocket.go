package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/juju/clock"

	natsadapter "github.com/samirrijal/mapsurvey/internal/adapters/nats"
	"github.com/samirrijal/mapsurvey/internal/core/domain"
	"github.com/samirrijal/mapsurvey/internal/core/projector"
	"github.com/samirrijal/mapsurvey/internal/core/usecases"
	"github.com/samirrijal/mapsurvey/internal/pkg/metrics"
	"github.com/samirrijal/mapsurvey/internal/pkg/throttle"
)

const pingInterval = 30 * time.Second

// Server to client message types.
const (
	msgSetView      = "setView"
	msgClearMarkers = "clearMarkers"
	msgAddMarker    = "addMarker"
	msgFitBounds    = "fitBounds"
	msgCrosshair    = "crosshair"
	msgStatus       = "status"
	msgArchived     = "archived"
	msgEvent        = "event"
	msgError        = "error"
)

// clientMessage is what the browser sends.
//
//	{"action":"center","lat":47.07,"lng":15.44}
//	{"action":"geolocation","ok":true,"lat":47.07,"lng":15.44}
//	{"action":"geolocation","ok":false,"error":"permission denied"}
//	{"action":"render"}
type clientMessage struct {
	Action string   `json:"action"`
	Lat    *float64 `json:"lat"`
	Lng    *float64 `json:"lng"`
	OK     bool     `json:"ok"`
	Error  string   `json:"error"`
}

func (m clientMessage) point() (domain.GeoPoint, bool) {
	if m.Lat == nil || m.Lng == nil {
		return domain.GeoPoint{}, false
	}
	p := domain.GeoPoint{Lat: *m.Lat, Lng: *m.Lng}
	return p, p.Finite()
}

// serverMessage is every instruction sent to the browser.
type serverMessage struct {
	Type      string             `json:"type"`
	Center    *domain.GeoPoint   `json:"center,omitempty"`
	Zoom      int                `json:"zoom,omitempty"`
	Bounds    *domain.Bounds     `json:"bounds,omitempty"`
	Padding   int                `json:"padding,omitempty"`
	Marker    *domain.Marker     `json:"marker,omitempty"`
	Label     string             `json:"label,omitempty"`
	Status    *domain.StatusView `json:"status,omitempty"`
	ArchiveID string             `json:"archive_id,omitempty"`
	Count     int                `json:"count,omitempty"`
	Event     json.RawMessage    `json:"event,omitempty"`
	Error     string             `json:"error,omitempty"`
}

// Hub owns the connected map clients. It implements ports.EventPublisher so
// the session can push store changes to every open map.
type Hub struct {
	session *usecases.Session
	view    func() domain.StatusView
	center  domain.GeoPoint
	zoom    int
	tick    time.Duration
	clock   clock.Clock

	mu      sync.RWMutex
	clients map[*wsClient]struct{}
}

// HubConfig configures the initial map view and crosshair throttling.
type HubConfig struct {
	Center domain.GeoPoint
	Zoom   int
	Tick   time.Duration
	Clock  clock.Clock
	// View supplies the status payload; defaults to the session in Idle.
	View func() domain.StatusView
}

// NewHub creates a Hub over session.
func NewHub(session *usecases.Session, cfg HubConfig) *Hub {
	if cfg.Clock == nil {
		cfg.Clock = clock.WallClock
	}
	if cfg.View == nil {
		cfg.View = func() domain.StatusView { return session.View(domain.StateIdle) }
	}
	return &Hub{
		session: session,
		view:    cfg.View,
		center:  cfg.Center,
		zoom:    cfg.Zoom,
		tick:    cfg.Tick,
		clock:   cfg.Clock,
		clients: make(map[*wsClient]struct{}),
	}
}

// wsClient serialises writes to one connection.
type wsClient struct {
	mu     sync.Mutex
	write  func(messageType int, data []byte) error
	center *throttle.Coalescer
}

func (c *wsClient) send(msg serverMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(websocket.TextMessage, data)
}

func (c *wsClient) ping() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.write(websocket.PingMessage, nil)
}

// clientCanvas is the browser's map widget seen through the socket.
type clientCanvas struct{ c *wsClient }

func (cv clientCanvas) SetView(_ context.Context, center domain.GeoPoint, zoom int) error {
	return cv.c.send(serverMessage{Type: msgSetView, Center: &center, Zoom: zoom})
}

func (cv clientCanvas) FitBounds(_ context.Context, b domain.Bounds, padding int) error {
	return cv.c.send(serverMessage{Type: msgFitBounds, Bounds: &b, Padding: padding})
}

func (cv clientCanvas) AddMarker(_ context.Context, m domain.Marker) error {
	return cv.c.send(serverMessage{Type: msgAddMarker, Marker: &m})
}

func (cv clientCanvas) ClearMarkers(_ context.Context) error {
	return cv.c.send(serverMessage{Type: msgClearMarkers})
}

// attach registers a connection given its write function.
func (h *Hub) attach(write func(int, []byte) error) *wsClient {
	c := &wsClient{write: write}
	c.center = throttle.New(h.clock, h.tick, func(p domain.GeoPoint) {
		h.session.SetCrosshair(p)
		if err := c.send(serverMessage{Type: msgCrosshair, Center: &p, Label: p.Label()}); err != nil {
			slog.Debug("ws crosshair send failed", "error", err)
		}
	})

	h.mu.Lock()
	h.clients[c] = struct{}{}
	h.mu.Unlock()
	metrics.ActiveWebSockets.Inc()
	return c
}

func (h *Hub) detach(c *wsClient) {
	c.center.Close()
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		metrics.ActiveWebSockets.Dec()
	}
	h.mu.Unlock()
}

// Clients returns the number of connected maps.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) snapshotClients() []*wsClient {
	h.mu.RLock()
	defer h.mu.RUnlock()
	out := make([]*wsClient, 0, len(h.clients))
	for c := range h.clients {
		out = append(out, c)
	}
	return out
}

// greet sends the initial view, the markers and the current status.
func (h *Hub) greet(ctx context.Context, c *wsClient) error {
	if err := (clientCanvas{c}).SetView(ctx, h.center, h.zoom); err != nil {
		return err
	}
	if err := h.render(ctx, c); err != nil {
		return err
	}
	view := h.view()
	return c.send(serverMessage{Type: msgStatus, Status: &view})
}

func (h *Hub) render(ctx context.Context, c *wsClient) error {
	return projector.Render(ctx, clientCanvas{c}, h.session.Snapshot(), h.session.Axes())
}

// RenderAll replays the marker view on every connected map.
func (h *Hub) RenderAll(ctx context.Context) {
	metrics.FeaturesLive.Set(float64(h.session.Store().Len()))
	for _, c := range h.snapshotClients() {
		if err := h.render(ctx, c); err != nil {
			slog.Debug("ws render failed", "error", err)
		}
	}
}

func (h *Hub) broadcast(msg serverMessage) {
	for _, c := range h.snapshotClients() {
		if err := c.send(msg); err != nil {
			slog.Debug("ws broadcast failed", "type", msg.Type, "error", err)
		}
	}
}

func (h *Hub) PublishFeatureAdded(ctx context.Context, _ *domain.Feature) error {
	h.RenderAll(ctx)
	return nil
}

func (h *Hub) PublishFeatureRemoved(ctx context.Context, _ string) error {
	h.RenderAll(ctx)
	return nil
}

func (h *Hub) PublishCleared(ctx context.Context) error {
	h.RenderAll(ctx)
	return nil
}

func (h *Hub) PublishStatus(_ context.Context, view domain.StatusView) error {
	h.broadcast(serverMessage{Type: msgStatus, Status: &view})
	return nil
}

func (h *Hub) PublishArchived(ctx context.Context, archiveID string, count int) error {
	h.broadcast(serverMessage{Type: msgArchived, ArchiveID: archiveID, Count: count})
	return nil
}

// Relay forwards an event received from the broker to every map unchanged.
func (h *Hub) Relay(_ context.Context, _ natsadapter.Event, raw []byte) error {
	h.broadcast(serverMessage{Type: msgEvent, Event: json.RawMessage(raw)})
	return nil
}

// handle executes one client message.
func (h *Hub) handle(ctx context.Context, c *wsClient, data []byte) error {
	var m clientMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return c.send(serverMessage{Type: msgError, Error: "invalid JSON"})
	}

	switch m.Action {
	case "center":
		p, ok := m.point()
		if !ok {
			return c.send(serverMessage{Type: msgError, Error: "center needs finite lat and lng"})
		}
		c.center.Push(p)
		return nil

	case "geolocation":
		p, hasPoint := m.point()
		if m.OK && !hasPoint {
			m.OK, m.Error = false, "no position reported"
		}
		if err := h.session.ReportGeolocation(m.OK, m.Error); err != nil {
			return c.send(serverMessage{Type: msgError, Error: err.Error()})
		}
		h.session.SetCrosshair(p)
		if err := (clientCanvas{c}).SetView(ctx, p, projector.LocateZoom); err != nil {
			return err
		}
		return c.send(serverMessage{Type: msgCrosshair, Center: &p, Label: p.Label()})

	case "render":
		return h.render(ctx, c)

	default:
		return c.send(serverMessage{Type: msgError, Error: "unknown action: " + m.Action})
	}
}

// Handler upgrades to a map session: the client receives render instructions
// and status updates, and reports its map centre and geolocation.
func (h *Hub) Handler() func(*websocket.Conn) {
	return func(conn *websocket.Conn) {
		defer conn.Close()

		remote := conn.RemoteAddr().String()
		ctx := context.Background()
		c := h.attach(conn.WriteMessage)
		defer h.detach(c)
		slog.Info("ws client connected", "remote", remote)

		if err := h.greet(ctx, c); err != nil {
			slog.Warn("ws greet failed", "remote", remote, "error", err)
			return
		}

		done := make(chan struct{})
		defer close(done)
		go func() {
			ticker := time.NewTicker(pingInterval)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					if err := c.ping(); err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			if err := h.handle(ctx, c, msg); err != nil {
				slog.Debug("ws write failed", "remote", remote, "error", err)
				break
			}
		}
		slog.Info("ws client disconnected", "remote", remote)
	}
}
