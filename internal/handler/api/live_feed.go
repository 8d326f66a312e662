package api

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"CreditRisk/internal/domain/models"
	"CreditRisk/internal/service/metrics"
	xlogger "CreditRisk/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
)

type LiveFeedConfig struct {
	WriteTimeout time.Duration
	PongTimeout  time.Duration
	PingPeriod   time.Duration
	SendBuffer   int
	CheckOrigin  func(r *http.Request) bool
}

func DefaultLiveFeedConfig() LiveFeedConfig {
	return LiveFeedConfig{
		WriteTimeout: 10 * time.Second,
		PongTimeout:  60 * time.Second,
		PingPeriod:   54 * time.Second, // below PongTimeout
		SendBuffer:   64,
		CheckOrigin:  func(*http.Request) bool { return true },
	}
}

type feedClient struct {
	id   uuid.UUID
	conn *websocket.Conn
	send chan []byte
}

// LiveFeed pushes every recorded prediction to connected websocket clients.
// A client whose buffer is full is disconnected rather than slowing scoring.
type LiveFeed struct {
	mu       sync.RWMutex
	clients  map[uuid.UUID]*feedClient
	upgrader websocket.Upgrader
	cfg      LiveFeedConfig
	l        *xlogger.Logger
}

func NewLiveFeed(l *xlogger.Logger, cfg LiveFeedConfig) *LiveFeed {
	metrics.Register()
	return &LiveFeed{
		clients: make(map[uuid.UUID]*feedClient),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		cfg: cfg,
		l:   l,
	}
}

func (f *LiveFeed) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/predictions", f.Serve)
}

type feedMessage struct {
	Type string                   `json:"type"`
	Data *models.PredictionResult `json:"data"`
}

// Broadcast never blocks.
func (f *LiveFeed) Broadcast(r *models.PredictionResult) {
	b, err := json.Marshal(feedMessage{Type: "prediction", Data: r})
	if err != nil {
		f.l.Warn("live feed marshal error", xlogger.Error(err))
		return
	}

	f.mu.RLock()
	var slow []*feedClient
	for _, c := range f.clients {
		select {
		case c.send <- b:
		default:
			slow = append(slow, c)
		}
	}
	f.mu.RUnlock()

	for _, c := range slow {
		f.l.Debug("live feed client too slow, dropping", xlogger.String("client", c.id.String()))
		f.remove(c)
	}
}

func (f *LiveFeed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

func (f *LiveFeed) Serve(c echo.Context) error {
	conn, err := f.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		f.l.Warn("websocket upgrade failed", xlogger.Error(err))
		return nil
	}
	client := &feedClient{id: uuid.New(), conn: conn, send: make(chan []byte, f.cfg.SendBuffer)}

	f.mu.Lock()
	f.clients[client.id] = client
	f.mu.Unlock()
	metrics.LiveSubscribers.Inc()

	go f.writePump(client)
	f.readPump(client)
	return nil
}

// Close disconnects every client.
func (f *LiveFeed) Close() {
	f.mu.RLock()
	clients := make([]*feedClient, 0, len(f.clients))
	for _, c := range f.clients {
		clients = append(clients, c)
	}
	f.mu.RUnlock()
	for _, c := range clients {
		f.remove(c)
	}
}

func (f *LiveFeed) remove(c *feedClient) {
	f.mu.Lock()
	_, ok := f.clients[c.id]
	if ok {
		delete(f.clients, c.id)
		close(c.send)
	}
	f.mu.Unlock()
	if ok {
		metrics.LiveSubscribers.Dec()
	}
}

// readPump only services control frames; clients do not send data.
func (f *LiveFeed) readPump(c *feedClient) {
	defer func() {
		f.remove(c)
		_ = c.conn.Close()
	}()
	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(f.cfg.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(f.cfg.PongTimeout))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *LiveFeed) writePump(c *feedClient) {
	ticker := time.NewTicker(f.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(f.cfg.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
