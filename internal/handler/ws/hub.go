package ws

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"BubbleScope/internal/domain/models"
	xlogger "BubbleScope/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 4096
)

// Message is the frame pushed to subscribers.
type Message struct {
	Type string            `json:"type"`
	Data *models.FitReport `json:"data"`
}

type client struct {
	conn   *websocket.Conn
	send   chan []byte
	symbol string // empty receives every symbol
}

// Hub broadcasts fit reports to websocket subscribers. It satisfies
// repository.ResultPublisher so the fit usecase can fan reports out to it.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	closed   bool
	upgrader websocket.Upgrader
	log      *xlogger.Logger
	buffer   int
	ping     time.Duration
}

type Option func(*Hub)

func WithBuffer(n int) Option {
	return func(h *Hub) {
		if n > 0 {
			h.buffer = n
		}
	}
}

func WithPingInterval(d time.Duration) Option {
	return func(h *Hub) {
		if d > 0 {
			h.ping = d
		}
	}
}

// WithAllowedOrigins restricts the upgrade to the given origins. No origins
// accepts all.
func WithAllowedOrigins(origins ...string) Option {
	return func(h *Hub) {
		if len(origins) == 0 {
			return
		}
		allowed := make(map[string]struct{}, len(origins))
		for _, o := range origins {
			allowed[strings.TrimRight(o, "/")] = struct{}{}
		}
		h.upgrader.CheckOrigin = func(r *http.Request) bool {
			_, ok := allowed[r.Header.Get("Origin")]
			return ok
		}
	}
}

func NewHub(l *xlogger.Logger, opts ...Option) *Hub {
	if l == nil {
		l = xlogger.Nop()
	}
	h := &Hub{
		clients: make(map[*client]struct{}),
		log:     l,
		buffer:  16,
		ping:    30 * time.Second,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *Hub) RegisterRoutes(e *echo.Echo) {
	e.GET("/ws/results", h.Serve)
}

// Serve upgrades the request and blocks until the subscriber goes away.
// ?symbol= limits the stream to one symbol.
func (h *Hub) Serve(c echo.Context) error {
	conn, err := h.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", xlogger.Error(err))
		return nil
	}
	cl := &client{
		conn:   conn,
		send:   make(chan []byte, h.buffer),
		symbol: strings.ToUpper(c.QueryParam("symbol")),
	}
	if !h.add(cl) {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(writeWait))
		return conn.Close()
	}
	h.log.Debug("ws subscriber joined", xlogger.String("remote", c.RealIP()), xlogger.String("symbol", cl.symbol))

	go h.writePump(cl)
	h.readPump(cl)
	return nil
}

// Publish queues rep for every matching subscriber. Subscribers whose
// buffer is full are disconnected.
func (h *Hub) Publish(_ context.Context, rep *models.FitReport) error {
	if rep == nil {
		return nil
	}
	b, err := json.Marshal(Message{Type: "fit_report", Data: rep})
	if err != nil {
		return err
	}
	symbol := strings.ToUpper(rep.Symbol)

	var slow []*client
	h.mu.RLock()
	for cl := range h.clients {
		if cl.symbol != "" && cl.symbol != symbol {
			continue
		}
		select {
		case cl.send <- b:
		default:
			slow = append(slow, cl)
		}
	}
	h.mu.RUnlock()

	for _, cl := range slow {
		h.log.Warn("ws subscriber too slow, dropping", xlogger.String("symbol", cl.symbol))
		h.remove(cl)
	}
	return nil
}

// Len returns the number of connected subscribers.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() error {
	h.mu.Lock()
	h.closed = true
	clients := make([]*client, 0, len(h.clients))
	for cl := range h.clients {
		clients = append(clients, cl)
	}
	h.mu.Unlock()

	for _, cl := range clients {
		h.remove(cl)
	}
	return nil
}

func (h *Hub) add(cl *client) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return false
	}
	h.clients[cl] = struct{}{}
	return true
}

// remove closes cl's send channel once. The write pump then says goodbye
// and closes the connection.
func (h *Hub) remove(cl *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; !ok {
		return
	}
	delete(h.clients, cl)
	close(cl.send)
}

func (h *Hub) readPump(cl *client) {
	defer h.remove(cl)

	cl.conn.SetReadLimit(maxMessageSize)
	_ = cl.conn.SetReadDeadline(time.Now().Add(2 * h.ping))
	cl.conn.SetPongHandler(func(string) error {
		return cl.conn.SetReadDeadline(time.Now().Add(2 * h.ping))
	})
	for {
		// Subscribers have nothing to say; reading only drives control frames.
		if _, _, err := cl.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				h.log.Debug("ws read error", xlogger.Error(err))
			}
			return
		}
	}
}

func (h *Hub) writePump(cl *client) {
	ticker := time.NewTicker(h.ping)
	defer func() {
		ticker.Stop()
		_ = cl.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-cl.send:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = cl.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
				return
			}
			if err := cl.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				h.log.Debug("ws write error", xlogger.Error(err))
				h.remove(cl)
				return
			}
		case <-ticker.C:
			_ = cl.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := cl.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				h.remove(cl)
				return
			}
		}
	}
}
