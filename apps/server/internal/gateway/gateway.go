package gateway

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"coup-lite/apps/server/internal/auth"
	"coup-lite/apps/server/internal/config"
	"coup-lite/apps/server/internal/lobby"
	"coup-lite/apps/server/internal/table"
	"coup-lite/codec"
	"coup-lite/replay"

	"github.com/gorilla/websocket"
)

const (
	readLimit    = 65536
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	writeWait    = 10 * time.Second
	sendBuffer   = 256
)

var (
	errNotSeated     = errors.New("not seated in a room")
	errAlreadySeated = errors.New("already seated in a room")
	errUnknownType   = errors.New("unknown message type")
)

// Connection represents a WebSocket peer
type Connection struct {
	ID       string
	Conn     *websocket.Conn
	Gateway  *Gateway
	LastPing time.Time

	outbound  chan []byte
	done      chan struct{}
	closeOnce sync.Once

	// Current seat; only touched by the read pump.
	PlayerID string
	Table    *table.Table
}

// Gateway manages WebSocket connections
type Gateway struct {
	mu          sync.RWMutex
	connections map[string]*Connection
	nextConnID  uint64

	lobby    *lobby.Lobby
	sessions auth.Service
	upgrader websocket.Upgrader
}

// New creates a new Gateway instance
func New(lby *lobby.Lobby, sessions auth.Service, cfg config.Server) *Gateway {
	return &Gateway{
		connections: make(map[string]*Connection),
		lobby:       lby,
		sessions:    sessions,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool {
				return cfg.OriginAllowed(r.Header.Get("Origin"))
			},
		},
	}
}

// HandleWebSocket handles WebSocket upgrade and connection
func (g *Gateway) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[Gateway] Upgrade error: %v", err)
		return
	}

	g.mu.Lock()
	g.nextConnID++
	c := &Connection{
		ID:       fmt.Sprintf("conn_%d", g.nextConnID),
		Conn:     conn,
		Gateway:  g,
		LastPing: time.Now(),
		outbound: make(chan []byte, sendBuffer),
		done:     make(chan struct{}),
	}
	g.connections[c.ID] = c
	total := len(g.connections)
	g.mu.Unlock()

	log.Printf("[Gateway] Client connected: %s, total: %d", c.ID, total)

	go c.readPump()
	go c.writePump()
}

// ConnectionCount is the number of open sockets.
func (g *Gateway) ConnectionCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.connections)
}

// Send queues a frame for the peer. A full buffer drops the frame; the peer
// recovers through resyncRequest.
func (c *Connection) Send(data []byte) {
	select {
	case <-c.done:
	case c.outbound <- data:
	default:
		log.Printf("[Gateway] %s send buffer full, dropping frame", c.ID)
	}
}

func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Connection) readPump() {
	defer func() {
		c.close()
		c.Gateway.removeConnection(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(readLimit)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		c.Conn.SetReadDeadline(time.Now().Add(pongWait))
		c.LastPing = time.Now()
		return nil
	})

	for {
		messageType, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("[Gateway] Read error: %v", err)
			}
			break
		}
		if messageType == websocket.TextMessage {
			c.handleMessage(message)
		}
	}
}

func (c *Connection) handleMessage(data []byte) {
	env, err := codec.Decode(data)
	if err != nil {
		c.sendError(err)
		return
	}
	if err := c.dispatch(env); err != nil {
		c.sendError(err)
	}
}

func (c *Connection) dispatch(env codec.Envelope) error {
	switch env.Type {
	case codec.TypePlayerJoin:
		var p codec.PlayerJoinPayload
		if err := env.Into(&p); err != nil {
			return err
		}
		return c.handleJoin(p)
	case codec.TypePlayerLeave:
		return c.handleLeave()
	case codec.TypeStartGame:
		if c.Table == nil {
			return errNotSeated
		}
		return c.Table.Start(c.PlayerID)
	case codec.TypeAddBot:
		if c.Table == nil {
			return errNotSeated
		}
		var p codec.AddBotPayload
		if len(env.Payload) > 0 {
			if err := env.Into(&p); err != nil {
				return err
			}
		}
		return c.Table.AddBot(c.PlayerID, p.Profile)
	case codec.TypeAction, codec.TypeReaction, codec.TypeSelection:
		reqID, in, err := codec.ToInput(env)
		if err != nil {
			return err
		}
		return c.input(reqID, in)
	case codec.TypeResyncRequest:
		if c.Table == nil {
			return errNotSeated
		}
		return c.Table.Resync(c.PlayerID)
	default:
		return fmt.Errorf("%w: %w %q", codec.ErrBadEnvelope, errUnknownType, env.Type)
	}
}

// handleJoin seats the peer. A token resumes its seat, a room code joins that
// room, and neither quick-starts into an open public room.
func (c *Connection) handleJoin(p codec.PlayerJoinPayload) error {
	if c.Table != nil {
		return errAlreadySeated
	}
	room := p.Room
	if room == "" && p.Token != "" && c.Gateway.sessions != nil {
		if seat, ok := c.Gateway.sessions.ResolveSeat(p.Token); ok {
			room = seat.Room
		}
	}
	var (
		t   *table.Table
		err error
	)
	if room == "" {
		t, err = c.Gateway.lobby.QuickStart()
	} else {
		t, err = c.Gateway.lobby.GetTable(room)
	}
	if err != nil {
		return err
	}

	res, err := t.Join(table.JoinRequest{Name: p.Name, Passcode: p.Passcode, Token: p.Token}, c)
	if err != nil {
		return err
	}
	c.Table = t
	c.PlayerID = res.PlayerID
	log.Printf("[Gateway] %s seated as %s in room %s (resumed=%v)", c.ID, res.PlayerID, t.ID, res.Resumed)
	return nil
}

func (c *Connection) handleLeave() error {
	if c.Table == nil {
		return errNotSeated
	}
	err := c.Table.Leave(c.PlayerID)
	c.Table = nil
	c.PlayerID = ""
	return err
}

func (c *Connection) input(reqID string, in replay.Input) error {
	if c.Table == nil {
		return errNotSeated
	}
	return c.Table.Input(c.PlayerID, reqID, in)
}

func (c *Connection) sendError(err error) {
	data, encErr := codec.Encode(codec.TypeError, 0, codec.ErrorFor(err))
	if encErr != nil {
		log.Printf("[Gateway] encode error frame: %v", encErr)
		return
	}
	c.Send(data)
}

func (c *Connection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message := <-c.outbound:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}
	}
}

func (g *Gateway) removeConnection(c *Connection) {
	if c.Table != nil {
		if err := c.Table.ConnLost(c.PlayerID, c); err != nil && !errors.Is(err, table.ErrTableClosed) {
			log.Printf("[Gateway] conn lost for %s: %v", c.PlayerID, err)
		}
	}
	g.mu.Lock()
	delete(g.connections, c.ID)
	total := len(g.connections)
	g.mu.Unlock()
	log.Printf("[Gateway] Client disconnected: %s, total: %d", c.ID, total)
}
