package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"flatmate/internal/domain/entity"
	"flatmate/internal/infrastructure/metrics"
	"flatmate/internal/infrastructure/ratelimit"
	"flatmate/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8 * 1024

	defaultSendBuffer       = 256
	defaultOperationTimeout = 5 * time.Second
)

// ConversationService is the part of the conversation store the channel needs.
type ConversationService interface {
	Authorize(ctx context.Context, matchID, userID string) (*entity.InterestRecord, error)
	MarkRead(ctx context.Context, matchID, userID string) (int64, error)
	AppendMessage(ctx context.Context, matchID, senderID, content string) (*entity.MessageView, error)
}

// Client is one live connection. A user may hold several.
type Client struct {
	UserID string
	Conn   *websocket.Conn
	Send   chan []byte

	// guarded by Manager.mutex
	rooms  map[string]struct{}
	closed bool
}

func NewClient(userID string, conn *websocket.Conn, buffer int) *Client {
	if buffer <= 0 {
		buffer = defaultSendBuffer
	}
	return &Client{
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, buffer),
		rooms:  make(map[string]struct{}),
	}
}

type Options struct {
	OperationTimeout time.Duration
	SendBuffer       int
	Limiter          *ratelimit.RateLimiter
	Metrics          *metrics.MetricsManager
}

// Manager owns every live connection and the room registry. Registry
// changes happen under mutex; message append and broadcast for one room run
// under that room's lock so members see messages in commit order.
type Manager struct {
	conversations ConversationService
	limiter       *ratelimit.RateLimiter
	metrics       *metrics.MetricsManager
	opTimeout     time.Duration
	sendBuffer    int

	mutex   sync.RWMutex
	clients map[*Client]struct{}
	rooms   map[string]map[*Client]struct{}

	locksMu   sync.Mutex
	roomLocks map[string]*roomLock
}

type roomLock struct {
	mu   sync.Mutex
	refs int
}

func NewManager(conversations ConversationService, opts Options) *Manager {
	if opts.OperationTimeout <= 0 {
		opts.OperationTimeout = defaultOperationTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	return &Manager{
		conversations: conversations,
		limiter:       opts.Limiter,
		metrics:       opts.Metrics,
		opTimeout:     opts.OperationTimeout,
		sendBuffer:    opts.SendBuffer,
		clients:       make(map[*Client]struct{}),
		rooms:         make(map[string]map[*Client]struct{}),
		roomLocks:     make(map[string]*roomLock),
	}
}

// Start closes every connection when ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		<-ctx.Done()
		m.mutex.RLock()
		clients := make([]*Client, 0, len(m.clients))
		for c := range m.clients {
			clients = append(clients, c)
		}
		m.mutex.RUnlock()

		for _, c := range clients {
			m.Unregister(c)
		}
		logger.Info("WebSocket: manager stopped, closed %d connections", len(clients))
	}()
}

// Attach registers an authenticated connection and starts its pumps.
func (m *Manager) Attach(userID string, conn *websocket.Conn) *Client {
	client := NewClient(userID, conn, m.sendBuffer)
	m.Register(client)

	go client.WritePump()
	go client.ReadPump(m)
	return client
}

func (m *Manager) Register(client *Client) {
	m.mutex.Lock()
	m.clients[client] = struct{}{}
	count := len(m.clients)
	m.mutex.Unlock()

	if m.metrics != nil {
		m.metrics.WSConnections.Set(float64(count))
	}
	logger.Info("WebSocket: client registered: %s", client.UserID)
}

// Unregister drops client from every room and closes its send channel. It is
// safe to call more than once.
func (m *Manager) Unregister(client *Client) {
	m.mutex.Lock()
	if client.closed {
		m.mutex.Unlock()
		return
	}
	client.closed = true
	for matchID := range client.rooms {
		m.removeFromRoomLocked(client, matchID)
	}
	delete(m.clients, client)
	close(client.Send)
	count, rooms := len(m.clients), len(m.rooms)
	m.mutex.Unlock()

	if m.metrics != nil {
		m.metrics.WSConnections.Set(float64(count))
		m.metrics.WSRooms.Set(float64(rooms))
	}
	logger.Info("WebSocket: client unregistered: %s", client.UserID)
}

// join adds client to the room. It reports false when the client is already gone.
func (m *Manager) join(client *Client, matchID string) bool {
	m.mutex.Lock()
	if client.closed {
		m.mutex.Unlock()
		return false
	}
	members, ok := m.rooms[matchID]
	if !ok {
		members = make(map[*Client]struct{})
		m.rooms[matchID] = members
	}
	members[client] = struct{}{}
	client.rooms[matchID] = struct{}{}
	rooms := len(m.rooms)
	m.mutex.Unlock()

	if m.metrics != nil {
		m.metrics.WSRooms.Set(float64(rooms))
	}
	return true
}

// leave removes client from matchID, or from every room when matchID is empty.
// It returns the rooms left.
func (m *Manager) leave(client *Client, matchID string) []string {
	m.mutex.Lock()
	var left []string
	if matchID == "" {
		for id := range client.rooms {
			m.removeFromRoomLocked(client, id)
			left = append(left, id)
		}
	} else if _, ok := client.rooms[matchID]; ok {
		m.removeFromRoomLocked(client, matchID)
		left = append(left, matchID)
	}
	rooms := len(m.rooms)
	m.mutex.Unlock()

	if m.metrics != nil {
		m.metrics.WSRooms.Set(float64(rooms))
	}
	return left
}

func (m *Manager) removeFromRoomLocked(client *Client, matchID string) {
	delete(client.rooms, matchID)
	if members, ok := m.rooms[matchID]; ok {
		delete(members, client)
		if len(members) == 0 {
			delete(m.rooms, matchID)
		}
	}
}

func (m *Manager) inRoom(client *Client, matchID string) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	_, ok := client.rooms[matchID]
	return ok
}

// RoomMembers returns the user ids of the connections joined to matchID.
func (m *Manager) RoomMembers(matchID string) []string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	members := make([]string, 0, len(m.rooms[matchID]))
	for c := range m.rooms[matchID] {
		members = append(members, c.UserID)
	}
	return members
}

func (m *Manager) ClientCount() int {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return len(m.clients)
}

// lockRoom serialises append and broadcast within one room. Locks of
// different rooms are independent.
func (m *Manager) lockRoom(matchID string) func() {
	m.locksMu.Lock()
	l, ok := m.roomLocks[matchID]
	if !ok {
		l = &roomLock{}
		m.roomLocks[matchID] = l
	}
	l.refs++
	m.locksMu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		m.locksMu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(m.roomLocks, matchID)
		}
		m.locksMu.Unlock()
	}
}

// Deliver persists a message and broadcasts it to the room. Nothing is
// broadcast if persistence fails. Both the websocket and REST send paths use it.
func (m *Manager) Deliver(ctx context.Context, userID, matchID, content string) (*entity.MessageView, error) {
	unlock := m.lockRoom(matchID)
	defer unlock()

	ctx, cancel := context.WithTimeout(ctx, m.opTimeout)
	defer cancel()

	view, err := m.conversations.AppendMessage(ctx, matchID, userID, content)
	if err != nil {
		return nil, err
	}

	m.BroadcastToRoom(matchID, WSMessage{
		Type:    EventMessageCreated,
		Data:    view,
		MatchID: matchID,
	}, nil)
	if m.metrics != nil {
		m.metrics.MessagesDelivered.Inc()
	}
	return view, nil
}

// BroadcastToRoom sends message to every connection joined to matchID except
// the except connection, which may be nil.
func (m *Manager) BroadcastToRoom(matchID string, message WSMessage, except *Client) {
	data, ok := encode(message)
	if !ok {
		return
	}

	m.mutex.RLock()
	recipients := make([]*Client, 0, len(m.rooms[matchID]))
	for c := range m.rooms[matchID] {
		if c != except {
			recipients = append(recipients, c)
		}
	}
	m.mutex.RUnlock()

	for _, c := range recipients {
		m.send(c, data)
	}
}

func (m *Manager) sendToClient(client *Client, message WSMessage) {
	if data, ok := encode(message); ok {
		m.send(client, data)
	}
}

// send never blocks. A client whose buffer is full is dropped.
func (m *Manager) send(client *Client, data []byte) {
	m.mutex.RLock()
	if client.closed {
		m.mutex.RUnlock()
		return
	}
	select {
	case client.Send <- data:
		m.mutex.RUnlock()
		return
	default:
	}
	m.mutex.RUnlock()

	logger.Warn("WebSocket: client %s send channel full, closing connection", client.UserID)
	if m.metrics != nil {
		m.metrics.SlowClientsDropped.Inc()
	}
	m.Unregister(client)
}

func encode(message WSMessage) ([]byte, bool) {
	if message.Timestamp == "" {
		message.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}
	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("WebSocket: failed to marshal %s event: %v", message.Type, err)
		return nil, false
	}
	return data, true
}

// ReadPump reads events until the connection fails, then unregisters the client.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister(c)
		c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error {
		return c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Warn("WebSocket: read error for %s: %v", c.UserID, err)
			}
			return
		}
		m.HandleClientMessage(c, message)
	}
}

// WritePump drains Send to the connection and keeps it alive with pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				logger.Warn("WebSocket: write error for %s: %v", c.UserID, err)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
