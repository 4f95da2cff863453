package websocket

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"flatmate/internal/infrastructure/ratelimit"
	"flatmate/pkg/errors"
	"flatmate/pkg/logger"
)

// Inbound event types
const (
	EventPing        = "ping"
	EventJoinRoom    = "join_room"
	EventLeaveRoom   = "leave_room"
	EventSendMessage = "send_message"
	EventTyping      = "typing"
)

// Outbound event types
const (
	EventPong           = "pong"
	EventRoomJoined     = "room_joined"
	EventRoomLeft       = "room_left"
	EventMessageCreated = "message_created"
	EventUserTyping     = "user_typing"
	EventError          = "error"
)

// WSMessage is the envelope of every event in both directions.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	MatchID   string      `json:"match_id,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Data    json.RawMessage `json:"data"`
	MatchID string          `json:"match_id"`
}

type RoomData struct {
	MatchID string `json:"match_id"`
}

type SendMessageData struct {
	MatchID string `json:"match_id"`
	Content string `json:"content"`
}

type TypingData struct {
	MatchID  string `json:"match_id"`
	UserID   string `json:"user_id,omitempty"`
	IsTyping bool   `json:"is_typing"`
}

type ErrorData struct {
	Message string `json:"message"`
	Event   string `json:"event,omitempty"`
}

// HandleClientMessage dispatches one inbound event. Failures are reported to
// the client as an error event; the connection stays open.
func (m *Manager) HandleClientMessage(client *Client, raw []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		logger.Debug("WebSocket: failed to unmarshal message from %s: %v", client.UserID, err)
		m.sendErrorToClient(client, "", "Invalid message format")
		m.countEvent("invalid", "error")
		return
	}

	var err error
	switch msg.Type {
	case EventPing:
		m.sendToClient(client, WSMessage{Type: EventPong, Data: map[string]string{"status": "alive"}})
	case EventJoinRoom:
		err = m.handleJoinRoom(client, msg)
	case EventLeaveRoom:
		err = m.handleLeaveRoom(client, msg)
	case EventSendMessage:
		err = m.handleSendMessage(client, msg)
	case EventTyping:
		err = m.handleTyping(client, msg)
	default:
		err = errors.InvalidArgument(fmt.Sprintf("Unknown message type %q", msg.Type))
	}

	if err != nil {
		m.sendErrorToClient(client, msg.Type, errors.Message(err, "Operation failed"))
		if errors.Is(err, errors.CodeInternal) {
			logger.Error("WebSocket: %s from %s failed: %v", msg.Type, client.UserID, err)
		}
		m.countEvent(msg.Type, "error")
		return
	}
	m.countEvent(msg.Type, "ok")
}

// decode reads the event payload into v and falls back to the envelope's
// match_id when the payload omits it.
func decode(msg inboundMessage, v interface{}, matchID *string) error {
	if len(msg.Data) > 0 && string(msg.Data) != "null" {
		if err := json.Unmarshal(msg.Data, v); err != nil {
			return errors.InvalidArgument("Invalid " + msg.Type + " payload")
		}
	}
	*matchID = strings.TrimSpace(*matchID)
	if *matchID == "" {
		*matchID = strings.TrimSpace(msg.MatchID)
	}
	return nil
}

func (m *Manager) handleJoinRoom(client *Client, msg inboundMessage) error {
	var data RoomData
	if err := decode(msg, &data, &data.MatchID); err != nil {
		return err
	}
	if data.MatchID == "" {
		return errors.InvalidArgument("match_id is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), m.opTimeout)
	defer cancel()

	if _, err := m.conversations.Authorize(ctx, data.MatchID, client.UserID); err != nil {
		return err
	}
	if !m.join(client, data.MatchID) {
		return nil
	}

	if _, err := m.conversations.MarkRead(ctx, data.MatchID, client.UserID); err != nil {
		logger.Warn("WebSocket: mark read on join failed for %s in %s: %v", client.UserID, data.MatchID, err)
	}

	logger.Debug("WebSocket: %s joined room %s", client.UserID, data.MatchID)
	m.sendToClient(client, WSMessage{Type: EventRoomJoined, Data: data, MatchID: data.MatchID})
	return nil
}

func (m *Manager) handleLeaveRoom(client *Client, msg inboundMessage) error {
	var data RoomData
	if err := decode(msg, &data, &data.MatchID); err != nil {
		return err
	}

	for _, matchID := range m.leave(client, data.MatchID) {
		m.sendToClient(client, WSMessage{Type: EventRoomLeft, Data: RoomData{MatchID: matchID}, MatchID: matchID})
	}
	return nil
}

func (m *Manager) handleSendMessage(client *Client, msg inboundMessage) error {
	var data SendMessageData
	if err := decode(msg, &data, &data.MatchID); err != nil {
		return err
	}
	if data.MatchID == "" {
		return errors.InvalidArgument("match_id is required")
	}
	if err := m.allow(client, ratelimit.ActionSendMessage); err != nil {
		return err
	}

	_, err := m.Deliver(context.Background(), client.UserID, data.MatchID, data.Content)
	return err
}

func (m *Manager) handleTyping(client *Client, msg inboundMessage) error {
	var data TypingData
	if err := decode(msg, &data, &data.MatchID); err != nil {
		return err
	}
	if data.MatchID == "" {
		return errors.InvalidArgument("match_id is required")
	}
	if !m.inRoom(client, data.MatchID) {
		return errors.Forbidden("Join the room before sending typing events", nil)
	}
	if err := m.allow(client, ratelimit.ActionTyping); err != nil {
		return err
	}

	data.UserID = client.UserID
	m.BroadcastToRoom(data.MatchID, WSMessage{Type: EventUserTyping, Data: data, MatchID: data.MatchID}, client)
	return nil
}

func (m *Manager) allow(client *Client, action string) error {
	if m.limiter == nil {
		return nil
	}
	if ok, wait := m.limiter.Allow(client.UserID, action); !ok {
		return errors.TooManyRequests(fmt.Sprintf("Rate limit exceeded, retry in %s", wait.Round(100*time.Millisecond)))
	}
	return nil
}

func (m *Manager) sendErrorToClient(client *Client, event, message string) {
	m.sendToClient(client, WSMessage{
		Type: EventError,
		Data: ErrorData{Message: message, Event: event},
	})
}

func (m *Manager) countEvent(eventType, outcome string) {
	if m.metrics == nil {
		return
	}
	switch eventType {
	case EventPing, EventJoinRoom, EventLeaveRoom, EventSendMessage, EventTyping:
	default:
		eventType = "unknown"
	}
	m.metrics.WSEvents.WithLabelValues(eventType, outcome).Inc()
}
