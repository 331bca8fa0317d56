package websocket

import (
	"encoding/json"
	"time"

	"chatsync/pkg/logger"
)

// WebSocket Message Types
const (
	MessageTypePing        = "ping"
	MessageTypePong        = "pong"
	MessageTypeSendMessage = "send_message"
	MessageTypeMessageSent = "message_sent"
	MessageTypeMarkRead    = "mark_read"
	MessageTypeMarkedRead  = "marked_read"
	MessageTypeMessages    = "messages"
	MessageTypeThreads     = "threads"
	MessageTypeChats       = "chats"
	MessageTypeProfile     = "profile"
	MessageTypeError       = "error"
)

// WSMessage is the envelope of every frame the server writes.
type WSMessage struct {
	Type      string      `json:"type"`
	Data      interface{} `json:"data,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type SendMessageData struct {
	TempID string `json:"temp_id,omitempty"`
	Text   string `json:"text"`
}

type MessageSentData struct {
	TempID  string      `json:"temp_id,omitempty"`
	Message interface{} `json:"message"`
	Dropped bool        `json:"dropped,omitempty"`
}

type MarkedReadData struct {
	Count int `json:"count"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// HandlerFunc handles one inbound message type. data is the raw "data" field.
type HandlerFunc func(client *Client, data json.RawMessage)

// Router dispatches inbound frames by type. Ping is always answered.
type Router struct {
	handlers map[string]HandlerFunc
}

func NewRouter() *Router {
	r := &Router{handlers: make(map[string]HandlerFunc)}
	r.Handle(MessageTypePing, func(client *Client, _ json.RawMessage) {
		Send(client, MessageTypePong, map[string]string{"status": "alive"})
	})
	return r
}

func (r *Router) Handle(messageType string, fn HandlerFunc) {
	r.handlers[messageType] = fn
}

// HandleClientMessage processes incoming WebSocket messages
func (r *Router) HandleClientMessage(client *Client, frame []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(frame, &msg); err != nil {
		logger.Debug("WebSocket: Failed to unmarshal message from client %s: %v", client.UserID, err)
		SendError(client, "BAD_REQUEST", "Invalid message format")
		return
	}

	fn, ok := r.handlers[msg.Type]
	if !ok {
		logger.Debug("WebSocket: Unknown message type '%s' from client %s", msg.Type, client.UserID)
		SendError(client, "BAD_REQUEST", "Unknown message type")
		return
	}
	fn(client, msg.Data)
}

// Encode builds a server frame.
func Encode(messageType string, data interface{}) ([]byte, error) {
	return json.Marshal(WSMessage{
		Type:      messageType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// Send encodes and queues a frame for client.
func Send(client *Client, messageType string, data interface{}) bool {
	frame, err := Encode(messageType, data)
	if err != nil {
		logger.Error("WebSocket: Failed to encode %s frame for %s: %v", messageType, client.UserID, err)
		return false
	}
	return client.Enqueue(frame)
}

func SendError(client *Client, code, message string) {
	Send(client, MessageTypeError, ErrorData{Code: code, Message: message})
}
