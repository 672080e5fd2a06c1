package ws

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/punchking466/workchat-backend-v2/internal/cache"
	"github.com/punchking466/workchat-backend-v2/internal/service"
	"github.com/rs/zerolog"
)

// MessageContext provides all dependencies needed for event processing.
// Processors never hold the raw conn; every write goes through the hub so it
// serializes against the ping routine and fan-out writers.
type MessageContext struct {
	UserID         uint
	ConnID         string
	Hub            *Hub
	RoomService    *service.RoomService
	MessageService *service.MessageService
	Router         *service.NotificationRouter
	Presence       *cache.PresenceDirectory
	Logger         zerolog.Logger
}

// Message is implemented by every inbound event type.
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the inbound wire format wrapper.
type SerializedMessage struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// ErrorResponse is sent when event processing fails.
type ErrorResponse struct {
	Event   string `json:"event"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

func FromJson(jsonBytes []byte, msg Message) error {
	if len(jsonBytes) == 0 {
		return nil
	}
	return json.Unmarshal(jsonBytes, msg)
}

func CreateMessage(event string, registry map[string]reflect.Type) (Message, error) {
	t, ok := registry[event]
	if !ok {
		return nil, fmt.Errorf("unknown event: %s", event)
	}

	instance := reflect.New(t).Interface()
	return instance.(Message), nil
}
