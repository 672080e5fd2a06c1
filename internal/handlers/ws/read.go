package ws

import (
	"errors"

	"github.com/punchking466/workchat-backend-v2/internal/models"
	"github.com/punchking466/workchat-backend-v2/internal/service"
)

// MessageReadSignal marks the room read up to its newest message and pushes
// the caller their updated unread total.
type MessageReadSignal struct {
	RoomKind string `json:"roomKind"`
	RoomID   uint   `json:"roomId"`
}

func (msg *MessageReadSignal) GetType() string {
	return "read-signal"
}

func (msg *MessageReadSignal) Process(ctx *MessageContext) error {
	kind, ok := models.ParseRoomKind(msg.RoomKind)
	if !ok {
		return errors.New("unknown room kind")
	}

	total, err := ctx.MessageService.MarkRead(ctx.UserID, msg.RoomID, kind)
	if err != nil {
		return err
	}

	ctx.Hub.SendToUser(ctx.UserID, service.EventUnreadUpdate, service.UnreadUpdatePayload{kind: total})
	return nil
}
