package ws

import (
	"errors"

	"github.com/punchking466/workchat-backend-v2/internal/models"
)

// MessageJoinRoom subscribes the connection to a room's live broadcast. The
// client sends it on entering a room view; the subscription replaces any
// previous one.
type MessageJoinRoom struct {
	RoomKind string `json:"roomKind"`
	RoomID   uint   `json:"roomId"`
}

func (msg *MessageJoinRoom) GetType() string {
	return "join-room"
}

func (msg *MessageJoinRoom) Process(ctx *MessageContext) error {
	kind, ok := models.ParseRoomKind(msg.RoomKind)
	if !ok {
		return errors.New("unknown room kind")
	}
	if _, err := ctx.RoomService.Room(msg.RoomID, kind); err != nil {
		return err
	}
	if _, err := ctx.RoomService.ResolveMember(msg.RoomID, ctx.UserID); err != nil {
		return err
	}

	ctx.Hub.JoinRoom(ctx.ConnID, kind, msg.RoomID)
	return nil
}
