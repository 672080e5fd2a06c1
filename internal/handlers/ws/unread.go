package ws

import (
	"github.com/punchking466/workchat-backend-v2/internal/models"
	"github.com/punchking466/workchat-backend-v2/internal/service"
)

// MessageRequestInitialUnread rebuilds the caller's unread counters for both
// room kinds from the durable store and replies with the full snapshot.
// Clients send it once per connection, right after connecting.
type MessageRequestInitialUnread struct {
}

func (msg *MessageRequestInitialUnread) GetType() string {
	return "request-initial-unread"
}

// InitialUnreadPayload is the cold-start unread snapshot: one total per kind.
type InitialUnreadPayload struct {
	GroupTotal   int `json:"groupTotal"`
	PrivateTotal int `json:"privateTotal"`
}

func (msg *MessageRequestInitialUnread) Process(ctx *MessageContext) error {
	group, err := ctx.MessageService.WarmUnread(ctx.UserID, models.GroupRoom)
	if err != nil {
		return err
	}
	private, err := ctx.MessageService.WarmUnread(ctx.UserID, models.PrivateRoom)
	if err != nil {
		return err
	}

	ctx.Hub.SendToUser(ctx.UserID, service.EventInitialUnread, InitialUnreadPayload{
		GroupTotal:   group.Total,
		PrivateTotal: private.Total,
	})
	return nil
}
