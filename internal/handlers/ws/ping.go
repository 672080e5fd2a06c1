package ws

// MessagePing is an application-level keepalive from clients whose websocket
// stack doesn't surface protocol pings. It refreshes presence like a
// protocol pong does.
type MessagePing struct {
}

func (msg *MessagePing) GetType() string {
	return "ping"
}

func (msg *MessagePing) Process(ctx *MessageContext) error {
	if err := ctx.Presence.Refresh(ctx.UserID, ctx.ConnID); err != nil {
		ctx.Logger.Warn().Err(err).Uint("user_id", ctx.UserID).Msg("ping: presence refresh")
	}
	ctx.Hub.SendToUser(ctx.UserID, "pong", nil)
	return nil
}
