package ws

// MessageReportPath records which view the client is currently showing. The
// notification router reads it back to suppress banners for the room the
// user is already looking at.
type MessageReportPath struct {
	Path string `json:"path"`
}

func (msg *MessageReportPath) GetType() string {
	return "report-current-path"
}

func (msg *MessageReportPath) Process(ctx *MessageContext) error {
	return ctx.Presence.SetViewedPath(ctx.ConnID, msg.Path)
}
