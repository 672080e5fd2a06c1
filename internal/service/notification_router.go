package service

import (
	"github.com/punchking466/workchat-backend-v2/internal/cache"
	"github.com/punchking466/workchat-backend-v2/internal/metrics"
	"github.com/punchking466/workchat-backend-v2/internal/models"
	"github.com/punchking466/workchat-backend-v2/internal/repository"
	"github.com/rs/zerolog"
)

// Outbound event names, shared between the router and the socket handlers.
const (
	EventNewMessage      = "new-message"
	EventNotification    = "notification"
	EventUnreadUpdate    = "unread-update"
	EventRefreshRoomList = "refresh-room-list"
	EventInitialUnread   = "initial-unread"
)

// Deliverer pushes events to connected clients. Implemented by the websocket
// hub; the router never sees connection state beyond this.
type Deliverer interface {
	SendToUser(userID uint, event string, data interface{})
	BroadcastToRoom(kind models.RoomKind, roomID uint, event string, data interface{})
}

// PresenceReader answers who is connected and what they are looking at.
type PresenceReader interface {
	ConnectionID(userID uint) (string, bool)
	ViewedPath(connID string) (string, bool)
}

// RoomListInvalidator drops a user's cached room list so the next fetch
// reassembles it.
type RoomListInvalidator interface {
	Invalidate(userID uint, kind models.RoomKind) error
}

// NotificationPayload is the banner pushed to members not currently viewing
// the room. Sound and vibration reflect the receiver's own preferences.
type NotificationPayload struct {
	RoomID      uint            `json:"roomId"`
	RoomKind    models.RoomKind `json:"roomKind"`
	Title       string          `json:"title"`
	Preview     string          `json:"preview"`
	PushPreview string          `json:"pushPreview"`
	Sound       bool            `json:"sound"`
	Vibration   bool            `json:"vibration"`
}

// UnreadUpdatePayload carries a receiver's new total after an increment or a
// read, keyed by the room kind it belongs to: {"group": 3} or {"private": 1}.
type UnreadUpdatePayload map[models.RoomKind]int

// NotificationRouter fans one appended message out to the room's members:
// banner notifications, the in-room broadcast, unread counters, and room-list
// refresh signals. Everything here is best-effort; the message is already
// durable before RouteMessage runs, so failures are logged and skipped rather
// than surfaced to the sender.
type NotificationRouter struct {
	membershipRepo repository.MembershipRepositoryInterface
	userRepo       repository.UserRepositoryInterface
	unread         UnreadStore
	presence       PresenceReader
	roomLists      RoomListInvalidator
	deliverer      Deliverer
	logger         zerolog.Logger
}

func NewNotificationRouter(
	membershipRepo repository.MembershipRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
	unread UnreadStore,
	presence PresenceReader,
	roomLists RoomListInvalidator,
	deliverer Deliverer,
	logger zerolog.Logger,
) *NotificationRouter {
	return &NotificationRouter{
		membershipRepo: membershipRepo,
		userRepo:       userRepo,
		unread:         unread,
		presence:       presence,
		roomLists:      roomLists,
		deliverer:      deliverer,
		logger:         logger,
	}
}

// RouteMessage runs the delivery half of the send pipeline:
//
//  1. resolve the receiver set (active members minus the sender)
//  2. push a notification to each eligible receiver not viewing the room
//  3. broadcast new-message to everyone subscribed to the room
//  4. bump every receiver's unread counters, viewing or not
//  5. push each connected receiver their new unread total
//  6. signal refresh-room-list to all active members, sender included
func (r *NotificationRouter) RouteMessage(room *models.Room, msg *models.Message) {
	members, err := r.membershipRepo.ListActive(room.ID)
	if err != nil {
		r.logger.Error().Err(err).Uint("room_id", room.ID).Msg("route: list members")
		return
	}

	senderName := ""
	if sender, err := r.userRepo.FindByID(msg.SenderID); err == nil {
		senderName = sender.DisplayName()
	} else {
		r.logger.Warn().Err(err).Uint("user_id", msg.SenderID).Msg("route: resolve sender")
	}

	receivers := make([]uint, 0, len(members))
	for i := range members {
		if members[i].UserID != msg.SenderID {
			receivers = append(receivers, members[i].UserID)
		}
	}

	r.pushNotifications(room, msg, senderName, receivers)

	r.deliverer.BroadcastToRoom(room.Kind, room.ID, EventNewMessage, msg.ToResponse(0, senderName))

	// Counters move for every receiver. A receiver looking at the room right
	// now zeroes theirs again through the read signal their client sends on
	// arrival, which keeps this path free of read-vs-send races.
	if err := r.unread.IncrementOnSend(receivers, room.ID, msg.SenderID, room.Kind); err != nil {
		r.logger.Error().Err(err).Uint("room_id", room.ID).Msg("route: increment unread")
	}
	for _, uid := range receivers {
		r.SendUnreadUpdate(uid, room.Kind)
	}

	for i := range members {
		uid := members[i].UserID
		if err := r.roomLists.Invalidate(uid, room.Kind); err != nil {
			r.logger.Warn().Err(err).Uint("user_id", uid).Msg("route: invalidate room list")
		}
		r.deliverer.SendToUser(uid, EventRefreshRoomList, map[string]interface{}{"roomKind": room.Kind})
	}
}

// pushNotifications sends the banner to receivers who allow notifications for
// this room and are not currently viewing it.
func (r *NotificationRouter) pushNotifications(room *models.Room, msg *models.Message, senderName string, receivers []uint) {
	if len(receivers) == 0 {
		return
	}

	targets, err := r.membershipRepo.NotificationTargets(room.ID, receivers)
	if err != nil {
		r.logger.Error().Err(err).Uint("room_id", room.ID).Msg("route: notification targets")
		return
	}

	title := room.Name
	if room.Kind == models.PrivateRoom {
		title = senderName
	}
	preview := msg.Preview()
	payload := NotificationPayload{
		RoomID:      room.ID,
		RoomKind:    room.Kind,
		Title:       title,
		Preview:     preview,
		PushPreview: senderName + ": " + preview,
	}

	for _, t := range targets {
		if r.viewingRoom(t.UserID, room.Kind, room.ID) {
			metrics.NotificationsSuppressedTotal.Inc()
			continue
		}
		p := payload
		p.Sound = t.AllowSound
		p.Vibration = t.AllowVibration
		r.deliverer.SendToUser(t.UserID, EventNotification, p)
	}
}

// viewingRoom reports whether the user's connection last reported a path that
// maps onto this room.
func (r *NotificationRouter) viewingRoom(userID uint, kind models.RoomKind, roomID uint) bool {
	connID, ok := r.presence.ConnectionID(userID)
	if !ok {
		return false
	}
	path, ok := r.presence.ViewedPath(connID)
	if !ok {
		return false
	}
	viewedKind, viewedID, ok := ParseRoomPath(path)
	return ok && viewedKind == kind && viewedID == roomID
}

// SendUnreadUpdate pushes a user their current cached total for one kind.
// Used after increments and after reads.
func (r *NotificationRouter) SendUnreadUpdate(userID uint, kind models.RoomKind) {
	total, err := r.unread.Total(userID, kind)
	if err != nil {
		r.logger.Warn().Err(err).Uint("user_id", userID).Msg("route: read unread total")
		return
	}
	r.deliverer.SendToUser(userID, EventUnreadUpdate, UnreadUpdatePayload{kind: total})
}

// cache.RoomListCache satisfies RoomListInvalidator.
var _ RoomListInvalidator = (*cache.RoomListCache)(nil)
