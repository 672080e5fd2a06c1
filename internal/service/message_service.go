package service

import (
	"errors"

	"github.com/punchking466/workchat-backend-v2/internal/cache"
	"github.com/punchking466/workchat-backend-v2/internal/metrics"
	"github.com/punchking466/workchat-backend-v2/internal/models"
	"github.com/punchking466/workchat-backend-v2/internal/repository"
	"gorm.io/gorm"
)

// UnreadStore is the ephemeral unread counter mirror consumed by the send and
// read paths. cache.UnreadCache is the Redis-backed implementation.
type UnreadStore interface {
	Warm(userID uint, kind models.RoomKind, rows map[uint]int) (cache.UnreadAggregate, error)
	IncrementOnSend(receiverIDs []uint, roomID, senderID uint, kind models.RoomKind) error
	Clear(userID, roomID uint, kind models.RoomKind) (int, error)
	Total(userID uint, kind models.RoomKind) (int, error)
}

// SendInput carries the kind-specific payload of one outgoing message.
type SendInput struct {
	RoomID  uint
	Kind    models.MessageKind
	Body    string
	FileRef string
	Card    *models.CardPayload
}

// MessageService owns the message log: the transactional send pipeline,
// visibility-windowed history reads, the per-user room list, and read-marker
// advancement with unread clearing.
type MessageService struct {
	messageRepo    repository.MessageRepositoryInterface
	membershipRepo repository.MembershipRepositoryInterface
	roomRepo       repository.RoomRepositoryInterface
	unread         UnreadStore
}

func NewMessageService(
	messageRepo repository.MessageRepositoryInterface,
	membershipRepo repository.MembershipRepositoryInterface,
	roomRepo repository.RoomRepositoryInterface,
	unread UnreadStore,
) *MessageService {
	return &MessageService{
		messageRepo:    messageRepo,
		membershipRepo: membershipRepo,
		roomRepo:       roomRepo,
		unread:         unread,
	}
}

func (s *MessageService) room(roomID uint, kind models.RoomKind) (*models.Room, error) {
	room, err := s.roomRepo.FindByID(roomID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrRoomNotFound
		}
		return nil, err
	}
	if room.Kind != kind {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

func (s *MessageService) activeMember(roomID, userID uint) (*models.Membership, error) {
	member, err := s.membershipRepo.GetActive(roomID, userID)
	if err == nil {
		return member, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if _, gerr := s.membershipRepo.Get(roomID, userID); gerr == nil {
		return nil, ErrNotAMember
	}
	return nil, ErrInvalidTransition
}

// AuthorizeSend checks that the sender may post to the room right now:
// the room exists with the expected kind and the sender is an active member.
// First contact after a leave re-opens a private room for both sides, so a
// previously-left private-room member passes. This is the exact guard Send
// applies; handlers call it before doing side-effectful payload work such as
// storing an image, so a rejected send never persists an orphaned object.
func (s *MessageService) AuthorizeSend(senderID uint, kind models.RoomKind, roomID uint) (*models.Room, error) {
	room, err := s.room(roomID, kind)
	if err != nil {
		return nil, err
	}
	if room.Kind == models.PrivateRoom {
		if err := reactivateDeletedMembers(s.membershipRepo, s.messageRepo, room.ID); err != nil {
			return nil, err
		}
	}
	if _, err := s.activeMember(room.ID, senderID); err != nil {
		return nil, err
	}
	return room, nil
}

// Send runs the durable half of the send pipeline: authorize, then append
// with an atomically assigned order and the sender's read marker advanced in
// the same transaction. Cache and delivery side effects happen afterwards in
// the notification router; a failure here leaves nothing visible.
func (s *MessageService) Send(senderID uint, kind models.RoomKind, in SendInput) (*models.Message, error) {
	room, err := s.AuthorizeSend(senderID, kind, in.RoomID)
	if err != nil {
		return nil, err
	}

	message := &models.Message{
		RoomID:   room.ID,
		SenderID: senderID,
		Kind:     in.Kind,
		Body:     in.Body,
		FileRef:  in.FileRef,
		Card:     in.Card,
	}
	if message.Kind == "" {
		message.Kind = models.TextMessage
	}

	if err := s.messageRepo.AppendWithReadAdvance(message); err != nil {
		return nil, err
	}
	metrics.MessagesSentTotal.WithLabelValues(string(room.Kind), string(message.Kind)).Inc()
	return message, nil
}

// ListVisible returns one page of room history as seen by this member:
// nothing from before their visibility window, newest first.
func (s *MessageService) ListVisible(roomID, userID uint, kind models.RoomKind, page, limit int, keyword string) ([]models.Message, error) {
	if _, err := s.room(roomID, kind); err != nil {
		return nil, err
	}
	if _, err := s.activeMember(roomID, userID); err != nil {
		return nil, err
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}
	return s.messageRepo.ListVisible(roomID, userID, page, limit, keyword)
}

// RoomList assembles the per-user room overview for one kind: last visible
// message preview plus unread delta per room. Private rooms are titled after
// the peer.
func (s *MessageService) RoomList(userID uint, kind models.RoomKind) ([]repository.RoomListRow, error) {
	rows, err := s.messageRepo.LastMessagePerRoom(userID, kind)
	if err != nil {
		return nil, err
	}
	if kind != models.PrivateRoom || len(rows) == 0 {
		return rows, nil
	}

	peers, err := s.membershipRepo.ListPeers(userID)
	if err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(peers))
	for _, p := range peers {
		name := p.Username
		if p.Grade != "" {
			name += " " + p.Grade
		}
		names[p.RoomID] = name
	}
	for i := range rows {
		if name, ok := names[rows[i].RoomID]; ok {
			rows[i].RoomName = name
		}
	}
	return rows, nil
}

// MarkRead advances the caller's read marker to the room's current max order
// and zeroes the cached unread counter, returning the new cached total for
// the kind. The marker only ever moves forward.
func (s *MessageService) MarkRead(userID, roomID uint, kind models.RoomKind) (int, error) {
	if _, err := s.room(roomID, kind); err != nil {
		return 0, err
	}
	if _, err := s.activeMember(roomID, userID); err != nil {
		return 0, err
	}

	maxOrder, err := s.messageRepo.MaxOrder(roomID)
	if err != nil {
		return 0, err
	}
	if err := s.membershipRepo.AdvanceLastRead(roomID, userID, maxOrder); err != nil {
		return 0, err
	}
	return s.unread.Clear(userID, roomID, kind)
}

// WarmUnread rebuilds the caller's unread cache for one kind straight from
// the ledger and the log, and returns the aggregate. The only authoritative
// unread read after a cold start.
func (s *MessageService) WarmUnread(userID uint, kind models.RoomKind) (cache.UnreadAggregate, error) {
	rows, err := s.membershipRepo.UnreadRows(userID, kind)
	if err != nil {
		return cache.UnreadAggregate{}, err
	}
	perRoom := make(map[uint]int, len(rows))
	for _, r := range rows {
		perRoom[r.RoomID] = r.Unread
	}
	return s.unread.Warm(userID, kind, perRoom)
}
