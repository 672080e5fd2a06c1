package service

import (
	"errors"
	"time"

	"github.com/punchking466/workchat-backend-v2/internal/models"
	"github.com/punchking466/workchat-backend-v2/internal/repository"
	"gorm.io/gorm"
)

// RoomService owns room lifecycle: creation for both kinds, membership
// add/reactivate, leave/kick with post-leave cleanup, and the membership
// authorization guard used by every room-scoped operation.
type RoomService struct {
	roomRepo       repository.RoomRepositoryInterface
	membershipRepo repository.MembershipRepositoryInterface
	messageRepo    repository.MessageRepositoryInterface
	userRepo       repository.UserRepositoryInterface
}

func NewRoomService(
	roomRepo repository.RoomRepositoryInterface,
	membershipRepo repository.MembershipRepositoryInterface,
	messageRepo repository.MessageRepositoryInterface,
	userRepo repository.UserRepositoryInterface,
) *RoomService {
	return &RoomService{
		roomRepo:       roomRepo,
		membershipRepo: membershipRepo,
		messageRepo:    messageRepo,
		userRepo:       userRepo,
	}
}

// Room loads a room of the expected kind.
func (s *RoomService) Room(roomID uint, kind models.RoomKind) (*models.Room, error) {
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

// ResolveMember is the authorization guard: active membership or rejection.
// A row that was soft-deleted maps to ErrNotAMember; no row at all means the
// caller was never part of the room.
func (s *RoomService) ResolveMember(roomID, userID uint) (*models.Membership, error) {
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

// ResolveAdmin additionally requires the admin flag.
func (s *RoomService) ResolveAdmin(roomID, userID uint) (*models.Membership, error) {
	member, err := s.ResolveMember(roomID, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsAdmin {
		return nil, ErrNotAdmin
	}
	return member, nil
}

// CreateGroup creates a group room with the owner as sole admin. Every
// member id must resolve to a known user.
func (s *RoomService) CreateGroup(ownerID uint, name string, memberIDs []uint) (*models.Room, error) {
	for _, id := range memberIDs {
		ok, err := s.userRepo.Exists(id)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrUserNotFound
		}
	}

	room := &models.Room{
		Kind:        models.GroupRoom,
		Name:        name,
		AllowLeave:  true,
		AllowDelete: true,
	}

	memberships := []*models.Membership{{UserID: ownerID, IsAdmin: true}}
	for _, id := range memberIDs {
		if id == ownerID {
			continue
		}
		memberships = append(memberships, &models.Membership{UserID: id})
	}

	if err := s.roomRepo.CreateWithMembers(room, memberships); err != nil {
		return nil, err
	}
	return room, nil
}

// CreateOrGetPrivate returns the id of the 1:1 room between the caller and
// the friend, creating it on first contact. Reuse is resolved by membership
// intersection; reuse reactivates any soft-deleted side. Private rooms hold
// exactly two membership rows, which is what makes the intersection lookup
// unique.
func (s *RoomService) CreateOrGetPrivate(userID, friendID uint) (uint, error) {
	ok, err := s.userRepo.Exists(friendID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, ErrUserNotFound
	}

	roomID, err := s.membershipRepo.FindPrivateRoom(userID, friendID)
	if err != nil {
		return 0, err
	}
	if roomID != 0 {
		if err := reactivateDeletedMembers(s.membershipRepo, s.messageRepo, roomID); err != nil {
			return 0, err
		}
		return roomID, nil
	}

	room := &models.Room{Kind: models.PrivateRoom, AllowLeave: true, AllowDelete: true}
	memberships := []*models.Membership{
		{UserID: userID},
		{UserID: friendID},
	}
	if err := s.roomRepo.CreateWithMembers(room, memberships); err != nil {
		return 0, err
	}
	return room.ID, nil
}

// AddMembers adds users to a group room, reusing soft-deleted rows. A
// reactivated member starts with zero unread and a fresh visibility window.
func (s *RoomService) AddMembers(roomID uint, userIDs []uint) error {
	if _, err := s.Room(roomID, models.GroupRoom); err != nil {
		return err
	}

	maxOrder, err := s.messageRepo.MaxOrder(roomID)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, userID := range userIDs {
		ok, err := s.userRepo.Exists(userID)
		if err != nil {
			return err
		}
		if !ok {
			return ErrUserNotFound
		}

		member, err := s.membershipRepo.Get(roomID, userID)
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			if cerr := s.membershipRepo.Create(&models.Membership{RoomID: roomID, UserID: userID}); cerr != nil {
				return cerr
			}
			continue
		}
		if !member.IsDeleted {
			continue
		}

		member.IsDeleted = false
		member.LeaveType = nil
		member.KickedBy = nil
		member.LeftAt = nil
		member.RejoinedAt = &now
		member.LastReadOrder = maxOrder
		if err := s.membershipRepo.Save(member); err != nil {
			return err
		}
	}
	return nil
}

// Leave soft-deletes the caller's membership and runs post-leave cleanup.
func (s *RoomService) Leave(roomID, userID uint, kind models.RoomKind) error {
	room, err := s.Room(roomID, kind)
	if err != nil {
		return err
	}
	if room.Kind == models.GroupRoom && !room.AllowLeave {
		return ErrInvalidTransition
	}

	member, err := s.ResolveMember(roomID, userID)
	if err != nil {
		return err
	}

	now := time.Now()
	leaveType := models.LeaveSelf
	member.IsAdmin = false
	member.IsDeleted = true
	member.LeaveType = &leaveType
	member.LeftAt = &now
	if err := s.membershipRepo.Save(member); err != nil {
		return err
	}

	return s.cleanupAfterLeave(roomID)
}

// Kick removes a member on an admin's behalf. Self-removal goes through
// Leave, never here.
func (s *RoomService) Kick(roomID, actorID, targetID uint) error {
	if _, err := s.ResolveAdmin(roomID, actorID); err != nil {
		return err
	}
	if actorID == targetID {
		return ErrCannotKickSelf
	}

	member, err := s.ResolveMember(roomID, targetID)
	if err != nil {
		return err
	}

	now := time.Now()
	leaveType := models.LeaveKicked
	member.IsAdmin = false
	member.IsDeleted = true
	member.LeaveType = &leaveType
	member.KickedBy = &actorID
	member.LeftAt = &now
	if err := s.membershipRepo.Save(member); err != nil {
		return err
	}

	return s.cleanupAfterLeave(roomID)
}

// cleanupAfterLeave deletes a room whose last active member just left, or
// promotes the earliest-joined remaining member of a group room when no
// admin is left. Private rooms have no admins to promote.
func (s *RoomService) cleanupAfterLeave(roomID uint) error {
	remaining, err := s.membershipRepo.ListActive(roomID)
	if err != nil {
		return err
	}
	if len(remaining) == 0 {
		return s.roomRepo.DeleteCascade(roomID)
	}

	room, err := s.roomRepo.FindByID(roomID)
	if err != nil || room.Kind != models.GroupRoom {
		return err
	}

	for i := range remaining {
		if remaining[i].IsAdmin {
			return nil
		}
	}

	// ListActive orders by join time, so index 0 is the successor.
	promoted := remaining[0]
	promoted.IsAdmin = true
	return s.membershipRepo.Save(&promoted)
}

// ActiveMemberIDs returns the receiver set of a room: every active member,
// sender included.
func (s *RoomService) ActiveMemberIDs(roomID uint) ([]uint, error) {
	members, err := s.membershipRepo.ListActive(roomID)
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(members))
	for i := range members {
		ids = append(ids, members[i].UserID)
	}
	return ids, nil
}

// DisplayNames resolves display names for a batch of user ids.
func (s *RoomService) DisplayNames(ids []uint) (map[uint]string, error) {
	return s.userRepo.DisplayNames(ids)
}

// Members lists a room's active memberships for the member roster endpoint.
func (s *RoomService) Members(roomID uint) ([]models.Membership, error) {
	return s.membershipRepo.ListActive(roomID)
}

// RoomNotification reads the caller's per-room mute flag.
func (s *RoomService) RoomNotification(roomID, userID uint) (bool, error) {
	member, err := s.ResolveMember(roomID, userID)
	if err != nil {
		return false, err
	}
	return member.AllowNotification, nil
}

// SetRoomNotification flips the caller's per-room mute flag.
func (s *RoomService) SetRoomNotification(roomID, userID uint, allow bool) error {
	if _, err := s.ResolveMember(roomID, userID); err != nil {
		return err
	}
	return s.membershipRepo.SetAllowNotification(roomID, userID, allow)
}

// reactivateDeletedMembers clears the leave markers of every soft-deleted
// member of a room, resetting their read marker to the current max order so
// a rejoined member starts with zero unread and sees no pre-rejoin history.
func reactivateDeletedMembers(
	memberships repository.MembershipRepositoryInterface,
	messages repository.MessageRepositoryInterface,
	roomID uint,
) error {
	deleted, err := memberships.ListDeleted(roomID)
	if err != nil || len(deleted) == 0 {
		return err
	}

	maxOrder, err := messages.MaxOrder(roomID)
	if err != nil {
		return err
	}

	now := time.Now()
	for i := range deleted {
		member := deleted[i]
		member.IsDeleted = false
		member.LeaveType = nil
		member.KickedBy = nil
		member.LeftAt = nil
		member.RejoinedAt = &now
		member.LastReadOrder = maxOrder
		if err := memberships.Save(&member); err != nil {
			return err
		}
	}
	return nil
}
