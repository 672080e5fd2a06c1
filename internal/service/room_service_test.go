package service

import (
	"errors"
	"testing"

	"github.com/punchking466/workchat-backend-v2/internal/models"
	"github.com/punchking466/workchat-backend-v2/internal/testutil"
)

func newTestRoomService(users ...*models.User) (*RoomService, *MockRoomRepository, *MockMembershipRepository, *MockMessageRepository) {
	membershipRepo := NewMockMembershipRepository()
	messageRepo := NewMockMessageRepository(membershipRepo)
	roomRepo := NewMockRoomRepository(membershipRepo, messageRepo)
	userRepo := NewMockUserRepository(users...)
	svc := NewRoomService(roomRepo, membershipRepo, messageRepo, userRepo)
	return svc, roomRepo, membershipRepo, messageRepo
}

func testUsers(ids ...uint) []*models.User {
	users := make([]*models.User, 0, len(ids))
	for _, id := range ids {
		users = append(users, &models.User{ID: id, Username: "user", Grade: "Staff"})
	}
	return users
}

func TestCreateGroup(t *testing.T) {
	svc, _, membershipRepo, _ := newTestRoomService(testUsers(1, 2, 3)...)

	room, err := svc.CreateGroup(1, "platform", []uint{2, 3})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	if room.Kind != models.GroupRoom {
		t.Errorf("kind = %s, want group", room.Kind)
	}

	members, _ := membershipRepo.ListActive(room.ID)
	if len(members) != 3 {
		t.Fatalf("members = %d, want 3", len(members))
	}
	for _, m := range members {
		if m.UserID == 1 && !m.IsAdmin {
			t.Error("owner should be admin")
		}
		if m.UserID != 1 && m.IsAdmin {
			t.Errorf("user %d should not be admin", m.UserID)
		}
	}
}

func TestCreateGroupOwnerInMemberList(t *testing.T) {
	svc, _, membershipRepo, _ := newTestRoomService(testUsers(1, 2)...)

	room, err := svc.CreateGroup(1, "ops", []uint{1, 2})
	if err != nil {
		t.Fatalf("CreateGroup: %v", err)
	}
	members, _ := membershipRepo.ListActive(room.ID)
	if len(members) != 2 {
		t.Errorf("members = %d, want 2 (owner deduplicated)", len(members))
	}
}

func TestCreateGroupUnknownMember(t *testing.T) {
	svc, _, _, _ := newTestRoomService(testUsers(1)...)

	if _, err := svc.CreateGroup(1, "ops", []uint{99}); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
}

func TestCreateOrGetPrivate(t *testing.T) {
	svc, _, membershipRepo, _ := newTestRoomService(testUsers(1, 2)...)

	roomID, err := svc.CreateOrGetPrivate(1, 2)
	if err != nil {
		t.Fatalf("CreateOrGetPrivate: %v", err)
	}
	members, _ := membershipRepo.ListActive(roomID)
	if len(members) != 2 {
		t.Fatalf("members = %d, want exactly 2", len(members))
	}

	again, err := svc.CreateOrGetPrivate(2, 1)
	if err != nil {
		t.Fatalf("second CreateOrGetPrivate: %v", err)
	}
	if again != roomID {
		t.Errorf("second call returned room %d, want %d", again, roomID)
	}

	if _, err := svc.CreateOrGetPrivate(1, 99); !errors.Is(err, ErrUserNotFound) {
		t.Errorf("unknown friend err = %v, want ErrUserNotFound", err)
	}
}

func TestCreateOrGetPrivateReactivatesLeftMember(t *testing.T) {
	svc, _, membershipRepo, messageRepo := newTestRoomService(testUsers(1, 2)...)

	h := testutil.NewTestHelper(t)
	roomID, _ := svc.CreateOrGetPrivate(1, 2)
	messageRepo.AppendWithReadAdvance(h.CreateTestMessage(0, roomID, 1, 0, "hi"))

	if err := svc.Leave(roomID, 2, models.PrivateRoom); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	if _, err := membershipRepo.GetActive(roomID, 2); err == nil {
		t.Fatal("member 2 should be inactive after leave")
	}

	again, err := svc.CreateOrGetPrivate(1, 2)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if again != roomID {
		t.Fatalf("reopen created room %d, want reuse of %d", again, roomID)
	}

	m, err := membershipRepo.GetActive(roomID, 2)
	if err != nil {
		t.Fatal("member 2 should be active after reopen")
	}
	if m.RejoinedAt == nil {
		t.Error("rejoined_at should be set")
	}
	if m.LastReadOrder != 1 {
		t.Errorf("last_read_order = %d, want reset to max order 1", m.LastReadOrder)
	}
}

func TestLeaveLastMemberDeletesRoom(t *testing.T) {
	svc, roomRepo, _, _ := newTestRoomService(testUsers(1, 2)...)

	room, _ := svc.CreateGroup(1, "ops", []uint{2})
	if err := svc.Leave(room.ID, 2, models.GroupRoom); err != nil {
		t.Fatalf("leave member: %v", err)
	}
	if err := svc.Leave(room.ID, 1, models.GroupRoom); err != nil {
		t.Fatalf("leave owner: %v", err)
	}

	if _, err := roomRepo.FindByID(room.ID); err == nil {
		t.Error("room should be deleted after last member leaves")
	}
	if len(roomRepo.deleted) != 1 || roomRepo.deleted[0] != room.ID {
		t.Errorf("deleted = %v, want [%d]", roomRepo.deleted, room.ID)
	}
}

func TestLeavePromotesEarliestJoinedMember(t *testing.T) {
	svc, _, membershipRepo, _ := newTestRoomService(testUsers(1, 2, 3)...)

	room, _ := svc.CreateGroup(1, "ops", []uint{2, 3})
	if err := svc.Leave(room.ID, 1, models.GroupRoom); err != nil {
		t.Fatalf("Leave: %v", err)
	}

	m2, _ := membershipRepo.GetActive(room.ID, 2)
	m3, _ := membershipRepo.GetActive(room.ID, 3)
	if !m2.IsAdmin {
		t.Error("earliest remaining member should be promoted")
	}
	if m3.IsAdmin {
		t.Error("only one member should be promoted")
	}
}

func TestLeaveBlockedWhenRoomPinsMembers(t *testing.T) {
	svc, roomRepo, membershipRepo, _ := newTestRoomService(testUsers(1)...)

	room := &models.Room{Kind: models.GroupRoom, Name: "announcements", AllowLeave: false}
	roomRepo.CreateWithMembers(room, []*models.Membership{{UserID: 1, IsAdmin: true}})

	if err := svc.Leave(room.ID, 1, models.GroupRoom); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("err = %v, want ErrInvalidTransition", err)
	}
	if _, err := membershipRepo.GetActive(room.ID, 1); err != nil {
		t.Error("membership should be untouched")
	}
}

func TestKick(t *testing.T) {
	svc, _, membershipRepo, _ := newTestRoomService(testUsers(1, 2, 3)...)
	room, _ := svc.CreateGroup(1, "ops", []uint{2, 3})

	if err := svc.Kick(room.ID, 2, 3); !errors.Is(err, ErrNotAdmin) {
		t.Errorf("non-admin kick err = %v, want ErrNotAdmin", err)
	}
	if err := svc.Kick(room.ID, 1, 1); !errors.Is(err, ErrCannotKickSelf) {
		t.Errorf("self kick err = %v, want ErrCannotKickSelf", err)
	}

	if err := svc.Kick(room.ID, 1, 2); err != nil {
		t.Fatalf("Kick: %v", err)
	}
	kicked, err := membershipRepo.Get(room.ID, 2)
	if err != nil {
		t.Fatal("kicked row should still exist")
	}
	if !kicked.IsDeleted {
		t.Error("kicked member should be soft-deleted")
	}
	if kicked.LeaveType == nil || *kicked.LeaveType != models.LeaveKicked {
		t.Error("leave_type should be kicked")
	}
	if kicked.KickedBy == nil || *kicked.KickedBy != 1 {
		t.Error("kicked_by should record the acting admin")
	}

	if _, err := svc.ResolveMember(room.ID, 2); !errors.Is(err, ErrNotAMember) {
		t.Errorf("kicked member guard err = %v, want ErrNotAMember", err)
	}
}

func TestResolveMember(t *testing.T) {
	svc, _, _, _ := newTestRoomService(testUsers(1, 2)...)
	room, _ := svc.CreateGroup(1, "ops", []uint{2})

	if _, err := svc.ResolveMember(room.ID, 1); err != nil {
		t.Errorf("active member err = %v, want nil", err)
	}
	if _, err := svc.ResolveMember(room.ID, 99); !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("stranger err = %v, want ErrInvalidTransition", err)
	}
}

func TestAddMembersReactivatesWithFreshWindow(t *testing.T) {
	svc, _, membershipRepo, messageRepo := newTestRoomService(testUsers(1, 2)...)
	room, _ := svc.CreateGroup(1, "ops", []uint{2})

	h := testutil.NewTestHelper(t)
	messageRepo.AppendWithReadAdvance(h.CreateTestMessage(0, room.ID, 1, 0, "one"))
	messageRepo.AppendWithReadAdvance(h.CreateTestMessage(0, room.ID, 1, 0, "two"))

	if err := svc.Leave(room.ID, 2, models.GroupRoom); err != nil {
		t.Fatalf("Leave: %v", err)
	}
	messageRepo.AppendWithReadAdvance(h.CreateTestMessage(0, room.ID, 1, 0, "three"))

	if err := svc.AddMembers(room.ID, []uint{2}); err != nil {
		t.Fatalf("AddMembers: %v", err)
	}

	m, err := membershipRepo.GetActive(room.ID, 2)
	if err != nil {
		t.Fatal("member 2 should be active again")
	}
	if m.RejoinedAt == nil {
		t.Error("rejoined_at should be set")
	}
	if m.LastReadOrder != 3 {
		t.Errorf("last_read_order = %d, want 3 (rejoin starts with zero unread)", m.LastReadOrder)
	}
	if m.LeaveType != nil || m.LeftAt != nil {
		t.Error("leave markers should be cleared")
	}
}

func TestRoomKindMismatch(t *testing.T) {
	svc, _, _, _ := newTestRoomService(testUsers(1, 2)...)
	room, _ := svc.CreateGroup(1, "ops", []uint{2})

	if _, err := svc.Room(room.ID, models.PrivateRoom); !errors.Is(err, ErrRoomNotFound) {
		t.Errorf("kind mismatch err = %v, want ErrRoomNotFound", err)
	}
}
