package repository

import (
	"time"

	"github.com/punchking466/workchat-backend-v2/internal/models"
)

// RoomListRow is one entry of the per-user room list: the newest visible
// message of a room plus the unread delta against the member's read marker.
type RoomListRow struct {
	RoomID      uint               `gorm:"column:room_id" json:"room_id"`
	RoomName    string             `gorm:"column:room_name" json:"room_name"`
	Kind        models.MessageKind `gorm:"column:kind" json:"kind"`
	Preview     string             `gorm:"column:preview" json:"preview"`
	UnreadCount int                `gorm:"column:unread_count" json:"unread_count"`
	CreatedAt   time.Time          `gorm:"column:created_at" json:"created_at"`
}

// UnreadRow is the recomputed unread count for one room, used to warm the
// unread cache from the durable store.
type UnreadRow struct {
	RoomID uint `gorm:"column:room_id"`
	Unread int  `gorm:"column:unread"`
}

// PeerRow resolves the other member of a private room for display purposes.
type PeerRow struct {
	RoomID   uint   `gorm:"column:room_id"`
	Username string `gorm:"column:username"`
	Grade    string `gorm:"column:grade"`
}

// NotificationTarget is a receiver that has notifications enabled both
// globally and for the room in question.
type NotificationTarget struct {
	UserID         uint `gorm:"column:user_id"`
	AllowSound     bool `gorm:"column:allow_sound"`
	AllowVibration bool `gorm:"column:allow_vibration"`
}

// MessageRepositoryInterface is the durable message store contract.
type MessageRepositoryInterface interface {
	// AppendWithReadAdvance assigns the next per-room order, persists the
	// message and advances the sender's read marker, all in one transaction.
	AppendWithReadAdvance(message *models.Message) error
	MaxOrder(roomID uint) (int, error)
	ListVisible(roomID, userID uint, page, limit int, keyword string) ([]models.Message, error)
	LastMessagePerRoom(userID uint, kind models.RoomKind) ([]RoomListRow, error)
}

// MembershipRepositoryInterface is the membership ledger contract.
type MembershipRepositoryInterface interface {
	GetActive(roomID, userID uint) (*models.Membership, error)
	Get(roomID, userID uint) (*models.Membership, error)
	Create(membership *models.Membership) error
	Save(membership *models.Membership) error
	AdvanceLastRead(roomID, userID uint, order int) error
	ListActive(roomID uint) ([]models.Membership, error)
	ListDeleted(roomID uint) ([]models.Membership, error)
	FindPrivateRoom(userID, friendID uint) (uint, error)
	UnreadRows(userID uint, kind models.RoomKind) ([]UnreadRow, error)
	ListPeers(userID uint) ([]PeerRow, error)
	SetAllowNotification(roomID, userID uint, allow bool) error
	NotificationTargets(roomID uint, userIDs []uint) ([]NotificationTarget, error)
}

// RoomRepositoryInterface is the room lifecycle store contract.
type RoomRepositoryInterface interface {
	Create(room *models.Room) error
	CreateWithMembers(room *models.Room, memberships []*models.Membership) error
	FindByID(id uint) (*models.Room, error)
	Exists(id uint) (bool, error)
	DeleteCascade(roomID uint) error
}

// UserRepositoryInterface is the user-lookup collaborator contract.
type UserRepositoryInterface interface {
	FindByID(id uint) (*models.User, error)
	Exists(id uint) (bool, error)
	DisplayNames(ids []uint) (map[uint]string, error)
	UpdateNotificationPrefs(userID uint, allowNotification, allowSound, allowVibration bool) error
}
