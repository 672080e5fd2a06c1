package models

import (
	"time"
)

type LeaveType string

const (
	LeaveSelf   LeaveType = "self"
	LeaveKicked LeaveType = "kicked"
)

// Membership is the relationship record between a user and a room. A row is
// never physically deleted while the room has any active member; leave/rejoin
// cycles flip IsDeleted and the leave markers on the same row.
//
// Invariants:
//   - LastReadOrder never exceeds the room's current max message order.
//   - RejoinedAt (or CreatedAt when never left) is the visibility window:
//     history created before it is hidden from this member.
type Membership struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RoomID uint `gorm:"not null;uniqueIndex:idx_room_user;index" json:"room_id"`
	Room   Room `gorm:"foreignKey:RoomID" json:"-"`
	UserID uint `gorm:"not null;uniqueIndex:idx_room_user;index" json:"user_id"`
	User   User `gorm:"foreignKey:UserID" json:"-"`

	IsAdmin    bool       `gorm:"default:false" json:"is_admin"`
	IsDeleted  bool       `gorm:"default:false;index" json:"-"`
	LeaveType  *LeaveType `gorm:"type:varchar(10)" json:"-"`
	KickedBy   *uint      `json:"-"`
	LeftAt     *time.Time `json:"-"`
	RejoinedAt *time.Time `json:"rejoined_at,omitempty"`

	LastReadOrder     int  `gorm:"not null;default:0" json:"last_read_order"`
	AllowNotification bool `gorm:"default:true" json:"allow_notification"`
}

// VisibleSince is the lower bound of this member's visibility window.
func (m *Membership) VisibleSince() time.Time {
	if m.RejoinedAt != nil {
		return *m.RejoinedAt
	}
	return m.CreatedAt
}
