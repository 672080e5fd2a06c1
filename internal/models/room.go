package models

import (
	"time"
)

type RoomKind string

const (
	GroupRoom   RoomKind = "group"
	PrivateRoom RoomKind = "private"
)

// ParseRoomKind maps the :kind route segment to a RoomKind.
func ParseRoomKind(s string) (RoomKind, bool) {
	switch RoomKind(s) {
	case GroupRoom, PrivateRoom:
		return RoomKind(s), true
	}
	return "", false
}

// Room is a container for an ordered message history and a membership set.
// Private rooms carry no name and always have exactly two membership rows.
type Room struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Kind RoomKind `gorm:"type:varchar(10);not null;index" json:"kind"`
	Name string   `gorm:"size:100" json:"name"`

	// Group-only flags; a room with AllowLeave=false pins its members.
	AllowLeave  bool `gorm:"default:true" json:"allow_leave"`
	AllowDelete bool `gorm:"default:true" json:"allow_delete"`

	Members []Membership `gorm:"foreignKey:RoomID" json:"-"`
}
