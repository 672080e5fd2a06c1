package models

import (
	"time"
)

// User is the local mirror of the external identity service: enough to
// resolve display names and notification preferences. Credentials live
// elsewhere.
type User struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	Username string `gorm:"uniqueIndex;not null" json:"username"`
	Grade    string `gorm:"size:30" json:"grade"`

	AllowNotification bool `gorm:"default:true" json:"allow_notification"`
	AllowSound        bool `gorm:"default:true" json:"allow_sound"`
	AllowVibration    bool `gorm:"default:true" json:"allow_vibration"`

	Memberships []Membership `gorm:"foreignKey:UserID" json:"-"`
}

// DisplayName is the "username grade" form shown as a message sender name.
func (u *User) DisplayName() string {
	if u.Grade == "" {
		return u.Username
	}
	return u.Username + " " + u.Grade
}
