package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

type MessageKind string

const (
	TextMessage  MessageKind = "text"
	ImageMessage MessageKind = "image"
	CardMessage  MessageKind = "card"
)

// Placeholder previews shown in room lists and push notifications for
// non-text messages.
const (
	ImagePreview = "New image"
	CardPreview  = "New card message"
)

// CardButton is a single actionable button on a card message.
type CardButton struct {
	Label  string `json:"label"`
	Action string `json:"action"`
}

// CardPayload is the structured body of a card message. ImageRef holds an
// opaque media reference returned by the image store, never a raw URL.
type CardPayload struct {
	Title    string       `json:"title"`
	Subtitle string       `json:"subtitle,omitempty"`
	Body     string       `json:"body,omitempty"`
	Buttons  []CardButton `json:"buttons,omitempty"`
	ImageRef string       `json:"image_ref,omitempty"`
}

func (p CardPayload) Value() (driver.Value, error) {
	return json.Marshal(p)
}

func (p *CardPayload) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	b, ok := value.([]byte)
	if !ok {
		s, ok := value.(string)
		if !ok {
			return errors.New("card payload: unsupported column type")
		}
		b = []byte(s)
	}
	return json.Unmarshal(b, p)
}

// Message is one entry in a room's append-only log. Order is the per-room
// sequence number: strictly increasing, starting at 1, assigned under the
// room row lock in MessageRepository.AppendWithReadAdvance.
type Message struct {
	ID        uint      `gorm:"primarykey" json:"id"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	RoomID   uint `gorm:"not null;uniqueIndex:idx_room_order;index" json:"room_id"`
	Room     Room `gorm:"foreignKey:RoomID" json:"-"`
	SenderID uint `gorm:"not null;index" json:"sender_id"`

	Kind    MessageKind  `gorm:"type:varchar(10);not null;default:'text'" json:"kind"`
	Body    string       `gorm:"type:text" json:"body,omitempty"`
	FileRef string       `gorm:"size:255" json:"file_ref,omitempty"`
	Card    *CardPayload `gorm:"type:jsonb" json:"card,omitempty"`

	Order int `gorm:"column:message_order;not null;uniqueIndex:idx_room_order" json:"order"`
}

// Preview renders the human-readable one-liner used in room lists and
// notification payloads.
func (m *Message) Preview() string {
	switch m.Kind {
	case ImageMessage:
		return ImagePreview
	case CardMessage:
		if m.Card != nil && m.Card.Title != "" {
			return m.Card.Title
		}
		return CardPreview
	default:
		return m.Body
	}
}

type MessageResponse struct {
	ID         uint         `json:"id"`
	RoomID     uint         `json:"room_id"`
	SenderID   uint         `json:"sender_id"`
	SenderName string       `json:"sender_name,omitempty"`
	Kind       MessageKind  `json:"kind"`
	Body       string       `json:"body,omitempty"`
	FileRef    string       `json:"file_ref,omitempty"`
	Card       *CardPayload `json:"card,omitempty"`
	Order      int          `json:"order"`
	IsMe       bool         `json:"is_me"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

func (m *Message) ToResponse(viewerID uint, senderName string) MessageResponse {
	return MessageResponse{
		ID:         m.ID,
		RoomID:     m.RoomID,
		SenderID:   m.SenderID,
		SenderName: senderName,
		Kind:       m.Kind,
		Body:       m.Body,
		FileRef:    m.FileRef,
		Card:       m.Card,
		Order:      m.Order,
		IsMe:       m.SenderID == viewerID,
		CreatedAt:  m.CreatedAt,
		UpdatedAt:  m.UpdatedAt,
	}
}
