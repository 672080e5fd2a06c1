package repository

import (
	"github.com/punchking466/workchat-backend-v2/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// AppendWithReadAdvance persists a message with the next per-room order and
// advances the sender's read marker to it, atomically. The FOR UPDATE lock on
// the room row serializes concurrent senders to the same room, so two
// overlapping sends can never be assigned the same order.
func (r *MessageRepository) AppendWithReadAdvance(message *models.Message) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		var room models.Room
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&room, message.RoomID).Error; err != nil {
			return err
		}

		var maxOrder int
		if err := tx.Model(&models.Message{}).
			Where("room_id = ?", message.RoomID).
			Select("COALESCE(MAX(message_order), 0)").
			Scan(&maxOrder).Error; err != nil {
			return err
		}

		message.Order = maxOrder + 1
		if err := tx.Create(message).Error; err != nil {
			return err
		}

		return tx.Model(&models.Membership{}).
			Where("room_id = ? AND user_id = ?", message.RoomID, message.SenderID).
			Update("last_read_order", gorm.Expr("GREATEST(last_read_order, ?)", message.Order)).
			Error
	})
}

func (r *MessageRepository) MaxOrder(roomID uint) (int, error) {
	var maxOrder int
	err := r.db.Model(&models.Message{}).
		Where("room_id = ?", roomID).
		Select("COALESCE(MAX(message_order), 0)").
		Scan(&maxOrder).Error
	return maxOrder, err
}

// ListVisible returns the caller's view of a room's history: messages created
// after the membership's visibility window (rejoin time, or join time if the
// member never left), newest order first, offset-paginated. A keyword filters
// text bodies by substring.
func (r *MessageRepository) ListVisible(roomID, userID uint, page, limit int, keyword string) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}

	query := r.db.Model(&models.Message{}).
		Joins("JOIN memberships m ON m.room_id = messages.room_id AND m.user_id = ? AND m.is_deleted = false", userID).
		Where("messages.room_id = ?", roomID).
		Where("messages.created_at > COALESCE(m.rejoined_at, m.created_at)")

	if keyword != "" {
		query = query.Where("messages.kind = ? AND messages.body LIKE ?", models.TextMessage, "%"+keyword+"%")
	}

	var messages []models.Message
	err := query.
		Order("messages.message_order DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&messages).Error
	return messages, err
}

// LastMessagePerRoom returns one row for every room of the given kind the
// user actively belongs to: the newest message inside the member's visibility
// window plus the unread delta against the read marker. Rooms with no visible
// message yet (fresh rooms, or all history hidden behind a rejoin) still get a
// row, with an empty preview and zero unread. Non-text kinds render a fixed
// placeholder preview.
func (r *MessageRepository) LastMessagePerRoom(userID uint, kind models.RoomKind) ([]RoomListRow, error) {
	var rows []RoomListRow
	err := r.db.Raw(`
		SELECT m.room_id AS room_id,
		       r.name AS room_name,
		       msg.kind AS kind,
		       CASE WHEN msg.kind = 'text' THEN msg.body
		            WHEN msg.kind = 'image' THEN ?
		            WHEN msg.kind = 'card' THEN COALESCE(NULLIF(msg.card->>'title', ''), ?)
		            ELSE '' END AS preview,
		       COALESCE(msg.message_order - m.last_read_order, 0) AS unread_count,
		       msg.created_at AS created_at
		FROM memberships m
		JOIN rooms r ON r.id = m.room_id AND r.kind = ?
		LEFT JOIN messages msg ON msg.room_id = m.room_id
		 AND msg.message_order = (
		     SELECT MAX(m2.message_order)
		     FROM messages m2
		     WHERE m2.room_id = m.room_id
		       AND m2.created_at > COALESCE(m.rejoined_at, m.created_at))
		WHERE m.user_id = ? AND m.is_deleted = false
		ORDER BY msg.created_at DESC NULLS LAST
	`, models.ImagePreview, models.CardPreview, kind, userID).Scan(&rows).Error
	return rows, err
}
