package repository

import (
	"github.com/punchking466/workchat-backend-v2/internal/models"
	"gorm.io/gorm"
)

type MembershipRepository struct {
	db *gorm.DB
}

func NewMembershipRepository(db *gorm.DB) *MembershipRepository {
	return &MembershipRepository{db: db}
}

// GetActive resolves the non-deleted membership row used for authorization
// checks. Soft-deleted rows are invisible here.
func (r *MembershipRepository) GetActive(roomID, userID uint) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.Where("room_id = ? AND user_id = ? AND is_deleted = false", roomID, userID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// Get resolves a membership row regardless of its delete state.
func (r *MembershipRepository) Get(roomID, userID uint) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.Where("room_id = ? AND user_id = ?", roomID, userID).
		First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

func (r *MembershipRepository) Create(membership *models.Membership) error {
	return r.db.Create(membership).Error
}

func (r *MembershipRepository) Save(membership *models.Membership) error {
	// Select("*") so false/nil zero values (cleared admin flag, cleared
	// leave markers) are written through.
	return r.db.Model(membership).Select("*").Omit("id", "created_at").Updates(membership).Error
}

// AdvanceLastRead moves the read marker forward, never backward.
func (r *MembershipRepository) AdvanceLastRead(roomID, userID uint, order int) error {
	return r.db.Model(&models.Membership{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("last_read_order", gorm.Expr("GREATEST(last_read_order, ?)", order)).
		Error
}

// ListActive returns active members joined-earliest first, which is also the
// admin promotion order after the sole admin leaves.
func (r *MembershipRepository) ListActive(roomID uint) ([]models.Membership, error) {
	var members []models.Membership
	err := r.db.Where("room_id = ? AND is_deleted = false", roomID).
		Order("created_at ASC").
		Find(&members).Error
	return members, err
}

func (r *MembershipRepository) ListDeleted(roomID uint) ([]models.Membership, error) {
	var members []models.Membership
	err := r.db.Where("room_id = ? AND is_deleted = true", roomID).
		Find(&members).Error
	return members, err
}

// FindPrivateRoom locates an existing private room containing both users by
// membership intersection. Returns 0 when no such room exists. Private rooms
// keep exactly two membership rows, so the intersection is unique.
func (r *MembershipRepository) FindPrivateRoom(userID, friendID uint) (uint, error) {
	var row struct {
		RoomID uint `gorm:"column:room_id"`
	}
	err := r.db.Raw(`
		SELECT m1.room_id AS room_id
		FROM memberships m1
		JOIN memberships m2 ON m2.room_id = m1.room_id AND m2.user_id = ?
		JOIN rooms r ON r.id = m1.room_id AND r.kind = ?
		WHERE m1.user_id = ?
		LIMIT 1
	`, friendID, models.PrivateRoom, userID).Scan(&row).Error
	return row.RoomID, err
}

// UnreadRows recomputes per-room unread counts from the durable store:
// GREATEST(maxOrder - lastReadOrder, 0) per active membership of the kind.
func (r *MembershipRepository) UnreadRows(userID uint, kind models.RoomKind) ([]UnreadRow, error) {
	var rows []UnreadRow
	err := r.db.Raw(`
		SELECT m.room_id AS room_id,
		       GREATEST(COALESCE(l.last_order, 0) - m.last_read_order, 0) AS unread
		FROM memberships m
		JOIN rooms r ON r.id = m.room_id AND r.kind = ?
		LEFT JOIN (
			SELECT room_id, MAX(message_order) AS last_order
			FROM messages
			GROUP BY room_id
		) l ON l.room_id = m.room_id
		WHERE m.user_id = ? AND m.is_deleted = false
	`, kind, userID).Scan(&rows).Error
	return rows, err
}

// ListPeers resolves the other active member of each private room the user
// belongs to, for room naming.
func (r *MembershipRepository) ListPeers(userID uint) ([]PeerRow, error) {
	var rows []PeerRow
	err := r.db.Raw(`
		SELECT m.room_id AS room_id, u.username AS username, u.grade AS grade
		FROM memberships m
		JOIN memberships o ON o.room_id = m.room_id AND o.user_id <> m.user_id
		JOIN users u ON u.id = o.user_id
		WHERE m.user_id = ? AND m.is_deleted = false
	`, userID).Scan(&rows).Error
	return rows, err
}

func (r *MembershipRepository) SetAllowNotification(roomID, userID uint, allow bool) error {
	return r.db.Model(&models.Membership{}).
		Where("room_id = ? AND user_id = ?", roomID, userID).
		Update("allow_notification", allow).Error
}

// NotificationTargets filters the given receivers down to those with
// notifications enabled both on their user profile and on this room's
// membership, and returns their sound/vibration flags.
func (r *MembershipRepository) NotificationTargets(roomID uint, userIDs []uint) ([]NotificationTarget, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var rows []NotificationTarget
	err := r.db.Raw(`
		SELECT u.id AS user_id, u.allow_sound AS allow_sound, u.allow_vibration AS allow_vibration
		FROM users u
		JOIN memberships m ON m.user_id = u.id AND m.room_id = ? AND m.is_deleted = false
		WHERE u.id IN ?
		  AND u.allow_notification = true
		  AND m.allow_notification = true
	`, roomID, userIDs).Scan(&rows).Error
	return rows, err
}
