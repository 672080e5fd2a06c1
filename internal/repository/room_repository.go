package repository

import (
	"github.com/punchking466/workchat-backend-v2/internal/models"
	"gorm.io/gorm"
)

type RoomRepository struct {
	db *gorm.DB
}

func NewRoomRepository(db *gorm.DB) *RoomRepository {
	return &RoomRepository{db: db}
}

func (r *RoomRepository) Create(room *models.Room) error {
	return r.db.Create(room).Error
}

// CreateWithMembers creates the room and its initial membership rows in one
// transaction, so a half-created room can never be observed.
func (r *RoomRepository) CreateWithMembers(room *models.Room, memberships []*models.Membership) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(room).Error; err != nil {
			return err
		}
		for _, membership := range memberships {
			membership.RoomID = room.ID
			if err := tx.Create(membership).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *RoomRepository) FindByID(id uint) (*models.Room, error) {
	var room models.Room
	err := r.db.First(&room, id).Error
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *RoomRepository) Exists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.Room{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// DeleteCascade removes a room together with its messages and memberships in
// one transaction. Called when the last active member leaves.
func (r *RoomRepository) DeleteCascade(roomID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		if err := tx.Where("room_id = ?", roomID).Delete(&models.Membership{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Room{}, roomID).Error
	})
}
