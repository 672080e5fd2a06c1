package repository

import (
	"github.com/punchking466/workchat-backend-v2/internal/models"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) FindByID(id uint) (*models.User, error) {
	var user models.User
	err := r.db.First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) Exists(id uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.User{}).Where("id = ?", id).Count(&count).Error
	return count > 0, err
}

// UpdateNotificationPrefs persists a user's global notification switches.
func (r *UserRepository) UpdateNotificationPrefs(userID uint, allowNotification, allowSound, allowVibration bool) error {
	return r.db.Model(&models.User{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"allow_notification": allowNotification,
		"allow_sound":        allowSound,
		"allow_vibration":    allowVibration,
	}).Error
}

// DisplayNames resolves sender names for a batch of user ids.
func (r *UserRepository) DisplayNames(ids []uint) (map[uint]string, error) {
	if len(ids) == 0 {
		return map[uint]string{}, nil
	}
	var users []models.User
	if err := r.db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	names := make(map[uint]string, len(users))
	for i := range users {
		names[users[i].ID] = users[i].DisplayName()
	}
	return names, nil
}
