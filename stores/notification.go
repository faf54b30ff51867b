package stores

import (
	"context"

	"github.com/fullmargin/factures/models"
	"gorm.io/gorm"
)

type NotificationStore struct {
	BaseStore
}

func CreateNotificationStore(db *gorm.DB) *NotificationStore {
	return &NotificationStore{BaseStore: BaseStore{db: db}}
}

// Notify records a notification for userID.
func (s *NotificationStore) Notify(ctx context.Context, userID uint, kind, content string) error {
	return s.GetDB(ctx).Create(&models.Notification{
		Type:    kind,
		Content: content,
		UserID:  userID,
	}).Error
}

func (s *NotificationStore) ListForUser(ctx context.Context, userID uint, limit int) ([]models.Notification, error) {
	var notifications []models.Notification
	err := s.GetDB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&notifications).Error
	return notifications, err
}

func (s *NotificationStore) CountUnread(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := s.GetDB(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	return count, err
}

func (s *NotificationStore) MarkRead(ctx context.Context, id, userID uint) error {
	result := s.GetDB(ctx).
		Model(&models.Notification{}).
		Where("id = ? AND user_id = ?", id, userID).
		Update("read", true)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		var exists int64
		if err := s.GetDB(ctx).Model(&models.Notification{}).Where("id = ? AND user_id = ?", id, userID).Count(&exists).Error; err != nil {
			return err
		}
		if exists == 0 {
			return gorm.ErrRecordNotFound
		}
	}
	return nil
}

func (s *NotificationStore) MarkAllRead(ctx context.Context, userID uint) (int64, error) {
	result := s.GetDB(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	return result.RowsAffected, result.Error
}

func (s *NotificationStore) Delete(ctx context.Context, id, userID uint) error {
	result := s.GetDB(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Notification{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
