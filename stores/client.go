package stores

import (
	"context"

	"github.com/fullmargin/factures/models"
	"gorm.io/gorm"
)

type ClientStore struct {
	BaseStore
}

func CreateClientStore(db *gorm.DB) *ClientStore {
	return &ClientStore{BaseStore: BaseStore{db: db}}
}

func (s *ClientStore) Create(ctx context.Context, client *models.Client) error {
	return s.GetDB(ctx).Create(client).Error
}

func (s *ClientStore) ListByOwner(ctx context.Context, userID uint) ([]models.Client, error) {
	var clients []models.Client
	err := s.GetDB(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Find(&clients).Error
	return clients, err
}

// GetOwned returns gorm.ErrRecordNotFound when the client is missing or belongs to someone else.
func (s *ClientStore) GetOwned(ctx context.Context, id, userID uint) (*models.Client, error) {
	var client models.Client
	if err := s.GetDB(ctx).Where("id = ? AND user_id = ?", id, userID).First(&client).Error; err != nil {
		return nil, err
	}
	return &client, nil
}

func (s *ClientStore) Update(ctx context.Context, client *models.Client) error {
	return s.GetDB(ctx).
		Model(client).
		Select("name", "email", "phone", "address").
		Updates(client).Error
}

func (s *ClientStore) Delete(ctx context.Context, id, userID uint) error {
	return s.GetDB(ctx).Where("id = ? AND user_id = ?", id, userID).Delete(&models.Client{}).Error
}
