package stores

import (
	"context"

	"github.com/fullmargin/factures/models"
	"gorm.io/gorm"
)

type UserStore struct {
	BaseStore
}

func CreateUserStore(db *gorm.DB) *UserStore {
	return &UserStore{BaseStore: BaseStore{db: db}}
}

func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	return s.GetDB(ctx).Create(user).Error
}

func (s *UserStore) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	if err := s.GetDB(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.GetDB(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}
