package postgresadapter

import (
	"context"
	"errors"
	"strings"

	domainerrors "gatehouse/contexts/access-control/entitlement-service/domain/errors"
	"gatehouse/contexts/access-control/entitlement-service/ports"

	"gorm.io/gorm"
)

// IdentityRepository resolves identity facts from the shared users table
// owned by the identity provider.
type IdentityRepository struct {
	db *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

func (r *IdentityRepository) ResolveUser(ctx context.Context, userID string) (ports.User, error) {
	var row userModel
	err := r.db.WithContext(ctx).
		Where("id = ?", strings.TrimSpace(userID)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ports.User{}, domainerrors.ErrUserNotFound
		}
		return ports.User{}, err
	}
	return ports.User{
		ID:            row.ID,
		Email:         row.Email,
		EmailVerified: row.EmailVerified,
	}, nil
}

type userModel struct {
	ID            string `gorm:"column:id;primaryKey"`
	Email         string `gorm:"column:email"`
	EmailVerified bool   `gorm:"column:email_verified"`
}

func (userModel) TableName() string {
	return "users"
}

var _ ports.IdentityProvider = (*IdentityRepository)(nil)
