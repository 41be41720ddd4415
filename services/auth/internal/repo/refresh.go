package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/snapbuy/services/auth/internal/models"
)

type RefreshStore interface {
	// Replace stores rt as the only refresh token of rt.UserID.
	Replace(ctx context.Context, rt *models.RefreshToken) error
	FindByToken(ctx context.Context, token string) (*models.RefreshToken, error)
	DeleteByToken(ctx context.Context, token string) (bool, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)
}

type RefreshRepo struct{ DB *gorm.DB }

func (r *RefreshRepo) Replace(ctx context.Context, rt *models.RefreshToken) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "issued_at", "expires_at"}),
	}).Create(rt).Error
}

func (r *RefreshRepo) FindByToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	var rt models.RefreshToken
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&rt).Error; err != nil {
		return nil, notFound(err)
	}
	return &rt, nil
}

func (r *RefreshRepo) DeleteByToken(ctx context.Context, token string) (bool, error) {
	res := r.DB.WithContext(ctx).Where("token = ?", token).Delete(&models.RefreshToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *RefreshRepo) CountByUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.RefreshToken{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}
