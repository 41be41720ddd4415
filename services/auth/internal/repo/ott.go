package repo

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/Skotchmaster/snapbuy/services/auth/internal/models"
)

type OttStore interface {
	Replace(ctx context.Context, ott *models.OneTimeToken) error
	FindByToken(ctx context.Context, token string) (*models.OneTimeToken, error)
	// Consume deletes the token and reports whether this call removed it.
	Consume(ctx context.Context, token string) (bool, error)
}

type OttRepo struct{ DB *gorm.DB }

func (r *OttRepo) Replace(ctx context.Context, ott *models.OneTimeToken) error {
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "expires_at"}),
	}).Create(ott).Error
}

func (r *OttRepo) FindByToken(ctx context.Context, token string) (*models.OneTimeToken, error) {
	var ott models.OneTimeToken
	if err := r.DB.WithContext(ctx).Where("token = ?", token).First(&ott).Error; err != nil {
		return nil, notFound(err)
	}
	return &ott, nil
}

func (r *OttRepo) Consume(ctx context.Context, token string) (bool, error) {
	res := r.DB.WithContext(ctx).Where("token = ?", token).Delete(&models.OneTimeToken{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
