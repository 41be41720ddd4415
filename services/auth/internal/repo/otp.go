package repo

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/Skotchmaster/snapbuy/services/auth/internal/models"
)

type OtpStore interface {
	Create(ctx context.Context, otp *models.OtpVerification) error
	// LatestUnverified returns the most recently created unverified code for phone.
	LatestUnverified(ctx context.Context, phone string) (*models.OtpVerification, error)
	MarkVerified(ctx context.Context, id, userID uint) error
	DeleteUnverified(ctx context.Context, phone string) (int64, error)
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
	HasVerified(ctx context.Context, phone string) (bool, error)
}

type OtpRepo struct{ DB *gorm.DB }

func (r *OtpRepo) Create(ctx context.Context, otp *models.OtpVerification) error {
	return r.DB.WithContext(ctx).Create(otp).Error
}

func (r *OtpRepo) LatestUnverified(ctx context.Context, phone string) (*models.OtpVerification, error) {
	var otp models.OtpVerification
	err := r.DB.WithContext(ctx).
		Where("phone = ? AND verified = ?", phone, false).
		Order("created_at DESC").Order("id DESC").
		First(&otp).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &otp, nil
}

func (r *OtpRepo) MarkVerified(ctx context.Context, id, userID uint) error {
	res := r.DB.WithContext(ctx).Model(&models.OtpVerification{}).
		Where("id = ? AND verified = ?", id, false).
		Updates(map[string]any{"verified": true, "user_id": userID})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *OtpRepo) DeleteUnverified(ctx context.Context, phone string) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("phone = ? AND verified = ?", phone, false).
		Delete(&models.OtpVerification{})
	return res.RowsAffected, res.Error
}

func (r *OtpRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	res := r.DB.WithContext(ctx).
		Where("expires_at < ?", before).
		Delete(&models.OtpVerification{})
	return res.RowsAffected, res.Error
}

func (r *OtpRepo) HasVerified(ctx context.Context, phone string) (bool, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.OtpVerification{}).
		Where("phone = ? AND verified = ?", phone, true).
		Count(&count).Error
	return count > 0, err
}
