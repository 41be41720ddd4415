package repo

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Skotchmaster/snapbuy/services/auth/internal/models"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("record already exists")
)

type GormRepo struct {
	DB *gorm.DB

	Users         *UserRepo
	RefreshTokens *RefreshRepo
	Otps          *OtpRepo
	OneTimeTokens *OttRepo
}

func New(db *gorm.DB) *GormRepo {
	return &GormRepo{
		DB:            db,
		Users:         &UserRepo{DB: db},
		RefreshTokens: &RefreshRepo{DB: db},
		Otps:          &OtpRepo{DB: db},
		OneTimeTokens: &OttRepo{DB: db},
	}
}

func (r *GormRepo) Migrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(models.All()...)
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
