package models

import (
	"time"

	"github.com/Skotchmaster/snapbuy/pkg/tokens"
)

const (
	RoleUser  = "USER"
	RoleAdmin = "ADMIN"

	ProviderLocal  = "LOCAL"
	ProviderGoogle = "GOOGLE"
)

type User struct {
	ID           uint      `gorm:"primaryKey;autoIncrement"   json:"id"`
	Name         string    `gorm:"not null"                   json:"name"`
	Email        string    `gorm:"uniqueIndex;not null"       json:"email"`
	PasswordHash string    `json:"-"`
	Roles        []string  `gorm:"serializer:json;not null"   json:"roles"`
	Phone        string    `gorm:"index"                      json:"phone,omitempty"`
	Provider     string    `gorm:"not null;default:LOCAL"     json:"provider"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) Principal() tokens.Principal {
	return tokens.Principal{
		UserID: u.ID,
		Email:  u.Email,
		Name:   u.Name,
		Roles:  append([]string(nil), u.Roles...),
	}
}

// RefreshToken is the single live refresh credential of a user.
type RefreshToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"token"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	IssuedAt  time.Time `gorm:"not null"             json:"issued_at"`
	ExpiresAt time.Time `gorm:"not null"             json:"expires_at"`
}

type OtpVerification struct {
	ID        uint      `gorm:"primaryKey"             json:"id"`
	Phone     string    `gorm:"index;not null"         json:"phone"`
	Otp       string    `gorm:"not null"               json:"-"`
	Verified  bool      `gorm:"not null;default:false" json:"verified"`
	UserID    *uint     `gorm:"index"                  json:"user_id,omitempty"`
	CreatedAt time.Time `gorm:"not null"               json:"created_at"`
	ExpiresAt time.Time `gorm:"index;not null"         json:"expires_at"`
}

// OneTimeToken backs a magic sign-in link.
type OneTimeToken struct {
	ID        uint      `gorm:"primaryKey"           json:"id"`
	Token     string    `gorm:"uniqueIndex;not null" json:"-"`
	UserID    uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	ExpiresAt time.Time `gorm:"not null"             json:"expires_at"`
}

func (t *RefreshToken) ExpiredAt(now time.Time) bool    { return now.After(t.ExpiresAt) }
func (o *OtpVerification) ExpiredAt(now time.Time) bool { return now.After(o.ExpiresAt) }
func (t *OneTimeToken) ExpiredAt(now time.Time) bool    { return now.After(t.ExpiresAt) }

func All() []any {
	return []any{&User{}, &RefreshToken{}, &OtpVerification{}, &OneTimeToken{}}
}
