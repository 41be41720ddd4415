package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Skotchmaster/snapbuy/pkg/logging"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/models"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/repo"
)

const DefaultRefreshTTL = 15 * 24 * time.Hour

// RefreshLedger keeps at most one live refresh token per user.
type RefreshLedger struct {
	Users repo.UserStore
	Store repo.RefreshStore
	TTL   time.Duration
	Clock Clock
}

func (l *RefreshLedger) ttl() time.Duration {
	if l.TTL <= 0 {
		return DefaultRefreshTTL
	}
	return l.TTL
}

func (l *RefreshLedger) Create(ctx context.Context, email string) (*models.RefreshToken, error) {
	user, err := l.Users.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return l.CreateFor(ctx, user)
}

// CreateFor replaces whatever refresh token user had with a fresh one.
func (l *RefreshLedger) CreateFor(ctx context.Context, user *models.User) (*models.RefreshToken, error) {
	value, err := newOpaqueToken()
	if err != nil {
		return nil, err
	}

	now := l.Clock.now()
	rt := &models.RefreshToken{
		Token:     value,
		UserID:    user.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(l.ttl()),
	}
	if err := l.Store.Replace(ctx, rt); err != nil {
		return nil, fmt.Errorf("store refresh token: %w", err)
	}
	return rt, nil
}

func (l *RefreshLedger) FindValid(ctx context.Context, token string) (*models.RefreshToken, error) {
	if token == "" {
		return nil, tokenErr(KindRefresh, ErrTokenInvalid)
	}
	rt, err := l.Store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, tokenErr(KindRefresh, ErrTokenInvalid)
		}
		return nil, err
	}
	return l.VerifyExpiry(ctx, rt)
}

// VerifyExpiry deletes rt and fails once it is past its expiry.
func (l *RefreshLedger) VerifyExpiry(ctx context.Context, rt *models.RefreshToken) (*models.RefreshToken, error) {
	if !rt.ExpiredAt(l.Clock.now()) {
		return rt, nil
	}
	if _, err := l.Store.DeleteByToken(ctx, rt.Token); err != nil {
		logging.FromContext(ctx).Error("refresh_delete_failed", "user_id", rt.UserID, "error", err)
		return nil, err
	}
	return nil, tokenErr(KindRefresh, ErrTokenExpired)
}

func (l *RefreshLedger) Revoke(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	_, err := l.Store.DeleteByToken(ctx, token)
	return err
}
