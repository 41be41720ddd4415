package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Skotchmaster/snapbuy/pkg/events"
	"github.com/Skotchmaster/snapbuy/pkg/logging"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/models"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/notify"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/repo"
)

const (
	DefaultOttTTL    = 15 * time.Minute
	MagicLinkPath    = "/api/ott/login"
	MagicLinkSubject = "Your SnapBuy Sign-In Link"
	MsgMagicLinkSent = "Magic link sent to your email. Please check your inbox."
)

type MagicLinkIssuer struct {
	Users  repo.UserStore
	Store  repo.OttStore
	Sender notify.Sender
	Pairs  *PairIssuer
	Events events.Publisher

	TTL     time.Duration
	BaseURL string
	Clock   Clock
}

func (m *MagicLinkIssuer) ttl() time.Duration {
	if m.TTL <= 0 {
		return DefaultOttTTL
	}
	return m.TTL
}

// LoginURL builds the redemption link for token under baseURL.
func LoginURL(baseURL, token string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("parse app base url: %w", err)
	}
	u = u.JoinPath(MagicLinkPath)
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (m *MagicLinkIssuer) Generate(ctx context.Context, email string) error {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "ott.generate", "email", notify.Mask(email))

	user, err := m.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("magic_link_failed", "status", 404, "reason", "user not found")
			return ErrUserNotFound
		}
		return err
	}

	value, err := newOpaqueToken()
	if err != nil {
		return err
	}
	ott := &models.OneTimeToken{
		Token:     value,
		UserID:    user.ID,
		ExpiresAt: m.Clock.now().Add(m.ttl()),
	}
	if err := m.Store.Replace(ctx, ott); err != nil {
		return fmt.Errorf("store one-time token: %w", err)
	}

	link, err := LoginURL(m.BaseURL, value)
	if err != nil {
		return err
	}

	msg := notify.Message{
		Channel: notify.ChannelEmail,
		To:      user.Email,
		Subject: MagicLinkSubject,
		Body: fmt.Sprintf("Hi %s,\n\nClick the link below to sign in to SnapBuy:\n%s\n\nThe link expires in %d minutes and works once.",
			user.Name, link, int(m.ttl().Minutes())),
	}
	if err := m.Sender.Send(ctx, msg); err != nil {
		l.Error("magic_link_failed", "status", 502, "error", err)
		return fmt.Errorf("%w: %v", ErrMessageDispatchFailed, err)
	}

	l.Info("magic_link_sent", "user_id", user.ID)
	publish(ctx, m.Events, EventMagicLinkSent, user, m.Clock, nil)
	return nil
}

// Redeem exchanges a magic-link token for a token pair. The link works once.
func (m *MagicLinkIssuer) Redeem(ctx context.Context, token string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "ott.redeem")

	if token == "" {
		return nil, tokenErr(KindOTT, ErrTokenInvalid)
	}

	ott, err := m.Store.FindByToken(ctx, token)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("magic_link_redeem_failed", "status", 401, "reason", "unknown token")
			return nil, tokenErr(KindOTT, ErrTokenInvalid)
		}
		return nil, err
	}

	consumed, err := m.Store.Consume(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("consume one-time token: %w", err)
	}

	if ott.ExpiredAt(m.Clock.now()) {
		l.Info("magic_link_redeem_failed", "status", 401, "reason", "expired", "user_id", ott.UserID)
		return nil, tokenErr(KindOTT, ErrTokenExpired)
	}
	if !consumed {
		// another request redeemed it between lookup and delete
		return nil, tokenErr(KindOTT, ErrTokenInvalid)
	}

	user, err := m.Users.FindByID(ctx, ott.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	pair, err := m.Pairs.Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	l.Info("magic_link_redeemed", "user_id", user.ID)
	publish(ctx, m.Events, EventUserSignedIn, user, m.Clock, map[string]any{"method": "magic_link"})
	return pair, nil
}
