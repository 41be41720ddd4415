package service

import (
	"context"

	"github.com/Skotchmaster/snapbuy/pkg/events"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/models"
)

const (
	EventUserRegistered = "user_registered"
	EventUserSignedIn   = "user_signed_in"
	EventRefreshRotated = "refresh_rotated"
	EventMagicLinkSent  = "magic_link_sent"
	EventOtpVerified    = "otp_verified"
)

func publish(ctx context.Context, pub events.Publisher, typ string, u *models.User, at Clock, attrs map[string]any) {
	if pub == nil || u == nil {
		return
	}
	ev := events.NewEvent(typ, u.ID, u.Email, at.now())
	ev.Attrs = attrs
	// Publishers are wrapped in events.Async; the error is already logged there.
	_ = pub.PublishEvent(ctx, events.TopicUserEvents, ev.Email, ev)
}
