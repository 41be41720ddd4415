package service

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/snapbuy/services/auth/internal/notify"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/repo"
)

func linkToken(t *testing.T, body string) string {
	t.Helper()
	for _, field := range strings.Fields(body) {
		if !strings.HasPrefix(field, "https://") {
			continue
		}
		u, err := url.Parse(field)
		require.NoError(t, err)
		assert.Equal(t, MagicLinkPath, u.Path)
		return u.Query().Get("token")
	}
	t.Fatalf("no link in %q", body)
	return ""
}

func TestLoginURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		base, want string
	}{
		{base: "http://localhost:8080", want: "http://localhost:8080/api/ott/login?token=abc-_1"},
		{base: "https://shop.snapbuy.app/", want: "https://shop.snapbuy.app/api/ott/login?token=abc-_1"},
		{base: "https://snapbuy.app/store", want: "https://snapbuy.app/store/api/ott/login?token=abc-_1"},
	}
	for _, tt := range tests {
		got, err := LoginURL(tt.base, "abc-_1")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}

func TestMagicLink_RoundTrip(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	u := f.seedUser(t, "magic@snapbuy.app", "pw")

	require.NoError(t, f.ott.Generate(ctx, "magic@snapbuy.app"))

	msg := f.sender.last()
	assert.Equal(t, notify.ChannelEmail, msg.Channel)
	assert.Equal(t, "magic@snapbuy.app", msg.To)
	assert.Equal(t, MagicLinkSubject, msg.Subject)
	token := linkToken(t, msg.Body)
	require.NotEmpty(t, token)

	stored, err := f.repo.OneTimeTokens.FindByToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, u.ID, stored.UserID)
	assert.True(t, base.Add(15*time.Minute).Equal(stored.ExpiresAt))

	f.advance(time.Minute)
	pair, err := f.ott.Redeem(ctx, token)
	require.NoError(t, err)
	require.NotEmpty(t, pair.RefreshToken)

	sub, err := f.signer.ExtractSubject(pair.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, u.Email, sub)
	assert.True(t, f.signer.Validate(pair.AccessToken, u.Email))

	_, err = f.ledger.FindValid(ctx, pair.RefreshToken)
	require.NoError(t, err)

	_, err = f.ott.Redeem(ctx, token)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	assert.Equal(t, []string{EventMagicLinkSent, EventUserSignedIn}, f.pub.seen())
}

func TestMagicLink_ExpiredTokenIsRemoved(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "late@snapbuy.app", "pw")

	require.NoError(t, f.ott.Generate(ctx, "late@snapbuy.app"))
	token := linkToken(t, f.sender.last().Body)

	f.advance(16 * time.Minute)

	_, err := f.ott.Redeem(ctx, token)
	require.ErrorIs(t, err, ErrTokenExpired)
	var tokErr *TokenError
	require.True(t, errors.As(err, &tokErr))
	assert.Equal(t, KindOTT, tokErr.Kind)

	_, err = f.repo.OneTimeTokens.FindByToken(ctx, token)
	assert.ErrorIs(t, err, repo.ErrNotFound)
}

func TestMagicLink_NewLinkReplacesOld(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()
	f.seedUser(t, "twice@snapbuy.app", "pw")

	require.NoError(t, f.ott.Generate(ctx, "twice@snapbuy.app"))
	first := linkToken(t, f.sender.last().Body)
	require.NoError(t, f.ott.Generate(ctx, "twice@snapbuy.app"))
	second := linkToken(t, f.sender.last().Body)
	require.NotEqual(t, first, second)

	_, err := f.ott.Redeem(ctx, first)
	assert.ErrorIs(t, err, ErrTokenInvalid)

	_, err = f.ott.Redeem(ctx, second)
	require.NoError(t, err)
}

func TestMagicLink_GenerateFailures(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	assert.ErrorIs(t, f.ott.Generate(ctx, "ghost@snapbuy.app"), ErrUserNotFound)

	f.seedUser(t, "offline@snapbuy.app", "pw")
	f.sender.err = errors.New("smtp down")
	assert.ErrorIs(t, f.ott.Generate(ctx, "offline@snapbuy.app"), ErrMessageDispatchFailed)
}

func TestMagicLink_RedeemUnknown(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	for _, token := range []string{"", "nope"} {
		_, err := f.ott.Redeem(context.Background(), token)
		assert.ErrorIs(t, err, ErrTokenInvalid, token)
	}
}
