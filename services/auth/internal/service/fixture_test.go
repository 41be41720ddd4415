package service

import (
	"context"
	"encoding/base64"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/snapbuy/pkg/events"
	pkg_hash "github.com/Skotchmaster/snapbuy/pkg/hash"
	"github.com/Skotchmaster/snapbuy/pkg/tokens"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/models"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/notify"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/repo"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/testdb"
)

var (
	base       = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	testSecret = base64.StdEncoding.EncodeToString([]byte("service-test-secret-for-hs512-signing"))
)

type captureSender struct {
	mu   sync.Mutex
	msgs []notify.Message
	err  error
}

func (c *captureSender) Send(_ context.Context, msg notify.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *captureSender) last() notify.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.msgs) == 0 {
		return notify.Message{}
	}
	return c.msgs[len(c.msgs)-1]
}

type capturePublisher struct {
	mu    sync.Mutex
	types []string
}

func (c *capturePublisher) PublishEvent(_ context.Context, topic, _ string, event any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ev, ok := event.(events.Event); ok && topic == events.TopicUserEvents {
		c.types = append(c.types, ev.Type)
	}
	return nil
}

func (c *capturePublisher) seen() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.types...)
}

type fixture struct {
	mu  sync.Mutex
	now time.Time

	repo   *repo.GormRepo
	sender *captureSender
	pub    *capturePublisher
	signer *tokens.Signer
	ledger *RefreshLedger
	otp    *OTPVerifier
	ott    *MagicLinkIssuer
	auth   *AuthService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		now:    base,
		repo:   repo.New(testdb.New(t)),
		sender: &captureSender{},
		pub:    &capturePublisher{},
	}
	clock := Clock(f.clock)

	signer, err := tokens.NewSigner(testSecret, time.Hour)
	require.NoError(t, err)
	f.signer = signer.WithClock(f.clock)

	f.ledger = &RefreshLedger{
		Users: f.repo.Users,
		Store: f.repo.RefreshTokens,
		TTL:   24 * time.Hour,
		Clock: clock,
	}
	f.otp = &OTPVerifier{
		Users:       f.repo.Users,
		Store:       f.repo.Otps,
		Sender:      f.sender,
		Events:      f.pub,
		Length:      6,
		TTL:         5 * time.Minute,
		CountryCode: "+91",
		Clock:       clock,
	}
	f.ott = &MagicLinkIssuer{
		Users:   f.repo.Users,
		Store:   f.repo.OneTimeTokens,
		Sender:  f.sender,
		Pairs:   &PairIssuer{Signer: f.signer, Ledger: f.ledger},
		Events:  f.pub,
		TTL:     15 * time.Minute,
		BaseURL: "https://shop.snapbuy.app",
		Clock:   clock,
	}
	f.auth = &AuthService{
		Users:       f.repo.Users,
		Signer:      f.signer,
		Ledger:      f.ledger,
		OTP:         f.otp,
		Events:      f.pub,
		AdminKey:    "letmein",
		RotateOnUse: true,
		Clock:       clock,
	}
	return f
}

func (f *fixture) clock() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func (f *fixture) seedUser(t *testing.T, email, password string) *models.User {
	t.Helper()
	pw, err := pkg_hash.HashPassword(password)
	require.NoError(t, err)
	u := &models.User{
		Name:         "Test User",
		Email:        email,
		PasswordHash: pw,
		Roles:        []string{models.RoleUser},
		Provider:     models.ProviderLocal,
	}
	require.NoError(t, f.repo.Users.Create(context.Background(), u))
	return u
}

func (f *fixture) pendingCode(t *testing.T, phone string) *models.OtpVerification {
	t.Helper()
	row, err := f.repo.Otps.LatestUnverified(context.Background(), phone)
	require.NoError(t, err)
	return row
}
