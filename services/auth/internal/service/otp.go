package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/Skotchmaster/snapbuy/pkg/events"
	"github.com/Skotchmaster/snapbuy/pkg/logging"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/models"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/notify"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/repo"
)

const (
	DefaultOtpLength   = 6
	DefaultOtpTTL      = 5 * time.Minute
	DefaultCountryCode = "+91"

	MsgOtpSent       = "OTP sent successfully"
	MsgOtpSendFailed = "Failed to send OTP"
	MsgOtpExpired    = "OTP has expired"
	MsgOtpInvalid    = "Invalid OTP"
	MsgOtpVerified   = "Verified successfully!"
	MsgOtpNotFound   = "No OTP found"
)

type OtpRequest struct {
	Phone string
	Email string
	Otp   string
}

// OtpResult is the envelope returned to clients. Reason carries the typed failure.
type OtpResult struct {
	Success   bool       `json:"success"`
	Message   string     `json:"message"`
	ExpiresAt *time.Time `json:"expiresAt"`
	Reason    error      `json:"-"`
}

func otpFailure(msg string, reason error) OtpResult {
	return OtpResult{Success: false, Message: msg, Reason: reason}
}

type OTPVerifier struct {
	Users  repo.UserStore
	Store  repo.OtpStore
	Sender notify.Sender
	Events events.Publisher

	Length      int
	TTL         time.Duration
	CountryCode string
	Clock       Clock
}

func (v *OTPVerifier) length() int {
	if v.Length <= 0 {
		return DefaultOtpLength
	}
	return v.Length
}

func (v *OTPVerifier) ttl() time.Duration {
	if v.TTL <= 0 {
		return DefaultOtpTTL
	}
	return v.TTL
}

func (v *OTPVerifier) Normalize(phone string) string {
	cc := v.CountryCode
	if cc == "" {
		cc = DefaultCountryCode
	}
	return NormalizePhone(phone, cc)
}

// NormalizePhone prefixes countryCode unless the number already carries a "+" prefix.
func NormalizePhone(phone, countryCode string) string {
	phone = strings.TrimSpace(phone)
	if phone == "" || strings.HasPrefix(phone, "+") {
		return phone
	}
	return countryCode + phone
}

func generateDigits(n int) (string, error) {
	var sb strings.Builder
	sb.Grow(n)
	ten := big.NewInt(10)
	for i := 0; i < n; i++ {
		d, err := rand.Int(rand.Reader, ten)
		if err != nil {
			return "", fmt.Errorf("read random digit: %w", err)
		}
		sb.WriteByte(byte('0' + d.Int64()))
	}
	return sb.String(), nil
}

func (v *OTPVerifier) Send(ctx context.Context, req OtpRequest) (OtpResult, error) {
	phone := v.Normalize(req.Phone)
	l := logging.FromContext(ctx).With("svc", "otp.send", "phone", notify.Mask(phone))

	if phone == "" {
		return OtpResult{}, fmt.Errorf("%w: phone is required", ErrValidation)
	}

	if _, err := v.CleanupExpired(ctx); err != nil {
		l.Warn("otp_cleanup_failed", "error", err)
	}

	code, err := generateDigits(v.length())
	if err != nil {
		return OtpResult{}, err
	}

	now := v.Clock.now()
	row := &models.OtpVerification{
		Phone:     phone,
		Otp:       code,
		CreatedAt: now,
		ExpiresAt: now.Add(v.ttl()),
	}
	if err := v.Store.Create(ctx, row); err != nil {
		l.Error("otp_store_failed", "status", 500, "error", err)
		return OtpResult{}, fmt.Errorf("store otp: %w", err)
	}

	msg := notify.Message{
		Channel: notify.ChannelSMS,
		To:      phone,
		Body:    fmt.Sprintf("Your SnapBuy verification code is %s. It expires in %d minutes.", code, int(v.ttl().Minutes())),
	}
	if err := v.Sender.Send(ctx, msg); err != nil {
		l.Warn("otp_send_failed", "status", 502, "error", err)
		return otpFailure(MsgOtpSendFailed, ErrMessageDispatchFailed), nil
	}

	l.Info("otp_sent", "expires_at", row.ExpiresAt)
	exp := row.ExpiresAt
	return OtpResult{Success: true, Message: MsgOtpSent, ExpiresAt: &exp}, nil
}

// Verify fails hard only when the account is unknown or storage breaks. Every other
// outcome is reported through the result.
func (v *OTPVerifier) Verify(ctx context.Context, req OtpRequest) (OtpResult, error) {
	phone := v.Normalize(req.Phone)
	l := logging.FromContext(ctx).With("svc", "otp.verify", "phone", notify.Mask(phone))

	user, err := v.Users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("otp_verify_failed", "status", 404, "reason", "user not found")
			return OtpResult{}, ErrUserNotFound
		}
		return OtpResult{}, err
	}

	row, err := v.Store.LatestUnverified(ctx, phone)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return otpFailure(MsgOtpNotFound, ErrOtpNotFound), nil
		}
		return OtpResult{}, err
	}

	if row.ExpiredAt(v.Clock.now()) {
		l.Info("otp_verify_failed", "reason", "expired")
		return otpFailure(MsgOtpExpired, ErrOtpExpired), nil
	}

	if subtle.ConstantTimeCompare([]byte(row.Otp), []byte(req.Otp)) != 1 {
		l.Info("otp_verify_failed", "reason", "mismatch")
		return otpFailure(MsgOtpInvalid, ErrOtpMismatch), nil
	}

	if err := v.Store.MarkVerified(ctx, row.ID, user.ID); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			// lost a race with a concurrent verify of the same code
			return otpFailure(MsgOtpNotFound, ErrOtpNotFound), nil
		}
		return OtpResult{}, err
	}

	l.Info("otp_verified", "user_id", user.ID)
	publish(ctx, v.Events, EventOtpVerified, user, v.Clock, map[string]any{"phone": notify.Mask(phone)})

	exp := row.ExpiresAt
	return OtpResult{Success: true, Message: MsgOtpVerified, ExpiresAt: &exp}, nil
}

// Resend drops every pending code for the phone before sending a new one.
func (v *OTPVerifier) Resend(ctx context.Context, req OtpRequest) (OtpResult, error) {
	phone := v.Normalize(req.Phone)
	if _, err := v.Store.DeleteUnverified(ctx, phone); err != nil {
		return OtpResult{}, fmt.Errorf("clear pending otps: %w", err)
	}
	req.Phone = phone
	return v.Send(ctx, req)
}

func (v *OTPVerifier) IsPhoneVerified(ctx context.Context, phone string) (bool, error) {
	return v.Store.HasVerified(ctx, v.Normalize(phone))
}

func (v *OTPVerifier) CleanupExpired(ctx context.Context) (int64, error) {
	return v.Store.DeleteExpired(ctx, v.Clock.now())
}

// RunCleanup sweeps expired codes every interval until ctx is done. A non-positive
// interval disables the sweep.
func (v *OTPVerifier) RunCleanup(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	l := logging.FromContext(ctx).With("svc", "otp.cleanup")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := v.CleanupExpired(ctx)
			if err != nil {
				l.Error("otp_cleanup_failed", "error", err)
				continue
			}
			if n > 0 {
				l.Info("otp_cleanup_done", "deleted", n)
			}
		}
	}
}
