package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/snapbuy/pkg/events"
	pkg_hash "github.com/Skotchmaster/snapbuy/pkg/hash"
	"github.com/Skotchmaster/snapbuy/pkg/logging"
	"github.com/Skotchmaster/snapbuy/pkg/tokens"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/models"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/notify"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/repo"
)

type AuthService struct {
	Users  repo.UserStore
	Signer *tokens.Signer
	Ledger *RefreshLedger
	OTP    *OTPVerifier
	Events events.Publisher

	// AdminKey grants the ADMIN role at sign-up. Empty disables admin sign-up.
	AdminKey    string
	RotateOnUse bool
	Clock       Clock
}

type SignUpInput struct {
	Name     string
	Email    string
	Password string
	Phone    string
	AdminKey string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *AuthService) pairs() *PairIssuer {
	return &PairIssuer{Signer: s.Signer, Ledger: s.Ledger}
}

func (s *AuthService) isAdminKey(key string) bool {
	if s.AdminKey == "" || key == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(key), []byte(s.AdminKey)) == 1
}

func (s *AuthService) SignUp(ctx context.Context, in SignUpInput) (*TokenPair, error) {
	email := normalizeEmail(in.Email)
	l := logging.FromContext(ctx).With("svc", "auth.signup", "email", notify.Mask(email))

	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	pwHash, err := pkg_hash.HashPassword(in.Password)
	if err != nil {
		l.Error("signup_error", "status", 500, "reason", "cannot hash the password", "error", err)
		return nil, err
	}

	role := models.RoleUser
	if s.isAdminKey(in.AdminKey) {
		role = models.RoleAdmin
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        email,
		PasswordHash: pwHash,
		Roles:        []string{role},
		Phone:        in.Phone,
		Provider:     models.ProviderLocal,
	}
	if s.OTP != nil && in.Phone != "" {
		user.Phone = s.OTP.Normalize(in.Phone)
	}

	if err := s.Users.Create(ctx, user); err != nil {
		if errors.Is(err, repo.ErrDuplicate) {
			l.Warn("signup_error", "status", 409, "reason", "user already exists")
			return nil, ErrUserAlreadyExists
		}
		l.Error("signup_error", "status", 500, "error", err)
		return nil, err
	}

	pair, err := s.pairs().Issue(ctx, user)
	if err != nil {
		return nil, err
	}

	l.Info("signup_successful", "user_id", user.ID, "role", role)
	publish(ctx, s.Events, EventUserRegistered, user, s.Clock, map[string]any{"role": role})
	return pair, nil
}

func (s *AuthService) SignInPassword(ctx context.Context, email, password string) (*TokenPair, error) {
	email = normalizeEmail(email)
	l := logging.FromContext(ctx).With("svc", "auth.signin", "email", notify.Mask(email))

	if email == "" || password == "" {
		return nil, fmt.Errorf("%w: email and password are required", ErrValidation)
	}

	user, err := s.Users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			l.Warn("login_failed", "status", 401, "reason", "unknown email")
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !pkg_hash.CheckPassword(user.PasswordHash, password) {
		l.Warn("login_failed", "status", 401, "reason", "wrong password")
		return nil, ErrInvalidCredentials
	}

	return s.signedIn(ctx, user, "password")
}

// SignInOTP signs in with a phone code; the code must verify for the account's email.
func (s *AuthService) SignInOTP(ctx context.Context, req OtpRequest) (*TokenPair, error) {
	if s.OTP == nil {
		return nil, errors.New("otp sign-in is not configured")
	}

	res, err := s.OTP.Verify(ctx, req)
	if err != nil {
		return nil, err
	}
	if !res.Success {
		return nil, res.Reason
	}

	user, err := s.Users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return s.signedIn(ctx, user, "otp")
}

func (s *AuthService) signedIn(ctx context.Context, user *models.User, method string) (*TokenPair, error) {
	pair, err := s.pairs().Issue(ctx, user)
	if err != nil {
		logging.FromContext(ctx).Error("login_failed", "status", 500, "error", err)
		return nil, err
	}
	logging.FromContext(ctx).Info("login_successful", "user_id", user.ID, "method", method)
	publish(ctx, s.Events, EventUserSignedIn, user, s.Clock, map[string]any{"method": method})
	return pair, nil
}

// Refresh trades a live refresh token for a new access token. With RotateOnUse the
// presented refresh token is replaced as well.
func (s *AuthService) Refresh(ctx context.Context, token string) (*TokenPair, error) {
	l := logging.FromContext(ctx).With("svc", "auth.refresh")

	rt, err := s.Ledger.FindValid(ctx, token)
	if err != nil {
		l.Warn("refresh_failed", "status", 401, "error", err)
		return nil, err
	}

	user, err := s.Users.FindByID(ctx, rt.UserID)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	access, err := s.Signer.Issue(user.Principal())
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}

	if !s.RotateOnUse {
		return &TokenPair{AccessToken: access, RefreshToken: rt.Token}, nil
	}

	next, err := s.Ledger.CreateFor(ctx, user)
	if err != nil {
		return nil, err
	}
	l.Info("refresh_rotated", "user_id", user.ID)
	publish(ctx, s.Events, EventRefreshRotated, user, s.Clock, nil)
	return &TokenPair{AccessToken: access, RefreshToken: next.Token}, nil
}

func (s *AuthService) SignOut(ctx context.Context, token string) error {
	if err := s.Ledger.Revoke(ctx, token); err != nil {
		logging.FromContext(ctx).Error("logout_failed", "status", 500, "reason", "cannot revoke refresh token", "error", err)
		return err
	}
	return nil
}
