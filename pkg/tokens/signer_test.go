package tokens

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = base64.StdEncoding.EncodeToString([]byte("test-jwt-secret-with-enough-bytes-for-hs512"))

func newTestSigner(t *testing.T, ttl time.Duration, now *time.Time) *Signer {
	t.Helper()
	s, err := NewSigner(testSecret, ttl)
	require.NoError(t, err)
	return s.WithClock(func() time.Time { return *now })
}

func testPrincipal() Principal {
	return Principal{UserID: 42, Email: "alice@snapbuy.app", Name: "Alice", Roles: []string{"USER"}}
}

func TestNewSigner_RejectsBadSecret(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		secret string
		ttl    time.Duration
	}{
		{name: "not base64", secret: "%%%", ttl: time.Minute},
		{name: "empty", secret: "", ttl: time.Minute},
		{name: "zero ttl", secret: testSecret, ttl: 0},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s, err := NewSigner(tt.secret, tt.ttl)
			require.Error(t, err)
			assert.Nil(t, s)
		})
	}
}

func TestSigner_Issue_SetsExpectedClaims(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newTestSigner(t, 30*time.Minute, &now)

	token, err := s.Issue(testPrincipal())
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := s.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@snapbuy.app", claims.Subject)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "Alice", claims.Name)
	assert.Equal(t, []string{"USER"}, claims.Roles)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, now.Equal(claims.IssuedAt.Time))
	assert.True(t, now.Add(30*time.Minute).Equal(claims.ExpiresAt.Time))

	exp, err := s.ExtractExpiry(token)
	require.NoError(t, err)
	assert.True(t, now.Add(30*time.Minute).Equal(exp))

	sub, err := s.ExtractSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@snapbuy.app", sub)

	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	require.NoError(t, err)
	assert.Equal(t, "HS512", parsed.Method.Alg())
}

func TestSigner_Validate_TimeWindow(t *testing.T) {
	t.Parallel()

	issuedAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := issuedAt
	s := newTestSigner(t, 30*time.Minute, &now)

	token, err := s.Issue(testPrincipal())
	require.NoError(t, err)

	assert.True(t, s.Validate(token, "alice@snapbuy.app"))
	assert.False(t, s.Validate(token, "bob@snapbuy.app"))

	now = issuedAt.Add(29 * time.Minute)
	assert.True(t, s.Validate(token, "alice@snapbuy.app"))

	now = issuedAt.Add(31 * time.Minute)
	assert.False(t, s.Validate(token, "alice@snapbuy.app"))

	_, err = s.ExtractSubject(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
	assert.NotErrorIs(t, err, ErrTokenInvalid)

	_, err = s.ExtractExpiry(token)
	assert.ErrorIs(t, err, ErrTokenExpired)
}

func TestSigner_Parse_RejectsForgedTokens(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s := newTestSigner(t, time.Hour, &now)

	otherSecret := base64.StdEncoding.EncodeToString([]byte("another-secret-entirely"))
	other, err := NewSigner(otherSecret, time.Hour)
	require.NoError(t, err)
	other = other.WithClock(func() time.Time { return now })
	foreign, err := other.Issue(testPrincipal())
	require.NoError(t, err)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "alice@snapbuy.app",
		"exp": now.Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name  string
		token string
	}{
		{name: "garbage", token: "not-a-jwt"},
		{name: "empty", token: ""},
		{name: "wrong key", token: foreign},
		{name: "alg none", token: unsigned},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := s.ExtractSubject(tt.token)
			assert.ErrorIs(t, err, ErrTokenInvalid)
			assert.NotErrorIs(t, err, ErrTokenExpired)
			assert.False(t, s.Validate(tt.token, "alice@snapbuy.app"))
		})
	}
}

func TestSigner_AcceptsTokenIssuedByClockAhead(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	ahead := now.Add(5 * time.Second)
	issuer := newTestSigner(t, 30*time.Minute, &ahead)
	verifier := newTestSigner(t, 30*time.Minute, &now)

	token, err := issuer.Issue(testPrincipal())
	require.NoError(t, err)

	sub, err := verifier.ExtractSubject(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@snapbuy.app", sub)
	assert.True(t, verifier.Validate(token, "alice@snapbuy.app"))

	live, err := NewSigner(testSecret, 30*time.Minute)
	require.NoError(t, err)
	fresh, err := live.WithClock(func() time.Time { return time.Now().Add(3 * time.Second) }).Issue(testPrincipal())
	require.NoError(t, err)
	assert.True(t, live.Validate(fresh, "alice@snapbuy.app"))
}
