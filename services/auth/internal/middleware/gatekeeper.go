package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/snapbuy/pkg/logging"
	"github.com/Skotchmaster/snapbuy/pkg/tokens"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/repo"
)

const (
	MsgTokenExpired = "token_expired"
	MsgInvalidToken = "invalid_token"

	bearerPrefix = "Bearer "
)

// Rule matches a public path. An empty Method matches any method.
type Rule struct {
	Method string
	Path   string
	Prefix bool
}

func (r Rule) Match(method, path string) bool {
	if r.Method != "" && r.Method != method {
		return false
	}
	if r.Prefix {
		return strings.HasPrefix(path, r.Path)
	}
	return path == r.Path
}

func DefaultAllowList() []Rule {
	return []Rule{
		{Path: "/api/auth/", Prefix: true},
		{Path: "/api/ott/", Prefix: true},
		{Path: "/api/otp/", Prefix: true},
		{Path: "/swagger-ui/", Prefix: true},
		{Path: "/v3/api-docs/", Prefix: true},
		{Path: "/api/login/oauth2/code/google/", Prefix: true},
		{Path: "/error"},
		{Path: "/favicon.ico"},
		{Path: "/health/live"},
		{Path: "/health/ready"},
		{Method: http.MethodGet, Path: "/api/products"},
		{Method: http.MethodGet, Path: "/api/products/search"},
		{Method: http.MethodGet, Path: "/api/products/pagination-sorting"},
	}
}

// Gatekeeper authenticates bearer tokens and attaches the caller's Identity to the
// request context. Requests without a bearer token pass through unauthenticated.
type Gatekeeper struct {
	Signer *tokens.Signer
	Users  repo.UserStore
	Allow  []Rule
}

func NewGatekeeper(signer *tokens.Signer, users repo.UserStore) *Gatekeeper {
	return &Gatekeeper{Signer: signer, Users: users, Allow: DefaultAllowList()}
}

func (g *Gatekeeper) allowed(method, path string) bool {
	for _, r := range g.Allow {
		if r.Match(method, path) {
			return true
		}
	}
	return false
}

func reject(c echo.Context, msg string) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"message": msg})
}

func (g *Gatekeeper) Middleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		req := c.Request()
		if g.allowed(req.Method, req.URL.Path) {
			return next(c)
		}

		header := req.Header.Get(echo.HeaderAuthorization)
		if !strings.HasPrefix(header, bearerPrefix) {
			return next(c)
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, bearerPrefix))

		ctx := req.Context()
		l := logging.FromContext(ctx).With("mw", "gatekeeper")

		if _, ok := IdentityFromContext(ctx); ok {
			return next(c)
		}

		subject, err := g.Signer.ExtractSubject(token)
		if err != nil {
			if errors.Is(err, tokens.ErrTokenExpired) {
				l.Info("token_rejected", "status", 401, "reason", MsgTokenExpired)
				return reject(c, MsgTokenExpired)
			}
			l.Warn("token_rejected", "status", 401, "reason", MsgInvalidToken, "error", err)
			return reject(c, MsgInvalidToken)
		}

		user, err := g.Users.FindByEmail(ctx, subject)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) {
				l.Warn("token_rejected", "status", 401, "reason", "unknown subject")
				return reject(c, MsgInvalidToken)
			}
			l.Error("token_lookup_failed", "status", 500, "error", err)
			return err
		}

		if !g.Signer.Validate(token, user.Email) {
			l.Warn("token_rejected", "status", 401, "reason", "subject mismatch")
			return reject(c, MsgInvalidToken)
		}

		id := Identity{UserID: user.ID, Email: user.Email, Name: user.Name, Roles: user.Roles}
		c.SetRequest(req.WithContext(WithIdentity(ctx, id)))
		return next(c)
	}
}
