package service

import (
	"context"
	"fmt"

	"github.com/Skotchmaster/snapbuy/pkg/tokens"
	"github.com/Skotchmaster/snapbuy/services/auth/internal/models"
)

type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// PairIssuer mints a bearer token plus a fresh refresh token for a user.
type PairIssuer struct {
	Signer *tokens.Signer
	Ledger *RefreshLedger
}

func (p *PairIssuer) Issue(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := p.Signer.Issue(user.Principal())
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	rt, err := p.Ledger.CreateFor(ctx, user)
	if err != nil {
		return nil, err
	}
	return &TokenPair{AccessToken: access, RefreshToken: rt.Token}, nil
}
