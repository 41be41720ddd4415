package service

import (
	"errors"
	"fmt"

	"github.com/Skotchmaster/snapbuy/pkg/tokens"
)

var (
	ErrUserNotFound          = errors.New("user not found")
	ErrInvalidCredentials    = errors.New("invalid email or password")
	ErrUserAlreadyExists     = errors.New("user already exists")
	ErrOtpMismatch           = errors.New("invalid otp")
	ErrOtpExpired            = errors.New("otp has expired")
	ErrOtpNotFound           = errors.New("no otp found")
	ErrMessageDispatchFailed = errors.New("message dispatch failed")
	ErrValidation            = errors.New("validation failed")

	// Shared with the signer so a single errors.Is check covers bearer, refresh and magic-link tokens.
	ErrTokenExpired = tokens.ErrTokenExpired
	ErrTokenInvalid = tokens.ErrTokenInvalid
)

type TokenKind string

const (
	KindRefresh TokenKind = "refresh"
	KindOTT     TokenKind = "one-time"
)

// TokenError names which token failed. Err is ErrTokenExpired or ErrTokenInvalid.
type TokenError struct {
	Kind TokenKind
	Err  error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("%s token: %v", e.Kind, e.Err)
}

func (e *TokenError) Unwrap() error { return e.Err }

func tokenErr(kind TokenKind, err error) error {
	return &TokenError{Kind: kind, Err: err}
}
