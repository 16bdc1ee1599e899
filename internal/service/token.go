package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/utafrali/schoolwear/internal/repository"
	apperrors "github.com/utafrali/schoolwear/pkg/errors"
)

// TokenStorageKey is the storage key holding the session token.
const TokenStorageKey = "auth_token"

// TokenStore keeps the backend session token in local storage.
type TokenStore struct {
	kv     repository.KeyValueStore
	logger *slog.Logger
}

// NewTokenStore creates a token store on kv.
func NewTokenStore(kv repository.KeyValueStore, logger *slog.Logger) *TokenStore {
	return &TokenStore{kv: kv, logger: logger}
}

// Save stores the token. Storage failures are returned since the caller is
// waiting on the result.
func (s *TokenStore) Save(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.InvalidInput("token must not be empty")
	}
	if err := s.kv.Set(ctx, TokenStorageKey, token); err != nil {
		return fmt.Errorf("save session token: %w", err)
	}
	s.logger.InfoContext(ctx, "session token saved")
	return nil
}

// Token returns the stored token, or "" when none is stored or storage
// failed.
func (s *TokenStore) Token(ctx context.Context) string {
	token, found, err := s.kv.Get(ctx, TokenStorageKey)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read session token",
			slog.String("error", err.Error()),
		)
		return ""
	}
	if !found {
		return ""
	}
	return token
}

// Clear removes the stored token.
func (s *TokenStore) Clear(ctx context.Context) error {
	if err := s.kv.Delete(ctx, TokenStorageKey); err != nil {
		return fmt.Errorf("clear session token: %w", err)
	}
	s.logger.InfoContext(ctx, "session token cleared")
	return nil
}

// SignOut forgets everything stored for this device. The cart is emptied in
// memory and its pending write flushed before the storage namespace is
// cleared, so neither the token nor the cart survive a restart.
func (s *TokenStore) SignOut(ctx context.Context, cart *CartStore) error {
	cart.Clear()
	if err := cart.Flush(ctx); err != nil {
		return fmt.Errorf("flush cart: %w", err)
	}
	if err := s.kv.Clear(ctx); err != nil {
		return fmt.Errorf("clear local storage: %w", err)
	}
	s.logger.InfoContext(ctx, "signed out, local storage cleared")
	return nil
}
