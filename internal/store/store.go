// Package store is the portal's record store: whole JSON values under
// namespaced string keys, on top of a pluggable key/value backend.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"campusrecords/internal/apperr"
)

// Persisted keys. The names match data written by earlier versions of the portal.
const (
	KeyAccount      = "myapp_account"
	KeyUsers        = "myapp_users"
	KeyUploads      = "myapp_uploads"
	KeyWallet       = "myapp_wallet"
	KeyTransactions = "myapp_transactions"

	profileKeyPrefix = "student_profile_"
)

// ProfileKey returns the key of a student's profile.
func ProfileKey(studentID string) string {
	return profileKeyPrefix + studentID
}

var (
	// ErrQuotaExceeded is returned by a backend that has run out of space.
	ErrQuotaExceeded = errors.New("quota exceeded")
	// ErrCorrupt marks a stored value that is not valid JSON for the requested type.
	ErrCorrupt = errors.New("corrupt value")
)

// Backend is a synchronous key/value store of raw bytes.
// Set replaces the whole value; Remove of a missing key is not an error.
type Backend interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Store serialises values as JSON on top of a Backend.
// Every failure is returned as an *apperr.StorageError.
type Store struct {
	backend Backend
	log     *slog.Logger
}

// New creates a Store.
func New(backend Backend) *Store {
	return &Store{
		backend: backend,
		log:     slog.Default().With("component", "store"),
	}
}

// GetJSON decodes the value under key into v. It reports false when the key is absent.
func (s *Store) GetJSON(ctx context.Context, key string, v any) (bool, error) {
	raw, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		return false, s.fail("get", key, err)
	}
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, s.fail("decode", key, fmt.Errorf("%w: %v", ErrCorrupt, err))
	}
	return true, nil
}

// SetJSON replaces the value under key with the JSON encoding of v.
func (s *Store) SetJSON(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return s.fail("encode", key, err)
	}
	if err := s.backend.Set(ctx, key, raw); err != nil {
		return s.fail("set", key, err)
	}
	return nil
}

// Remove deletes key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.backend.Remove(ctx, key); err != nil {
		return s.fail("remove", key, err)
	}
	return nil
}

func (s *Store) fail(op, key string, err error) error {
	s.log.Warn("store operation failed", "op", op, "key", key, "err", err)
	return &apperr.StorageError{Op: op, Key: key, Err: err}
}
