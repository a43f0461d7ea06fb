// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository helpers for the
// Idempotency model used to make retries of the paid /identify endpoint
// safe: a replayed key is answered from the recorded cache entry instead
// of re-running billed third-party calls.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-ident-backend/internal/domain"
)

// GetIdempotency returns a non-expired record for (userID, key) or
// ErrNotFound.
func GetIdempotency(ctx context.Context, db *gorm.DB, userID, key string, now time.Time) (*domain.Idempotency, error) {
	if strings.TrimSpace(key) == "" {
		return nil, ErrNotFound
	}
	var rec domain.Idempotency
	err := db.WithContext(ctx).
		Where("user_id = ? AND key = ? AND expires_at > ?", userID, key, now).
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	return &rec, err
}

// CreateIdempotency inserts a record binding the key to the cache entry
// produced by the original request. Returns ErrDuplicate on unique
// violation.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID, key, cacheID string, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	rec := &domain.Idempotency{
		ID:              uuid.NewString(),
		UserID:          userID,
		Key:             key,
		AnalysisCacheID: cacheID,
		Status:          status,
		CreatedAt:       now,
		ExpiresAt:       now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		if cerr := classifyConstraintErr(err); errors.Is(cerr, ErrDuplicate) {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
