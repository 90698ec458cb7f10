// Package repo implements the expense ledger on top of GORM. This file
// stores replies of message requests under an Idempotency-Key so client
// retries replay the first reply instead of mutating the ledger twice.
package repo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-expense-assistant/internal/domain"
)

// ErrDuplicate indicates that a record already exists for (user_id, key).
var ErrDuplicate = errors.New("duplicate")

// GetIdempotency returns the non-expired record for (userID, key) or ErrNotFound.
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
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateIdempotency stores the reply for (userID, key), valid for ttl.
// It returns ErrDuplicate when the key was already recorded.
func CreateIdempotency(ctx context.Context, db *gorm.DB, userID, key, reply string, action domain.Action, status int, ttl time.Duration) (*domain.Idempotency, error) {
	now := time.Now().UTC()
	if action == "" {
		action = domain.ActionUnknown
	}
	rec := &domain.Idempotency{
		ID:        uuid.NewString(),
		UserID:    userID,
		Key:       key,
		Reply:     reply,
		Action:    action,
		Status:    status,
		CreatedAt: now,
		ExpiresAt: now.Add(ttl),
	}
	if err := db.WithContext(ctx).Create(rec).Error; err != nil {
		// glebarez/sqlite reports UNIQUE violations as plain text.
		low := strings.ToLower(err.Error())
		if errors.Is(err, gorm.ErrDuplicatedKey) ||
			strings.Contains(low, "unique constraint failed") ||
			strings.Contains(low, "constraint failed: unique") {
			return nil, ErrDuplicate
		}
		return nil, err
	}
	return rec, nil
}
