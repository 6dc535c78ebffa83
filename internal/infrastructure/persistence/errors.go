package persistence

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cafe/backend/internal/domain/inventory"
	"gorm.io/gorm"
)

// isDuplicateKey reports a unique constraint violation. TranslateError covers
// the configured dialects; the message check catches untranslated drivers.
func isDuplicateKey(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

// storageError wraps driver failures so callers can classify them as transient.
// Context cancellation is passed through unchanged.
func storageError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%s: %w: %v", op, inventory.ErrStorageUnavailable, err)
}
