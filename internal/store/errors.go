package store

import (
	"fmt"

	"github.com/marketwatch/agentcore/internal/coreerr"
)

// notFound wraps coreerr.ErrStoreNotFound with context, for the single
// logical table/key that was missing.
func notFound(table, key string) error {
	return fmt.Errorf("%s[%s]: %w", table, key, coreerr.ErrStoreNotFound)
}

func conflict(table, key string) error {
	return fmt.Errorf("%s[%s]: %w", table, key, coreerr.ErrStoreConflict)
}

func backend(op string, err error) error {
	return fmt.Errorf("%s: %w: %v", op, coreerr.ErrStoreBackend, err)
}
