// Package notice implements the notice store use cases: idempotent notice
// type registration, lazily pinned per-medium settings and the notice
// history lifecycle (unseen, archived, deleted).
package notice

import (
	"fmt"

	"notice-dispatch/internal/domain/entity"
)

// Sentinel errors for notice use case operations.
var (
	// ErrNoticeNotFound indicates that the requested notice does not exist.
	ErrNoticeNotFound = fmt.Errorf("notice: %w", entity.ErrNotFound)

	// ErrNoticeTypeNotFound indicates that no notice type has the requested label.
	ErrNoticeTypeNotFound = fmt.Errorf("notice type: %w", entity.ErrNotFound)
)
