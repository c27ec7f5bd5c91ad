package ports

import (
	"context"

	"github.com/pharmacy/backoffice/internal/core/domain"
)

// AuditRepository persists audit trail entries.
type AuditRepository interface {
	Insert(ctx context.Context, event *domain.AuthEvent) error
}

// AuditPublisher hands an event off for asynchronous recording. Publish
// must not block the caller.
type AuditPublisher interface {
	Publish(event domain.AuthEvent)
}
