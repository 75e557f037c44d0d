package service

import "context"

// TransactionManager runs fn inside one database transaction. Repositories
// called with the ctx passed to fn join that transaction; a non-nil error
// from fn rolls everything back.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
