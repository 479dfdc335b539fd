package repomanager

import (
	"context"

	"github.com/dmitrijs2005/gophauth/internal/server/repositories/users"
)

// TxFunc runs inside a transactional scope with a repository bound to it.
type TxFunc func(ctx context.Context, users users.Repository) error

// RepositoryManager vends repositories and owns the storage they share.
//
// WithTx commits when fn returns nil and discards every write made through
// the supplied repository otherwise.
type RepositoryManager interface {
	Users() users.Repository
	WithTx(ctx context.Context, fn TxFunc) error
	RunMigrations(ctx context.Context) error
	Close() error
}
