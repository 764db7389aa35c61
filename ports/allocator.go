package ports

import (
	"context"

	"shopseq/domain/core"
	"shopseq/internal/store"
)

// WorkUnits runs functions inside atomic work units
type WorkUnits interface {
	WithTx(ctx context.Context, fn func(tx *store.Tx) error) error
}

// SequenceAllocator issues the next identifier of a tenant's series.
// The returned identifier must be persisted in the same work unit.
type SequenceAllocator interface {
	Allocate(ctx context.Context, tx *store.Tx, tenant core.TenantID, series core.SeriesName, width int) (core.Identifier, error)
}

// TokenAllocator issues opaque tokens unique within their namespace
type TokenAllocator interface {
	AllocateToken(ctx context.Context, prefix string, randomByteLength int) (core.Token, error)
}

// TokenChecker reports whether a token is already held by a visible record
type TokenChecker interface {
	TokenExists(ctx context.Context, token core.Token) (bool, error)
}
