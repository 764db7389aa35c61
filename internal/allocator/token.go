package allocator

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"

	"shopseq/domain/core"
	"shopseq/internal/logging"
	"shopseq/internal/observability"
	"shopseq/internal/store"
	"shopseq/ports"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Defaults of the random-token allocator
const (
	DefaultTokenBytes       = 4
	DefaultTokenMaxAttempts = 10
)

// TokenAllocator generates prefix + UPPERHEX(random bytes) and regenerates on
// collision. It takes no lock: concurrent callers draw independent candidates.
type TokenAllocator struct {
	checker     ports.TokenChecker
	random      io.Reader
	maxAttempts int
}

// TokenOption configures a TokenAllocator
type TokenOption func(*TokenAllocator)

// WithRandom replaces the random source (crypto/rand by default)
func WithRandom(r io.Reader) TokenOption {
	return func(a *TokenAllocator) { a.random = r }
}

// WithMaxAttempts sets the retry ceiling
func WithMaxAttempts(n int) TokenOption {
	return func(a *TokenAllocator) {
		if n > 0 {
			a.maxAttempts = n
		}
	}
}

// NewTokenAllocator creates a token allocator checking uniqueness with checker
func NewTokenAllocator(checker ports.TokenChecker, opts ...TokenOption) *TokenAllocator {
	a := &TokenAllocator{
		checker:     checker,
		random:      rand.Reader,
		maxAttempts: DefaultTokenMaxAttempts,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AllocateToken returns a token no currently visible record holds. After
// maxAttempts collisions it fails with core.ErrAllocationExhausted.
func (a *TokenAllocator) AllocateToken(ctx context.Context, prefix string, randomByteLength int) (core.Token, error) {
	if randomByteLength <= 0 {
		randomByteLength = DefaultTokenBytes
	}

	ctx, span := observability.Tracer().Start(ctx, "allocator.token.allocate")
	defer span.End()
	span.SetAttributes(attribute.String("prefix", prefix), attribute.Int("bytes", randomByteLength))

	logger := logging.WithComponent("allocator").WithField("prefix", prefix)
	buf := make([]byte, randomByteLength)

	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if _, err := io.ReadFull(a.random, buf); err != nil {
			span.RecordError(err)
			return "", fmt.Errorf("read random bytes: %w", err)
		}
		candidate := core.Token(prefix + strings.ToUpper(hex.EncodeToString(buf)))

		exists, err := a.checker.TokenExists(ctx, candidate)
		if err != nil {
			err = asStoreError(err)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return "", err
		}
		if !exists {
			span.SetAttributes(attribute.Int("attempts", attempt))
			return candidate, nil
		}
		logger.WithField("attempt", attempt).Debug("token collision, regenerating")
	}

	err := fmt.Errorf("%w: no free token with prefix %q after %d attempts", core.ErrAllocationExhausted, prefix, a.maxAttempts)
	span.SetStatus(codes.Error, err.Error())
	logger.WithField("attempts", a.maxAttempts).Error("token allocation exhausted")
	return "", err
}

// asStoreError reports a checker failure as a store error only. A lock or
// deadline error from the checker keeps its cause but not its timeout kind.
func asStoreError(err error) error {
	var se *store.Error
	if !errors.As(err, &se) {
		return &store.Error{Op: "token exists", Kind: core.ErrStore, Err: err}
	}
	if se.Kind == core.ErrStore {
		return err
	}
	return &store.Error{Op: se.Op, Kind: core.ErrStore, Err: se.Err}
}
