package fetch

import (
	"context"
	"errors"

	"github.com/newmanyatta/manyatta/internal/ports/outbound"
	"github.com/newmanyatta/manyatta/pkg/healthcheck"
)

// BreakerFetcher stops calling an origin that keeps failing
type BreakerFetcher struct {
	next    outbound.ImageFetcher
	breaker *healthcheck.CircuitBreaker
}

// NewBreakerFetcher guards next with breaker
func NewBreakerFetcher(next outbound.ImageFetcher, breaker *healthcheck.CircuitBreaker) *BreakerFetcher {
	return &BreakerFetcher{next: next, breaker: breaker}
}

// Fetch implements outbound.ImageFetcher. While the circuit is open it
// fails fast with healthcheck.ErrCircuitOpen.
func (f *BreakerFetcher) Fetch(ctx context.Context, src string) (*outbound.Blob, error) {
	var blob *outbound.Blob
	err := f.breaker.Do(func() error {
		var err error
		blob, err = f.next.Fetch(ctx, src)
		return err
	}, OriginFault)
	if err != nil {
		return nil, err
	}
	return blob, nil
}

// OriginFault reports whether err says the origin itself is unwell. Bad
// sources, oversized images, 4xx answers and callers giving up do not.
func OriginFault(err error) bool {
	if errors.Is(err, ErrTooLarge) ||
		errors.Is(err, outbound.ErrUnsupportedSource) ||
		errors.Is(err, context.Canceled) {
		return false
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.StatusCode >= 500 || status.StatusCode == 429
	}
	return true
}

var _ outbound.ImageFetcher = (*BreakerFetcher)(nil)
