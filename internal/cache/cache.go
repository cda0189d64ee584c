package cache

import (
	"context"
	"errors"

	"github.com/keshavthakur30/SweetShop/internal/cart"
)

// CartCache persists cart lines between sessions of the same shopper.
// Consumers define this interface, not the Redis implementation.
type CartCache interface {
	Get(ctx context.Context, sessionID string) ([]cart.Line, error)
	Set(ctx context.Context, sessionID string, lines []cart.Line) error
	Delete(ctx context.Context, sessionID string) error
}

var ErrCacheMiss = errors.New("cache miss")

// Nop is the cache used when no Redis address is configured; every
// read is a miss and writes vanish.
type Nop struct{}

func (Nop) Get(context.Context, string) ([]cart.Line, error) {
	return nil, ErrCacheMiss
}

func (Nop) Set(context.Context, string, []cart.Line) error {
	return nil
}

func (Nop) Delete(context.Context, string) error {
	return nil
}
