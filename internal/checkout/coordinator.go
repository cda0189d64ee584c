// Package checkout drives a multi-item cart through the Catalog
// Service's single-item purchase call, one line at a time.
package checkout

import (
	"context"

	"go.uber.org/zap"

	"github.com/keshavthakur30/SweetShop/internal/cart"
	"github.com/keshavthakur30/SweetShop/internal/catalog"
	"github.com/keshavthakur30/SweetShop/internal/domain"
)

// Purchaser is the single Catalog Service call the coordinator
// issues. Consumers define this interface, not the HTTP client.
type Purchaser interface {
	Purchase(ctx context.Context, sweetID int64, quantity int) (domain.Sweet, error)
}

// Coordinator converts the cart into a strictly sequential series of
// purchase requests and reconciles cart and snapshot after each
// response. It never aborts early and never retries: every line gets
// exactly one attempt and one recorded outcome.
type Coordinator struct {
	purchaser Purchaser
	snapshot  *catalog.Snapshot
	cart      *cart.Store
	logger    *zap.Logger
}

func NewCoordinator(purchaser Purchaser, snapshot *catalog.Snapshot, store *cart.Store, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		purchaser: purchaser,
		snapshot:  snapshot,
		cart:      store,
		logger:    logger,
	}
}

// Run attempts every cart line in insertion order and returns one
// outcome per line. Request N+1 is not issued until request N's
// response has been applied to cart and snapshot, so later clamps see
// the stock an earlier commit consumed. Partial success is normal;
// the caller gets the full sequence, never a collapsed boolean.
func (c *Coordinator) Run(ctx context.Context) []domain.Outcome {
	order := c.cart.Lines()
	outcomes := make([]domain.Outcome, 0, len(order))

	for _, planned := range order {
		id := planned.Sweet.ID

		// A reconcile triggered by an earlier outcome may have
		// pruned this line already.
		line, ok := c.cart.Line(id)
		if !ok {
			outcomes = append(outcomes, domain.Skipped(id))
			continue
		}

		before, hadBefore := c.snapshot.Lookup(id)
		updated, err := c.purchaser.Purchase(ctx, id, line.Quantity)
		if err != nil {
			outcomes = append(outcomes, c.applyRejection(ctx, id, err))
			continue
		}

		// Actual purchased quantity is the stock delta the service
		// reports; assume a full fill when the prior stock is unknown.
		actual := line.Quantity
		if hadBefore && before.Quantity >= updated.Quantity {
			actual = before.Quantity - updated.Quantity
		}
		c.snapshot.ApplyPurchase(updated)
		c.cart.Remove(id)
		c.cart.ReconcileAgainst(c.snapshot)
		outcomes = append(outcomes, domain.Committed(id, actual))
	}
	return outcomes
}

// applyRejection records a rejected outcome and decides what happens
// to the line: gone items are dropped, everything else stays in the
// cart re-clamped against the freshest snapshot we can get so the
// shopper can retry.
func (c *Coordinator) applyRejection(ctx context.Context, sweetID int64, err error) domain.Outcome {
	reason := domain.ReasonOf(err)
	c.logger.Warn("purchase rejected",
		zap.Int64("sweet_id", sweetID),
		zap.String("reason", string(reason)),
		zap.Error(err))

	switch reason {
	case domain.ReasonItemNotFound:
		c.cart.Remove(sweetID)
	case domain.ReasonUnauthorized:
		// Not a stock signal; a refresh on the same credential
		// would only add noise.
	default:
		if refreshErr := c.snapshot.Refresh(ctx); refreshErr != nil {
			// Best effort: a stale snapshot is still a valid ceiling.
			c.logger.Debug("snapshot refresh failed", zap.Error(refreshErr))
		}
	}
	c.cart.ReconcileAgainst(c.snapshot)
	return domain.Rejected(sweetID, reason)
}
