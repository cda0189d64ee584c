package catalog

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/keshavthakur30/SweetShop/internal/domain"
)

// Lister is the one Catalog Service call the snapshot depends on.
type Lister interface {
	ListSweets(ctx context.Context) ([]domain.Sweet, error)
}

// Snapshot is the engine's immutable-per-fetch view of the catalog.
// Refresh replaces it wholesale; a failed refresh leaves the previous
// view (and its timestamp) untouched. The only other writer is
// ApplyPurchase, which mirrors a single committed purchase locally
// until the next full refresh supersedes it.
type Snapshot struct {
	lister Lister
	sfg    singleflight.Group // collapses concurrent refreshes into one list call

	mu          sync.RWMutex
	items       []domain.Sweet
	byID        map[int64]int
	refreshedAt time.Time
}

func NewSnapshot(lister Lister) *Snapshot {
	return &Snapshot{
		lister: lister,
		byID:   make(map[int64]int),
	}
}

// Refresh replaces the snapshot with one Catalog Service list call.
// On failure it returns the *domain.FetchError and keeps the prior
// snapshot intact, no partial overwrite.
func (s *Snapshot) Refresh(ctx context.Context) error {
	_, err, _ := s.sfg.Do("refresh", func() (interface{}, error) {
		sweets, err := s.lister.ListSweets(ctx)
		if err != nil {
			return nil, err
		}
		byID := make(map[int64]int, len(sweets))
		for i, sw := range sweets {
			byID[sw.ID] = i
		}
		s.mu.Lock()
		s.items = sweets
		s.byID = byID
		s.refreshedAt = time.Now()
		s.mu.Unlock()
		return nil, nil
	})
	return err
}

// Items returns the snapshot in catalog order.
func (s *Snapshot) Items() []domain.Sweet {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Sweet, len(s.items))
	copy(out, s.items)
	return out
}

// Lookup finds one sweet by id.
func (s *Snapshot) Lookup(sweetID int64) (domain.Sweet, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byID[sweetID]
	if !ok {
		return domain.Sweet{}, false
	}
	return s.items[i], true
}

// ApplyPurchase overwrites one item with the authoritative state a
// committed purchase returned. Unknown ids are ignored; the next
// refresh will bring them in if they exist.
func (s *Snapshot) ApplyPurchase(updated domain.Sweet) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i, ok := s.byID[updated.ID]; ok {
		s.items[i] = updated
	}
}

// RefreshedAt reports when the last successful refresh happened, for
// UI staleness display. Zero until the first refresh succeeds.
func (s *Snapshot) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}
