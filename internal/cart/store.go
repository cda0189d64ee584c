package cart

import (
	"fmt"

	"github.com/keshavthakur30/SweetShop/internal/domain"
)

// Catalog is the slice of snapshot behaviour the store needs.
// Consumers define this interface, not the snapshot implementation.
type Catalog interface {
	Lookup(sweetID int64) (domain.Sweet, bool)
}

// Line associates one sweet with a requested quantity. The embedded
// sweet is the last catalog state the line was reconciled against, so
// Total works without reaching back into the snapshot.
type Line struct {
	Sweet    domain.Sweet `json:"sweet"`
	Quantity int          `json:"quantity"`
}

// Store holds the shopper's cart lines, ordered by insertion, unique
// by sweet id. Every mutation keeps each line inside
// [1, sweet.Quantity]; a line that would drop below 1 is removed
// instead. The store never fails: all operations are total over any
// input with the Sweet shape.
//
// The store is not safe for concurrent use; callers serialize access.
type Store struct {
	lines []Line
}

func NewStore() *Store {
	return &Store{}
}

// Add puts one more unit of sw in the cart. An existing line is
// incremented and clamped to the sweet's available quantity; a new
// line starts at 1. Adding an out-of-stock sweet is a no-op.
func (s *Store) Add(sw domain.Sweet) {
	for i := range s.lines {
		if s.lines[i].Sweet.ID == sw.ID {
			s.lines[i].Sweet = sw
			s.setLineQuantity(i, s.lines[i].Quantity+1)
			return
		}
	}
	if !sw.InStock() {
		return
	}
	s.lines = append(s.lines, Line{Sweet: sw, Quantity: 1})
}

// SetQuantity sets the requested quantity for an existing line,
// clamped to the sweet's availability. Zero or negative removes the
// line. Unknown ids are a no-op.
func (s *Store) SetQuantity(sweetID int64, quantity int) {
	if quantity <= 0 {
		s.Remove(sweetID)
		return
	}
	for i := range s.lines {
		if s.lines[i].Sweet.ID == sweetID {
			s.setLineQuantity(i, quantity)
			return
		}
	}
}

// Remove drops the line for sweetID if present.
func (s *Store) Remove(sweetID int64) {
	for i, line := range s.lines {
		if line.Sweet.ID == sweetID {
			s.lines = append(s.lines[:i], s.lines[i+1:]...)
			return
		}
	}
}

// ReconcileAgainst re-validates every line against the latest catalog
// state: lines whose sweet vanished are pruned, the rest are clamped
// to the current availability and their embedded sweet refreshed.
// Call it after every snapshot refresh and after every checkout
// outcome.
func (s *Store) ReconcileAgainst(cat Catalog) {
	kept := s.lines[:0]
	for _, line := range s.lines {
		sw, ok := cat.Lookup(line.Sweet.ID)
		if !ok {
			continue
		}
		q := clamp(line.Quantity, sw.Quantity)
		if q < 1 {
			continue
		}
		kept = append(kept, Line{Sweet: sw, Quantity: q})
	}
	s.lines = kept
}

// Line returns the current line for sweetID.
func (s *Store) Line(sweetID int64) (Line, bool) {
	for _, line := range s.lines {
		if line.Sweet.ID == sweetID {
			return line, true
		}
	}
	return Line{}, false
}

// Lines returns a copy of the cart in insertion order.
func (s *Store) Lines() []Line {
	out := make([]Line, len(s.lines))
	copy(out, s.lines)
	return out
}

func (s *Store) Len() int {
	return len(s.lines)
}

// Total is the derived cart price, never stored.
func (s *Store) Total() float64 {
	var total float64
	for _, line := range s.lines {
		total += line.Sweet.Price * float64(line.Quantity)
	}
	return total
}

// ItemCount is the derived sum of requested quantities.
func (s *Store) ItemCount() int {
	var count int
	for _, line := range s.lines {
		count += line.Quantity
	}
	return count
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.lines = nil
}

// Restore replaces the cart with previously persisted lines, dropping
// duplicates and lines already below 1. The caller reconciles against
// a current snapshot afterwards.
func (s *Store) Restore(lines []Line) {
	s.lines = nil
	seen := make(map[int64]struct{}, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 {
			continue
		}
		if _, dup := seen[line.Sweet.ID]; dup {
			continue
		}
		seen[line.Sweet.ID] = struct{}{}
		s.lines = append(s.lines, line)
	}
}

// Validate checks every line against the catalog and the clamp
// invariant. It is defensive only: no operation sequence over valid
// sweets can make it fail.
func (s *Store) Validate(cat Catalog) error {
	seen := make(map[int64]struct{}, len(s.lines))
	for _, line := range s.lines {
		if _, dup := seen[line.Sweet.ID]; dup {
			return fmt.Errorf("duplicate line for sweet %d: %w", line.Sweet.ID, domain.ErrInvariantViolation)
		}
		seen[line.Sweet.ID] = struct{}{}
		sw, ok := cat.Lookup(line.Sweet.ID)
		if !ok {
			return fmt.Errorf("line for unknown sweet %d: %w", line.Sweet.ID, domain.ErrInvariantViolation)
		}
		if line.Quantity < 1 || line.Quantity > sw.Quantity {
			return fmt.Errorf("line for sweet %d has quantity %d outside [1, %d]: %w",
				line.Sweet.ID, line.Quantity, sw.Quantity, domain.ErrInvariantViolation)
		}
	}
	return nil
}

// setLineQuantity clamps and applies a quantity for the line at i,
// removing the line when the clamp drives it below 1.
func (s *Store) setLineQuantity(i, quantity int) {
	q := clamp(quantity, s.lines[i].Sweet.Quantity)
	if q < 1 {
		s.lines = append(s.lines[:i], s.lines[i+1:]...)
		return
	}
	s.lines[i].Quantity = q
}

func clamp(quantity, available int) int {
	if quantity > available {
		return available
	}
	return quantity
}
