// Package shop is the surface the UI collaborators talk to: one
// engine per shopper session, each combining a catalog snapshot, a
// cart store and a checkout coordinator.
package shop

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/keshavthakur30/SweetShop/internal/cache"
	"github.com/keshavthakur30/SweetShop/internal/cart"
	"github.com/keshavthakur30/SweetShop/internal/catalog"
	"github.com/keshavthakur30/SweetShop/internal/checkout"
	"github.com/keshavthakur30/SweetShop/internal/domain"
	"github.com/keshavthakur30/SweetShop/internal/events"
	"github.com/keshavthakur30/SweetShop/internal/filter"
	"github.com/keshavthakur30/SweetShop/internal/history"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSweetNotFound   = errors.New("sweet not in catalog")
)

// CatalogClient is the slice of the Catalog Service the shop uses.
type CatalogClient interface {
	ListSweets(ctx context.Context) ([]domain.Sweet, error)
	Purchase(ctx context.Context, sweetID int64, quantity int) (domain.Sweet, error)
}

// HistoryStore records finished checkout runs.
type HistoryStore interface {
	SaveRun(ctx context.Context, rec *history.Record) error
	RunsBySession(ctx context.Context, sessionID string) ([]history.Record, error)
}

// CartView is the read model handed to the UI.
type CartView struct {
	Lines     []cart.Line `json:"lines"`
	Total     float64     `json:"total"`
	ItemCount int         `json:"item_count"`
}

// Service owns all live sessions. Within one session every operation
// runs under the session mutex, which is the Go stand-in for the
// original's serialized event loop: there is never a concurrent
// writer to a cart or its snapshot.
type Service struct {
	client  CatalogClient
	cache   cache.CartCache
	history HistoryStore // nil disables run recording
	events  events.Publisher
	logger  *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*session
}

type session struct {
	id       string
	mu       sync.Mutex
	snapshot *catalog.Snapshot
	cart     *cart.Store
	coord    *checkout.Coordinator
}

func NewService(client CatalogClient, c cache.CartCache, h HistoryStore, pub events.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if c == nil {
		c = cache.Nop{}
	}
	if pub == nil {
		pub = events.Nop{}
	}
	return &Service{
		client:   client,
		cache:    c,
		history:  h,
		events:   pub,
		logger:   logger,
		sessions: make(map[string]*session),
	}
}

// OpenSession creates a session, loads its first snapshot and
// restores any persisted cart, reconciled against that snapshot.
// Passing the id of an earlier session resumes its persisted cart;
// an empty id mints a fresh session.
func (s *Service) OpenSession(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	sess := &session{
		id:   sessionID,
		cart: cart.NewStore(),
	}
	sess.snapshot = catalog.NewSnapshot(s.client)
	sess.coord = checkout.NewCoordinator(s.client, sess.snapshot, sess.cart, s.logger)

	if err := sess.snapshot.Refresh(ctx); err != nil {
		return "", err
	}

	if lines, err := s.cache.Get(ctx, sess.id); err == nil {
		sess.cart.Restore(lines)
		sess.cart.ReconcileAgainst(sess.snapshot)
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("cart restore failed", zap.String("session_id", sess.id), zap.Error(err))
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()
	return sess.id, nil
}

// CloseSession drops the in-memory session; the persisted cart stays
// in the cache until its TTL runs out.
func (s *Service) CloseSession(sessionID string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()
}

func (s *Service) session(sessionID string) (*session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// AddToCart adds one unit of the sweet, looked up in the session's
// current snapshot. Adding an out-of-stock sweet is a no-op, not an
// error; an unknown id is ErrSweetNotFound.
func (s *Service) AddToCart(ctx context.Context, sessionID string, sweetID int64) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sw, ok := sess.snapshot.Lookup(sweetID)
	if !ok {
		return ErrSweetNotFound
	}
	sess.cart.Add(sw)
	s.persistCart(ctx, sess)
	return nil
}

// SetQuantity sets the requested quantity for a cart line; zero or
// negative removes it.
func (s *Service) SetQuantity(ctx context.Context, sessionID string, sweetID int64, quantity int) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.cart.SetQuantity(sweetID, quantity)
	s.persistCart(ctx, sess)
	return nil
}

// RemoveFromCart drops the line for sweetID if present.
func (s *Service) RemoveFromCart(ctx context.Context, sessionID string, sweetID int64) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.cart.Remove(sweetID)
	s.persistCart(ctx, sess)
	return nil
}

// ClearCart empties the cart and drops the persisted copy, so the
// emptied cart does not resurface on the next session.
func (s *Service) ClearCart(ctx context.Context, sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.cart.Clear()
	if err := s.cache.Delete(ctx, sess.id); err != nil {
		s.logger.Warn("cart delete failed", zap.String("session_id", sess.id), zap.Error(err))
	}
	return nil
}

// Cart returns the derived read model.
func (s *Service) Cart(sessionID string) (CartView, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return CartView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	return CartView{
		Lines:     sess.cart.Lines(),
		Total:     sess.cart.Total(),
		ItemCount: sess.cart.ItemCount(),
	}, nil
}

// Visible runs the pure filter pipeline over the session's snapshot.
func (s *Service) Visible(sessionID, query, category string, bracket filter.PriceBracket) ([]domain.Sweet, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	return filter.Visible(sess.snapshot.Items(), query, category, bracket), nil
}

// Refresh replaces the session's snapshot from the Catalog Service
// and reconciles the cart against it. A FetchError leaves snapshot
// and cart untouched.
func (s *Service) Refresh(ctx context.Context, sessionID string) error {
	sess, err := s.session(sessionID)
	if err != nil {
		return err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if err := sess.snapshot.Refresh(ctx); err != nil {
		return err
	}
	sess.cart.ReconcileAgainst(sess.snapshot)
	s.persistCart(ctx, sess)
	return nil
}

// RefreshedAt reports the session snapshot's last successful refresh.
func (s *Service) RefreshedAt(sessionID string) (time.Time, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return time.Time{}, err
	}
	return sess.snapshot.RefreshedAt(), nil
}

// Checkout runs the coordinator over the whole cart. The run is
// detached from the caller's cancellation: a shopper navigating away
// does not stop a sequence already started.
func (s *Service) Checkout(ctx context.Context, sessionID string) ([]domain.Outcome, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return nil, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	runCtx := context.WithoutCancel(ctx)
	prices := make(map[int64]float64)
	for _, line := range sess.cart.Lines() {
		prices[line.Sweet.ID] = line.Sweet.Price
	}

	outcomes := sess.coord.Run(runCtx)
	s.persistCart(runCtx, sess)
	s.recordRun(runCtx, sess.id, outcomes, prices)
	return outcomes, nil
}

// BuyNow purchases one unit of a single sweet through the same
// coordinator path as a full checkout, so the clamp and
// reconciliation rules hold.
func (s *Service) BuyNow(ctx context.Context, sessionID string, sweetID int64) (domain.Outcome, error) {
	sess, err := s.session(sessionID)
	if err != nil {
		return domain.Outcome{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sw, ok := sess.snapshot.Lookup(sweetID)
	if !ok {
		return domain.Outcome{}, ErrSweetNotFound
	}

	runCtx := context.WithoutCancel(ctx)
	single := cart.NewStore()
	single.Add(sw)
	if single.Len() == 0 {
		// Out of stock locally; report it without a wasted round trip.
		return domain.Rejected(sweetID, domain.ReasonOutOfStock), nil
	}

	coord := checkout.NewCoordinator(s.client, sess.snapshot, single, s.logger)
	outcomes := coord.Run(runCtx)

	sess.cart.ReconcileAgainst(sess.snapshot)
	s.persistCart(runCtx, sess)
	s.recordRun(runCtx, sess.id, outcomes, map[int64]float64{sweetID: sw.Price})
	return outcomes[0], nil
}

// History returns the session's recorded checkout runs.
func (s *Service) History(ctx context.Context, sessionID string) ([]history.Record, error) {
	if _, err := s.session(sessionID); err != nil {
		return nil, err
	}
	if s.history == nil {
		return nil, nil
	}
	return s.history.RunsBySession(ctx, sessionID)
}

// persistCart writes the cart to the cache, best effort. Callers hold
// the session lock.
func (s *Service) persistCart(ctx context.Context, sess *session) {
	if err := s.cache.Set(ctx, sess.id, sess.cart.Lines()); err != nil {
		s.logger.Warn("cart persist failed", zap.String("session_id", sess.id), zap.Error(err))
	}
}

// recordRun stores and publishes a finished run. Neither store nor
// publisher failure reaches the shopper; the outcomes already did.
func (s *Service) recordRun(ctx context.Context, sessionID string, outcomes []domain.Outcome, prices map[int64]float64) {
	if len(outcomes) == 0 {
		return
	}

	var total float64
	for _, out := range outcomes {
		if out.Status == domain.OutcomeCommitted {
			total += prices[out.SweetID] * float64(out.Quantity)
		}
	}

	rec := &history.Record{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Total:     total,
		Outcomes:  outcomes,
		CreatedAt: time.Now(),
	}
	if s.history != nil {
		if err := s.history.SaveRun(ctx, rec); err != nil {
			s.logger.Warn("checkout run not recorded", zap.String("run_id", rec.ID), zap.Error(err))
		}
	}

	ev := events.CheckoutEvent{
		RunID:       rec.ID,
		SessionID:   sessionID,
		Outcomes:    outcomes,
		Total:       total,
		CompletedAt: rec.CreatedAt,
	}
	if err := s.events.PublishCheckout(ctx, ev); err != nil {
		s.logger.Warn("checkout event not published", zap.String("run_id", rec.ID), zap.Error(err))
	}
}
