package checkout

import (
	"context"
	"sync"

	"github.com/jcmexdev/pizzeria-storefront/internal/coordinator"
	"github.com/jcmexdev/pizzeria-storefront/internal/coordinator/sagalog"
	"github.com/jcmexdev/pizzeria-storefront/internal/order"
)

// Service runs checkouts for all sessions and allows at most one settlement
// per order at a time.
type Service struct {
	settler Settler
	sagaLog sagalog.Repository

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewService builds a checkout service. sagaLog may be nil.
func NewService(settler Settler, sagaLog sagalog.Repository) *Service {
	return &Service{
		settler:  settler,
		sagaLog:  sagaLog,
		inFlight: make(map[string]struct{}),
	}
}

// Load returns the flow for orderID without submitting anything. It is what
// the payment view renders from.
func (s *Service) Load(ctx context.Context, orders coordinator.OrderStore, orderID string) (*Flow, error) {
	return NewFlow(ctx, orderID, orders, nil, s.settler, s.sagaLog)
}

// Pay submits form for orderID. A second call for the same order while the
// first is still settling gets ErrInProgress. Each call starts a fresh flow
// from the stored snapshot, so a failed attempt leaves the order pending and
// calling Pay again is the retry; Flow.Retry serves callers that hold on to
// a single flow.
func (s *Service) Pay(ctx context.Context, orders coordinator.OrderStore, cart CartClearer, orderID string, form PaymentForm) (*order.Snapshot, error) {
	if !s.acquire(orderID) {
		return nil, ErrInProgress
	}
	defer s.release(orderID)

	flow, err := NewFlow(ctx, orderID, orders, cart, s.settler, s.sagaLog)
	if err != nil {
		return nil, err
	}
	return flow.Submit(ctx, form)
}

func (s *Service) acquire(orderID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[orderID]; busy {
		return false
	}
	s.inFlight[orderID] = struct{}{}
	return true
}

func (s *Service) release(orderID string) {
	s.mu.Lock()
	delete(s.inFlight, orderID)
	s.mu.Unlock()
}
