package core

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CreditMutation transforms a credit read under the store's per-credit lock.
// Returning an error aborts the mutation and leaves the stored credit untouched.
type CreditMutation func(Credit) (Credit, error)

// CreditStore persists credit aggregates. Mutate runs fn as an atomic
// read-modify-write: concurrent mutations of the same credit are serialised,
// mutations of different credits are not. Payments appended by fn are
// assigned an ID and receipt number before Mutate returns.
type CreditStore interface {
	Load(ctx context.Context, creditID int) (*Credit, error)
	Mutate(ctx context.Context, creditID int, fn CreditMutation) (*Credit, error)
}

// MemoryCreditStore is an in-process CreditStore guarded by a mutex per credit.
type MemoryCreditStore struct {
	mu          sync.Mutex // guards credits, locks and the counters
	credits     map[int]Credit
	locks       map[int]*sync.Mutex
	nextID      int
	nextPayment int
}

func NewMemoryCreditStore() *MemoryCreditStore {
	return &MemoryCreditStore{
		credits: make(map[int]Credit),
		locks:   make(map[int]*sync.Mutex),
	}
}

// Add stores a new credit, assigning an ID and credit number when missing.
func (s *MemoryCreditStore) Add(c Credit) Credit {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == 0 {
		s.nextID++
		c.ID = s.nextID
	}
	if c.CreditNumber == "" {
		c.CreditNumber = fmt.Sprintf("CR-MEM-%05d", c.ID)
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	s.credits[c.ID] = c.Clone()
	return c
}

func (s *MemoryCreditStore) Load(_ context.Context, creditID int) (*Credit, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.credits[creditID]
	if !ok {
		return nil, fmt.Errorf("%w: %d", ErrCreditNotFound, creditID)
	}
	out := c.Clone()
	return &out, nil
}

func (s *MemoryCreditStore) Mutate(ctx context.Context, creditID int, fn CreditMutation) (*Credit, error) {
	lock := s.lockFor(creditID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	current, err := s.Load(ctx, creditID)
	if err != nil {
		return nil, err
	}
	known := len(current.Payments)

	next, err := fn(*current)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i := known; i < len(next.Payments); i++ {
		s.nextPayment++
		next.Payments[i].ID = s.nextPayment
		next.Payments[i].CreditID = creditID
		if next.Payments[i].ReceiptNumber == "" {
			next.Payments[i].ReceiptNumber = fmt.Sprintf("RC-MEM-%05d", s.nextPayment)
		}
	}
	s.credits[creditID] = next.Clone()
	return &next, nil
}

func (s *MemoryCreditStore) lockFor(creditID int) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[creditID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[creditID] = l
	}
	return l
}
