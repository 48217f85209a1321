// Package memory is an in-process Store used for development and tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/iwvelando/solarfarm-site/internal/store"
)

// Store keeps records in maps guarded by a mutex.
type Store struct {
	mu           sync.RWMutex
	now          func() time.Time
	leads        []store.Lead
	subscribers  map[string]store.Subscriber
	calculations map[string]store.Calculation
	assessments  []store.Assessment
}

// New returns an empty store.
func New() *Store {
	return &Store{
		now:          time.Now,
		subscribers:  make(map[string]store.Subscriber),
		calculations: make(map[string]store.Calculation),
	}
}

// WithClock replaces the clock used for CreatedAt.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
	return s
}

func (s *Store) SaveLead(_ context.Context, lead store.Lead) (store.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	store.Identify(&lead.ID, &lead.CreatedAt, s.now())
	s.leads = append(s.leads, lead)
	return lead, nil
}

func (s *Store) SaveSubscriber(_ context.Context, sub store.Subscriber) (store.Subscriber, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if existing, ok := s.subscribers[sub.Email]; ok {
		return existing, false, nil
	}
	store.Identify(&sub.ID, &sub.CreatedAt, s.now())
	s.subscribers[sub.Email] = sub
	return sub, true, nil
}

func (s *Store) Subscriber(_ context.Context, email string) (store.Subscriber, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscribers[email]
	if !ok {
		return store.Subscriber{}, store.ErrNotFound
	}
	return sub, nil
}

func (s *Store) SaveCalculation(_ context.Context, calc store.Calculation) (store.Calculation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	store.Identify(&calc.ID, &calc.CreatedAt, s.now())
	s.calculations[calc.ID] = calc
	return calc, nil
}

func (s *Store) SaveAssessment(_ context.Context, a store.Assessment) (store.Assessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	store.Identify(&a.ID, &a.CreatedAt, s.now())
	s.assessments = append(s.assessments, a)
	return a, nil
}

func (s *Store) PurgeCalculations(_ context.Context, before time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var purged int64
	for id, calc := range s.calculations {
		if calc.CreatedAt.Before(before) {
			delete(s.calculations, id)
			purged++
		}
	}
	return purged, nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() {}

// Leads returns a copy of the stored leads in insertion order.
func (s *Store) Leads() []store.Lead {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Lead(nil), s.leads...)
}

// Assessments returns a copy of the stored assessments in insertion order.
func (s *Store) Assessments() []store.Assessment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]store.Assessment(nil), s.assessments...)
}

// CalculationCount returns the number of stored calculation logs.
func (s *Store) CalculationCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.calculations)
}

var _ store.Store = (*Store)(nil)
