package store

import (
	"context"
	"sync"

	"github.com/pkg/errors"

	"github.com/japaniel/kogoto/pkg/pet"
	"github.com/japaniel/kogoto/pkg/session"
	"github.com/japaniel/kogoto/pkg/vocab"
)

// Memory is an in-process Store.
type Memory struct {
	Retention      int
	WrongQueueSize int

	mu       sync.RWMutex
	sessions []session.Result
	// ids outlives retention so an evicted session is never credited twice
	ids      map[string]bool
	wrong    []int64
	points   int
	pet      pet.State
}

// NewMemory returns an empty store with default bounds.
func NewMemory() *Memory {
	return &Memory{
		Retention:      DefaultRetention,
		WrongQueueSize: DefaultWrongQueueSize,
		ids:            map[string]bool{},
		pet:            pet.Initial,
	}
}

var _ Store = (*Memory)(nil)

func (m *Memory) SaveSession(_ context.Context, r session.Result) error {
	if r.ID == "" {
		return errors.New("session id is empty")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ids[r.ID] {
		return errors.Wrapf(ErrDuplicateSession, "%s", r.ID)
	}
	m.ids[r.ID] = true
	m.sessions = append(m.sessions, r.Clone())
	if n := len(m.sessions) - m.Retention; m.Retention > 0 && n > 0 {
		m.sessions = append([]session.Result(nil), m.sessions[n:]...)
	}
	m.wrong = TrimQueue(append(m.wrong, r.WrongIDs...), m.WrongQueueSize)
	m.points += r.EarnedPoints
	return nil
}

func (m *Memory) MissWeights(context.Context) (vocab.MissWeights, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return MissWeightsFrom(m.sessions), nil
}

func (m *Memory) LatestSession(context.Context) (session.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if len(m.sessions) == 0 {
		return session.Result{}, ErrNoSession
	}
	return m.sessions[len(m.sessions)-1].Clone(), nil
}

func (m *Memory) Sessions(context.Context) ([]session.Result, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]session.Result, len(m.sessions))
	for i, r := range m.sessions {
		out[i] = r.Clone()
	}
	return out, nil
}

func (m *Memory) WrongQueue(context.Context) ([]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]int64(nil), m.wrong...), nil
}

func (m *Memory) Points(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.points, nil
}

func (m *Memory) Pet(context.Context) (pet.State, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.pet, nil
}

func (m *Memory) UpdatePet(_ context.Context, fn PetUpdate) (pet.State, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cost, next, err := fn(m.points, m.pet)
	if err != nil {
		return m.pet, m.points, err
	}
	if cost > m.points {
		return m.pet, m.points, errors.Wrapf(pet.ErrInsufficientPoints, "cost %d, balance %d", cost, m.points)
	}
	m.points -= cost
	m.pet = next
	return m.pet, m.points, nil
}

// TrimQueue keeps the newest limit ids. A non-positive limit keeps all.
func TrimQueue(ids []int64, limit int) []int64 {
	if limit > 0 && len(ids) > limit {
		return append([]int64(nil), ids[len(ids)-limit:]...)
	}
	return ids
}
