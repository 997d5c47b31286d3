// Package store defines session persistence and the statistics derived from
// session history.
package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/japaniel/kogoto/pkg/pet"
	"github.com/japaniel/kogoto/pkg/session"
	"github.com/japaniel/kogoto/pkg/vocab"
)

var (
	// ErrNoSession is returned when no session has been saved yet.
	ErrNoSession = errors.New("no session saved")
	// ErrDuplicateSession is returned when a session id is saved twice. The
	// second save changes nothing, so points are credited once.
	ErrDuplicateSession = errors.New("session already saved")
)

// Defaults for bounded history.
const (
	DefaultRetention      = 50
	DefaultWrongQueueSize = 100
)

// Store persists sessions and the state derived from them. SaveSession
// updates history, the wrong queue and the points balance in one step; a
// concurrent reader sees either all of it or none of it.
type Store interface {
	SaveSession(ctx context.Context, r session.Result) error
	// MissWeights derives weights from retained history. Words whose most
	// recent outcome was correct are absent.
	MissWeights(ctx context.Context) (vocab.MissWeights, error)
	LatestSession(ctx context.Context) (session.Result, error)
	// Sessions returns retained history, oldest first.
	Sessions(ctx context.Context) ([]session.Result, error)
	// WrongQueue returns recently missed ids, oldest first.
	WrongQueue(ctx context.Context) ([]int64, error)
	Points(ctx context.Context) (int, error)
	Pet(ctx context.Context) (pet.State, error)
	// UpdatePet applies fn to the balance and pet state atomically. fn
	// returns the points to debit and the new state; an error from fn
	// leaves both unchanged.
	UpdatePet(ctx context.Context, fn PetUpdate) (pet.State, int, error)
}

// PetUpdate computes a pet change from the current balance and state.
type PetUpdate func(points int, p pet.State) (cost int, next pet.State, err error)

// FeedUpdate returns the PetUpdate for eating f.
func FeedUpdate(f pet.Food) PetUpdate {
	return func(points int, p pet.State) (int, pet.State, error) {
		next, cost, err := p.Feed(f, points)
		return cost, next, err
	}
}
