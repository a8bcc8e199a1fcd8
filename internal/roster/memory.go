// Package roster provides the in-memory activity roster store.
package roster

import (
	"context"
	"sync"

	"example.com/signup/internal/domain"
)

// InMemoryRepository keeps activity rosters in process memory. State lives only as long
// as the repository value; a new repository starts again from its seed set.
type InMemoryRepository struct {
	mu         sync.RWMutex
	order      []string
	activities map[string]*domain.Activity
}

// NewInMemoryRepository builds a repository holding a private copy of seed.
func NewInMemoryRepository(seed []domain.Activity) (*InMemoryRepository, error) {
	if err := validateSeed(seed); err != nil {
		return nil, err
	}

	repo := &InMemoryRepository{
		order:      make([]string, 0, len(seed)),
		activities: make(map[string]*domain.Activity, len(seed)),
	}
	for _, activity := range seed {
		clone := activity.Clone()
		repo.order = append(repo.order, clone.Name)
		repo.activities[clone.Name] = &clone
	}
	return repo, nil
}

// MustLoad is NewInMemoryRepository for seed sets known to be valid. It panics otherwise.
func MustLoad(seed []domain.Activity) *InMemoryRepository {
	repo, err := NewInMemoryRepository(seed)
	if err != nil {
		panic(err)
	}
	return repo
}

// NewDefaultRepository returns a repository populated from the embedded seed set.
func NewDefaultRepository() *InMemoryRepository {
	seed, err := DefaultSeed()
	if err != nil {
		panic(err)
	}
	return MustLoad(seed)
}

// List implements domain.Repository. Activities come back in seed order as deep copies.
func (r *InMemoryRepository) List(ctx context.Context) ([]domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Activity, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.activities[name].Clone())
	}
	return out, nil
}

// Get returns a copy of a single activity.
func (r *InMemoryRepository) Get(ctx context.Context, name string) (domain.Activity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	activity, ok := r.activities[name]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	return activity.Clone(), nil
}

// AddParticipant implements domain.Repository.
func (r *InMemoryRepository) AddParticipant(ctx context.Context, name, email string) (domain.Activity, error) {
	return r.mutate(name, func(a *domain.Activity) error {
		return a.AddParticipant(email)
	})
}

// RemoveParticipant implements domain.Repository.
func (r *InMemoryRepository) RemoveParticipant(ctx context.Context, name, email string) (domain.Activity, error) {
	return r.mutate(name, func(a *domain.Activity) error {
		return a.RemoveParticipant(email)
	})
}

func (r *InMemoryRepository) mutate(name string, apply func(*domain.Activity) error) (domain.Activity, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	activity, ok := r.activities[name]
	if !ok {
		return domain.Activity{}, domain.ErrActivityNotFound
	}
	if err := apply(activity); err != nil {
		return domain.Activity{}, err
	}
	return activity.Clone(), nil
}
