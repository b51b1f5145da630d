// Package testutil provides in-memory repositories for tests that exercise
// services and HTTP routes without a database.
package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fludio/fludiobe/models"
	"github.com/fludio/fludiobe/repositories"
)

// Store is an in-memory implementation of every repository interface
type Store struct {
	mu        sync.Mutex
	nextID    int64
	users     map[int64]*models.User
	simStates map[int64]*models.SimState
	notes     map[int64]*models.Note
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		users:     make(map[int64]*models.User),
		simStates: make(map[int64]*models.SimState),
		notes:     make(map[int64]*models.Note),
	}
}

// Repositories returns repository views over the store
func (s *Store) Repositories() *repositories.Repositories {
	return &repositories.Repositories{
		Users:     userRepo{s},
		SimStates: simStateRepo{s},
		Notes:     noteRepo{s},
	}
}

// TransactionManager returns a manager whose transactions are no-ops
func (s *Store) TransactionManager() repositories.TransactionManager {
	return txManager{}
}

// SetUser stores a copy of the user, replacing any with the same ID
func (s *Store) SetUser(user *models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := *user
	s.users[u.ID] = &u
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

type userRepo struct{ s *Store }

func (r userRepo) Create(_ context.Context, user *models.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == user.Username {
			return fmt.Errorf("username %q: %w", user.Username, repositories.ErrDuplicate)
		}
	}
	user.ID = r.s.id()
	u := *user
	r.s.users[u.ID] = &u
	return nil
}

func (r userRepo) GetByID(_ context.Context, id int64) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok {
		return nil, fmt.Errorf("user %d: %w", id, repositories.ErrNotFound)
	}
	cp := *u
	return &cp, nil
}

func (r userRepo) GetByUsername(_ context.Context, username string) (*models.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("user %q: %w", username, repositories.ErrNotFound)
}

func (r userRepo) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	_, err := r.GetByUsername(ctx, username)
	return err == nil, nil
}

type simStateRepo struct{ s *Store }

func visible(state *models.SimState, filter repositories.OwnerFilter) bool {
	return filter.OwnerID == nil || state.OwnerID == *filter.OwnerID
}

func (r simStateRepo) Create(_ context.Context, state *models.SimState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	owner, ok := r.s.users[state.OwnerID]
	if !ok {
		return fmt.Errorf("owner %d does not exist", state.OwnerID)
	}
	state.ID = r.s.id()
	state.OwnerUsername = owner.Username
	cp := *state
	r.s.simStates[cp.ID] = &cp
	return nil
}

func (r simStateRepo) GetByID(_ context.Context, id int64, filter repositories.OwnerFilter) (*models.SimState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	state, ok := r.s.simStates[id]
	if !ok || !visible(state, filter) {
		return nil, fmt.Errorf("simstate %d: %w", id, repositories.ErrNotFound)
	}
	cp := *state
	return &cp, nil
}

func (r simStateRepo) GetByIDForUpdate(ctx context.Context, id int64, filter repositories.OwnerFilter) (*models.SimState, error) {
	return r.GetByID(ctx, id, filter)
}

func (r simStateRepo) List(_ context.Context, filter repositories.OwnerFilter) ([]*models.SimState, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.SimState, 0)
	for _, state := range r.s.simStates {
		if visible(state, filter) {
			cp := *state
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r simStateRepo) Update(_ context.Context, state *models.SimState) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.simStates[state.ID]
	if !ok {
		return fmt.Errorf("simstate %d: %w", state.ID, repositories.ErrNotFound)
	}
	stored.Name = state.Name
	stored.Payload = append([]byte(nil), state.Payload...)
	stored.UpdatedAt = state.UpdatedAt
	return nil
}

func (r simStateRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.simStates[id]; !ok {
		return fmt.Errorf("simstate %d: %w", id, repositories.ErrNotFound)
	}
	delete(r.s.simStates, id)
	return nil
}

type noteRepo struct{ s *Store }

func (r noteRepo) Create(_ context.Context, note *models.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	note.ID = r.s.id()
	cp := *note
	r.s.notes[cp.ID] = &cp
	return nil
}

func (r noteRepo) GetByID(_ context.Context, id int64) (*models.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	note, ok := r.s.notes[id]
	if !ok {
		return nil, fmt.Errorf("note %d: %w", id, repositories.ErrNotFound)
	}
	cp := *note
	return &cp, nil
}

func (r noteRepo) GetByIDForUpdate(ctx context.Context, id int64) (*models.Note, error) {
	return r.GetByID(ctx, id)
}

func (r noteRepo) List(_ context.Context) ([]*models.Note, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]*models.Note, 0, len(r.s.notes))
	for _, note := range r.s.notes {
		cp := *note
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (r noteRepo) Update(_ context.Context, note *models.Note) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notes[note.ID]; !ok {
		return fmt.Errorf("note %d: %w", note.ID, repositories.ErrNotFound)
	}
	cp := *note
	r.s.notes[cp.ID] = &cp
	return nil
}

func (r noteRepo) Delete(_ context.Context, id int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.notes[id]; !ok {
		return fmt.Errorf("note %d: %w", id, repositories.ErrNotFound)
	}
	delete(r.s.notes, id)
	return nil
}

type txManager struct{}

func (txManager) Begin(ctx context.Context) (repositories.Transaction, error) {
	return tx{ctx: ctx}, nil
}

type tx struct{ ctx context.Context }

func (tx) Commit() error { return nil }

func (tx) Rollback() error { return nil }

func (t tx) Context() context.Context { return t.ctx }
