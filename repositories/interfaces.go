package repositories

import (
	"context"
	"errors"

	"github.com/fludio/fludiobe/models"
)

var (
	// ErrNotFound is returned when a lookup matches no row
	ErrNotFound = errors.New("record not found")

	// ErrDuplicate is returned when an insert violates a unique constraint
	ErrDuplicate = errors.New("duplicate record")
)

// TransactionManager manages database transactions
type TransactionManager interface {
	// Begin starts a new transaction. Repository calls made with
	// Transaction.Context() run inside it.
	Begin(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction
type Transaction interface {
	// Commit commits the transaction
	Commit() error

	// Rollback rolls back the transaction
	Rollback() error

	// Context returns a context carrying the transaction
	Context() context.Context
}

// OwnerFilter restricts a query to rows owned by a single user.
// A nil OwnerID matches every row.
type OwnerFilter struct {
	OwnerID *int64
}

// AllOwners matches rows of every owner
func AllOwners() OwnerFilter {
	return OwnerFilter{}
}

// OwnedBy matches only rows owned by userID
func OwnedBy(userID int64) OwnerFilter {
	return OwnerFilter{OwnerID: &userID}
}

// UserRepository handles user data operations
type UserRepository interface {
	// Create inserts the user and sets its ID.
	// Returns ErrDuplicate if the username is taken.
	Create(ctx context.Context, user *models.User) error

	// GetByID retrieves a user by ID
	GetByID(ctx context.Context, id int64) (*models.User, error)

	// GetByUsername retrieves a user by username
	GetByUsername(ctx context.Context, username string) (*models.User, error)

	// ExistsByUsername reports whether the username is taken
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// SimStateRepository handles simulation state data operations
type SimStateRepository interface {
	// Create inserts the state and sets its ID
	Create(ctx context.Context, state *models.SimState) error

	// GetByID retrieves a state visible through the filter
	GetByID(ctx context.Context, id int64, filter OwnerFilter) (*models.SimState, error)

	// GetByIDForUpdate is GetByID with a row lock held until the
	// surrounding transaction ends
	GetByIDForUpdate(ctx context.Context, id int64, filter OwnerFilter) (*models.SimState, error)

	// List returns states visible through the filter, most recently
	// updated first
	List(ctx context.Context, filter OwnerFilter) ([]*models.SimState, error)

	// Update persists name, payload and updated_at
	Update(ctx context.Context, state *models.SimState) error

	// Delete deletes a state
	Delete(ctx context.Context, id int64) error
}

// NoteRepository handles note data operations
type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	GetByID(ctx context.Context, id int64) (*models.Note, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*models.Note, error)
	List(ctx context.Context) ([]*models.Note, error)
	Update(ctx context.Context, note *models.Note) error
	Delete(ctx context.Context, id int64) error
}

// Repositories holds all repository instances
type Repositories struct {
	Users     UserRepository
	SimStates SimStateRepository
	Notes     NoteRepository
}
