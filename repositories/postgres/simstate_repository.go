package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/fludio/fludiobe/models"
	"github.com/fludio/fludiobe/repositories"
	"go.uber.org/zap"
)

const simStateSelect = `
	SELECT s.id, s.owner_id, u.username, s.name, s.payload, s.created_at, s.updated_at
	FROM simstates s
	JOIN users u ON u.id = s.owner_id
`

// SimStateRepository implements the repositories.SimStateRepository interface
type SimStateRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewSimStateRepository creates a new simulation state repository
func NewSimStateRepository(db *DB, logger *zap.Logger) repositories.SimStateRepository {
	return &SimStateRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new simulation state and assigns its ID
func (r *SimStateRepository) Create(ctx context.Context, state *models.SimState) error {
	query := `
		INSERT INTO simstates (owner_id, name, payload, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`

	executor := GetExecutor(ctx, r.db)
	err := executor.QueryRowContext(ctx, query,
		state.OwnerID,
		state.Name,
		string(state.Payload),
		state.CreatedAt,
		state.UpdatedAt,
	).Scan(&state.ID)

	if err != nil {
		return fmt.Errorf("failed to create simstate: %w", err)
	}

	r.logger.Debug("simstate created", zap.Int64("id", state.ID), zap.Int64("owner_id", state.OwnerID))
	return nil
}

// GetByID retrieves a simulation state visible through the filter
func (r *SimStateRepository) GetByID(ctx context.Context, id int64, filter repositories.OwnerFilter) (*models.SimState, error) {
	return r.get(ctx, id, filter, "")
}

// GetByIDForUpdate retrieves a simulation state and locks its row
func (r *SimStateRepository) GetByIDForUpdate(ctx context.Context, id int64, filter repositories.OwnerFilter) (*models.SimState, error) {
	return r.get(ctx, id, filter, " FOR UPDATE OF s")
}

func (r *SimStateRepository) get(ctx context.Context, id int64, filter repositories.OwnerFilter, lock string) (*models.SimState, error) {
	where, args := ownerWhere(filter, "s.id = $1")
	query := simStateSelect + where + lock

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, append([]interface{}{id}, args...)...)
	if err != nil {
		return nil, fmt.Errorf("failed to get simstate: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("failed to get simstate: %w", err)
		}
		return nil, fmt.Errorf("simstate %d: %w", id, repositories.ErrNotFound)
	}
	return scanSimState(rows)
}

// List returns simulation states visible through the filter, newest update first
func (r *SimStateRepository) List(ctx context.Context, filter repositories.OwnerFilter) ([]*models.SimState, error) {
	where, args := ownerWhere(filter, "")
	query := simStateSelect + where + " ORDER BY s.updated_at DESC, s.id DESC"

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list simstates: %w", err)
	}
	defer rows.Close()

	states := make([]*models.SimState, 0)
	for rows.Next() {
		state, err := scanSimState(rows)
		if err != nil {
			return nil, err
		}
		states = append(states, state)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate simstates: %w", err)
	}
	return states, nil
}

// Update persists the mutable fields of a simulation state
func (r *SimStateRepository) Update(ctx context.Context, state *models.SimState) error {
	query := `
		UPDATE simstates
		SET name = $2, payload = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		state.ID,
		state.Name,
		string(state.Payload),
		state.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update simstate: %w", err)
	}
	if err := expectAffected(result, "simstate", state.ID); err != nil {
		return err
	}

	r.logger.Debug("simstate updated", zap.Int64("id", state.ID))
	return nil
}

// Delete deletes a simulation state
func (r *SimStateRepository) Delete(ctx context.Context, id int64) error {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM simstates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete simstate: %w", err)
	}
	if err := expectAffected(result, "simstate", id); err != nil {
		return err
	}

	r.logger.Debug("simstate deleted", zap.Int64("id", id))
	return nil
}

// ownerWhere builds the WHERE clause for an owner filter. Placeholders for
// the filter are numbered after the one used by base, if any.
func ownerWhere(filter repositories.OwnerFilter, base string) (string, []interface{}) {
	var conds []string
	var args []interface{}
	next := 1
	if base != "" {
		conds = append(conds, base)
		next = 2
	}
	if filter.OwnerID != nil {
		conds = append(conds, fmt.Sprintf("s.owner_id = $%d", next))
		args = append(args, *filter.OwnerID)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

func scanSimState(rows *sql.Rows) (*models.SimState, error) {
	state := &models.SimState{}
	var payload []byte
	err := rows.Scan(
		&state.ID,
		&state.OwnerID,
		&state.OwnerUsername,
		&state.Name,
		&payload,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan simstate: %w", err)
	}
	state.Payload = payload
	return state, nil
}

// expectAffected maps a zero-row write to ErrNotFound
func expectAffected(result sql.Result, kind string, id int64) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, repositories.ErrNotFound)
	}
	return nil
}
