package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/fludio/fludiobe/models"
	"github.com/fludio/fludiobe/repositories"
	"go.uber.org/zap"
)

const noteColumns = `id, title, content, created_at, updated_at`

// NoteRepository implements the repositories.NoteRepository interface
type NoteRepository struct {
	db     *DB
	logger *zap.Logger
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *DB, logger *zap.Logger) repositories.NoteRepository {
	return &NoteRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new note and assigns its ID
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	query := `
		INSERT INTO notes (title, content, created_at, updated_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`

	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query,
		note.Title,
		note.Content,
		note.CreatedAt,
		note.UpdatedAt,
	).Scan(&note.ID)
	if err != nil {
		return fmt.Errorf("failed to create note: %w", err)
	}

	r.logger.Debug("note created", zap.Int64("id", note.ID))
	return nil
}

// GetByID retrieves a note by ID
func (r *NoteRepository) GetByID(ctx context.Context, id int64) (*models.Note, error) {
	return r.get(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a note by ID and locks its row
func (r *NoteRepository) GetByIDForUpdate(ctx context.Context, id int64) (*models.Note, error) {
	return r.get(ctx, `SELECT `+noteColumns+` FROM notes WHERE id = $1 FOR UPDATE`, id)
}

func (r *NoteRepository) get(ctx context.Context, query string, id int64) (*models.Note, error) {
	note := &models.Note{}
	err := GetExecutor(ctx, r.db).QueryRowContext(ctx, query, id).Scan(
		&note.ID,
		&note.Title,
		&note.Content,
		&note.CreatedAt,
		&note.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("note %d: %w", id, repositories.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get note: %w", err)
	}
	return note, nil
}

// List returns all notes, newest first
func (r *NoteRepository) List(ctx context.Context) ([]*models.Note, error) {
	query := `SELECT ` + noteColumns + ` FROM notes ORDER BY created_at DESC, id DESC`

	rows, err := GetExecutor(ctx, r.db).QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list notes: %w", err)
	}
	defer rows.Close()

	notes := make([]*models.Note, 0)
	for rows.Next() {
		note := &models.Note{}
		if err := rows.Scan(&note.ID, &note.Title, &note.Content, &note.CreatedAt, &note.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan note: %w", err)
		}
		notes = append(notes, note)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate notes: %w", err)
	}
	return notes, nil
}

// Update persists title, content and updated_at
func (r *NoteRepository) Update(ctx context.Context, note *models.Note) error {
	query := `
		UPDATE notes
		SET title = $2, content = $3, updated_at = $4
		WHERE id = $1
	`

	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, query,
		note.ID,
		note.Title,
		note.Content,
		note.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update note: %w", err)
	}
	return expectAffected(result, "note", note.ID)
}

// Delete deletes a note
func (r *NoteRepository) Delete(ctx context.Context, id int64) error {
	result, err := GetExecutor(ctx, r.db).ExecContext(ctx, `DELETE FROM notes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete note: %w", err)
	}
	return expectAffected(result, "note", id)
}
