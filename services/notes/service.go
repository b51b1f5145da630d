// Package notes implements the note resource: open reads, superuser writes.
package notes

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/fludio/fludiobe/internal/policy"
	"github.com/fludio/fludiobe/models"
	"github.com/fludio/fludiobe/repositories"
	"github.com/fludio/fludiobe/services"
	"go.uber.org/zap"
)

const MaxTitleLength = 200

var notePolicy = policy.SuperuserOrReadOnly

// Input carries the client-settable fields of a note. Nil fields are absent.
type Input struct {
	Title   *string
	Content *string
	// Partial is set for PATCH; otherwise Title is required
	Partial bool
}

// Service handles note operations
type Service struct {
	repo   repositories.NoteRepository
	txMgr  repositories.TransactionManager
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new note service
func NewService(repo repositories.NoteRepository, txMgr repositories.TransactionManager, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		txMgr:  txMgr,
		logger: logger,
		now:    time.Now,
	}
}

// List returns every note, newest first
func (s *Service) List(ctx context.Context, principal *policy.Principal) ([]*models.Note, error) {
	if err := authorize(principal, policy.ActionRead); err != nil {
		return nil, err
	}
	notes, err := s.repo.List(ctx)
	if err != nil {
		return nil, services.WrapInternal("failed to list notes", err)
	}
	return notes, nil
}

// Create stores a new note
func (s *Service) Create(ctx context.Context, principal *policy.Principal, in Input) (*models.Note, error) {
	if err := authorize(principal, policy.ActionCreate); err != nil {
		return nil, err
	}
	in.Partial = false
	if err := validate(in); err != nil {
		return nil, err
	}

	var content string
	if in.Content != nil {
		content = *in.Content
	}
	note := models.NewNote(*in.Title, content, s.now().UTC().Truncate(time.Microsecond))
	if err := s.repo.Create(ctx, note); err != nil {
		return nil, services.WrapInternal("failed to create note", err)
	}

	s.logger.Info("note created", zap.Int64("id", note.ID), zap.Int64("user_id", principal.UserID))
	return note, nil
}

// Get returns one note
func (s *Service) Get(ctx context.Context, principal *policy.Principal, id int64) (*models.Note, error) {
	if err := authorize(principal, policy.ActionRead); err != nil {
		return nil, err
	}
	note, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, notFoundOrInternal(err)
	}
	return note, nil
}

// Update applies a full or partial update
func (s *Service) Update(ctx context.Context, principal *policy.Principal, id int64, in Input) (*models.Note, error) {
	if err := authorize(principal, policy.ActionUpdate); err != nil {
		return nil, err
	}
	if err := validate(in); err != nil {
		return nil, err
	}

	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*models.Note, error) {
		note, err := s.repo.GetByIDForUpdate(ctx, id)
		if err != nil {
			return nil, notFoundOrInternal(err)
		}

		if in.Title != nil {
			note.Title = *in.Title
		}
		if in.Content != nil {
			note.Content = *in.Content
		}
		note.Touch(s.now())

		if err := s.repo.Update(ctx, note); err != nil {
			return nil, notFoundOrInternal(err)
		}
		s.logger.Info("note updated", zap.Int64("id", id), zap.Int64("user_id", principal.UserID))
		return note, nil
	})
}

// Delete removes a note
func (s *Service) Delete(ctx context.Context, principal *policy.Principal, id int64) error {
	if err := authorize(principal, policy.ActionDelete); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return notFoundOrInternal(err)
	}
	s.logger.Info("note deleted", zap.Int64("id", id), zap.Int64("user_id", principal.UserID))
	return nil
}

func authorize(principal *policy.Principal, action policy.Action) error {
	return services.Denied(policy.Evaluate(notePolicy, principal, action, policy.Collection(policy.KindNote)))
}

func validate(in Input) error {
	fields := make(map[string]string)
	switch {
	case in.Title == nil:
		if !in.Partial {
			fields["title"] = "this field is required"
		}
	case strings.TrimSpace(*in.Title) == "":
		fields["title"] = "this field may not be blank"
	case utf8.RuneCountInString(*in.Title) > MaxTitleLength:
		fields["title"] = "ensure this field has no more than 200 characters"
	}
	if len(fields) > 0 {
		return services.NewValidationError("invalid note", fields)
	}
	return nil
}

func notFoundOrInternal(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return services.ErrNoteNotFound
	}
	return services.WrapInternal("note store failed", err)
}
