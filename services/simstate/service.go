// Package simstate implements owner-scoped storage of simulation state snapshots.
package simstate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"time"
	"unicode/utf8"

	"github.com/fludio/fludiobe/internal/policy"
	"github.com/fludio/fludiobe/models"
	"github.com/fludio/fludiobe/repositories"
	"github.com/fludio/fludiobe/services"
	"go.uber.org/zap"
)

const (
	// MaxPayloadBytes bounds the serialized size of a payload, see SerializedSize
	MaxPayloadBytes = 200000
	MaxNameLength   = 200
)

// objectPolicy guards every per-object operation
var objectPolicy = policy.OwnerOrSuperuser

// CreateInput carries the client-settable fields of a new state
type CreateInput struct {
	Name    string
	Payload json.RawMessage
}

// UpdateInput carries the fields of a PUT or PATCH. Nil fields are absent
// and keep their stored value.
type UpdateInput struct {
	Name    *string
	Payload json.RawMessage
	// Partial is set for PATCH; a full update requires Payload
	Partial bool
}

// Service handles simulation state operations on behalf of a principal
type Service struct {
	repo   repositories.SimStateRepository
	txMgr  repositories.TransactionManager
	logger *zap.Logger
	now    func() time.Time
}

// NewService creates a new simulation state service
func NewService(repo repositories.SimStateRepository, txMgr repositories.TransactionManager, logger *zap.Logger) *Service {
	return &Service{
		repo:   repo,
		txMgr:  txMgr,
		logger: logger,
		now:    time.Now,
	}
}

// List returns the states visible to the principal, most recently updated first
func (s *Service) List(ctx context.Context, principal *policy.Principal) ([]*models.SimState, error) {
	if err := services.Denied(policy.Evaluate(policy.Authenticated, principal, policy.ActionRead, policy.Collection(policy.KindSimState))); err != nil {
		return nil, err
	}

	states, err := s.repo.List(ctx, filterFor(principal))
	if err != nil {
		return nil, services.WrapInternal("failed to list simulation states", err)
	}
	return states, nil
}

// Create stores a new state owned by the principal
func (s *Service) Create(ctx context.Context, principal *policy.Principal, in CreateInput) (*models.SimState, error) {
	if err := services.Denied(policy.Evaluate(policy.Authenticated, principal, policy.ActionCreate, policy.Collection(policy.KindSimState))); err != nil {
		return nil, err
	}

	fields := make(map[string]string)
	if msg := validateName(in.Name); msg != "" {
		fields["name"] = msg
	}
	payload, msg := NormalizePayload(in.Payload, true)
	if msg != "" {
		fields["payload"] = msg
	}
	if len(fields) > 0 {
		return nil, services.NewValidationError("invalid simulation state", fields)
	}

	owner := &models.User{ID: principal.UserID, Username: principal.Username}
	state := models.NewSimState(owner, in.Name, payload, s.now().UTC().Truncate(time.Microsecond))

	if err := s.repo.Create(ctx, state); err != nil {
		return nil, services.WrapInternal("failed to create simulation state", err)
	}

	s.logger.Info("simulation state created",
		zap.Int64("id", state.ID),
		zap.Int64("owner_id", state.OwnerID),
		zap.Int("payload_bytes", len(state.Payload)))
	return state, nil
}

// Get returns one state. States outside the principal's scope are not found.
func (s *Service) Get(ctx context.Context, principal *policy.Principal, id int64) (*models.SimState, error) {
	if !principal.IsAuthenticated() {
		return nil, services.ErrUnauthorized
	}

	state, err := s.repo.GetByID(ctx, id, filterFor(principal))
	if err != nil {
		return nil, notFoundOrInternal(err)
	}
	if err := authorizeObject(principal, policy.ActionRead, state); err != nil {
		return nil, err
	}
	return state, nil
}

// Update applies a full or partial update. The owner never changes and
// updated_at strictly increases.
func (s *Service) Update(ctx context.Context, principal *policy.Principal, id int64, in UpdateInput) (*models.SimState, error) {
	if !principal.IsAuthenticated() {
		return nil, services.ErrUnauthorized
	}

	fields := make(map[string]string)
	var payload json.RawMessage
	if in.Payload != nil || !in.Partial {
		var msg string
		if payload, msg = NormalizePayload(in.Payload, !in.Partial); msg != "" {
			fields["payload"] = msg
		}
	}
	if in.Name != nil {
		if msg := validateName(*in.Name); msg != "" {
			fields["name"] = msg
		}
	}
	if len(fields) > 0 {
		return nil, services.NewValidationError("invalid simulation state", fields)
	}

	return services.WithTransactionResult(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) (*models.SimState, error) {
		state, err := s.repo.GetByIDForUpdate(ctx, id, filterFor(principal))
		if err != nil {
			return nil, notFoundOrInternal(err)
		}
		if err := authorizeObject(principal, policy.ActionUpdate, state); err != nil {
			return nil, err
		}

		if in.Name != nil {
			state.Name = *in.Name
		}
		if payload != nil {
			state.Payload = payload
		}
		state.Touch(s.now())

		if err := s.repo.Update(ctx, state); err != nil {
			return nil, notFoundOrInternal(err)
		}

		s.logger.Info("simulation state updated",
			zap.Int64("id", state.ID),
			zap.Int64("user_id", principal.UserID),
			zap.Bool("partial", in.Partial))
		return state, nil
	})
}

// Delete removes a state
func (s *Service) Delete(ctx context.Context, principal *policy.Principal, id int64) error {
	if !principal.IsAuthenticated() {
		return services.ErrUnauthorized
	}

	return services.WithTransaction(ctx, s.txMgr, func(ctx context.Context, _ repositories.Transaction) error {
		state, err := s.repo.GetByIDForUpdate(ctx, id, filterFor(principal))
		if err != nil {
			return notFoundOrInternal(err)
		}
		if err := authorizeObject(principal, policy.ActionDelete, state); err != nil {
			return err
		}
		if err := s.repo.Delete(ctx, id); err != nil {
			return notFoundOrInternal(err)
		}

		s.logger.Info("simulation state deleted", zap.Int64("id", id), zap.Int64("user_id", principal.UserID))
		return nil
	})
}

// NormalizePayload validates a payload and returns its compact encoding.
// The size limit applies to the wide form measured by SerializedSize.
// A non-empty message describes why the payload was rejected.
func NormalizePayload(raw json.RawMessage, required bool) (json.RawMessage, string) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		if required {
			return nil, "this field is required"
		}
		return nil, ""
	}
	if trimmed[0] != '{' {
		return nil, "payload must be a JSON object"
	}

	var buf bytes.Buffer
	if err := json.Compact(&buf, trimmed); err != nil {
		return nil, "payload is not valid JSON"
	}

	size, err := SerializedSize(buf.Bytes())
	if err != nil {
		if errors.Is(err, errNULCharacter) {
			return nil, errNULCharacter.Error()
		}
		return nil, "payload is not valid JSON"
	}
	if size > MaxPayloadBytes {
		return nil, "payload too large (max 200000 bytes)"
	}
	return json.RawMessage(buf.Bytes()), ""
}

func validateName(name string) string {
	if utf8.RuneCountInString(name) > MaxNameLength {
		return "ensure this field has no more than 200 characters"
	}
	return ""
}

func filterFor(principal *policy.Principal) repositories.OwnerFilter {
	scope := policy.Scope(principal)
	if scope.All {
		return repositories.AllOwners()
	}
	return repositories.OwnedBy(scope.OwnerID)
}

func authorizeObject(principal *policy.Principal, action policy.Action, state *models.SimState) error {
	return services.Denied(policy.Evaluate(objectPolicy, principal, action, policy.Owned(policy.KindSimState, state.OwnerID)))
}

func notFoundOrInternal(err error) error {
	if errors.Is(err, repositories.ErrNotFound) {
		return services.ErrSimStateNotFound
	}
	return services.WrapInternal("simulation state store failed", err)
}
