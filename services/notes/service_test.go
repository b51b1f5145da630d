package notes

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/fludio/fludiobe/internal/policy"
	"github.com/fludio/fludiobe/internal/testutil"
	"github.com/fludio/fludiobe/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	reader = &policy.Principal{UserID: 1, Username: "reader"}
	admin  = &policy.Principal{UserID: 2, Username: "admin", IsSuperuser: true}
)

func str(s string) *string { return &s }

func newService() *Service {
	store := testutil.NewStore()
	repos := store.Repositories()
	svc := NewService(repos.Notes, store.TransactionManager(), zap.NewNop())
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return clock }
	return svc
}

func TestService_Permissions(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	note, err := svc.Create(ctx, admin, Input{Title: str("hello"), Content: str("world")})
	require.NoError(t, err)

	tests := []struct {
		name      string
		principal *policy.Principal
		run       func(p *policy.Principal) error
		want      error
	}{
		{"anonymous list", nil, func(p *policy.Principal) error { _, err := svc.List(ctx, p); return err }, nil},
		{"anonymous get", nil, func(p *policy.Principal) error { _, err := svc.Get(ctx, p, note.ID); return err }, nil},
		{"anonymous create", nil, func(p *policy.Principal) error {
			_, err := svc.Create(ctx, p, Input{Title: str("x")})
			return err
		}, services.ErrUnauthorized},
		{"regular create", reader, func(p *policy.Principal) error {
			_, err := svc.Create(ctx, p, Input{Title: str("x")})
			return err
		}, services.ErrForbidden},
		{"regular update", reader, func(p *policy.Principal) error {
			_, err := svc.Update(ctx, p, note.ID, Input{Title: str("x"), Partial: true})
			return err
		}, services.ErrForbidden},
		{"regular delete", reader, func(p *policy.Principal) error { return svc.Delete(ctx, p, note.ID) }, services.ErrForbidden},
		{"anonymous delete", nil, func(p *policy.Principal) error { return svc.Delete(ctx, p, note.ID) }, services.ErrUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(tt.principal)
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("content optional", func(t *testing.T) {
		note, err := newService().Create(ctx, admin, Input{Title: str("t")})
		require.NoError(t, err)
		assert.Equal(t, "", note.Content)
		assert.Equal(t, note.CreatedAt, note.UpdatedAt)
	})

	invalid := []struct {
		name    string
		in      Input
		message string
	}{
		{"missing title", Input{Content: str("c")}, "this field is required"},
		{"blank title", Input{Title: str("   ")}, "this field may not be blank"},
		{"long title", Input{Title: str(strings.Repeat("t", 201))}, "ensure this field has no more than 200 characters"},
		{"partial flag ignored", Input{Partial: true}, "this field is required"},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := newService().Create(ctx, admin, tt.in)
			require.True(t, services.IsValidationError(err))
			assert.Equal(t, tt.message, services.GetErrorDetails(err)["fields"].(map[string]string)["title"])
		})
	}
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	note, err := svc.Create(ctx, admin, Input{Title: str("t"), Content: str("c")})
	require.NoError(t, err)

	got, err := svc.Update(ctx, admin, note.ID, Input{Content: str("patched"), Partial: true})
	require.NoError(t, err)
	assert.Equal(t, "t", got.Title)
	assert.Equal(t, "patched", got.Content)
	assert.True(t, got.UpdatedAt.After(note.UpdatedAt))

	_, err = svc.Update(ctx, admin, note.ID, Input{Content: str("no title")})
	assert.True(t, services.IsValidationError(err))

	got, err = svc.Update(ctx, admin, note.ID, Input{Title: str("T2"), Content: str("c2")})
	require.NoError(t, err)
	assert.Equal(t, "T2", got.Title)
	assert.Equal(t, note.CreatedAt, got.CreatedAt)

	_, err = svc.Update(ctx, admin, 404, Input{Title: str("x")})
	assert.ErrorIs(t, err, services.ErrNoteNotFound)
}

func TestService_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	svc := newService()

	first, err := svc.Create(ctx, admin, Input{Title: str("first")})
	require.NoError(t, err)
	svc.now = func() time.Time { return time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC) }
	second, err := svc.Create(ctx, admin, Input{Title: str("second")})
	require.NoError(t, err)

	list, err := svc.List(ctx, nil)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID)
	assert.Equal(t, first.ID, list[1].ID)

	require.NoError(t, svc.Delete(ctx, admin, first.ID))
	assert.ErrorIs(t, svc.Delete(ctx, admin, first.ID), services.ErrNoteNotFound)

	_, err = svc.Get(ctx, nil, first.ID)
	assert.ErrorIs(t, err, services.ErrNoteNotFound)
}
