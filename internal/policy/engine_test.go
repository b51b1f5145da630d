package policy

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

var (
	alice = &Principal{UserID: 1, Username: "alice"}
	bob   = &Principal{UserID: 2, Username: "bob"}
	root  = &Principal{UserID: 3, Username: "root", IsSuperuser: true}
)

func TestActionForMethod(t *testing.T) {
	tests := []struct {
		method string
		want   Action
	}{
		{http.MethodGet, ActionRead},
		{http.MethodHead, ActionRead},
		{http.MethodOptions, ActionRead},
		{http.MethodPost, ActionCreate},
		{http.MethodPut, ActionUpdate},
		{http.MethodPatch, ActionUpdate},
		{http.MethodDelete, ActionDelete},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			assert.Equal(t, tt.want, ActionForMethod(tt.method))
		})
	}
}

func TestCombinators(t *testing.T) {
	allow := func(*Principal, Action, Resource) bool { return true }
	deny := func(*Principal, Action, Resource) bool { return false }
	r := Collection(KindNote)

	assert.True(t, And()(nil, ActionRead, r))
	assert.True(t, And(allow, allow)(nil, ActionRead, r))
	assert.False(t, And(allow, deny)(nil, ActionRead, r))
	assert.False(t, Or()(nil, ActionRead, r))
	assert.True(t, Or(deny, allow)(nil, ActionRead, r))
	assert.True(t, Not(deny)(nil, ActionRead, r))
}

func TestSuperuserOrReadOnly(t *testing.T) {
	notes := Collection(KindNote)

	tests := []struct {
		name      string
		principal *Principal
		action    Action
		want      Decision
	}{
		{"anonymous read", nil, ActionRead, Allow},
		{"user read", alice, ActionRead, Allow},
		{"anonymous write", nil, ActionCreate, DenyUnauthenticated},
		{"user write", alice, ActionUpdate, DenyForbidden},
		{"user delete", alice, ActionDelete, DenyForbidden},
		{"superuser write", root, ActionCreate, Allow},
		{"superuser delete", root, ActionDelete, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Evaluate(SuperuserOrReadOnly, tt.principal, tt.action, notes))
		})
	}
}

func TestOwnerOrSuperuser(t *testing.T) {
	owned := Owned(KindSimState, alice.UserID)

	tests := []struct {
		name      string
		principal *Principal
		resource  Resource
		want      Decision
	}{
		{"owner", alice, owned, Allow},
		{"other user", bob, owned, DenyForbidden},
		{"superuser", root, owned, Allow},
		{"anonymous", nil, owned, DenyUnauthenticated},
		{"unowned resource", alice, Collection(KindSimState), DenyForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for _, a := range []Action{ActionRead, ActionUpdate, ActionDelete} {
				assert.Equal(t, tt.want, Evaluate(OwnerOrSuperuser, tt.principal, a, tt.resource), a)
			}
		})
	}
}

func TestScope(t *testing.T) {
	assert.Equal(t, ListScope{OwnerID: 1}, Scope(alice))
	assert.Equal(t, ListScope{All: true}, Scope(root))
}

func TestDecision(t *testing.T) {
	assert.True(t, Allow.Allowed())
	assert.False(t, DenyForbidden.Allowed())
	assert.Equal(t, "unauthenticated", DenyUnauthenticated.String())
	assert.Equal(t, "forbidden", DenyForbidden.String())
}
