package policy

import "net/http"

// Principal is the authenticated caller. A nil *Principal is the anonymous caller.
type Principal struct {
	UserID      int64
	Username    string
	Email       string
	IsSuperuser bool
}

// IsAuthenticated reports whether p identifies a user
func (p *Principal) IsAuthenticated() bool {
	return p != nil
}

// Action is the kind of operation being authorized
type Action string

const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Safe reports whether the action has no side effects
func (a Action) Safe() bool {
	return a == ActionRead
}

// ActionForMethod maps an HTTP method to the action it performs
func ActionForMethod(method string) Action {
	switch method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return ActionRead
	case http.MethodPost:
		return ActionCreate
	case http.MethodDelete:
		return ActionDelete
	default:
		return ActionUpdate
	}
}

// ResourceKind names a protected resource type
type ResourceKind string

const (
	KindSimState ResourceKind = "simstate"
	KindNote     ResourceKind = "note"
	KindUser     ResourceKind = "user"
)

// Resource is the target of an action. OwnerID is zero for collections
// and for objects without an owner.
type Resource struct {
	Kind    ResourceKind
	OwnerID int64
}

// Collection returns the collection-level resource of a kind
func Collection(kind ResourceKind) Resource {
	return Resource{Kind: kind}
}

// Owned returns an object resource owned by ownerID
func Owned(kind ResourceKind, ownerID int64) Resource {
	return Resource{Kind: kind, OwnerID: ownerID}
}

// Decision is the outcome of evaluating a predicate
type Decision int

const (
	Allow Decision = iota
	// DenyUnauthenticated means the caller must authenticate first
	DenyUnauthenticated
	// DenyForbidden means the authenticated caller lacks permission
	DenyForbidden
)

// Allowed reports whether the decision permits the action
func (d Decision) Allowed() bool {
	return d == Allow
}

func (d Decision) String() string {
	switch d {
	case Allow:
		return "allow"
	case DenyUnauthenticated:
		return "unauthenticated"
	default:
		return "forbidden"
	}
}
