package policy

// Predicate decides whether principal may perform action on resource
type Predicate func(principal *Principal, action Action, resource Resource) bool

// And allows only when every predicate allows
func And(preds ...Predicate) Predicate {
	return func(p *Principal, a Action, r Resource) bool {
		for _, pred := range preds {
			if !pred(p, a, r) {
				return false
			}
		}
		return true
	}
}

// Or allows when any predicate allows
func Or(preds ...Predicate) Predicate {
	return func(p *Principal, a Action, r Resource) bool {
		for _, pred := range preds {
			if pred(p, a, r) {
				return true
			}
		}
		return false
	}
}

// Not inverts a predicate
func Not(pred Predicate) Predicate {
	return func(p *Principal, a Action, r Resource) bool {
		return !pred(p, a, r)
	}
}

// Authenticated allows any identified caller
func Authenticated(p *Principal, _ Action, _ Resource) bool {
	return p.IsAuthenticated()
}

// Superuser allows superusers
func Superuser(p *Principal, _ Action, _ Resource) bool {
	return p != nil && p.IsSuperuser
}

// SafeAction allows read-only actions
func SafeAction(_ *Principal, a Action, _ Resource) bool {
	return a.Safe()
}

// Owner allows the owner of the resource. Unowned resources match nobody.
func Owner(p *Principal, _ Action, r Resource) bool {
	return p != nil && r.OwnerID != 0 && r.OwnerID == p.UserID
}

var (
	// SuperuserOrReadOnly opens reads to everyone and writes to superusers
	SuperuserOrReadOnly = Or(SafeAction, And(Authenticated, Superuser))

	// OwnerOrSuperuser guards per-object access to owned records
	OwnerOrSuperuser = And(Authenticated, Or(Superuser, Owner))
)

// Evaluate runs pred and classifies a denial. A denied anonymous caller is
// unauthenticated; a denied identified caller is forbidden.
func Evaluate(pred Predicate, p *Principal, a Action, r Resource) Decision {
	if pred(p, a, r) {
		return Allow
	}
	if !p.IsAuthenticated() {
		return DenyUnauthenticated
	}
	return DenyForbidden
}

// ListScope restricts a listing to the rows a principal may see
type ListScope struct {
	// All is set for principals that see every row
	All bool
	// OwnerID is the only owner visible when All is false
	OwnerID int64
}

// Scope returns the list filter matching OwnerOrSuperuser for p.
// It must only be called for authenticated principals.
func Scope(p *Principal) ListScope {
	if p.IsSuperuser {
		return ListScope{All: true}
	}
	return ListScope{OwnerID: p.UserID}
}
