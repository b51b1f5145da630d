// Package policy provides the authorization rules for the fludio API.
//
// Rules are predicates over a principal, an action and a resource. They are
// composed with And, Or and Not and evaluated twice per request: once at the
// route level by middleware, before the handler runs, and once per object
// inside the services. Scope turns the same ownership rule into a list
// filter so that unauthorized rows never leave the database.
package policy
