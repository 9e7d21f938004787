// Package identity defines the port to the external identity and role
// resolver. The engine trusts the resolver's active/suspended determination
// and never re-implements account-status checks.
package identity

import (
	"context"

	id "curanet/pkg/domain"
)

//go:generate mockgen -source=identity.go -destination=mocks/mocks.go -package=mocks Resolver

// Role is an actor's platform role as reported by the resolver.
type Role string

const (
	RolePatient  Role = "patient"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Identity is the resolver's view of an actor.
type Identity struct {
	ID     id.ActorID
	Role   Role
	Active bool
}

// Resolver resolves an actor identifier to role and account status.
// Implementations return sentinel.ErrNotFound for unknown actors.
type Resolver interface {
	Resolve(ctx context.Context, actorID id.ActorID) (*Identity, error)
}
