package identity

import (
	"context"
	"sync"

	id "curanet/pkg/domain"
	"curanet/pkg/platform/sentinel"
)

// StaticResolver is an in-memory Resolver for local development and tests.
type StaticResolver struct {
	mu         sync.RWMutex
	identities map[id.ActorID]Identity
}

func NewStaticResolver() *StaticResolver {
	return &StaticResolver{identities: make(map[id.ActorID]Identity)}
}

// Register adds or replaces an identity.
func (r *StaticResolver) Register(identity Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.identities[identity.ID] = identity
}

// RegisterPatient is a shorthand used heavily in tests.
func (r *StaticResolver) RegisterPatient(patientID id.PatientID) {
	r.Register(Identity{ID: patientID.AsActor(), Role: RolePatient, Active: true})
}

// RegisterProvider is a shorthand used heavily in tests.
func (r *StaticResolver) RegisterProvider(providerID id.ProviderID) {
	r.Register(Identity{ID: id.ActorID(providerID), Role: RoleProvider, Active: true})
}

// Suspend marks an actor inactive without removing it.
func (r *StaticResolver) Suspend(actorID id.ActorID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	identity, ok := r.identities[actorID]
	if !ok {
		return
	}
	identity.Active = false
	r.identities[actorID] = identity
}

func (r *StaticResolver) Resolve(_ context.Context, actorID id.ActorID) (*Identity, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	identity, ok := r.identities[actorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := identity
	return &cp, nil
}
