package shared

import "github.com/google/uuid"

// Role identifies what an authenticated actor is allowed to do.
// Roles are resolved by the identity collaborator; the core only consumes them.
type Role string

const (
	RoleCreator    Role = "creator"    // opens orders, answers change proposals
	RoleDirector   Role = "director"   // approves, rejects, proposes changes
	RoleDispatcher Role = "dispatcher" // releases approved orders to delivery
	RoleDriver     Role = "driver"     // weighs loads, reports route checkpoints
	RoleClerk      Role = "clerk"      // warehouse clerk, weighs receipts
)

// IsValid checks if the role is a known Role
func (r Role) IsValid() bool {
	switch r {
	case RoleCreator, RoleDirector, RoleDispatcher, RoleDriver, RoleClerk:
		return true
	}
	return false
}

// String returns the string representation of Role
func (r Role) String() string {
	return string(r)
}

// Actor is the authenticated identity behind an operation. Every core
// operation takes it explicitly; nothing reads identity from ambient state.
type Actor struct {
	ID   uuid.UUID
	Role Role
}

// NewActor creates an actor from an id and role
func NewActor(id uuid.UUID, role Role) Actor {
	return Actor{ID: id, Role: role}
}

// Is reports whether the actor holds the given role
func (a Actor) Is(role Role) bool {
	return a.Role == role
}
