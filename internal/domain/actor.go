package domain

// ActorRole is the studio role of whoever issues a command.
type ActorRole string

const (
	RoleCoordinator  ActorRole = "coordinator"
	RolePhotographer ActorRole = "photographer"
	RoleEditor       ActorRole = "editor"
	RoleAdmin        ActorRole = "admin"
)

// Actor identifies the caller of a command. Authentication happens outside
// the engine; the engine trusts the values it is given.
type Actor struct {
	ID   string
	Role ActorRole
}

// CanOverride reports whether the actor holds override authority.
func (a Actor) CanOverride() bool {
	return a.Role == RoleAdmin
}
