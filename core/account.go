package core

// AccountState is the explicit lifecycle state derived from the persisted
// (is_active, is_deleted) flag pair. Keeping it as an enum makes the
// invalid active+deleted combination unrepresentable outside the storage
// boundary.
type AccountState int

const (
	StateActive AccountState = iota
	StateDeactivated
)

func (s AccountState) String() string {
	if s == StateActive {
		return "active"
	}
	return "deactivated"
}

// StateFromFlags translates the persisted flag pair into a state. The
// active+deleted combination must never occur; it is surfaced as
// ErrIntegrityViolation, not repaired.
func StateFromFlags(active, deleted bool) (AccountState, error) {
	if active && deleted {
		return StateDeactivated, ErrIntegrityViolation
	}
	if active {
		return StateActive, nil
	}
	return StateDeactivated, nil
}

// Flags translates a state back into the persisted flag pair.
func (s AccountState) Flags() (active, deleted bool) {
	if s == StateActive {
		return true, false
	}
	return false, true
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

// RootAdminUsername identifies the distinguished root admin, the only
// account with no creator.
const RootAdminUsername = "admin"

// Principal carries the fields the authorization predicates need. Both
// the actor and the target of a lifecycle action are expressed this way
// so the rules stay independent of the storage engine.
type Principal struct {
	ID        string
	Username  string
	Role      string
	CreatedBy *string
}

func (p Principal) IsRoot() bool {
	return p.Username == RootAdminUsername && p.CreatedBy == nil
}

// CanManage reports whether the actor may deactivate or reactivate the
// target. The root admin may manage anyone; other admins may only manage
// user accounts they created.
func CanManage(actor, target Principal) bool {
	if actor.Role != RoleAdmin {
		return false
	}
	if actor.IsRoot() {
		return true
	}
	if target.Role == RoleUser && target.CreatedBy != nil && *target.CreatedBy == actor.ID {
		return true
	}
	return false
}

// CanPurge reports whether the actor may permanently delete an account.
func CanPurge(actor Principal) bool {
	return actor.Role == RoleAdmin && actor.IsRoot()
}

// CanCreateAdmin reports whether the actor may create admin accounts.
func CanCreateAdmin(actor Principal) bool {
	return actor.Role == RoleAdmin && actor.IsRoot()
}
