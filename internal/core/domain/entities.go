package domain

// Role represents a patron's role in the system
type Role string

const (
	RoleAdmin     Role = "ADMIN"
	RoleLibrarian Role = "LIBRARIAN"
	RoleMember    Role = "MEMBER"
)

// Staff reports whether the role may operate the circulation desk.
func (r Role) Staff() bool {
	return r == RoleAdmin || r == RoleLibrarian
}
