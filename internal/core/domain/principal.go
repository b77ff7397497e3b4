package domain

type Role string

const (
	RoleClient Role = "client"
	RoleAdmin  Role = "admin"
)

// Principal is the already-verified identity making a request. Core
// operations receive it as an explicit value; they never read ambient
// request state.
type Principal struct {
	ID     string
	Role   Role
	Active bool
}

func (p Principal) IsAdmin() bool {
	return p.Role == RoleAdmin
}
