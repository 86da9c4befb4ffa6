package domain

// Principal is the caller identity attributed by the authentication layer.
type Principal struct {
	Name  string
	Roles []string
}

// HasRole reports whether the principal holds role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// IsAdmin reports whether the principal holds the administrative role.
func (p Principal) IsAdmin() bool {
	return p.HasRole(RoleAdmin)
}
