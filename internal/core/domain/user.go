package domain

import "time"

// User is a persisted account. PasswordHash never leaves the service layer;
// outward projections are built from ports.UserView.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	FirstName    string
	LastName     string
	DOB          time.Time
	Roles        []Role
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// RoleNames returns the names of the roles assigned to u.
func (u *User) RoleNames() []string {
	names := make([]string, 0, len(u.Roles))
	for _, r := range u.Roles {
		names = append(names, r.Name)
	}
	return names
}
