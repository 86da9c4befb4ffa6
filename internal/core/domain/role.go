package domain

const (
	RoleAdmin = "ADMIN"
	RoleUser  = "USER"
)

// Role is a named permission group. Name is the primary key and never changes
// after creation.
type Role struct {
	Name        string
	Description string
}
