package service

import (
	"github.com/identitystore/identity-service/internal/core/domain"
	"github.com/identitystore/identity-service/internal/core/ports"
)

func toRoleView(r domain.Role) ports.RoleView {
	return ports.RoleView{Name: r.Name, Description: r.Description}
}

func toUserView(u *domain.User) *ports.UserView {
	roles := make([]ports.RoleView, len(u.Roles))
	for i, r := range u.Roles {
		roles[i] = toRoleView(r)
	}
	return &ports.UserView{
		ID:        u.ID,
		Username:  u.Username,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		DOB:       u.DOB,
		Roles:     roles,
	}
}
