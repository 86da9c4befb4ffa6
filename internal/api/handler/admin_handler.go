package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/identitystore/identity-service/internal/core/ports"
)

// AdminHandler serves store-wide figures to administrators.
type AdminHandler struct {
	users ports.UserService
	roles ports.RoleService
}

func NewAdminHandler(users ports.UserService, roles ports.RoleService) *AdminHandler {
	return &AdminHandler{users: users, roles: roles}
}

type statsResponse struct {
	Users int64 `json:"users"`
	Roles int64 `json:"roles"`
}

// Stats handles GET /admin/stats.
//
// @Summary      Count users and roles
// @Tags         admin
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  statsResponse
// @Failure      403  {object}  errorResponse
// @Router       /admin/stats [get]
func (h *AdminHandler) Stats(c echo.Context) error {
	ctx := c.Request().Context()

	users, err := h.users.CountUsers(ctx)
	if err != nil {
		return err
	}
	roles, err := h.roles.Count(ctx)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, statsResponse{Users: users, Roles: roles})
}
