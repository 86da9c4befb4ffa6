package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/identitystore/identity-service/internal/core/ports"
)

// RoleHandler handles HTTP requests for roles.
type RoleHandler struct {
	service ports.RoleService
}

func NewRoleHandler(service ports.RoleService) *RoleHandler {
	return &RoleHandler{service: service}
}

// Create handles POST /roles.
//
// @Summary      Create a role
// @Tags         roles
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      createRoleRequest  true  "New role"
// @Success      201   {object}  roleResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /roles [post]
func (h *RoleHandler) Create(c echo.Context) error {
	var req createRoleRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	role, err := h.service.Create(c.Request().Context(), req.Name, req.Description)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, roleResponse(*role))
}

// List handles GET /roles.
//
// @Summary      List roles
// @Tags         roles
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  rolesResponse
// @Router       /roles [get]
func (h *RoleHandler) List(c echo.Context) error {
	roles, err := h.service.GetAll(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, rolesResponse{Roles: toRoleResponses(roles)})
}

// Delete handles DELETE /roles/:name.
//
// @Summary      Delete a role
// @Description  Users holding the role lose it; the users themselves stay.
// @Tags         roles
// @Security     BearerAuth
// @Param        name  path  string  true  "Role name"
// @Success      204
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /roles/{name} [delete]
func (h *RoleHandler) Delete(c echo.Context) error {
	if err := h.service.Delete(c.Request().Context(), c.Param("name")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
