package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/identitystore/identity-service/internal/core/domain"
	"github.com/identitystore/identity-service/internal/core/ports"
)

// UserHandler handles HTTP requests for user accounts.
type UserHandler struct {
	service ports.UserService
}

func NewUserHandler(service ports.UserService) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) createInput(c echo.Context) (ports.CreateUserInput, error) {
	var req createUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return ports.CreateUserInput{}, err
	}
	dob, err := parseDOB(req.DOB)
	if err != nil {
		return ports.CreateUserInput{}, domain.NewValidationError(domain.CodeInvalidDOB, "dob must be a date formatted as 2006-01-02")
	}
	return ports.CreateUserInput{
		Username:  req.Username,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		DOB:       dob,
	}, nil
}

// Create handles POST /users.
//
// @Summary      Register a user
// @Description  Creates an account holding the default USER role.
// @Tags         users
// @Accept       json
// @Produce      json
// @Param        body  body      createUserRequest  true  "New account"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /users [post]
func (h *UserHandler) Create(c echo.Context) error {
	in, err := h.createInput(c)
	if err != nil {
		return err
	}

	user, err := h.service.CreateUser(c.Request().Context(), in)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// CreateWithRole handles POST /admin/users/:role.
//
// @Summary      Create a user holding a given role
// @Description  An unknown role is skipped and the account is created without it.
// @Tags         admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        role  path      string             true  "Role name"
// @Param        body  body      createUserRequest  true  "New account"
// @Success      201   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Router       /admin/users/{role} [post]
func (h *UserHandler) CreateWithRole(c echo.Context) error {
	in, err := h.createInput(c)
	if err != nil {
		return err
	}

	user, err := h.service.CreateUserWithRole(c.Request().Context(), in, c.Param("role"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, toUserResponse(user))
}

// List handles GET /users.
//
// @Summary      List all users
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  usersResponse
// @Failure      401  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Router       /users [get]
func (h *UserHandler) List(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	users, err := h.service.GetUsers(c.Request().Context(), principal)
	if err != nil {
		return err
	}

	out := make([]userResponse, len(users))
	for i := range users {
		out[i] = toUserResponse(&users[i])
	}
	return c.JSON(http.StatusOK, usersResponse{Users: out, Total: len(out)})
}

// MyInfo handles GET /users/my-info.
//
// @Summary      Get the calling user's account
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  userResponse
// @Failure      401  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/my-info [get]
func (h *UserHandler) MyInfo(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	user, err := h.service.GetMyInfo(c.Request().Context(), principal)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Get handles GET /users/:id.
//
// @Summary      Get a user by id
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Param        id   path      string  true  "User id (UUID)"
// @Success      200  {object}  userResponse
// @Failure      400  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [get]
func (h *UserHandler) Get(c echo.Context) error {
	var req userIDParam
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	user, err := h.service.GetUser(c.Request().Context(), req.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Update handles PUT /users/:id.
//
// @Summary      Update a user
// @Description  Callers may update only their own account unless they hold ADMIN. Roles are replaced, not merged.
// @Tags         users
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "User id (UUID)"
// @Param        body  body      updateUserRequest  true  "Full update"
// @Success      200   {object}  userResponse
// @Failure      400   {object}  errorResponse
// @Failure      403   {object}  errorResponse
// @Failure      404   {object}  errorResponse
// @Router       /users/{id} [put]
func (h *UserHandler) Update(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req updateUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}
	dob, err := parseDOB(req.DOB)
	if err != nil {
		return domain.NewValidationError(domain.CodeInvalidDOB, "dob must be a date formatted as 2006-01-02")
	}

	user, err := h.service.UpdateUser(c.Request().Context(), principal, req.ID, ports.UpdateUserInput{
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		DOB:       dob,
		Roles:     req.Roles,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, toUserResponse(user))
}

// Delete handles DELETE /users/:id.
//
// @Summary      Delete a user
// @Tags         users
// @Security     BearerAuth
// @Param        id   path  string  true  "User id (UUID)"
// @Success      204
// @Failure      400  {object}  errorResponse
// @Failure      403  {object}  errorResponse
// @Failure      404  {object}  errorResponse
// @Router       /users/{id} [delete]
func (h *UserHandler) Delete(c echo.Context) error {
	principal, err := ctxPrincipal(c)
	if err != nil {
		return err
	}

	var req userIDParam
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	if err := h.service.DeleteUser(c.Request().Context(), principal, req.ID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}
