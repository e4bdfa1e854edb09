package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/api/auth"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
)

// CreateUserRequest is the body of POST /users.
type CreateUserRequest struct {
	Email    string        `json:"email"`
	Name     string        `json:"name"`
	Role     entities.Role `json:"role"`
	Password string        `json:"password"`
}

// UpdateUserRequest is the body of PUT /users/:id. Absent members are left alone.
type UpdateUserRequest struct {
	Email    *string        `json:"email"`
	Name     *string        `json:"name"`
	Role     *entities.Role `json:"role"`
	Password *string        `json:"password"`
	Version  *uint          `json:"version"`
}

// MeResponse describes the caller.
type MeResponse struct {
	User       *entities.User `json:"user"`
	AuthMethod string         `json:"auth_method"`
}

func (c *Controller) initUserRoutes(g *echo.Group) {
	admin := c.authMW.RequireAdmin
	g.GET("/users", c.ListUsers)
	g.GET("/users/:id", c.GetUser)
	g.POST("/users", c.CreateUser, admin)
	g.PUT("/users/:id", c.UpdateUser, admin)
	g.DELETE("/users/:id", c.DeleteUser, admin)
}

// Me returns the authenticated user.
func (c *Controller) Me(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, MeResponse{User: auth.CurrentUser(ctx), AuthMethod: auth.Method(ctx).String()})
}

// ListUsers handles GET /users
func (c *Controller) ListUsers(ctx echo.Context) error {
	return listEntities(c, ctx, "user", c.store.Users.List, c.store.Users.Count)
}

// GetUser handles GET /users/:id
func (c *Controller) GetUser(ctx echo.Context) error {
	return getEntity(c, ctx, "user", c.store.Users.GetByID)
}

// CreateUser handles POST /users
func (c *Controller) CreateUser(ctx echo.Context) error {
	var req CreateUserRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	u, err := c.store.Users.Create(ctx.Request().Context(),
		&entities.User{Email: req.Email, Name: req.Name, Role: req.Role}, req.Password)
	if err != nil {
		return c.failed(ctx, "user", "create", err)
	}
	return c.created(ctx, "user", u.ID, u)
}

// UpdateUser handles PUT /users/:id
func (c *Controller) UpdateUser(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req UpdateUserRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	u, err := c.store.Users.Update(ctx.Request().Context(), id, repository.UserPatch{
		Email:    req.Email,
		Name:     req.Name,
		Role:     req.Role,
		Password: req.Password,
		Version:  req.Version,
	})
	if err != nil {
		return c.failed(ctx, "user", "update", err)
	}
	return c.updated(ctx, "user", id, u)
}

// DeleteUser handles DELETE /users/:id. Users cannot delete themselves.
func (c *Controller) DeleteUser(ctx echo.Context) error {
	return c.deleteEntity(ctx, "user", func(rctx context.Context, id uint) error {
		if auth.CurrentUser(ctx).ID == id {
			return invalid("you cannot delete your own account")
		}
		return c.store.Users.Delete(rctx, id)
	})
}
