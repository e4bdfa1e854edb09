package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
)

// InterfaceRequest is the body of POST and PUT /interfaces.
type InterfaceRequest struct {
	ShortName      *string    `json:"short_name"`
	Model          *string    `json:"model"`
	CommercialName *string    `json:"commercial_name"`
	Price          *float64   `json:"price"`
	DeviceID       OptionalID `json:"device_id"`
	FrequencyID    OptionalID `json:"frequency_id"`
	Version        *uint      `json:"version"`
}

func (c *Controller) initInterfaceRoutes(g *echo.Group) {
	admin := c.authMW.RequireAdmin
	g.GET("/interfaces", c.ListInterfaces)
	g.GET("/interfaces/:id", c.GetInterface)
	g.GET("/interfaces/:id/channels", c.ListInterfaceChannels)
	g.GET("/interfaces/:id/configurations", c.ListInterfaceConfigurations)
	g.POST("/interfaces", c.CreateInterface, admin)
	g.PUT("/interfaces/:id", c.UpdateInterface, admin)
	g.DELETE("/interfaces/:id", c.DeleteInterface, admin)
}

// ListInterfaces handles GET /interfaces
func (c *Controller) ListInterfaces(ctx echo.Context) error {
	return listEntities(c, ctx, "interface", c.store.Interfaces.List, c.store.Interfaces.Count)
}

// GetInterface handles GET /interfaces/:id
func (c *Controller) GetInterface(ctx echo.Context) error {
	return getEntity(c, ctx, "interface", c.store.Interfaces.GetByID)
}

// ListInterfaceChannels handles GET /interfaces/:id/channels
func (c *Controller) ListInterfaceChannels(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	rctx := ctx.Request().Context()
	if _, err := c.store.Interfaces.GetByID(rctx, id); err != nil {
		return c.HandleError(ctx, err, "failed to get interface")
	}
	channels, err := c.store.Channels.ListByInterface(rctx, id)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list channels")
	}
	if channels == nil {
		channels = []entities.Channel{}
	}
	return ctx.JSON(http.StatusOK, channels)
}

// ListInterfaceConfigurations handles GET /interfaces/:id/configurations,
// newest first.
func (c *Controller) ListInterfaceConfigurations(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	opts, err := listOptions(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid paging parameters")
	}
	rctx := ctx.Request().Context()
	if _, err := c.store.Interfaces.GetByID(rctx, id); err != nil {
		return c.HandleError(ctx, err, "failed to get interface")
	}
	items, err := c.store.Configurations.ListByInterface(rctx, id, opts)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list configurations")
	}
	if items == nil {
		items = []entities.Configuration{}
	}
	return ctx.JSON(http.StatusOK, items)
}

// CreateInterface handles POST /interfaces
func (c *Controller) CreateInterface(ctx echo.Context) error {
	var req InterfaceRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	a, err := c.store.Interfaces.Create(ctx.Request().Context(), &entities.AudioInterface{
		ShortName:      deref(req.ShortName),
		ModelName:      deref(req.Model),
		CommercialName: deref(req.CommercialName),
		Price:          deref(req.Price),
		DeviceID:       req.DeviceID.ID,
		FrequencyID:    req.FrequencyID.ID,
	})
	if err != nil {
		return c.failed(ctx, "interface", "create", err)
	}
	return c.created(ctx, "interface", a.ID, a)
}

// UpdateInterface handles PUT /interfaces/:id
func (c *Controller) UpdateInterface(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req InterfaceRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	a, err := c.store.Interfaces.Update(ctx.Request().Context(), id, repository.AudioInterfacePatch{
		ShortName:      req.ShortName,
		ModelName:      req.Model,
		CommercialName: req.CommercialName,
		Price:          req.Price,
		DeviceID:       req.DeviceID.Ref(),
		FrequencyID:    req.FrequencyID.Ref(),
		Version:        req.Version,
	})
	if err != nil {
		return c.failed(ctx, "interface", "update", err)
	}
	return c.updated(ctx, "interface", id, a)
}

// DeleteInterface handles DELETE /interfaces/:id. Its channels and saved
// configurations go with it.
func (c *Controller) DeleteInterface(ctx echo.Context) error {
	return c.deleteEntity(ctx, "interface", c.store.Interfaces.Delete)
}
