package api

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
)

// InputRequest is the body of POST and PUT /inputs.
type InputRequest struct {
	Label       *string    `json:"label"`
	Description *string    `json:"description"`
	ChannelID   OptionalID `json:"channel_id"`
	SourceID    OptionalID `json:"source_id"`
	DeviceID    OptionalID `json:"device_id"`
	Version     *uint      `json:"version"`
}

func (c *Controller) initInputRoutes(g *echo.Group) {
	g.GET("/inputs", c.ListInputs)
	g.GET("/inputs/:id", c.GetInput)
	g.POST("/inputs", c.CreateInput)
	g.PUT("/inputs/:id", c.UpdateInput)
	g.DELETE("/inputs/:id", c.DeleteInput)
	g.GET("/devices/:id/inputs", c.ListDeviceInputs)
}

// ListInputs handles GET /inputs. With ?search= it returns every input
// whose label contains the term, unpaged.
func (c *Controller) ListInputs(ctx echo.Context) error {
	term := strings.TrimSpace(ctx.QueryParam("search"))
	if term == "" {
		return listEntities(c, ctx, "input", c.store.Inputs.List, c.store.Inputs.Count)
	}
	items, err := c.store.Inputs.SearchByLabel(ctx.Request().Context(), term)
	if err != nil {
		return c.HandleError(ctx, err, "failed to search inputs")
	}
	if items == nil {
		items = []entities.Input{}
	}
	return ctx.JSON(http.StatusOK, ListResponse[entities.Input]{Items: items, Total: int64(len(items)), Limit: len(items)})
}

// GetInput handles GET /inputs/:id
func (c *Controller) GetInput(ctx echo.Context) error {
	return getEntity(c, ctx, "input", c.store.Inputs.GetByID)
}

// ListDeviceInputs handles GET /devices/:id/inputs
func (c *Controller) ListDeviceInputs(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	rctx := ctx.Request().Context()
	if _, err := c.store.Devices.GetByID(rctx, id); err != nil {
		return c.HandleError(ctx, err, "failed to get device")
	}
	items, err := c.store.Inputs.ListByDevice(rctx, id)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list inputs")
	}
	if items == nil {
		items = []entities.Input{}
	}
	return ctx.JSON(http.StatusOK, items)
}

// CreateInput handles POST /inputs
func (c *Controller) CreateInput(ctx echo.Context) error {
	var req InputRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	in, err := c.store.Inputs.Create(ctx.Request().Context(), &entities.Input{
		Label:       deref(req.Label),
		Description: deref(req.Description),
		ChannelID:   req.ChannelID.ID,
		SourceID:    req.SourceID.ID,
		DeviceID:    req.DeviceID.ID,
	})
	if err != nil {
		return c.failed(ctx, "input", "create", err)
	}
	return c.created(ctx, "input", in.ID, in)
}

// UpdateInput handles PUT /inputs/:id
func (c *Controller) UpdateInput(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req InputRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	in, err := c.store.Inputs.Update(ctx.Request().Context(), id, repository.InputPatch{
		Label:       req.Label,
		Description: req.Description,
		ChannelID:   req.ChannelID.Ref(),
		SourceID:    req.SourceID.Ref(),
		DeviceID:    req.DeviceID.Ref(),
		Version:     req.Version,
	})
	if err != nil {
		return c.failed(ctx, "input", "update", err)
	}
	return c.updated(ctx, "input", id, in)
}

// DeleteInput handles DELETE /inputs/:id
func (c *Controller) DeleteInput(ctx echo.Context) error {
	return c.deleteEntity(ctx, "input", c.store.Inputs.Delete)
}
