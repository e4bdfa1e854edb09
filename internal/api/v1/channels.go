package api

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
)

// ChannelRequest is the body of POST and PUT /channels. Volume is 0.0-1.0.
type ChannelRequest struct {
	Label       *string    `json:"label"`
	Volume      *float64   `json:"volume"`
	Mute        *bool      `json:"mute"`
	Solo        *bool      `json:"solo"`
	Link        *bool      `json:"link"`
	InterfaceID *uint      `json:"interface_id"`
	SourceID    OptionalID `json:"source_id"`
	Version     *uint      `json:"version"`
}

// FlagRequest is the body of POST /channels/:id/mute and /solo.
type FlagRequest struct {
	Value *bool `json:"value"`
}

// VolumeRequest is the body of POST /channels/:id/volume.
type VolumeRequest struct {
	Volume *float64 `json:"volume"`
}

// Channels and inputs are operator data; every authenticated user may write them.
func (c *Controller) initChannelRoutes(g *echo.Group) {
	g.GET("/channels", c.ListChannels)
	g.GET("/channels/:id", c.GetChannel)
	g.GET("/channels/:id/inputs", c.ListChannelInputs)
	g.POST("/channels", c.CreateChannel)
	g.PUT("/channels/:id", c.UpdateChannel)
	g.DELETE("/channels/:id", c.DeleteChannel)
	g.POST("/channels/:id/mute", c.SetChannelMute)
	g.POST("/channels/:id/solo", c.SetChannelSolo)
	g.POST("/channels/:id/volume", c.SetChannelVolume)
}

// ListChannels handles GET /channels
func (c *Controller) ListChannels(ctx echo.Context) error {
	return listEntities(c, ctx, "channel", c.store.Channels.List, c.store.Channels.Count)
}

// GetChannel handles GET /channels/:id
func (c *Controller) GetChannel(ctx echo.Context) error {
	return getEntity(c, ctx, "channel", c.store.Channels.GetByID)
}

// ListChannelInputs handles GET /channels/:id/inputs
func (c *Controller) ListChannelInputs(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	rctx := ctx.Request().Context()
	if _, err := c.store.Channels.GetByID(rctx, id); err != nil {
		return c.HandleError(ctx, err, "failed to get channel")
	}
	inputs, err := c.store.Inputs.ListByChannel(rctx, id)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list inputs")
	}
	if inputs == nil {
		inputs = []entities.Input{}
	}
	return ctx.JSON(http.StatusOK, inputs)
}

// CreateChannel handles POST /channels
func (c *Controller) CreateChannel(ctx echo.Context) error {
	var req ChannelRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	ch, err := c.store.Channels.Create(ctx.Request().Context(), &entities.Channel{
		Label:       deref(req.Label),
		Volume:      deref(req.Volume),
		Mute:        deref(req.Mute),
		Solo:        deref(req.Solo),
		Link:        deref(req.Link),
		InterfaceID: deref(req.InterfaceID),
		SourceID:    req.SourceID.ID,
	})
	if err != nil {
		return c.failed(ctx, "channel", "create", err)
	}
	return c.created(ctx, "channel", ch.ID, ch)
}

// UpdateChannel handles PUT /channels/:id
func (c *Controller) UpdateChannel(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req ChannelRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	ch, err := c.store.Channels.Update(ctx.Request().Context(), id, repository.ChannelPatch{
		Label:       req.Label,
		Volume:      req.Volume,
		Mute:        req.Mute,
		Solo:        req.Solo,
		Link:        req.Link,
		InterfaceID: req.InterfaceID,
		SourceID:    req.SourceID.Ref(),
		Version:     req.Version,
	})
	if err != nil {
		return c.failed(ctx, "channel", "update", err)
	}
	return c.updated(ctx, "channel", id, ch)
}

// DeleteChannel handles DELETE /channels/:id
func (c *Controller) DeleteChannel(ctx echo.Context) error {
	return c.deleteEntity(ctx, "channel", c.store.Channels.Delete)
}

// SetChannelMute handles POST /channels/:id/mute
func (c *Controller) SetChannelMute(ctx echo.Context) error {
	return c.setChannelFlag(ctx, "mute", c.store.Channels.SetMute)
}

// SetChannelSolo handles POST /channels/:id/solo
func (c *Controller) SetChannelSolo(ctx echo.Context) error {
	return c.setChannelFlag(ctx, "solo", c.store.Channels.SetSolo)
}

func (c *Controller) setChannelFlag(ctx echo.Context, flag string,
	set func(context.Context, uint, bool) (*entities.Channel, error),
) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req FlagRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	if req.Value == nil {
		return c.HandleError(ctx, invalid("value is required"), "")
	}
	ch, err := set(ctx.Request().Context(), id, *req.Value)
	if err != nil {
		return c.failed(ctx, "channel", flag, err)
	}
	return c.updated(ctx, "channel", id, ch)
}

// SetChannelVolume handles POST /channels/:id/volume
func (c *Controller) SetChannelVolume(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req VolumeRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	if req.Volume == nil {
		return c.HandleError(ctx, invalid("volume is required"), "")
	}
	ch, err := c.store.Channels.SetVolume(ctx.Request().Context(), id, *req.Volume)
	if err != nil {
		return c.failed(ctx, "channel", "volume", err)
	}
	return c.updated(ctx, "channel", id, ch)
}
