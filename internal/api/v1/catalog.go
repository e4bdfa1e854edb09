package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
)

// TypeRequest is the body of POST and PUT /types.
type TypeRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Version     *uint   `json:"version"`
}

// DeviceRequest is the body of POST and PUT /devices.
type DeviceRequest struct {
	Name        *string    `json:"name"`
	Description *string    `json:"description"`
	TypeID      OptionalID `json:"type_id"`
	Version     *uint      `json:"version"`
}

// FrequencyRequest is the body of POST and PUT /frequencies. Value is in kHz.
type FrequencyRequest struct {
	Value   *float64 `json:"value"`
	Unit    *string  `json:"unit"`
	Version *uint    `json:"version"`
}

// SourceRequest is the body of POST and PUT /sources.
type SourceRequest struct {
	Name    *string    `json:"name"`
	TypeID  OptionalID `json:"type_id"`
	Version *uint      `json:"version"`
}

// initCatalogRoutes registers the reference tables. Reads are open to
// every user, writes need the admin role.
func (c *Controller) initCatalogRoutes(g *echo.Group) {
	admin := c.authMW.RequireAdmin

	g.GET("/types", c.ListTypes)
	g.GET("/types/:id", c.GetType)
	g.POST("/types", c.CreateType, admin)
	g.PUT("/types/:id", c.UpdateType, admin)
	g.DELETE("/types/:id", c.DeleteType, admin)

	g.GET("/devices", c.ListDevices)
	g.GET("/devices/:id", c.GetDevice)
	g.POST("/devices", c.CreateDevice, admin)
	g.PUT("/devices/:id", c.UpdateDevice, admin)
	g.DELETE("/devices/:id", c.DeleteDevice, admin)

	g.GET("/frequencies", c.ListFrequencies)
	g.GET("/frequencies/:id", c.GetFrequency)
	g.POST("/frequencies", c.CreateFrequency, admin)
	g.PUT("/frequencies/:id", c.UpdateFrequency, admin)
	g.DELETE("/frequencies/:id", c.DeleteFrequency, admin)

	g.GET("/sources", c.ListSources)
	g.GET("/sources/page", c.PageSources)
	g.GET("/sources/:id", c.GetSource)
	g.POST("/sources", c.CreateSource, admin)
	g.PUT("/sources/:id", c.UpdateSource, admin)
	g.DELETE("/sources/:id", c.DeleteSource, admin)
}

func deref[T any](p *T) T {
	var zero T
	if p == nil {
		return zero
	}
	return *p
}

// ListTypes handles GET /types
func (c *Controller) ListTypes(ctx echo.Context) error {
	return listEntities(c, ctx, "type", c.store.Types.List, c.store.Types.Count)
}

// GetType handles GET /types/:id
func (c *Controller) GetType(ctx echo.Context) error {
	return getEntity(c, ctx, "type", c.store.Types.GetByID)
}

// CreateType handles POST /types
func (c *Controller) CreateType(ctx echo.Context) error {
	var req TypeRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	t, err := c.store.Types.Create(ctx.Request().Context(),
		&entities.Type{Name: deref(req.Name), Description: deref(req.Description)})
	if err != nil {
		return c.failed(ctx, "type", "create", err)
	}
	return c.created(ctx, "type", t.ID, t)
}

// UpdateType handles PUT /types/:id
func (c *Controller) UpdateType(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req TypeRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	t, err := c.store.Types.Update(ctx.Request().Context(), id, repository.TypePatch{
		Name:        req.Name,
		Description: req.Description,
		Version:     req.Version,
	})
	if err != nil {
		return c.failed(ctx, "type", "update", err)
	}
	return c.updated(ctx, "type", id, t)
}

// DeleteType handles DELETE /types/:id. Types still used by devices or
// sources answer 409.
func (c *Controller) DeleteType(ctx echo.Context) error {
	return c.deleteEntity(ctx, "type", c.store.Types.Delete)
}

// ListDevices handles GET /devices, filtered by ?search= on name and description
func (c *Controller) ListDevices(ctx echo.Context) error {
	term := strings.TrimSpace(ctx.QueryParam("search"))
	if term == "" {
		return listEntities(c, ctx, "device", c.store.Devices.List, c.store.Devices.Count)
	}

	opts, err := listOptions(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid paging parameters")
	}
	items, err := c.store.Devices.Search(ctx.Request().Context(), term, opts)
	if err != nil {
		return c.HandleError(ctx, err, "failed to search devices")
	}
	if items == nil {
		items = []entities.Device{}
	}
	return ctx.JSON(http.StatusOK, ListResponse[entities.Device]{
		Items:  items,
		Total:  int64(len(items)),
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// GetDevice handles GET /devices/:id
func (c *Controller) GetDevice(ctx echo.Context) error {
	return getEntity(c, ctx, "device", c.store.Devices.GetByID)
}

// CreateDevice handles POST /devices
func (c *Controller) CreateDevice(ctx echo.Context) error {
	var req DeviceRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	d, err := c.store.Devices.Create(ctx.Request().Context(), &entities.Device{
		Name:        deref(req.Name),
		Description: deref(req.Description),
		TypeID:      req.TypeID.ID,
	})
	if err != nil {
		return c.failed(ctx, "device", "create", err)
	}
	return c.created(ctx, "device", d.ID, d)
}

// UpdateDevice handles PUT /devices/:id
func (c *Controller) UpdateDevice(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req DeviceRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	d, err := c.store.Devices.Update(ctx.Request().Context(), id, repository.DevicePatch{
		Name:        req.Name,
		Description: req.Description,
		TypeID:      req.TypeID.Ref(),
		Version:     req.Version,
	})
	if err != nil {
		return c.failed(ctx, "device", "update", err)
	}
	return c.updated(ctx, "device", id, d)
}

// DeleteDevice handles DELETE /devices/:id
func (c *Controller) DeleteDevice(ctx echo.Context) error {
	return c.deleteEntity(ctx, "device", c.store.Devices.Delete)
}

// ListFrequencies handles GET /frequencies
func (c *Controller) ListFrequencies(ctx echo.Context) error {
	return listEntities(c, ctx, "frequency", c.store.Frequencies.List, c.store.Frequencies.Count)
}

// GetFrequency handles GET /frequencies/:id
func (c *Controller) GetFrequency(ctx echo.Context) error {
	return getEntity(c, ctx, "frequency", c.store.Frequencies.GetByID)
}

// CreateFrequency handles POST /frequencies
func (c *Controller) CreateFrequency(ctx echo.Context) error {
	var req FrequencyRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	if req.Value == nil {
		return c.failed(ctx, "frequency", "create", invalid("value is required"))
	}
	f, err := c.store.Frequencies.Create(ctx.Request().Context(),
		&entities.Frequency{Value: *req.Value, Unit: deref(req.Unit)})
	if err != nil {
		return c.failed(ctx, "frequency", "create", err)
	}
	return c.created(ctx, "frequency", f.ID, f)
}

// UpdateFrequency handles PUT /frequencies/:id
func (c *Controller) UpdateFrequency(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req FrequencyRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	f, err := c.store.Frequencies.Update(ctx.Request().Context(), id, repository.FrequencyPatch{
		Value:   req.Value,
		Unit:    req.Unit,
		Version: req.Version,
	})
	if err != nil {
		return c.failed(ctx, "frequency", "update", err)
	}
	return c.updated(ctx, "frequency", id, f)
}

// DeleteFrequency handles DELETE /frequencies/:id
func (c *Controller) DeleteFrequency(ctx echo.Context) error {
	return c.deleteEntity(ctx, "frequency", c.store.Frequencies.Delete)
}

// ListSources handles GET /sources
func (c *Controller) ListSources(ctx echo.Context) error {
	return listEntities(c, ctx, "source", c.store.Sources.List, c.store.Sources.Count)
}

// SourcePage is the response of GET /sources/page.
type SourcePage struct {
	Items []entities.Source `json:"items"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Size  int               `json:"size"`
	Pages int               `json:"pages"`
}

// PageSources handles GET /sources/page?page=&size=, numbered pages for
// clients that page by number rather than offset.
func (c *Controller) PageSources(ctx echo.Context) error {
	page, size := 1, defaultLimit
	if v := ctx.QueryParam("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return c.HandleError(ctx, invalid("page must be a positive number"), "")
		}
		page = n
	}
	if v := ctx.QueryParam("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxLimit {
			return c.HandleError(ctx, invalid("size must be between 1 and "+strconv.Itoa(maxLimit)), "")
		}
		size = n
	}

	p, err := c.store.Sources.Page(ctx.Request().Context(), page, size)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list sources")
	}
	items := p.Items
	if items == nil {
		items = []entities.Source{}
	}
	return ctx.JSON(http.StatusOK, SourcePage{Items: items, Total: p.Total, Page: p.Page, Size: p.Size, Pages: p.TotalPages()})
}

// GetSource handles GET /sources/:id
func (c *Controller) GetSource(ctx echo.Context) error {
	return getEntity(c, ctx, "source", c.store.Sources.GetByID)
}

// CreateSource handles POST /sources
func (c *Controller) CreateSource(ctx echo.Context) error {
	var req SourceRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	s, err := c.store.Sources.Create(ctx.Request().Context(), &entities.Source{Name: deref(req.Name), TypeID: req.TypeID.ID})
	if err != nil {
		return c.failed(ctx, "source", "create", err)
	}
	return c.created(ctx, "source", s.ID, s)
}

// UpdateSource handles PUT /sources/:id
func (c *Controller) UpdateSource(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req SourceRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	s, err := c.store.Sources.Update(ctx.Request().Context(), id, repository.SourcePatch{
		Name:    req.Name,
		TypeID:  req.TypeID.Ref(),
		Version: req.Version,
	})
	if err != nil {
		return c.failed(ctx, "source", "update", err)
	}
	return c.updated(ctx, "source", id, s)
}

// DeleteSource handles DELETE /sources/:id
func (c *Controller) DeleteSource(ctx echo.Context) error {
	return c.deleteEntity(ctx, "source", c.store.Sources.Delete)
}
