package api

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/console-panel/internal/api/auth"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
)

// maxImportSize caps the YAML accepted by POST /configurations/import.
const maxImportSize = 1 << 20

// SnapshotRequest is the body of POST /configurations/snapshot.
type SnapshotRequest struct {
	InterfaceID uint   `json:"interface_id"`
	Name        string `json:"name"`
}

// ChannelSettingRequest is one channel of a configuration being created.
type ChannelSettingRequest struct {
	ChannelID uint    `json:"channel_id"`
	SourceID  *uint   `json:"source_id"`
	Volume    float64 `json:"volume"`
	Mute      bool    `json:"mute"`
	Solo      bool    `json:"solo"`
	Link      bool    `json:"link"`
}

// InputConnectionRequest is one input of a configuration being created.
type InputConnectionRequest struct {
	InputID  uint  `json:"input_id"`
	DeviceID *uint `json:"device_id"`
}

// CreateConfigurationRequest is the body of POST /configurations. UserID
// defaults to the caller; only admins may name another user.
type CreateConfigurationRequest struct {
	Name        string                   `json:"name"`
	UserID      *uint                    `json:"user_id"`
	InterfaceID uint                     `json:"interface_id"`
	FrequencyID *uint                    `json:"frequency_id"`
	SavedAt     *time.Time               `json:"saved_at"`
	Channels    []ChannelSettingRequest  `json:"channels"`
	Inputs      []InputConnectionRequest `json:"inputs"`
}

// UpdateConfigurationRequest is the body of PUT /configurations/:id.
type UpdateConfigurationRequest struct {
	Name        *string    `json:"name"`
	FrequencyID OptionalID `json:"frequency_id"`
	Version     *uint      `json:"version"`
}

// ChannelSettingUpdateRequest is the body of PUT /configurations/:id/channels/:channel_id.
type ChannelSettingUpdateRequest struct {
	Volume   *float64   `json:"volume"`
	Mute     *bool      `json:"mute"`
	Solo     *bool      `json:"solo"`
	Link     *bool      `json:"link"`
	SourceID OptionalID `json:"source_id"`
	Version  *uint      `json:"version"`
}

// ApplyResponse is the body of POST /configurations/:id/apply.
type ApplyResponse struct {
	Configuration *entities.Configuration `json:"configuration"`
	Channels      int                     `json:"channels"`
	Inputs        int                     `json:"inputs"`
	Frequency     bool                    `json:"frequency"`
}

// Configurations are readable by everyone. Operators may only change,
// apply or delete their own.
func (c *Controller) initConfigurationRoutes(g *echo.Group) {
	g.GET("/configurations", c.ListConfigurations)
	g.GET("/configurations/latest", c.LatestConfiguration)
	g.POST("/configurations/snapshot", c.SnapshotConfiguration)
	g.POST("/configurations/import", c.ImportConfiguration)
	g.POST("/configurations", c.CreateConfiguration)
	g.GET("/configurations/:id", c.GetConfiguration)
	g.GET("/configurations/:id/export", c.ExportConfiguration)
	g.PUT("/configurations/:id", c.UpdateConfiguration)
	g.DELETE("/configurations/:id", c.DeleteConfiguration)
	g.POST("/configurations/:id/apply", c.ApplyConfiguration)
	g.PUT("/configurations/:id/channels/:channel_id", c.UpdateChannelSetting)
}

// ListConfigurations handles GET /configurations. ?user_id= narrows the
// list to one user's configurations, newest first.
func (c *Controller) ListConfigurations(ctx echo.Context) error {
	v := ctx.QueryParam("user_id")
	if v == "" {
		return listEntities(c, ctx, "configuration", c.store.Configurations.List, c.store.Configurations.Count)
	}

	userID, err := strconv.ParseUint(v, 10, 0)
	if err != nil {
		return c.HandleError(ctx, invalid("user_id must be a number"), "")
	}
	opts, err := listOptions(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "invalid paging parameters")
	}
	rctx := ctx.Request().Context()
	total, err := c.store.Configurations.CountByUser(rctx, uint(userID))
	if err != nil {
		return c.HandleError(ctx, err, "failed to count configuration records")
	}
	items, err := c.store.Configurations.ListByUser(rctx, uint(userID), opts)
	if err != nil {
		return c.HandleError(ctx, err, "failed to list configurations")
	}
	if items == nil {
		items = []entities.Configuration{}
	}
	return ctx.JSON(http.StatusOK, ListResponse[entities.Configuration]{
		Items:  items,
		Total:  total,
		Limit:  opts.Limit,
		Offset: opts.Offset,
	})
}

// LatestConfiguration handles GET /configurations/latest. It returns the
// caller's newest configuration; ?user_id= picks another user and
// ?user_id=0 the newest of anyone.
func (c *Controller) LatestConfiguration(ctx echo.Context) error {
	userID := auth.CurrentUser(ctx).ID
	if v := ctx.QueryParam("user_id"); v != "" {
		n, err := strconv.ParseUint(v, 10, 0)
		if err != nil {
			return c.HandleError(ctx, invalid("user_id must be a number"), "")
		}
		userID = uint(n)
	}
	cfg, err := c.store.Configurations.Latest(ctx.Request().Context(), userID)
	if err != nil {
		return c.HandleError(ctx, err, "no saved configuration")
	}
	return ctx.JSON(http.StatusOK, cfg)
}

// GetConfiguration handles GET /configurations/:id
func (c *Controller) GetConfiguration(ctx echo.Context) error {
	return getEntity(c, ctx, "configuration", c.store.Configurations.GetByID)
}

// SnapshotConfiguration handles POST /configurations/snapshot. It captures
// the current state of an interface for the caller.
func (c *Controller) SnapshotConfiguration(ctx echo.Context) error {
	var req SnapshotRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	if req.InterfaceID == 0 {
		return c.failed(ctx, "configuration", "snapshot", invalid("interface_id is required"))
	}
	rctx := ctx.Request().Context()
	cfg, err := c.store.Configurations.Save(rctx, repository.SnapshotRequest{
		UserID:      auth.CurrentUser(ctx).ID,
		InterfaceID: req.InterfaceID,
		Name:        req.Name,
	})
	if err != nil {
		return c.failed(ctx, "configuration", "snapshot", err)
	}
	_ = c.events.Saved(rctx, cfg)
	return c.created(ctx, "configuration", cfg.ID, cfg)
}

// CreateConfiguration handles POST /configurations with a complete
// configuration in the body.
func (c *Controller) CreateConfiguration(ctx echo.Context) error {
	var req CreateConfigurationRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}

	user := auth.CurrentUser(ctx)
	cfg := &entities.Configuration{
		Name:        strings.TrimSpace(req.Name),
		UserID:      user.ID,
		InterfaceID: req.InterfaceID,
		FrequencyID: req.FrequencyID,
	}
	if req.UserID != nil && *req.UserID != user.ID {
		if !user.IsAdmin() {
			return c.failed(ctx, "configuration", "create", forbidden("only admins may save configurations for other users"))
		}
		cfg.UserID = *req.UserID
	}
	if req.SavedAt != nil {
		cfg.SavedAt = *req.SavedAt
	}
	for _, s := range req.Channels {
		cfg.Channels = append(cfg.Channels, entities.ChannelSetting{
			ChannelID: s.ChannelID,
			SourceID:  s.SourceID,
			Volume:    s.Volume,
			Mute:      s.Mute,
			Solo:      s.Solo,
			Link:      s.Link,
		})
	}
	for _, in := range req.Inputs {
		cfg.Inputs = append(cfg.Inputs, entities.InputConnection{InputID: in.InputID, DeviceID: in.DeviceID})
	}
	return c.storeConfiguration(ctx, cfg, "create")
}

// ImportConfiguration handles POST /configurations/import. The body is a
// document produced by the export endpoint; it is stored as a new
// configuration of the caller.
func (c *Controller) ImportConfiguration(ctx echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(ctx.Request().Body, maxImportSize+1))
	if err != nil {
		return c.HandleError(ctx, invalid("failed to read request body"), "")
	}
	if len(body) > maxImportSize {
		return c.failed(ctx, "configuration", "import", invalid("configuration document is too large"))
	}

	var cfg entities.Configuration
	if err := yaml.Unmarshal(body, &cfg); err != nil {
		return c.failed(ctx, "configuration", "import", invalid("malformed configuration document"))
	}
	cfg.ID = 0
	cfg.Version = 0
	cfg.UserID = auth.CurrentUser(ctx).ID
	return c.storeConfiguration(ctx, &cfg, "import")
}

func (c *Controller) storeConfiguration(ctx echo.Context, cfg *entities.Configuration, operation string) error {
	rctx := ctx.Request().Context()
	saved, err := c.store.Configurations.Create(rctx, cfg)
	if err != nil {
		return c.failed(ctx, "configuration", operation, err)
	}
	_ = c.events.Saved(rctx, saved)
	return c.created(ctx, "configuration", saved.ID, saved)
}

// ExportConfiguration handles GET /configurations/:id/export. The YAML
// document can be fed back to the import endpoint.
func (c *Controller) ExportConfiguration(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	cfg, err := c.store.Configurations.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return c.HandleError(ctx, err, "failed to get configuration")
	}
	out, err := yaml.Marshal(cfg)
	if err != nil {
		return c.HandleError(ctx, errors.New(err).
			Component("api").
			Category(errors.CategorySystem).
			Context("operation", "export_configuration").
			Build(), "failed to export configuration")
	}

	ctx.Response().Header().Set(echo.HeaderContentDisposition,
		`attachment; filename="configuration-`+strconv.FormatUint(uint64(id), 10)+`.yaml"`)
	return ctx.Blob(http.StatusOK, "application/yaml", out)
}

// UpdateConfiguration handles PUT /configurations/:id
func (c *Controller) UpdateConfiguration(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req UpdateConfigurationRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	if err := c.requireOwner(ctx, id); err != nil {
		return c.failed(ctx, "configuration", "update", err)
	}
	cfg, err := c.store.Configurations.Update(ctx.Request().Context(), id, repository.ConfigurationPatch{
		Name:        req.Name,
		FrequencyID: req.FrequencyID.Ref(),
		Version:     req.Version,
	})
	if err != nil {
		return c.failed(ctx, "configuration", "update", err)
	}
	return c.updated(ctx, "configuration", id, cfg)
}

// DeleteConfiguration handles DELETE /configurations/:id
func (c *Controller) DeleteConfiguration(ctx echo.Context) error {
	return c.deleteEntity(ctx, "configuration", func(rctx context.Context, id uint) error {
		if err := c.requireOwner(ctx, id); err != nil {
			return err
		}
		if err := c.store.Configurations.Delete(rctx, id); err != nil {
			return err
		}
		_ = c.events.Deleted(rctx, id)
		return nil
	})
}

// ApplyConfiguration handles POST /configurations/:id/apply. It writes the
// saved state back onto the interface's channels and inputs.
func (c *Controller) ApplyConfiguration(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	if err := c.requireOwner(ctx, id); err != nil {
		return c.failed(ctx, "configuration", "apply", err)
	}
	rctx := ctx.Request().Context()
	result, err := c.store.Configurations.Apply(rctx, id)
	if err != nil {
		return c.failed(ctx, "configuration", "apply", err)
	}
	cfg, err := c.store.Configurations.GetByID(rctx, id)
	if err != nil {
		return c.HandleError(ctx, err, "failed to get configuration")
	}
	_ = c.events.Applied(rctx, cfg, result)

	c.record("configuration", "apply", nil)
	c.log.Info("configuration applied", append(logFields(ctx, "configuration", id),
		logger.Int("channels", result.Channels),
		logger.Int("inputs", result.Inputs))...)
	return ctx.JSON(http.StatusOK, ApplyResponse{
		Configuration: cfg,
		Channels:      result.Channels,
		Inputs:        result.Inputs,
		Frequency:     result.Frequency,
	})
}

// UpdateChannelSetting handles PUT /configurations/:id/channels/:channel_id
func (c *Controller) UpdateChannelSetting(ctx echo.Context) error {
	id, err := paramID(ctx)
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	channelID, err := paramUint(ctx, "channel_id")
	if err != nil {
		return c.HandleError(ctx, err, "")
	}
	var req ChannelSettingUpdateRequest
	if err := bind(ctx, &req); err != nil {
		return c.HandleError(ctx, err, "")
	}
	if err := c.requireOwner(ctx, id); err != nil {
		return c.failed(ctx, "configuration", "update", err)
	}
	setting, err := c.store.Configurations.SetChannelSetting(ctx.Request().Context(), id, channelID,
		repository.ChannelSettingPatch{
			Volume:   req.Volume,
			Mute:     req.Mute,
			Solo:     req.Solo,
			Link:     req.Link,
			SourceID: req.SourceID.Ref(),
			Version:  req.Version,
		})
	if err != nil {
		return c.failed(ctx, "configuration", "update", err)
	}
	return c.updated(ctx, "configuration", id, setting)
}

// requireOwner fails unless the caller is an admin or owns configuration id.
func (c *Controller) requireOwner(ctx echo.Context, id uint) error {
	user := auth.CurrentUser(ctx)
	if user.IsAdmin() {
		return nil
	}
	cfg, err := c.store.Configurations.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return err
	}
	if cfg.UserID != user.ID {
		return forbidden("this configuration belongs to another user")
	}
	return nil
}

func forbidden(message string) error {
	return errors.Newf("%s", message).
		Component("api").
		Category(errors.CategoryAuthorization).
		Build()
}
