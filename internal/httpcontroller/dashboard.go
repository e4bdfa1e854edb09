package httpcontroller

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/api/auth"
	"github.com/tphakala/console-panel/internal/api/middleware"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
	"github.com/tphakala/console-panel/internal/errors"
	"github.com/tphakala/console-panel/internal/logger"
	"github.com/tphakala/console-panel/internal/sysinfo"
)

const historySize = 10

type dashboardView struct {
	Subject       *entities.User
	Self          bool
	Users         []option // admins may look at other users
	Configuration *configurationView
	History       []historyRow
	Interfaces    []option
	InterfaceID   uint
	Channels      []liveChannel
	System        *sysinfo.Info
}

type configurationView struct {
	ID          uint
	Name        string
	SavedAt     string
	Interface   string
	InterfaceID uint
	Frequency   string
	Version     uint
	Channels    []settingRow
	Inputs      []connectionRow
}

type settingRow struct {
	Channel string
	Source  string
	Volume  int
	Mute    bool
	Solo    bool
	Link    bool
}

type connectionRow struct {
	Input  string
	Device string
}

type historyRow struct {
	ID        uint
	Name      string
	SavedAt   string
	Interface string
	Selected  bool
}

type liveChannel struct {
	ID     uint
	Label  string
	Source string
	Volume int
	Mute   bool
	Solo   bool
}

// dashboard shows the configuration of the selected user: the one picked
// from the history, else the newest one.
func (ctl *Controller) dashboard(c echo.Context) error {
	ctx := c.Request().Context()
	current := auth.CurrentUser(c)
	sess := ctl.sessions.Load(c)

	subject, err := ctl.selectSubject(c, current, sess)
	if err != nil {
		return err
	}
	if id := queryUint(c, "configuration"); id != 0 {
		sess.SelectedConfigurationID = id
	}

	cfg, err := ctl.selectConfiguration(ctx, subject.ID, sess)
	if err != nil {
		return err
	}

	view := dashboardView{Subject: subject, Self: subject.ID == current.ID}
	if current.IsAdmin() {
		if view.Users, err = ctl.lookups.options(ctx, lookupUsers); err != nil {
			return err
		}
		view.System = ctl.systemInfo(ctx)
	}
	if view.Interfaces, err = ctl.lookups.options(ctx, lookupInterfaces); err != nil {
		return err
	}

	if cfg != nil {
		view.Configuration = ctl.describeConfiguration(ctx, cfg)
		view.InterfaceID = cfg.InterfaceID
	} else if len(view.Interfaces) > 0 {
		id, _ := strconv.ParseUint(view.Interfaces[0].Value, 10, 0)
		view.InterfaceID = uint(id)
	}

	history, err := ctl.store.Configurations.ListByUser(ctx, subject.ID, repository.ListOptions{Limit: historySize})
	if err != nil {
		return err
	}
	for i := range history {
		h := &history[i]
		view.History = append(view.History, historyRow{
			ID:        h.ID,
			Name:      h.Name,
			SavedAt:   formatTime(h.SavedAt),
			Interface: ctl.lookups.labelOf(ctx, lookupInterfaces, h.InterfaceID),
			Selected:  cfg != nil && cfg.ID == h.ID,
		})
	}

	if view.InterfaceID != 0 {
		channels, err := ctl.store.Channels.ListByInterface(ctx, view.InterfaceID)
		if err != nil {
			return err
		}
		for i := range channels {
			ch := &channels[i]
			view.Channels = append(view.Channels, liveChannel{
				ID:     ch.ID,
				Label:  ch.Label,
				Source: ctl.lookups.label(ctx, lookupSources, ch.SourceID),
				Volume: ch.VolumePercent(),
				Mute:   ch.Mute,
				Solo:   ch.Solo,
			})
		}
	}

	return ctl.render(c, http.StatusOK, "dashboard", "dashboard", "Dashboard", view)
}

// selectSubject resolves whose configurations the dashboard shows. Only
// admins can switch to another user; switching drops the selected configuration.
func (ctl *Controller) selectSubject(c echo.Context, current *entities.User, sess *Session) (*entities.User, error) {
	if !current.IsAdmin() {
		sess.SelectedUserID = current.ID
		return current, nil
	}

	if id := queryUint(c, "user"); id != 0 && id != sess.SelectedUserID {
		sess.SelectedUserID = id
		sess.SelectedConfigurationID = 0
	}
	if sess.SelectedUserID == 0 || sess.SelectedUserID == current.ID {
		sess.SelectedUserID = current.ID
		return current, nil
	}

	u, err := ctl.store.Users.GetByID(c.Request().Context(), sess.SelectedUserID)
	if errors.IsNotFound(err) {
		// the selected user was deleted meanwhile
		sess.SelectedUserID = current.ID
		sess.SelectedConfigurationID = 0
		return current, nil
	}
	return u, err
}

// selectConfiguration returns the selected configuration when it belongs to
// userID, else the newest one of userID, else nil.
func (ctl *Controller) selectConfiguration(ctx context.Context, userID uint, sess *Session) (*entities.Configuration, error) {
	if id := sess.SelectedConfigurationID; id != 0 {
		cfg, err := ctl.store.Configurations.GetByID(ctx, id)
		switch {
		case err == nil && cfg.UserID == userID:
			return cfg, nil
		case err != nil && !errors.IsNotFound(err):
			return nil, err
		}
		sess.SelectedConfigurationID = 0
	}

	cfg, err := ctl.store.Configurations.Latest(ctx, userID)
	if errors.IsNotFound(err) {
		return nil, nil
	}
	return cfg, err
}

func (ctl *Controller) describeConfiguration(ctx context.Context, cfg *entities.Configuration) *configurationView {
	v := &configurationView{
		ID:          cfg.ID,
		Name:        cfg.Name,
		SavedAt:     formatTime(cfg.SavedAt),
		Interface:   ctl.lookups.labelOf(ctx, lookupInterfaces, cfg.InterfaceID),
		InterfaceID: cfg.InterfaceID,
		Frequency:   ctl.lookups.label(ctx, lookupFrequencies, cfg.FrequencyID),
		Version:     cfg.Version,
	}
	for i := range cfg.Channels {
		s := &cfg.Channels[i]
		v.Channels = append(v.Channels, settingRow{
			Channel: ctl.lookups.labelOf(ctx, lookupChannels, s.ChannelID),
			Source:  ctl.lookups.label(ctx, lookupSources, s.SourceID),
			Volume:  s.VolumePercent(),
			Mute:    s.Mute,
			Solo:    s.Solo,
			Link:    s.Link,
		})
	}
	for i := range cfg.Inputs {
		in := &cfg.Inputs[i]
		v.Inputs = append(v.Inputs, connectionRow{
			Input:  ctl.lookups.labelOf(ctx, lookupInputs, in.InputID),
			Device: ctl.lookups.label(ctx, lookupDevices, in.DeviceID),
		})
	}
	return v
}

func (ctl *Controller) systemInfo(ctx context.Context) *sysinfo.Info {
	info, err := sysinfo.Collect(ctx)
	if err != nil {
		ctl.log.Warn("failed to collect system information", logger.Error(err))
	}
	return info
}

// snapshot saves the current state of the selected interface for the
// logged-in user and selects the new configuration.
func (ctl *Controller) snapshot(c echo.Context, f *form) (*entities.Configuration, error) {
	interfaceID := f.id("interface_id", "Interface")
	if err := f.err(); err != nil {
		return nil, err
	}

	ctx := c.Request().Context()
	user := auth.CurrentUser(c)
	cfg, err := ctl.store.Configurations.Save(ctx, repository.SnapshotRequest{
		UserID:      user.ID,
		InterfaceID: *interfaceID,
		Name:        f.last("name"),
	})
	if err != nil {
		return nil, err
	}

	sess := ctl.sessions.Load(c)
	sess.SelectedUserID = user.ID
	sess.SelectedConfigurationID = cfg.ID
	_ = ctl.events.Saved(ctx, cfg)
	return cfg, nil
}

func (ctl *Controller) saveSnapshot(c echo.Context) error {
	params, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed form")
	}
	f := newForm(params)
	f.required(true, []field{{Name: "interface_id", Label: "Interface", Required: true}})

	cfg, err := ctl.snapshot(c, f)
	ctl.recordEntity("configuration", "create", err)
	if err != nil {
		if middleware.StatusFor(err) >= http.StatusInternalServerError {
			return err
		}
		return ctl.redirect(c, "/", FlashError, "Could not save the configuration: "+err.Error())
	}

	ctl.log.Info("configuration saved",
		logger.Uint("id", cfg.ID),
		logger.Uint("interface_id", cfg.InterfaceID),
		logger.Int("channels", len(cfg.Channels)),
		logger.Int("inputs", len(cfg.Inputs)),
		logger.Uint("user_id", cfg.UserID))
	return ctl.redirect(c, "/", FlashSuccess, "Saved configuration "+quote(cfg.Name)+".")
}

// applyConfiguration writes a saved configuration back onto the live
// channels and inputs. Operators can only load their own configurations.
func (ctl *Controller) applyConfiguration(c echo.Context) error {
	id, err := paramID(c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()
	user := auth.CurrentUser(c)

	cfg, err := ctl.store.Configurations.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !user.IsAdmin() && cfg.UserID != user.ID {
		return echo.NewHTTPError(http.StatusForbidden, "this configuration belongs to another user")
	}

	result, err := ctl.store.Configurations.Apply(ctx, id)
	ctl.recordEntity("configuration", "apply", err)
	if err != nil {
		if middleware.StatusFor(err) >= http.StatusInternalServerError {
			return err
		}
		return ctl.redirect(c, "/", FlashError, "Could not load the configuration: "+err.Error())
	}
	_ = ctl.events.Applied(ctx, cfg, result)

	sess := ctl.sessions.Load(c)
	sess.SelectedConfigurationID = id
	ctl.log.Info("configuration applied",
		logger.Uint("id", id),
		logger.Int("channels", result.Channels),
		logger.Int("inputs", result.Inputs),
		logger.Bool("frequency", result.Frequency),
		logger.Uint("user_id", user.ID))
	return ctl.redirect(c, "/", FlashSuccess,
		fmt.Sprintf("Loaded %s: %d channels and %d inputs restored.", quote(cfg.Name), result.Channels, result.Inputs))
}

// toggleChannel returns a handler that sets the mute or solo flag of a live channel.
func (ctl *Controller) toggleChannel(flag string) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := paramID(c)
		if err != nil {
			return err
		}
		on := newForm(mustForm(c)).boolean("value")
		if on == nil {
			return echo.NewHTTPError(http.StatusBadRequest, "missing value")
		}

		ctx := c.Request().Context()
		var ch *entities.Channel
		switch flag {
		case "mute":
			ch, err = ctl.store.Channels.SetMute(ctx, id, *on)
		case "solo":
			ch, err = ctl.store.Channels.SetSolo(ctx, id, *on)
		default:
			return echo.NewHTTPError(http.StatusNotFound)
		}
		ctl.recordEntity("channel", "update", err)
		if err != nil {
			if middleware.StatusFor(err) >= http.StatusInternalServerError {
				return err
			}
			return ctl.redirect(c, "/", FlashError, err.Error())
		}

		state := "off"
		if *on {
			state = "on"
		}
		return ctl.redirect(c, "/", FlashSuccess, fmt.Sprintf("%s: %s %s.", ch.Label, flag, state))
	}
}

// mustForm returns the submitted form values, empty when the body is malformed.
func mustForm(c echo.Context) map[string][]string {
	params, err := c.FormParams()
	if err != nil {
		return nil
	}
	return params
}
