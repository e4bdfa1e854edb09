package httpcontroller

import (
	"context"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/console-panel/internal/api/auth"
	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/datastore/repository"
	"github.com/tphakala/console-panel/internal/errors"
)

// buildResources declares the page set of every entity, in navigation order.
func (ctl *Controller) buildResources() []routable {
	return []routable{
		ctl.configurationResource(),
		ctl.channelResource(),
		ctl.inputResource(),
		ctl.interfaceResource(),
		ctl.sourceResource(),
		ctl.deviceResource(),
		ctl.typeResource(),
		ctl.frequencyResource(),
		ctl.userResource(),
	}
}

func (ctl *Controller) userResource() *resource[entities.User, *entities.User] {
	repo := ctl.store.Users
	roles := []option{
		{Value: string(entities.RoleOperator), Label: "Operator"},
		{Value: string(entities.RoleAdmin), Label: "Administrator"},
	}
	return &resource[entities.User, *entities.User]{
		ctl:       ctl,
		name:      lookupUsers,
		entity:    "user",
		title:     "Users",
		adminOnly: true,
		fields: []field{
			{Name: "email", Label: "Email", Kind: kindEmail, Required: true},
			{Name: "name", Label: "Name", Kind: kindText},
			{Name: "role", Label: "Role", Kind: kindSelect, Required: true, Choices: roles},
			{Name: "password", Label: "Password", Kind: kindPassword,
				Help: "At least 8 characters with upper case, lower case and a digit. Leave blank to keep the current password."},
		},
		columns: []column[entities.User]{
			{"Email", func(_ context.Context, u *entities.User) string { return u.Email }},
			{"Name", func(_ context.Context, u *entities.User) string { return u.Name }},
			{"Role", func(_ context.Context, u *entities.User) string { return string(u.Role) }},
		},
		list:     repo.List,
		count:    repo.Count,
		get:      repo.GetByID,
		describe: func(u *entities.User) string { return u.Email },
		values: func(u *entities.User) map[string]string {
			return map[string]string{"email": u.Email, "name": u.Name, "role": string(u.Role)}
		},
		create: func(c echo.Context, f *form) (*entities.User, error) {
			password := f.last("password")
			if password == "" {
				f.fail("Password is required")
			}
			if err := f.err(); err != nil {
				return nil, err
			}
			u := &entities.User{Email: f.last("email"), Name: f.last("name"), Role: entities.Role(f.last("role"))}
			return repo.Create(c.Request().Context(), u, password)
		},
		update: func(c echo.Context, id uint, f *form) (*entities.User, error) {
			patch := repository.UserPatch{
				Email:    f.str("email"),
				Name:     f.str("name"),
				Password: f.strOrNil("password"),
				Version:  f.version(),
			}
			if r := f.str("role"); r != nil {
				role := entities.Role(*r)
				patch.Role = &role
			}
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Update(c.Request().Context(), id, patch)
		},
		remove: func(c echo.Context, id uint) error {
			if auth.CurrentUser(c).ID == id {
				return errors.New(errors.NewStd("you cannot delete your own account")).
					Component("httpcontroller").
					Category(errors.CategoryValidation).
					Build()
			}
			return repo.Delete(c.Request().Context(), id)
		},
	}
}

func (ctl *Controller) typeResource() *resource[entities.Type, *entities.Type] {
	repo := ctl.store.Types
	return &resource[entities.Type, *entities.Type]{
		ctl:       ctl,
		name:      lookupTypes,
		entity:    "type",
		title:     "Types",
		adminOnly: true,
		fields: []field{
			{Name: "name", Label: "Name", Kind: kindText, Required: true},
			{Name: "description", Label: "Description", Kind: kindTextarea},
		},
		columns: []column[entities.Type]{
			{"Name", func(_ context.Context, t *entities.Type) string { return t.Name }},
			{"Description", func(_ context.Context, t *entities.Type) string { return t.Description }},
		},
		list:     repo.List,
		count:    repo.Count,
		get:      repo.GetByID,
		describe: func(t *entities.Type) string { return t.Name },
		values: func(t *entities.Type) map[string]string {
			return map[string]string{"name": t.Name, "description": t.Description}
		},
		create: func(c echo.Context, f *form) (*entities.Type, error) {
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Create(c.Request().Context(), &entities.Type{Name: f.last("name"), Description: f.last("description")})
		},
		update: func(c echo.Context, id uint, f *form) (*entities.Type, error) {
			patch := repository.TypePatch{Name: f.str("name"), Description: f.str("description"), Version: f.version()}
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Update(c.Request().Context(), id, patch)
		},
		remove: func(c echo.Context, id uint) error {
			return repo.Delete(c.Request().Context(), id)
		},
	}
}

func (ctl *Controller) deviceResource() *resource[entities.Device, *entities.Device] {
	repo := ctl.store.Devices
	return &resource[entities.Device, *entities.Device]{
		ctl:       ctl,
		name:      lookupDevices,
		entity:    "device",
		title:     "Devices",
		adminOnly: true,
		fields: []field{
			{Name: "name", Label: "Name", Kind: kindText, Required: true},
			{Name: "description", Label: "Description", Kind: kindTextarea},
			{Name: "type_id", Label: "Type", Kind: kindSelect, Lookup: lookupTypes},
		},
		columns: []column[entities.Device]{
			{"Name", func(_ context.Context, d *entities.Device) string { return d.Name }},
			{"Description", func(_ context.Context, d *entities.Device) string { return d.Description }},
			{"Type", func(ctx context.Context, d *entities.Device) string { return ctl.lookups.label(ctx, lookupTypes, d.TypeID) }},
		},
		list:  repo.List,
		count: repo.Count,
		search: func(ctx context.Context, term string) ([]entities.Device, error) {
			return repo.Search(ctx, term, repository.ListOptions{})
		},
		get:      repo.GetByID,
		describe: func(d *entities.Device) string { return d.Name },
		values: func(d *entities.Device) map[string]string {
			return map[string]string{"name": d.Name, "description": d.Description, "type_id": idString(d.TypeID)}
		},
		create: func(c echo.Context, f *form) (*entities.Device, error) {
			d := &entities.Device{Name: f.last("name"), Description: f.last("description"), TypeID: f.id("type_id", "Type")}
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Create(c.Request().Context(), d)
		},
		update: func(c echo.Context, id uint, f *form) (*entities.Device, error) {
			patch := repository.DevicePatch{
				Name:        f.str("name"),
				Description: f.str("description"),
				TypeID:      f.ref("type_id", "Type"),
				Version:     f.version(),
			}
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Update(c.Request().Context(), id, patch)
		},
		remove: func(c echo.Context, id uint) error {
			return repo.Delete(c.Request().Context(), id)
		},
	}
}

func (ctl *Controller) frequencyResource() *resource[entities.Frequency, *entities.Frequency] {
	repo := ctl.store.Frequencies
	return &resource[entities.Frequency, *entities.Frequency]{
		ctl:       ctl,
		name:      lookupFrequencies,
		entity:    "frequency",
		title:     "Frequencies",
		adminOnly: true,
		fields: []field{
			{Name: "value", Label: "Sample rate", Kind: kindNumber, Required: true, Step: "0.1",
				Help: "Between 8 and 192 kHz."},
			{Name: "unit", Label: "Unit", Kind: kindText},
		},
		columns: []column[entities.Frequency]{
			{"Sample rate", func(_ context.Context, f *entities.Frequency) string { return f.Label() }},
		},
		list:     repo.List,
		count:    repo.Count,
		get:      repo.GetByID,
		describe: func(f *entities.Frequency) string { return f.Label() },
		values: func(f *entities.Frequency) map[string]string {
			return map[string]string{"value": strconv.FormatFloat(f.Value, 'f', -1, 64), "unit": f.Unit}
		},
		create: func(c echo.Context, f *form) (*entities.Frequency, error) {
			value := f.float("value", "Sample rate")
			if err := f.err(); err != nil {
				return nil, err
			}
			fr := &entities.Frequency{Unit: f.last("unit")}
			if value != nil {
				fr.Value = *value
			}
			return repo.Create(c.Request().Context(), fr)
		},
		update: func(c echo.Context, id uint, f *form) (*entities.Frequency, error) {
			patch := repository.FrequencyPatch{
				Value:   f.float("value", "Sample rate"),
				Unit:    f.strOrNil("unit"),
				Version: f.version(),
			}
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Update(c.Request().Context(), id, patch)
		},
		remove: func(c echo.Context, id uint) error {
			return repo.Delete(c.Request().Context(), id)
		},
	}
}

func (ctl *Controller) interfaceResource() *resource[entities.AudioInterface, *entities.AudioInterface] {
	repo := ctl.store.Interfaces
	return &resource[entities.AudioInterface, *entities.AudioInterface]{
		ctl:       ctl,
		name:      lookupInterfaces,
		entity:    "interface",
		title:     "Interfaces",
		adminOnly: true,
		fields: []field{
			{Name: "short_name", Label: "Short name", Kind: kindText, Required: true},
			{Name: "model", Label: "Model", Kind: kindText},
			{Name: "commercial_name", Label: "Commercial name", Kind: kindText},
			{Name: "price", Label: "Price", Kind: kindNumber, Step: "0.01"},
			{Name: "device_id", Label: "Host device", Kind: kindSelect, Lookup: lookupDevices},
			{Name: "frequency_id", Label: "Sample rate", Kind: kindSelect, Lookup: lookupFrequencies},
		},
		columns: []column[entities.AudioInterface]{
			{"Short name", func(_ context.Context, a *entities.AudioInterface) string { return a.ShortName }},
			{"Model", func(_ context.Context, a *entities.AudioInterface) string { return a.ModelName }},
			{"Commercial name", func(_ context.Context, a *entities.AudioInterface) string { return a.CommercialName }},
			{"Price", func(_ context.Context, a *entities.AudioInterface) string { return strconv.FormatFloat(a.Price, 'f', 2, 64) }},
			{"Host device", func(ctx context.Context, a *entities.AudioInterface) string {
				return ctl.lookups.label(ctx, lookupDevices, a.DeviceID)
			}},
			{"Sample rate", func(ctx context.Context, a *entities.AudioInterface) string {
				return ctl.lookups.label(ctx, lookupFrequencies, a.FrequencyID)
			}},
		},
		list:     repo.List,
		count:    repo.Count,
		get:      repo.GetByID,
		describe: func(a *entities.AudioInterface) string { return a.ShortName },
		values: func(a *entities.AudioInterface) map[string]string {
			return map[string]string{
				"short_name":      a.ShortName,
				"model":           a.ModelName,
				"commercial_name": a.CommercialName,
				"price":           strconv.FormatFloat(a.Price, 'f', 2, 64),
				"device_id":       idString(a.DeviceID),
				"frequency_id":    idString(a.FrequencyID),
			}
		},
		create: func(c echo.Context, f *form) (*entities.AudioInterface, error) {
			a := &entities.AudioInterface{
				ShortName:      f.last("short_name"),
				ModelName:      f.last("model"),
				CommercialName: f.last("commercial_name"),
				DeviceID:       f.id("device_id", "Host device"),
				FrequencyID:    f.id("frequency_id", "Sample rate"),
			}
			if price := f.float("price", "Price"); price != nil {
				a.Price = *price
			}
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Create(c.Request().Context(), a)
		},
		update: func(c echo.Context, id uint, f *form) (*entities.AudioInterface, error) {
			patch := repository.AudioInterfacePatch{
				ShortName:      f.str("short_name"),
				ModelName:      f.str("model"),
				CommercialName: f.str("commercial_name"),
				Price:          f.float("price", "Price"),
				DeviceID:       f.ref("device_id", "Host device"),
				FrequencyID:    f.ref("frequency_id", "Sample rate"),
				Version:        f.version(),
			}
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Update(c.Request().Context(), id, patch)
		},
		remove: func(c echo.Context, id uint) error {
			return repo.Delete(c.Request().Context(), id)
		},
	}
}

func (ctl *Controller) sourceResource() *resource[entities.Source, *entities.Source] {
	repo := ctl.store.Sources
	return &resource[entities.Source, *entities.Source]{
		ctl:       ctl,
		name:      lookupSources,
		entity:    "source",
		title:     "Sources",
		adminOnly: true,
		fields: []field{
			{Name: "name", Label: "Name", Kind: kindText, Required: true},
			{Name: "type_id", Label: "Type", Kind: kindSelect, Lookup: lookupTypes},
		},
		columns: []column[entities.Source]{
			{"Name", func(_ context.Context, s *entities.Source) string { return s.Name }},
			{"Type", func(ctx context.Context, s *entities.Source) string { return ctl.lookups.label(ctx, lookupTypes, s.TypeID) }},
		},
		list:     repo.List,
		count:    repo.Count,
		get:      repo.GetByID,
		describe: func(s *entities.Source) string { return s.Name },
		values: func(s *entities.Source) map[string]string {
			return map[string]string{"name": s.Name, "type_id": idString(s.TypeID)}
		},
		create: func(c echo.Context, f *form) (*entities.Source, error) {
			s := &entities.Source{Name: f.last("name"), TypeID: f.id("type_id", "Type")}
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Create(c.Request().Context(), s)
		},
		update: func(c echo.Context, id uint, f *form) (*entities.Source, error) {
			patch := repository.SourcePatch{Name: f.str("name"), TypeID: f.ref("type_id", "Type"), Version: f.version()}
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Update(c.Request().Context(), id, patch)
		},
		remove: func(c echo.Context, id uint) error {
			return repo.Delete(c.Request().Context(), id)
		},
	}
}

func (ctl *Controller) channelResource() *resource[entities.Channel, *entities.Channel] {
	repo := ctl.store.Channels
	return &resource[entities.Channel, *entities.Channel]{
		ctl:    ctl,
		name:   lookupChannels,
		entity: "channel",
		title:  "Channels",
		fields: []field{
			{Name: "label", Label: "Label", Kind: kindText, Required: true},
			{Name: "interface_id", Label: "Interface", Kind: kindSelect, Required: true, Lookup: lookupInterfaces},
			{Name: "source_id", Label: "Source", Kind: kindSelect, Lookup: lookupSources},
			{Name: "volume", Label: "Volume (%)", Kind: kindPercent},
			{Name: "mute", Label: "Mute", Kind: kindCheckbox},
			{Name: "solo", Label: "Solo", Kind: kindCheckbox},
			{Name: "link", Label: "Link", Kind: kindCheckbox},
		},
		columns: []column[entities.Channel]{
			{"Label", func(_ context.Context, ch *entities.Channel) string { return ch.Label }},
			{"Interface", func(ctx context.Context, ch *entities.Channel) string {
				return ctl.lookups.labelOf(ctx, lookupInterfaces, ch.InterfaceID)
			}},
			{"Source", func(ctx context.Context, ch *entities.Channel) string { return ctl.lookups.label(ctx, lookupSources, ch.SourceID) }},
			{"Volume", func(_ context.Context, ch *entities.Channel) string { return strconv.Itoa(ch.VolumePercent()) + " %" }},
			{"Mute", func(_ context.Context, ch *entities.Channel) string { return yesNo(ch.Mute) }},
			{"Solo", func(_ context.Context, ch *entities.Channel) string { return yesNo(ch.Solo) }},
			{"Link", func(_ context.Context, ch *entities.Channel) string { return yesNo(ch.Link) }},
		},
		list:     repo.List,
		count:    repo.Count,
		get:      repo.GetByID,
		describe: func(ch *entities.Channel) string { return ch.Label },
		values: func(ch *entities.Channel) map[string]string {
			return map[string]string{
				"label":        ch.Label,
				"interface_id": uintString(ch.InterfaceID),
				"source_id":    idString(ch.SourceID),
				"volume":       strconv.Itoa(ch.VolumePercent()),
				"mute":         strconv.FormatBool(ch.Mute),
				"solo":         strconv.FormatBool(ch.Solo),
				"link":         strconv.FormatBool(ch.Link),
			}
		},
		create: func(c echo.Context, f *form) (*entities.Channel, error) {
			ch := &entities.Channel{Label: f.last("label"), SourceID: f.id("source_id", "Source")}
			if id := f.id("interface_id", "Interface"); id != nil {
				ch.InterfaceID = *id
			}
			if v := f.percent("volume", "Volume"); v != nil {
				ch.Volume = *v
			}
			ch.Mute = derefBool(f.boolean("mute"))
			ch.Solo = derefBool(f.boolean("solo"))
			ch.Link = derefBool(f.boolean("link"))
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Create(c.Request().Context(), ch)
		},
		update: func(c echo.Context, id uint, f *form) (*entities.Channel, error) {
			patch := repository.ChannelPatch{
				Label:       f.str("label"),
				Volume:      f.percent("volume", "Volume"),
				Mute:        f.boolean("mute"),
				Solo:        f.boolean("solo"),
				Link:        f.boolean("link"),
				InterfaceID: f.id("interface_id", "Interface"),
				SourceID:    f.ref("source_id", "Source"),
				Version:     f.version(),
			}
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Update(c.Request().Context(), id, patch)
		},
		remove: func(c echo.Context, id uint) error {
			return repo.Delete(c.Request().Context(), id)
		},
	}
}

func (ctl *Controller) inputResource() *resource[entities.Input, *entities.Input] {
	repo := ctl.store.Inputs
	return &resource[entities.Input, *entities.Input]{
		ctl:    ctl,
		name:   lookupInputs,
		entity: "input",
		title:  "Inputs",
		fields: []field{
			{Name: "label", Label: "Label", Kind: kindText, Required: true},
			{Name: "description", Label: "Description", Kind: kindTextarea},
			{Name: "channel_id", Label: "Routed to channel", Kind: kindSelect, Lookup: lookupChannels},
			{Name: "source_id", Label: "Source", Kind: kindSelect, Lookup: lookupSources},
			{Name: "device_id", Label: "Connected device", Kind: kindSelect, Lookup: lookupDevices},
		},
		columns: []column[entities.Input]{
			{"Label", func(_ context.Context, in *entities.Input) string { return in.Label }},
			{"Channel", func(ctx context.Context, in *entities.Input) string { return ctl.lookups.label(ctx, lookupChannels, in.ChannelID) }},
			{"Source", func(ctx context.Context, in *entities.Input) string { return ctl.lookups.label(ctx, lookupSources, in.SourceID) }},
			{"Device", func(ctx context.Context, in *entities.Input) string { return ctl.lookups.label(ctx, lookupDevices, in.DeviceID) }},
		},
		list:     repo.List,
		count:    repo.Count,
		search:   repo.SearchByLabel,
		get:      repo.GetByID,
		describe: func(in *entities.Input) string { return in.Label },
		values: func(in *entities.Input) map[string]string {
			return map[string]string{
				"label":       in.Label,
				"description": in.Description,
				"channel_id":  idString(in.ChannelID),
				"source_id":   idString(in.SourceID),
				"device_id":   idString(in.DeviceID),
			}
		},
		create: func(c echo.Context, f *form) (*entities.Input, error) {
			in := &entities.Input{
				Label:       f.last("label"),
				Description: f.last("description"),
				ChannelID:   f.id("channel_id", "Channel"),
				SourceID:    f.id("source_id", "Source"),
				DeviceID:    f.id("device_id", "Device"),
			}
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Create(c.Request().Context(), in)
		},
		update: func(c echo.Context, id uint, f *form) (*entities.Input, error) {
			patch := repository.InputPatch{
				Label:       f.str("label"),
				Description: f.str("description"),
				ChannelID:   f.ref("channel_id", "Channel"),
				SourceID:    f.ref("source_id", "Source"),
				DeviceID:    f.ref("device_id", "Device"),
				Version:     f.version(),
			}
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Update(c.Request().Context(), id, patch)
		},
		remove: func(c echo.Context, id uint) error {
			return repo.Delete(c.Request().Context(), id)
		},
	}
}

func (ctl *Controller) configurationResource() *resource[entities.Configuration, *entities.Configuration] {
	repo := ctl.store.Configurations
	return &resource[entities.Configuration, *entities.Configuration]{
		ctl:    ctl,
		name:   "configurations",
		entity: "configuration",
		title:  "Configurations",
		fields: []field{
			{Name: "interface_id", Label: "Interface", Kind: kindSelect, Required: true, Lookup: lookupInterfaces},
			{Name: "name", Label: "Name", Kind: kindText, Help: "Defaults to the current date and time."},
		},
		editFields: []field{
			{Name: "name", Label: "Name", Kind: kindText, Required: true},
			{Name: "frequency_id", Label: "Sample rate", Kind: kindSelect, Lookup: lookupFrequencies},
		},
		columns: []column[entities.Configuration]{
			{"Name", func(_ context.Context, cfg *entities.Configuration) string { return cfg.Name }},
			{"Saved", func(_ context.Context, cfg *entities.Configuration) string { return formatTime(cfg.SavedAt) }},
			{"User", func(ctx context.Context, cfg *entities.Configuration) string {
				return ctl.lookups.labelOf(ctx, lookupUsers, cfg.UserID)
			}},
			{"Interface", func(ctx context.Context, cfg *entities.Configuration) string {
				return ctl.lookups.labelOf(ctx, lookupInterfaces, cfg.InterfaceID)
			}},
			{"Sample rate", func(ctx context.Context, cfg *entities.Configuration) string {
				return ctl.lookups.label(ctx, lookupFrequencies, cfg.FrequencyID)
			}},
		},
		list:     repo.List,
		count:    repo.Count,
		get:      repo.GetByID,
		describe: func(cfg *entities.Configuration) string { return cfg.Name },
		values: func(cfg *entities.Configuration) map[string]string {
			return map[string]string{"name": cfg.Name, "frequency_id": idString(cfg.FrequencyID)}
		},
		create: ctl.snapshot,
		update: func(c echo.Context, id uint, f *form) (*entities.Configuration, error) {
			patch := repository.ConfigurationPatch{
				Name:        f.str("name"),
				FrequencyID: f.ref("frequency_id", "Sample rate"),
				Version:     f.version(),
			}
			if err := f.err(); err != nil {
				return nil, err
			}
			return repo.Update(c.Request().Context(), id, patch)
		},
		remove: func(c echo.Context, id uint) error {
			ctx := c.Request().Context()
			if err := repo.Delete(ctx, id); err != nil {
				return err
			}
			_ = ctl.events.Deleted(ctx, id)
			sess := ctl.sessions.Load(c)
			if sess.SelectedConfigurationID == id {
				sess.SelectedConfigurationID = 0
			}
			return nil
		},
	}
}

func derefBool(b *bool) bool {
	return b != nil && *b
}
