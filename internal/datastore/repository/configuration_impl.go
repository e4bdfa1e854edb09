package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
)

type configurationRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewConfigurationRepository creates a new ConfigurationRepository.
func NewConfigurationRepository(db *gorm.DB) ConfigurationRepository {
	return &configurationRepository{db: db, now: time.Now}
}

// withChildren preloads settings and connections in a stable order
func withChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Channels", func(db *gorm.DB) *gorm.DB { return db.Order("channel_id ASC") }).
		Preload("Inputs", func(db *gorm.DB) *gorm.DB { return db.Order("input_id ASC") })
}

func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("saved_at DESC").Order("id DESC")
}

func getConfiguration(ctx context.Context, db *gorm.DB, id uint) (*entities.Configuration, error) {
	var cfg entities.Configuration
	err := db.WithContext(ctx).Scopes(withChildren).First(&cfg, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrConfigurationNotFound, resConfiguration, id)
	}
	if err != nil {
		return nil, dbError(err, "get", resConfiguration)
	}
	return &cfg, nil
}

func (r *configurationRepository) validate(ctx context.Context, tx *gorm.DB, c *entities.Configuration) error {
	c.Name = strings.TrimSpace(c.Name)
	if err := limitText("name", c.Name, maxNameLength); err != nil {
		return err
	}
	if c.UserID == 0 {
		return invalidField("user_id", "is required")
	}
	if c.InterfaceID == 0 {
		return invalidField("interface_id", "is required")
	}
	if err := requireID(ctx, tx, entities.User{}.TableName(), resUser, c.UserID); err != nil {
		return err
	}
	if err := requireID(ctx, tx, entities.AudioInterface{}.TableName(), resAudioInterface, c.InterfaceID); err != nil {
		return err
	}
	return requireRef(ctx, tx, entities.Frequency{}.TableName(), resFrequency, c.FrequencyID)
}

func (r *configurationRepository) validateChildren(ctx context.Context, tx *gorm.DB, c *entities.Configuration) error {
	for i := range c.Channels {
		s := &c.Channels[i]
		ch, err := getByID[entities.Channel](ctx, tx, s.ChannelID, ErrChannelNotFound, resChannel)
		if err != nil {
			if errors.IsNotFound(err) {
				return referenceError(resChannel, s.ChannelID)
			}
			return err
		}
		if ch.InterfaceID != c.InterfaceID {
			return invalidField("channels", fmt.Sprintf("channel %d belongs to another interface", s.ChannelID))
		}
		if err := validateVolume(s.Volume); err != nil {
			return err
		}
		if err := requireRef(ctx, tx, entities.Source{}.TableName(), resSource, s.SourceID); err != nil {
			return err
		}
	}
	for i := range c.Inputs {
		conn := &c.Inputs[i]
		if err := requireID(ctx, tx, entities.Input{}.TableName(), resInput, conn.InputID); err != nil {
			return err
		}
		if err := requireRef(ctx, tx, entities.Device{}.TableName(), resDevice, conn.DeviceID); err != nil {
			return err
		}
	}
	return nil
}

// insertConfiguration stores the header and then the children
func insertConfiguration(ctx context.Context, tx *gorm.DB, c *entities.Configuration) error {
	if err := insert(ctx, tx, c, resConfiguration); err != nil {
		return err
	}
	for i := range c.Channels {
		c.Channels[i].ID = 0
		c.Channels[i].ConfigurationID = c.ID
	}
	for i := range c.Inputs {
		c.Inputs[i].ID = 0
		c.Inputs[i].ConfigurationID = c.ID
	}
	if len(c.Channels) > 0 {
		if err := insert(ctx, tx, &c.Channels, resChannelSetting); err != nil {
			return err
		}
	}
	if len(c.Inputs) > 0 {
		if err := insert(ctx, tx, &c.Inputs, resInputConnection); err != nil {
			return err
		}
	}
	return nil
}

func (r *configurationRepository) defaultName(c *entities.Configuration) {
	if c.Name == "" {
		c.Name = "Session " + c.SavedAt.Format("2006-01-02 15:04:05")
	}
}

func (r *configurationRepository) Create(ctx context.Context, c *entities.Configuration) (*entities.Configuration, error) {
	if c.SavedAt.IsZero() {
		c.SavedAt = r.now()
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.validate(ctx, tx, c); err != nil {
			return err
		}
		if err := r.validateChildren(ctx, tx, c); err != nil {
			return err
		}
		r.defaultName(c)
		return insertConfiguration(ctx, tx, c)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, c.ID)
}

func (r *configurationRepository) GetByID(ctx context.Context, id uint) (*entities.Configuration, error) {
	return getConfiguration(ctx, r.db, id)
}

func (r *configurationRepository) Update(ctx context.Context, id uint, patch ConfigurationPatch) (*entities.Configuration, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getByID[entities.Configuration](ctx, tx, id, ErrConfigurationNotFound, resConfiguration)
		if err != nil {
			return err
		}
		if err := checkVersion(patch.Version, current.Version, resConfiguration, id); err != nil {
			return err
		}

		cols := map[string]any{}
		patchValue(cols, "name", &current.Name, patch.Name)
		patchRef(cols, "frequency_id", &current.FrequencyID, patch.FrequencyID)
		if err := r.validate(ctx, tx, current); err != nil {
			return err
		}
		if len(cols) == 0 {
			return nil
		}
		if patch.Name != nil {
			r.defaultName(current)
			cols["name"] = current.Name
		}
		return updateVersioned[entities.Configuration](ctx, tx, id, current.Version, cols, resConfiguration)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *configurationRepository) List(ctx context.Context, opts ListOptions) ([]entities.Configuration, error) {
	return list[entities.Configuration](ctx, r.db, opts, resConfiguration)
}

func (r *configurationRepository) Count(ctx context.Context) (int64, error) {
	return count[entities.Configuration](ctx, r.db, resConfiguration)
}

func (r *configurationRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getByID[entities.Configuration](ctx, tx, id, ErrConfigurationNotFound, resConfiguration); err != nil {
			return err
		}
		return deleteConfigurations(ctx, tx, []uint{id})
	})
}

// deleteConfigurations removes configurations and their children inside tx
func deleteConfigurations(ctx context.Context, tx *gorm.DB, ids []uint) error {
	if len(ids) == 0 {
		return nil
	}
	db := tx.WithContext(ctx)
	if err := db.Where("configuration_id IN ?", ids).Delete(&entities.ChannelSetting{}).Error; err != nil {
		return dbError(err, "delete", resChannelSetting)
	}
	if err := db.Where("configuration_id IN ?", ids).Delete(&entities.InputConnection{}).Error; err != nil {
		return dbError(err, "delete", resInputConnection)
	}
	if err := db.Where("id IN ?", ids).Delete(&entities.Configuration{}).Error; err != nil {
		return dbError(err, "delete", resConfiguration)
	}
	return nil
}

func (r *configurationRepository) Save(ctx context.Context, req SnapshotRequest) (*entities.Configuration, error) {
	var saved *entities.Configuration
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := requireID(ctx, tx, entities.User{}.TableName(), resUser, req.UserID); err != nil {
			return err
		}
		if err := requireID(ctx, tx, entities.AudioInterface{}.TableName(), resAudioInterface, req.InterfaceID); err != nil {
			return err
		}
		iface, err := getByID[entities.AudioInterface](ctx, tx, req.InterfaceID, ErrAudioInterfaceNotFound, resAudioInterface)
		if err != nil {
			return err
		}

		var channels []entities.Channel
		if err := tx.Where("interface_id = ?", iface.ID).Order("id ASC").Find(&channels).Error; err != nil {
			return dbError(err, "save", resConfiguration)
		}
		channelIDs := make([]uint, 0, len(channels))
		settings := make([]entities.ChannelSetting, 0, len(channels))
		for i := range channels {
			ch := &channels[i]
			channelIDs = append(channelIDs, ch.ID)
			settings = append(settings, entities.ChannelSetting{
				ChannelID: ch.ID,
				SourceID:  ch.SourceID,
				Volume:    ch.Volume,
				Mute:      ch.Mute,
				Solo:      ch.Solo,
				Link:      ch.Link,
			})
		}

		var inputs []entities.Input
		if len(channelIDs) > 0 {
			if err := tx.Where("channel_id IN ?", channelIDs).Order("id ASC").Find(&inputs).Error; err != nil {
				return dbError(err, "save", resConfiguration)
			}
		}
		connections := make([]entities.InputConnection, 0, len(inputs))
		for i := range inputs {
			connections = append(connections, entities.InputConnection{
				InputID:  inputs[i].ID,
				DeviceID: inputs[i].DeviceID,
			})
		}

		cfg := &entities.Configuration{
			Name:        strings.TrimSpace(req.Name),
			SavedAt:     r.now(),
			UserID:      req.UserID,
			InterfaceID: iface.ID,
			FrequencyID: iface.FrequencyID,
			Channels:    settings,
			Inputs:      connections,
		}
		if err := limitText("name", cfg.Name, maxNameLength); err != nil {
			return err
		}
		r.defaultName(cfg)
		if err := insertConfiguration(ctx, tx, cfg); err != nil {
			return err
		}
		saved = cfg
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, saved.ID)
}

func (r *configurationRepository) Latest(ctx context.Context, userID uint) (*entities.Configuration, error) {
	q := r.db.WithContext(ctx).Model(&entities.Configuration{}).Scopes(newestFirst)
	if userID != 0 {
		q = q.Where("user_id = ?", userID)
	}
	var ids []uint
	if err := q.Limit(1).Pluck("id", &ids).Error; err != nil {
		return nil, dbError(err, "latest", resConfiguration)
	}
	if len(ids) == 0 {
		return nil, notFoundError(ErrConfigurationNotFound, resConfiguration, fmt.Sprintf("latest for user %d", userID))
	}
	return r.GetByID(ctx, ids[0])
}

func (r *configurationRepository) ListByUser(ctx context.Context, userID uint, opts ListOptions) ([]entities.Configuration, error) {
	return r.listNewest(ctx, opts, "user_id = ?", userID)
}

func (r *configurationRepository) ListByInterface(ctx context.Context, interfaceID uint, opts ListOptions) ([]entities.Configuration, error) {
	return r.listNewest(ctx, opts, "interface_id = ?", interfaceID)
}

func (r *configurationRepository) CountByUser(ctx context.Context, userID uint) (int64, error) {
	return count[entities.Configuration](ctx, r.db, resConfiguration, func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	})
}

func (r *configurationRepository) listNewest(ctx context.Context, opts ListOptions, where string, arg uint) ([]entities.Configuration, error) {
	cfgs := []entities.Configuration{}
	err := r.db.WithContext(ctx).
		Where(where, arg).
		Scopes(newestFirst, opts.scope).
		Find(&cfgs).Error
	if err != nil {
		return nil, dbError(err, "list", resConfiguration)
	}
	return cfgs, nil
}

func (r *configurationRepository) SetChannelSetting(ctx context.Context, configID, channelID uint, patch ChannelSettingPatch) (*entities.ChannelSetting, error) {
	var settingID uint
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current entities.ChannelSetting
		err := tx.Where("configuration_id = ? AND channel_id = ?", configID, channelID).First(&current).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return notFoundError(ErrChannelSettingNotFound, resChannelSetting, fmt.Sprintf("%d/%d", configID, channelID))
		}
		if err != nil {
			return dbError(err, "get", resChannelSetting)
		}
		settingID = current.ID
		if err := checkVersion(patch.Version, current.Version, resChannelSetting, current.ID); err != nil {
			return err
		}

		cols := map[string]any{}
		patchValue(cols, "volume", &current.Volume, patch.Volume)
		patchValue(cols, "mute", &current.Mute, patch.Mute)
		patchValue(cols, "solo", &current.Solo, patch.Solo)
		patchValue(cols, "link", &current.Link, patch.Link)
		patchRef(cols, "source_id", &current.SourceID, patch.SourceID)
		if err := validateVolume(current.Volume); err != nil {
			return err
		}
		if err := requireRef(ctx, tx, entities.Source{}.TableName(), resSource, current.SourceID); err != nil {
			return err
		}
		if len(cols) == 0 {
			return nil
		}
		return updateVersioned[entities.ChannelSetting](ctx, tx, current.ID, current.Version, cols, resChannelSetting)
	})
	if err != nil {
		return nil, err
	}
	return getByID[entities.ChannelSetting](ctx, r.db, settingID, ErrChannelSettingNotFound, resChannelSetting)
}

// nullable converts a nullable ID to a value GORM writes as NULL when absent
func nullable(id *uint) any {
	if id == nil {
		return nil
	}
	return *id
}

func (r *configurationRepository) Apply(ctx context.Context, id uint) (*ApplyResult, error) {
	result := &ApplyResult{}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cfg, err := getConfiguration(ctx, tx, id)
		if err != nil {
			return err
		}

		for i := range cfg.Channels {
			s := &cfg.Channels[i]
			res := tx.Model(&entities.Channel{}).
				Where("id = ? AND interface_id = ?", s.ChannelID, cfg.InterfaceID).
				Updates(map[string]any{
					"volume":    s.Volume,
					"mute":      s.Mute,
					"solo":      s.Solo,
					"link":      s.Link,
					"source_id": nullable(s.SourceID),
					"version":   gorm.Expr("version + 1"),
				})
			if res.Error != nil {
				return dbError(res.Error, "apply", resChannel)
			}
			result.Channels += int(res.RowsAffected)
		}

		for i := range cfg.Inputs {
			conn := &cfg.Inputs[i]
			res := tx.Model(&entities.Input{}).
				Where("id = ?", conn.InputID).
				Updates(map[string]any{
					"device_id": nullable(conn.DeviceID),
					"version":   gorm.Expr("version + 1"),
				})
			if res.Error != nil {
				return dbError(res.Error, "apply", resInput)
			}
			result.Inputs += int(res.RowsAffected)
		}

		if cfg.FrequencyID != nil {
			res := tx.Model(&entities.AudioInterface{}).
				Where("id = ?", cfg.InterfaceID).
				Updates(map[string]any{
					"frequency_id": *cfg.FrequencyID,
					"version":      gorm.Expr("version + 1"),
				})
			if res.Error != nil {
				return dbError(res.Error, "apply", resAudioInterface)
			}
			result.Frequency = res.RowsAffected > 0
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
