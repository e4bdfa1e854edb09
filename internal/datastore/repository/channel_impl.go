package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

type channelRepository struct {
	db *gorm.DB
}

// NewChannelRepository creates a new ChannelRepository.
func NewChannelRepository(db *gorm.DB) ChannelRepository {
	return &channelRepository{db: db}
}

func (r *channelRepository) checkRefs(ctx context.Context, db *gorm.DB, c *entities.Channel) error {
	if err := requireID(ctx, db, entities.AudioInterface{}.TableName(), resAudioInterface, c.InterfaceID); err != nil {
		return err
	}
	return requireRef(ctx, db, entities.Source{}.TableName(), resSource, c.SourceID)
}

func (r *channelRepository) Create(ctx context.Context, c *entities.Channel) (*entities.Channel, error) {
	if err := validateChannel(c); err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkRefs(ctx, tx, c); err != nil {
			return err
		}
		return insert(ctx, tx, c, resChannel)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, c.ID)
}

func (r *channelRepository) GetByID(ctx context.Context, id uint) (*entities.Channel, error) {
	return getByID[entities.Channel](ctx, r.db, id, ErrChannelNotFound, resChannel)
}

func (r *channelRepository) Update(ctx context.Context, id uint, patch ChannelPatch) (*entities.Channel, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getByID[entities.Channel](ctx, tx, id, ErrChannelNotFound, resChannel)
		if err != nil {
			return err
		}
		if err := checkVersion(patch.Version, current.Version, resChannel, id); err != nil {
			return err
		}

		cols := map[string]any{}
		patchValue(cols, "label", &current.Label, patch.Label)
		patchValue(cols, "volume", &current.Volume, patch.Volume)
		patchValue(cols, "mute", &current.Mute, patch.Mute)
		patchValue(cols, "solo", &current.Solo, patch.Solo)
		patchValue(cols, "link", &current.Link, patch.Link)
		patchValue(cols, "interface_id", &current.InterfaceID, patch.InterfaceID)
		patchRef(cols, "source_id", &current.SourceID, patch.SourceID)
		if err := validateChannel(current); err != nil {
			return err
		}
		if err := r.checkRefs(ctx, tx, current); err != nil {
			return err
		}
		if len(cols) == 0 {
			return nil
		}
		if patch.Label != nil {
			cols["label"] = current.Label
		}
		return updateVersioned[entities.Channel](ctx, tx, id, current.Version, cols, resChannel)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *channelRepository) List(ctx context.Context, opts ListOptions) ([]entities.Channel, error) {
	return list[entities.Channel](ctx, r.db, opts, resChannel)
}

func (r *channelRepository) Count(ctx context.Context) (int64, error) {
	return count[entities.Channel](ctx, r.db, resChannel)
}

func (r *channelRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getByID[entities.Channel](ctx, tx, id, ErrChannelNotFound, resChannel); err != nil {
			return err
		}
		return deleteChannel(ctx, tx, id)
	})
}

// deleteChannel removes a channel inside tx: routed inputs are unassigned
// and saved settings of the channel are dropped
func deleteChannel(ctx context.Context, tx *gorm.DB, id uint) error {
	if err := detach(ctx, tx, entities.Input{}.TableName(), "channel_id", id); err != nil {
		return err
	}
	if err := purge(ctx, tx, entities.ChannelSetting{}.TableName(), "channel_id", id); err != nil {
		return err
	}
	return deleteByID[entities.Channel](ctx, tx, id, ErrChannelNotFound, resChannel)
}

func (r *channelRepository) ListByInterface(ctx context.Context, interfaceID uint) ([]entities.Channel, error) {
	return list[entities.Channel](ctx, r.db, ListOptions{}, resChannel, func(db *gorm.DB) *gorm.DB {
		return db.Where("interface_id = ?", interfaceID)
	})
}

func (r *channelRepository) SetMute(ctx context.Context, id uint, mute bool) (*entities.Channel, error) {
	return r.Update(ctx, id, ChannelPatch{Mute: &mute})
}

func (r *channelRepository) SetSolo(ctx context.Context, id uint, solo bool) (*entities.Channel, error) {
	return r.Update(ctx, id, ChannelPatch{Solo: &solo})
}

func (r *channelRepository) SetVolume(ctx context.Context, id uint, volume float64) (*entities.Channel, error) {
	return r.Update(ctx, id, ChannelPatch{Volume: &volume})
}
