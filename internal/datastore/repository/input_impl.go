package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

type inputRepository struct {
	db *gorm.DB
}

// NewInputRepository creates a new InputRepository.
func NewInputRepository(db *gorm.DB) InputRepository {
	return &inputRepository{db: db}
}

func (r *inputRepository) checkRefs(ctx context.Context, db *gorm.DB, in *entities.Input) error {
	if err := requireRef(ctx, db, entities.Channel{}.TableName(), resChannel, in.ChannelID); err != nil {
		return err
	}
	if err := requireRef(ctx, db, entities.Source{}.TableName(), resSource, in.SourceID); err != nil {
		return err
	}
	return requireRef(ctx, db, entities.Device{}.TableName(), resDevice, in.DeviceID)
}

func (r *inputRepository) Create(ctx context.Context, in *entities.Input) (*entities.Input, error) {
	if err := validateInput(in); err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkRefs(ctx, tx, in); err != nil {
			return err
		}
		return insert(ctx, tx, in, resInput)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, in.ID)
}

func (r *inputRepository) GetByID(ctx context.Context, id uint) (*entities.Input, error) {
	return getByID[entities.Input](ctx, r.db, id, ErrInputNotFound, resInput)
}

func (r *inputRepository) Update(ctx context.Context, id uint, patch InputPatch) (*entities.Input, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getByID[entities.Input](ctx, tx, id, ErrInputNotFound, resInput)
		if err != nil {
			return err
		}
		if err := checkVersion(patch.Version, current.Version, resInput, id); err != nil {
			return err
		}

		cols := map[string]any{}
		patchValue(cols, "label", &current.Label, patch.Label)
		patchValue(cols, "description", &current.Description, patch.Description)
		patchRef(cols, "channel_id", &current.ChannelID, patch.ChannelID)
		patchRef(cols, "source_id", &current.SourceID, patch.SourceID)
		patchRef(cols, "device_id", &current.DeviceID, patch.DeviceID)
		if err := validateInput(current); err != nil {
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
		return updateVersioned[entities.Input](ctx, tx, id, current.Version, cols, resInput)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *inputRepository) List(ctx context.Context, opts ListOptions) ([]entities.Input, error) {
	return list[entities.Input](ctx, r.db, opts, resInput)
}

func (r *inputRepository) Count(ctx context.Context) (int64, error) {
	return count[entities.Input](ctx, r.db, resInput)
}

func (r *inputRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getByID[entities.Input](ctx, tx, id, ErrInputNotFound, resInput); err != nil {
			return err
		}
		if err := purge(ctx, tx, entities.InputConnection{}.TableName(), "input_id", id); err != nil {
			return err
		}
		return deleteByID[entities.Input](ctx, tx, id, ErrInputNotFound, resInput)
	})
}

func (r *inputRepository) ListByChannel(ctx context.Context, channelID uint) ([]entities.Input, error) {
	return list[entities.Input](ctx, r.db, ListOptions{}, resInput, func(db *gorm.DB) *gorm.DB {
		return db.Where("channel_id = ?", channelID)
	})
}

func (r *inputRepository) ListByDevice(ctx context.Context, deviceID uint) ([]entities.Input, error) {
	return list[entities.Input](ctx, r.db, ListOptions{}, resInput, func(db *gorm.DB) *gorm.DB {
		return db.Where("device_id = ?", deviceID)
	})
}

func (r *inputRepository) SearchByLabel(ctx context.Context, term string) ([]entities.Input, error) {
	pattern := likePattern(strings.ToLower(strings.TrimSpace(term)))
	return list[entities.Input](ctx, r.db, ListOptions{}, resInput, func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(label) LIKE ? ESCAPE '!'", pattern)
	})
}
