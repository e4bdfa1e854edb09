package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

type audioInterfaceRepository struct {
	db *gorm.DB
}

// NewAudioInterfaceRepository creates a new AudioInterfaceRepository.
func NewAudioInterfaceRepository(db *gorm.DB) AudioInterfaceRepository {
	return &audioInterfaceRepository{db: db}
}

func (r *audioInterfaceRepository) checkRefs(ctx context.Context, db *gorm.DB, a *entities.AudioInterface) error {
	if err := requireRef(ctx, db, entities.Device{}.TableName(), resDevice, a.DeviceID); err != nil {
		return err
	}
	return requireRef(ctx, db, entities.Frequency{}.TableName(), resFrequency, a.FrequencyID)
}

func (r *audioInterfaceRepository) Create(ctx context.Context, a *entities.AudioInterface) (*entities.AudioInterface, error) {
	if err := validateAudioInterface(a); err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkRefs(ctx, tx, a); err != nil {
			return err
		}
		return insert(ctx, tx, a, resAudioInterface)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, a.ID)
}

func (r *audioInterfaceRepository) GetByID(ctx context.Context, id uint) (*entities.AudioInterface, error) {
	return getByID[entities.AudioInterface](ctx, r.db, id, ErrAudioInterfaceNotFound, resAudioInterface)
}

func (r *audioInterfaceRepository) Update(ctx context.Context, id uint, patch AudioInterfacePatch) (*entities.AudioInterface, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getByID[entities.AudioInterface](ctx, tx, id, ErrAudioInterfaceNotFound, resAudioInterface)
		if err != nil {
			return err
		}
		if err := checkVersion(patch.Version, current.Version, resAudioInterface, id); err != nil {
			return err
		}

		cols := map[string]any{}
		patchValue(cols, "short_name", &current.ShortName, patch.ShortName)
		patchValue(cols, "model", &current.ModelName, patch.ModelName)
		patchValue(cols, "commercial_name", &current.CommercialName, patch.CommercialName)
		patchValue(cols, "price", &current.Price, patch.Price)
		patchRef(cols, "device_id", &current.DeviceID, patch.DeviceID)
		patchRef(cols, "frequency_id", &current.FrequencyID, patch.FrequencyID)
		if err := validateAudioInterface(current); err != nil {
			return err
		}
		if err := r.checkRefs(ctx, tx, current); err != nil {
			return err
		}
		if len(cols) == 0 {
			return nil
		}
		if patch.ShortName != nil {
			cols["short_name"] = current.ShortName
		}
		return updateVersioned[entities.AudioInterface](ctx, tx, id, current.Version, cols, resAudioInterface)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *audioInterfaceRepository) List(ctx context.Context, opts ListOptions) ([]entities.AudioInterface, error) {
	return list[entities.AudioInterface](ctx, r.db, opts, resAudioInterface)
}

func (r *audioInterfaceRepository) Count(ctx context.Context) (int64, error) {
	return count[entities.AudioInterface](ctx, r.db, resAudioInterface)
}

func (r *audioInterfaceRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getByID[entities.AudioInterface](ctx, tx, id, ErrAudioInterfaceNotFound, resAudioInterface); err != nil {
			return err
		}

		var configIDs []uint
		if err := tx.Model(&entities.Configuration{}).Where("interface_id = ?", id).Pluck("id", &configIDs).Error; err != nil {
			return dbError(err, "delete", resAudioInterface)
		}
		if err := deleteConfigurations(ctx, tx, configIDs); err != nil {
			return err
		}

		var channelIDs []uint
		if err := tx.Model(&entities.Channel{}).Where("interface_id = ?", id).Pluck("id", &channelIDs).Error; err != nil {
			return dbError(err, "delete", resAudioInterface)
		}
		for _, channelID := range channelIDs {
			if err := deleteChannel(ctx, tx, channelID); err != nil {
				return err
			}
		}

		return deleteByID[entities.AudioInterface](ctx, tx, id, ErrAudioInterfaceNotFound, resAudioInterface)
	})
}
