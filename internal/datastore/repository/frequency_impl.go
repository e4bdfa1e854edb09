package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
)

type frequencyRepository struct {
	db *gorm.DB
}

// NewFrequencyRepository creates a new FrequencyRepository.
func NewFrequencyRepository(db *gorm.DB) FrequencyRepository {
	return &frequencyRepository{db: db}
}

func (r *frequencyRepository) Create(ctx context.Context, f *entities.Frequency) (*entities.Frequency, error) {
	if err := validateFrequency(f); err != nil {
		return nil, err
	}
	if err := insert(ctx, r.db, f, resFrequency); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, f.ID)
}

func (r *frequencyRepository) GetByID(ctx context.Context, id uint) (*entities.Frequency, error) {
	return getByID[entities.Frequency](ctx, r.db, id, ErrFrequencyNotFound, resFrequency)
}

func (r *frequencyRepository) GetByValue(ctx context.Context, value float64, unit string) (*entities.Frequency, error) {
	if unit == "" {
		unit = entities.UnitKHz
	}
	var f entities.Frequency
	err := r.db.WithContext(ctx).Where("value = ? AND unit = ?", value, unit).First(&f).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrFrequencyNotFound, resFrequency, value)
	}
	if err != nil {
		return nil, dbError(err, "get_by_value", resFrequency)
	}
	return &f, nil
}

func (r *frequencyRepository) Update(ctx context.Context, id uint, patch FrequencyPatch) (*entities.Frequency, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getByID[entities.Frequency](ctx, tx, id, ErrFrequencyNotFound, resFrequency)
		if err != nil {
			return err
		}
		if err := checkVersion(patch.Version, current.Version, resFrequency, id); err != nil {
			return err
		}

		cols := map[string]any{}
		patchValue(cols, "value", &current.Value, patch.Value)
		patchValue(cols, "unit", &current.Unit, patch.Unit)
		if err := validateFrequency(current); err != nil {
			return err
		}
		if len(cols) == 0 {
			return nil
		}
		if patch.Unit != nil {
			cols["unit"] = current.Unit
		}
		return updateVersioned[entities.Frequency](ctx, tx, id, current.Version, cols, resFrequency)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *frequencyRepository) List(ctx context.Context, opts ListOptions) ([]entities.Frequency, error) {
	return list[entities.Frequency](ctx, r.db, opts, resFrequency)
}

func (r *frequencyRepository) Count(ctx context.Context) (int64, error) {
	return count[entities.Frequency](ctx, r.db, resFrequency)
}

func (r *frequencyRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getByID[entities.Frequency](ctx, tx, id, ErrFrequencyNotFound, resFrequency); err != nil {
			return err
		}
		for _, table := range []string{
			entities.AudioInterface{}.TableName(),
			entities.Configuration{}.TableName(),
		} {
			if err := detach(ctx, tx, table, "frequency_id", id); err != nil {
				return err
			}
		}
		return deleteByID[entities.Frequency](ctx, tx, id, ErrFrequencyNotFound, resFrequency)
	})
}

func (r *frequencyRepository) EnsureCommon(ctx context.Context) (int, error) {
	added := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, f := range entities.CommonFrequencies() {
			var n int64
			err := tx.Model(&entities.Frequency{}).Where("value = ? AND unit = ?", f.Value, f.Unit).Count(&n).Error
			if err != nil {
				return dbError(err, "ensure_common", resFrequency)
			}
			if n > 0 {
				continue
			}
			if err := insert(ctx, tx, &f, resFrequency); err != nil {
				return err
			}
			added++
		}
		return nil
	})
	return added, err
}
