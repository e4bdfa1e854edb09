package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
)

type typeRepository struct {
	db *gorm.DB
}

// NewTypeRepository creates a new TypeRepository.
func NewTypeRepository(db *gorm.DB) TypeRepository {
	return &typeRepository{db: db}
}

func (r *typeRepository) Create(ctx context.Context, t *entities.Type) (*entities.Type, error) {
	if err := validateType(t); err != nil {
		return nil, err
	}
	if err := insert(ctx, r.db, t, resType); err != nil {
		return nil, err
	}
	return r.GetByID(ctx, t.ID)
}

func (r *typeRepository) GetByID(ctx context.Context, id uint) (*entities.Type, error) {
	return getByID[entities.Type](ctx, r.db, id, ErrTypeNotFound, resType)
}

func (r *typeRepository) GetByName(ctx context.Context, name string) (*entities.Type, error) {
	var t entities.Type
	err := r.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrTypeNotFound, resType, name)
	}
	if err != nil {
		return nil, dbError(err, "get_by_name", resType)
	}
	return &t, nil
}

func (r *typeRepository) Update(ctx context.Context, id uint, patch TypePatch) (*entities.Type, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getByID[entities.Type](ctx, tx, id, ErrTypeNotFound, resType)
		if err != nil {
			return err
		}
		if err := checkVersion(patch.Version, current.Version, resType, id); err != nil {
			return err
		}

		cols := map[string]any{}
		patchValue(cols, "name", &current.Name, patch.Name)
		patchValue(cols, "description", &current.Description, patch.Description)
		if err := validateType(current); err != nil {
			return err
		}
		if len(cols) == 0 {
			return nil
		}
		if patch.Name != nil {
			cols["name"] = current.Name
		}
		return updateVersioned[entities.Type](ctx, tx, id, current.Version, cols, resType)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *typeRepository) List(ctx context.Context, opts ListOptions) ([]entities.Type, error) {
	return list[entities.Type](ctx, r.db, opts, resType)
}

func (r *typeRepository) Count(ctx context.Context) (int64, error) {
	return count[entities.Type](ctx, r.db, resType)
}

func (r *typeRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getByID[entities.Type](ctx, tx, id, ErrTypeNotFound, resType); err != nil {
			return err
		}

		var devices, sources int64
		if err := tx.Model(&entities.Device{}).Where("type_id = ?", id).Count(&devices).Error; err != nil {
			return dbError(err, "delete", resType)
		}
		if err := tx.Model(&entities.Source{}).Where("type_id = ?", id).Count(&sources).Error; err != nil {
			return dbError(err, "delete", resType)
		}
		if devices+sources > 0 {
			return inUseError(resType, id, devices+sources)
		}

		return deleteByID[entities.Type](ctx, tx, id, ErrTypeNotFound, resType)
	})
}
