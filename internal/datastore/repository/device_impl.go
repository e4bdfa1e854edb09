package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/datastore/entities"
	"github.com/tphakala/console-panel/internal/errors"
)

type deviceRepository struct {
	db *gorm.DB
}

// NewDeviceRepository creates a new DeviceRepository.
func NewDeviceRepository(db *gorm.DB) DeviceRepository {
	return &deviceRepository{db: db}
}

func (r *deviceRepository) checkRefs(ctx context.Context, db *gorm.DB, d *entities.Device) error {
	return requireRef(ctx, db, entities.Type{}.TableName(), resType, d.TypeID)
}

func (r *deviceRepository) Create(ctx context.Context, d *entities.Device) (*entities.Device, error) {
	if err := validateDevice(d); err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkRefs(ctx, tx, d); err != nil {
			return err
		}
		return insert(ctx, tx, d, resDevice)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, d.ID)
}

func (r *deviceRepository) GetByID(ctx context.Context, id uint) (*entities.Device, error) {
	return getByID[entities.Device](ctx, r.db, id, ErrDeviceNotFound, resDevice)
}

func (r *deviceRepository) GetByName(ctx context.Context, name string) (*entities.Device, error) {
	var d entities.Device
	err := r.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).Order("id ASC").First(&d).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, notFoundError(ErrDeviceNotFound, resDevice, name)
	}
	if err != nil {
		return nil, dbError(err, "get_by_name", resDevice)
	}
	return &d, nil
}

func (r *deviceRepository) Update(ctx context.Context, id uint, patch DevicePatch) (*entities.Device, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getByID[entities.Device](ctx, tx, id, ErrDeviceNotFound, resDevice)
		if err != nil {
			return err
		}
		if err := checkVersion(patch.Version, current.Version, resDevice, id); err != nil {
			return err
		}

		cols := map[string]any{}
		patchValue(cols, "name", &current.Name, patch.Name)
		patchValue(cols, "description", &current.Description, patch.Description)
		patchRef(cols, "type_id", &current.TypeID, patch.TypeID)
		if err := validateDevice(current); err != nil {
			return err
		}
		if err := r.checkRefs(ctx, tx, current); err != nil {
			return err
		}
		if len(cols) == 0 {
			return nil
		}
		if patch.Name != nil {
			cols["name"] = current.Name
		}
		return updateVersioned[entities.Device](ctx, tx, id, current.Version, cols, resDevice)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *deviceRepository) List(ctx context.Context, opts ListOptions) ([]entities.Device, error) {
	return list[entities.Device](ctx, r.db, opts, resDevice)
}

func (r *deviceRepository) Count(ctx context.Context) (int64, error) {
	return count[entities.Device](ctx, r.db, resDevice)
}

func (r *deviceRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getByID[entities.Device](ctx, tx, id, ErrDeviceNotFound, resDevice); err != nil {
			return err
		}
		for _, table := range []string{
			entities.AudioInterface{}.TableName(),
			entities.Input{}.TableName(),
			entities.InputConnection{}.TableName(),
		} {
			if err := detach(ctx, tx, table, "device_id", id); err != nil {
				return err
			}
		}
		return deleteByID[entities.Device](ctx, tx, id, ErrDeviceNotFound, resDevice)
	})
}

func (r *deviceRepository) Search(ctx context.Context, term string, opts ListOptions) ([]entities.Device, error) {
	pattern := likePattern(strings.ToLower(strings.TrimSpace(term)))
	return list[entities.Device](ctx, r.db, opts, resDevice, func(db *gorm.DB) *gorm.DB {
		return db.Where("LOWER(name) LIKE ? ESCAPE '!' OR LOWER(description) LIKE ? ESCAPE '!'", pattern, pattern)
	})
}

func (r *deviceRepository) ListByType(ctx context.Context, typeID uint) ([]entities.Device, error) {
	return list[entities.Device](ctx, r.db, ListOptions{}, resDevice, func(db *gorm.DB) *gorm.DB {
		return db.Where("type_id = ?", typeID)
	})
}
