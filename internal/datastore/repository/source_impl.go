package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

const maxPageSize = 500

type sourceRepository struct {
	db *gorm.DB
}

// NewSourceRepository creates a new SourceRepository.
func NewSourceRepository(db *gorm.DB) SourceRepository {
	return &sourceRepository{db: db}
}

func (r *sourceRepository) checkRefs(ctx context.Context, db *gorm.DB, s *entities.Source) error {
	return requireRef(ctx, db, entities.Type{}.TableName(), resType, s.TypeID)
}

func (r *sourceRepository) Create(ctx context.Context, s *entities.Source) (*entities.Source, error) {
	if err := validateSource(s); err != nil {
		return nil, err
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.checkRefs(ctx, tx, s); err != nil {
			return err
		}
		return insert(ctx, tx, s, resSource)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, s.ID)
}

func (r *sourceRepository) GetByID(ctx context.Context, id uint) (*entities.Source, error) {
	return getByID[entities.Source](ctx, r.db, id, ErrSourceNotFound, resSource)
}

func (r *sourceRepository) Update(ctx context.Context, id uint, patch SourcePatch) (*entities.Source, error) {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		current, err := getByID[entities.Source](ctx, tx, id, ErrSourceNotFound, resSource)
		if err != nil {
			return err
		}
		if err := checkVersion(patch.Version, current.Version, resSource, id); err != nil {
			return err
		}

		cols := map[string]any{}
		patchValue(cols, "name", &current.Name, patch.Name)
		patchRef(cols, "type_id", &current.TypeID, patch.TypeID)
		if err := validateSource(current); err != nil {
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
		return updateVersioned[entities.Source](ctx, tx, id, current.Version, cols, resSource)
	})
	if err != nil {
		return nil, err
	}
	return r.GetByID(ctx, id)
}

func (r *sourceRepository) List(ctx context.Context, opts ListOptions) ([]entities.Source, error) {
	return list[entities.Source](ctx, r.db, opts, resSource)
}

func (r *sourceRepository) Count(ctx context.Context) (int64, error) {
	return count[entities.Source](ctx, r.db, resSource)
}

func (r *sourceRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := getByID[entities.Source](ctx, tx, id, ErrSourceNotFound, resSource); err != nil {
			return err
		}
		for _, table := range []string{
			entities.Channel{}.TableName(),
			entities.Input{}.TableName(),
			entities.ChannelSetting{}.TableName(),
		} {
			if err := detach(ctx, tx, table, "source_id", id); err != nil {
				return err
			}
		}
		return deleteByID[entities.Source](ctx, tx, id, ErrSourceNotFound, resSource)
	})
}

func (r *sourceRepository) ListByType(ctx context.Context, typeID uint) ([]entities.Source, error) {
	return list[entities.Source](ctx, r.db, ListOptions{}, resSource, func(db *gorm.DB) *gorm.DB {
		return db.Where("type_id = ?", typeID)
	})
}

func (r *sourceRepository) ListUntyped(ctx context.Context) ([]entities.Source, error) {
	return list[entities.Source](ctx, r.db, ListOptions{}, resSource, func(db *gorm.DB) *gorm.DB {
		return db.Where("type_id IS NULL")
	})
}

func (r *sourceRepository) AssignType(ctx context.Context, sourceID uint, typeID *uint) (*entities.Source, error) {
	return r.Update(ctx, sourceID, SourcePatch{TypeID: RefFrom(typeID)})
}

func (r *sourceRepository) Page(ctx context.Context, page, size int) (Page[entities.Source], error) {
	if page < 1 {
		page = 1
	}
	if size < 1 || size > maxPageSize {
		return Page[entities.Source]{}, invalidField("size", "must be between 1 and 500")
	}

	total, err := r.Count(ctx)
	if err != nil {
		return Page[entities.Source]{}, err
	}
	items, err := r.List(ctx, ListOptions{Limit: size, Offset: (page - 1) * size})
	if err != nil {
		return Page[entities.Source]{}, err
	}
	return Page[entities.Source]{Items: items, Total: total, Page: page, Size: size}, nil
}
