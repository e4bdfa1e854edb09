package repository

import (
	"context"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

// TypePatch lists the type fields an update may change.
type TypePatch struct {
	Name        *string
	Description *string
	Version     *uint
}

// TypeRepository provides access to the types table.
type TypeRepository interface {
	Create(ctx context.Context, t *entities.Type) (*entities.Type, error)
	GetByID(ctx context.Context, id uint) (*entities.Type, error)
	GetByName(ctx context.Context, name string) (*entities.Type, error)
	Update(ctx context.Context, id uint, patch TypePatch) (*entities.Type, error)
	List(ctx context.Context, opts ListOptions) ([]entities.Type, error)
	Count(ctx context.Context) (int64, error)

	// Delete refuses with ErrInUse while devices or sources reference the type.
	Delete(ctx context.Context, id uint) error
}
