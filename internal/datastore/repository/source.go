package repository

import (
	"context"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

// SourcePatch lists the source fields an update may change.
type SourcePatch struct {
	Name    *string
	TypeID  *Ref
	Version *uint
}

// SourceRepository provides access to the sources table.
type SourceRepository interface {
	Create(ctx context.Context, s *entities.Source) (*entities.Source, error)
	GetByID(ctx context.Context, id uint) (*entities.Source, error)
	Update(ctx context.Context, id uint, patch SourcePatch) (*entities.Source, error)
	List(ctx context.Context, opts ListOptions) ([]entities.Source, error)
	Count(ctx context.Context) (int64, error)

	// Delete removes the source; channels, inputs and saved settings carrying it are unassigned.
	Delete(ctx context.Context, id uint) error

	ListByType(ctx context.Context, typeID uint) ([]entities.Source, error)

	// ListUntyped returns the sources without a type.
	ListUntyped(ctx context.Context) ([]entities.Source, error)

	// AssignType sets or, with a nil typeID, clears the type of a source.
	AssignType(ctx context.Context, sourceID uint, typeID *uint) (*entities.Source, error)

	// Page returns page (1-based) of size items ordered by ID.
	Page(ctx context.Context, page, size int) (Page[entities.Source], error)
}
