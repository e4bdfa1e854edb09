package repository

import (
	"context"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

// FrequencyPatch lists the frequency fields an update may change.
type FrequencyPatch struct {
	Value   *float64
	Unit    *string
	Version *uint
}

// FrequencyRepository provides access to the frequencies table.
type FrequencyRepository interface {
	// Create rejects values outside 8-192 kHz and duplicate (value, unit) pairs.
	Create(ctx context.Context, f *entities.Frequency) (*entities.Frequency, error)
	GetByID(ctx context.Context, id uint) (*entities.Frequency, error)
	GetByValue(ctx context.Context, value float64, unit string) (*entities.Frequency, error)
	Update(ctx context.Context, id uint, patch FrequencyPatch) (*entities.Frequency, error)
	List(ctx context.Context, opts ListOptions) ([]entities.Frequency, error)
	Count(ctx context.Context) (int64, error)

	// Delete removes the frequency; interfaces and configurations using it lose their sample rate.
	Delete(ctx context.Context, id uint) error

	// EnsureCommon inserts the common sample rates that are missing and
	// returns how many were added.
	EnsureCommon(ctx context.Context) (int, error)
}
