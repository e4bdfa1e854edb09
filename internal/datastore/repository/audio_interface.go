package repository

import (
	"context"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

// AudioInterfacePatch lists the interface fields an update may change.
type AudioInterfacePatch struct {
	ShortName      *string
	ModelName      *string
	CommercialName *string
	Price          *float64
	DeviceID       *Ref
	FrequencyID    *Ref
	Version        *uint
}

// AudioInterfaceRepository provides access to the audio_interfaces table.
type AudioInterfaceRepository interface {
	Create(ctx context.Context, a *entities.AudioInterface) (*entities.AudioInterface, error)
	GetByID(ctx context.Context, id uint) (*entities.AudioInterface, error)
	Update(ctx context.Context, id uint, patch AudioInterfacePatch) (*entities.AudioInterface, error)
	List(ctx context.Context, opts ListOptions) ([]entities.AudioInterface, error)
	Count(ctx context.Context) (int64, error)

	// Delete removes the interface together with its channels and the
	// configurations saved for it.
	Delete(ctx context.Context, id uint) error
}
