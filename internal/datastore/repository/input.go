package repository

import (
	"context"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

// InputPatch lists the input fields an update may change.
type InputPatch struct {
	Label       *string
	Description *string
	ChannelID   *Ref
	SourceID    *Ref
	DeviceID    *Ref
	Version     *uint
}

// InputRepository provides access to the inputs table.
type InputRepository interface {
	Create(ctx context.Context, in *entities.Input) (*entities.Input, error)
	GetByID(ctx context.Context, id uint) (*entities.Input, error)
	Update(ctx context.Context, id uint, patch InputPatch) (*entities.Input, error)
	List(ctx context.Context, opts ListOptions) ([]entities.Input, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uint) error

	// ListByChannel returns the inputs routed to channelID.
	ListByChannel(ctx context.Context, channelID uint) ([]entities.Input, error)

	// ListByDevice returns the inputs deviceID is connected to.
	ListByDevice(ctx context.Context, deviceID uint) ([]entities.Input, error)

	SearchByLabel(ctx context.Context, term string) ([]entities.Input, error)
}
