package repository

import (
	"context"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

// ChannelPatch lists the channel fields an update may change.
type ChannelPatch struct {
	Label       *string
	Volume      *float64 // 0.0-1.0
	Mute        *bool
	Solo        *bool
	Link        *bool
	InterfaceID *uint
	SourceID    *Ref
	Version     *uint
}

// ChannelRepository provides access to the channels table.
type ChannelRepository interface {
	// Create rejects a channel whose interface does not exist with ErrReference.
	Create(ctx context.Context, c *entities.Channel) (*entities.Channel, error)
	GetByID(ctx context.Context, id uint) (*entities.Channel, error)
	Update(ctx context.Context, id uint, patch ChannelPatch) (*entities.Channel, error)
	List(ctx context.Context, opts ListOptions) ([]entities.Channel, error)
	Count(ctx context.Context) (int64, error)

	// Delete removes the channel and its saved settings; routed inputs are unassigned.
	Delete(ctx context.Context, id uint) error

	ListByInterface(ctx context.Context, interfaceID uint) ([]entities.Channel, error)
	SetMute(ctx context.Context, id uint, mute bool) (*entities.Channel, error)
	SetSolo(ctx context.Context, id uint, solo bool) (*entities.Channel, error)
	SetVolume(ctx context.Context, id uint, volume float64) (*entities.Channel, error)
}
