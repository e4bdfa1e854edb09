package repository

import (
	"context"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

// DevicePatch lists the device fields an update may change.
type DevicePatch struct {
	Name        *string
	Description *string
	TypeID      *Ref
	Version     *uint
}

// DeviceRepository provides access to the devices table.
type DeviceRepository interface {
	Create(ctx context.Context, d *entities.Device) (*entities.Device, error)
	GetByID(ctx context.Context, id uint) (*entities.Device, error)

	// GetByName returns the first device with exactly this name.
	GetByName(ctx context.Context, name string) (*entities.Device, error)

	Update(ctx context.Context, id uint, patch DevicePatch) (*entities.Device, error)
	List(ctx context.Context, opts ListOptions) ([]entities.Device, error)
	Count(ctx context.Context) (int64, error)

	// Delete removes the device. Interfaces, inputs and saved connections
	// that referenced it are left without a device.
	Delete(ctx context.Context, id uint) error

	// Search matches term case-insensitively against name and description.
	Search(ctx context.Context, term string, opts ListOptions) ([]entities.Device, error)

	ListByType(ctx context.Context, typeID uint) ([]entities.Device, error)
}
