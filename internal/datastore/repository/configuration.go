package repository

import (
	"context"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

// SnapshotRequest identifies what Save captures.
type SnapshotRequest struct {
	UserID      uint
	InterfaceID uint
	Name        string // defaults to "Session <timestamp>"
}

// ConfigurationPatch lists the configuration fields an update may change.
type ConfigurationPatch struct {
	Name        *string
	FrequencyID *Ref
	Version     *uint
}

// ChannelSettingPatch adjusts one channel inside a saved configuration.
type ChannelSettingPatch struct {
	Volume   *float64
	Mute     *bool
	Solo     *bool
	Link     *bool
	SourceID *Ref
	Version  *uint
}

// ApplyResult reports how many rows Apply wrote back.
type ApplyResult struct {
	Channels  int
	Inputs    int
	Frequency bool
}

// ConfigurationRepository provides access to saved sessions and their
// channel settings and input connections.
type ConfigurationRepository interface {
	// Create stores a configuration and its children. Channel settings must
	// belong to channels of the configuration's interface.
	Create(ctx context.Context, c *entities.Configuration) (*entities.Configuration, error)

	// GetByID returns the configuration with Channels and Inputs loaded.
	GetByID(ctx context.Context, id uint) (*entities.Configuration, error)

	Update(ctx context.Context, id uint, patch ConfigurationPatch) (*entities.Configuration, error)

	// List returns configurations without children, ordered by ID.
	List(ctx context.Context, opts ListOptions) ([]entities.Configuration, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uint) error

	// Save captures the current state of every channel of the interface and
	// the device of every input routed to those channels, in one transaction.
	Save(ctx context.Context, req SnapshotRequest) (*entities.Configuration, error)

	// Latest returns the most recently saved configuration of userID, or of
	// anyone when userID is 0.
	Latest(ctx context.Context, userID uint) (*entities.Configuration, error)

	// ListByUser and ListByInterface return headers, newest first.
	ListByUser(ctx context.Context, userID uint, opts ListOptions) ([]entities.Configuration, error)
	ListByInterface(ctx context.Context, interfaceID uint, opts ListOptions) ([]entities.Configuration, error)
	CountByUser(ctx context.Context, userID uint) (int64, error)

	SetChannelSetting(ctx context.Context, configID, channelID uint, patch ChannelSettingPatch) (*entities.ChannelSetting, error)

	// Apply writes the configuration back onto its channels, inputs and
	// interface in one transaction.
	Apply(ctx context.Context, id uint) (*ApplyResult, error)
}
