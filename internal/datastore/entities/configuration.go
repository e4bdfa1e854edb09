package entities

import "time"

// Configuration is a saved session: the state of every channel of one
// interface and the device connected to every input routed to them.
type Configuration struct {
	Model
	Name        string            `gorm:"size:100" json:"name" yaml:"name"`
	SavedAt     time.Time         `gorm:"not null;index" json:"saved_at" yaml:"saved_at"`
	UserID      uint              `gorm:"not null;index" json:"user_id" yaml:"user_id"`
	User        *User             `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-" yaml:"-"`
	InterfaceID uint              `gorm:"not null;index" json:"interface_id" yaml:"interface_id"`
	Interface   *AudioInterface   `gorm:"foreignKey:InterfaceID;constraint:OnDelete:CASCADE" json:"-" yaml:"-"`
	FrequencyID *uint             `gorm:"index" json:"frequency_id" yaml:"frequency_id"`
	Frequency   *Frequency        `gorm:"foreignKey:FrequencyID;constraint:OnDelete:SET NULL" json:"-" yaml:"-"`
	Channels    []ChannelSetting  `gorm:"foreignKey:ConfigurationID;constraint:OnDelete:CASCADE" json:"channels" yaml:"channels"`
	Inputs      []InputConnection `gorm:"foreignKey:ConfigurationID;constraint:OnDelete:CASCADE" json:"inputs" yaml:"inputs"`
}

// TableName returns the table name for GORM.
func (Configuration) TableName() string {
	return "configurations"
}

// ChannelSetting is the state of one channel inside a configuration.
type ChannelSetting struct {
	Model
	ConfigurationID uint     `gorm:"not null;uniqueIndex:idx_configuration_channel,priority:1" json:"configuration_id" yaml:"-"`
	ChannelID       uint     `gorm:"not null;uniqueIndex:idx_configuration_channel,priority:2" json:"channel_id" yaml:"channel_id"`
	Channel         *Channel `gorm:"foreignKey:ChannelID;constraint:OnDelete:CASCADE" json:"-" yaml:"-"`
	SourceID        *uint    `gorm:"index" json:"source_id" yaml:"source_id"`
	Source          *Source  `gorm:"foreignKey:SourceID;constraint:OnDelete:SET NULL" json:"-" yaml:"-"`
	Volume          float64  `gorm:"not null;default:0" json:"volume" yaml:"volume"`
	Mute            bool     `gorm:"not null;default:false" json:"mute" yaml:"mute"`
	Solo            bool     `gorm:"not null;default:false" json:"solo" yaml:"solo"`
	Link            bool     `gorm:"not null;default:false" json:"link" yaml:"link"`
}

// TableName returns the table name for GORM.
func (ChannelSetting) TableName() string {
	return "configuration_channels"
}

// VolumePercent returns the volume on the 0-100 scale.
func (s *ChannelSetting) VolumePercent() int {
	return VolumeToPercent(s.Volume)
}

// InputConnection records which device was connected to an input.
type InputConnection struct {
	Model
	ConfigurationID uint    `gorm:"not null;uniqueIndex:idx_configuration_input,priority:1" json:"configuration_id" yaml:"-"`
	InputID         uint    `gorm:"not null;uniqueIndex:idx_configuration_input,priority:2" json:"input_id" yaml:"input_id"`
	Input           *Input  `gorm:"foreignKey:InputID;constraint:OnDelete:CASCADE" json:"-" yaml:"-"`
	DeviceID        *uint   `gorm:"index" json:"device_id" yaml:"device_id"`
	Device          *Device `gorm:"foreignKey:DeviceID;constraint:OnDelete:SET NULL" json:"-" yaml:"-"`
}

// TableName returns the table name for GORM.
func (InputConnection) TableName() string {
	return "configuration_inputs"
}

// All returns one zero value of every model, in migration order.
func All() []any {
	return []any{
		&User{},
		&Type{},
		&Device{},
		&Frequency{},
		&AudioInterface{},
		&Source{},
		&Channel{},
		&Input{},
		&Configuration{},
		&ChannelSetting{},
		&InputConnection{},
	}
}
