package entities

// Input is a physical input. ChannelID is the channel it is routed to and
// DeviceID the device currently connected to it.
type Input struct {
	Model
	Label       string   `gorm:"size:50;not null" json:"label"`
	Description string   `gorm:"size:255" json:"description"`
	ChannelID   *uint    `gorm:"index" json:"channel_id"`
	Channel     *Channel `gorm:"foreignKey:ChannelID;constraint:OnDelete:SET NULL" json:"-"`
	SourceID    *uint    `gorm:"index" json:"source_id"`
	Source      *Source  `gorm:"foreignKey:SourceID;constraint:OnDelete:SET NULL" json:"-"`
	DeviceID    *uint    `gorm:"index" json:"device_id"`
	Device      *Device  `gorm:"foreignKey:DeviceID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName returns the table name for GORM.
func (Input) TableName() string {
	return "inputs"
}
