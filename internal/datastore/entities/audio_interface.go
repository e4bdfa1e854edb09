package entities

// AudioInterface is a mixing interface. FrequencyID is its current sample rate.
type AudioInterface struct {
	Model
	ShortName      string     `gorm:"size:50;uniqueIndex;not null" json:"short_name"`
	ModelName      string     `gorm:"column:model;size:100" json:"model"`
	CommercialName string     `gorm:"size:150" json:"commercial_name"`
	Price          float64    `gorm:"not null;default:0" json:"price"`
	DeviceID       *uint      `gorm:"index" json:"device_id"`
	Device         *Device    `gorm:"foreignKey:DeviceID;constraint:OnDelete:SET NULL" json:"-"`
	FrequencyID    *uint      `gorm:"index" json:"frequency_id"`
	Frequency      *Frequency `gorm:"foreignKey:FrequencyID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName returns the table name for GORM.
func (AudioInterface) TableName() string {
	return "audio_interfaces"
}
