package entities

import "math"

// Channel is one strip of an audio interface. Volume is stored as 0.0-1.0.
type Channel struct {
	Model
	Label       string          `gorm:"size:50;not null" json:"label"`
	Volume      float64         `gorm:"not null;default:0" json:"volume"`
	Mute        bool            `gorm:"not null;default:false" json:"mute"`
	Solo        bool            `gorm:"not null;default:false" json:"solo"`
	Link        bool            `gorm:"not null;default:false" json:"link"`
	InterfaceID uint            `gorm:"not null;index" json:"interface_id"`
	Interface   *AudioInterface `gorm:"foreignKey:InterfaceID;constraint:OnDelete:CASCADE" json:"-"`
	SourceID    *uint           `gorm:"index" json:"source_id"`
	Source      *Source         `gorm:"foreignKey:SourceID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName returns the table name for GORM.
func (Channel) TableName() string {
	return "channels"
}

// VolumePercent returns the volume on the 0-100 scale shown to users.
func (c *Channel) VolumePercent() int {
	return VolumeToPercent(c.Volume)
}

// VolumeToPercent converts a stored 0.0-1.0 volume to a rounded percentage.
func VolumeToPercent(v float64) int {
	return int(math.Round(v * 100))
}

// PercentToVolume converts a 0-100 percentage to the stored scale.
func PercentToVolume(p int) float64 {
	return float64(p) / 100
}
