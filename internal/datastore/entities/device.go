package entities

// Device is a piece of equipment that can be plugged into an input
// or that hosts an audio interface.
type Device struct {
	Model
	Name        string `gorm:"size:100;not null;index" json:"name"`
	Description string `gorm:"size:255" json:"description"`
	TypeID      *uint  `gorm:"index" json:"type_id"`
	Type        *Type  `gorm:"foreignKey:TypeID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName returns the table name for GORM.
func (Device) TableName() string {
	return "devices"
}
