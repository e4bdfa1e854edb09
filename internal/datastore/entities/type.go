package entities

// Type categorizes sources and devices, e.g. "microphone" or "line".
type Type struct {
	Model
	Name        string `gorm:"size:50;uniqueIndex;not null" json:"name"`
	Description string `gorm:"size:255" json:"description"`
}

// TableName returns the table name for GORM.
func (Type) TableName() string {
	return "types"
}
