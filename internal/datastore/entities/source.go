package entities

// Source is a named signal source that channels and inputs carry.
type Source struct {
	Model
	Name   string `gorm:"size:100;not null;index" json:"name"`
	TypeID *uint  `gorm:"index" json:"type_id"`
	Type   *Type  `gorm:"foreignKey:TypeID;constraint:OnDelete:SET NULL" json:"-"`
}

// TableName returns the table name for GORM.
func (Source) TableName() string {
	return "sources"
}
