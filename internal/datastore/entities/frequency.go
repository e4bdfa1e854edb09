package entities

import "strconv"

// Frequency limits in kHz
const (
	MinFrequencyKHz = 8.0
	MaxFrequencyKHz = 192.0
	UnitKHz         = "kHz"
)

// Frequency is a sample rate. Value and Unit together are unique.
type Frequency struct {
	Model
	Value float64 `gorm:"not null;uniqueIndex:idx_frequency_value_unit,priority:1" json:"value"`
	Unit  string  `gorm:"size:10;not null;uniqueIndex:idx_frequency_value_unit,priority:2" json:"unit"`
}

// TableName returns the table name for GORM.
func (Frequency) TableName() string {
	return "frequencies"
}

// Label renders the frequency as "48 kHz" or "44.1 kHz".
func (f *Frequency) Label() string {
	return strconv.FormatFloat(f.Value, 'f', -1, 64) + " " + f.Unit
}

// CommonFrequencies returns the sample rates seeded on first start.
func CommonFrequencies() []Frequency {
	values := []float64{44.1, 48, 88.2, 96, 176.4, 192}
	freqs := make([]Frequency, 0, len(values))
	for _, v := range values {
		freqs = append(freqs, Frequency{Value: v, Unit: UnitKHz})
	}
	return freqs
}
