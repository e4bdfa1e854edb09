package repository

import (
	"math"
	"net/mail"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tphakala/console-panel/internal/datastore/entities"
)

// Field length limits, matching the column sizes in entities
const (
	maxNameLength        = 100
	maxLabelLength       = 50
	maxDescriptionLength = 255
	maxEmailLength       = 254
	minPasswordLength    = 8
	maxPasswordLength    = 72 // bcrypt ignores bytes beyond 72
)

func requireText(field, value string, maxLen int) error {
	if strings.TrimSpace(value) == "" {
		return invalidField(field, "is required")
	}
	return limitText(field, value, maxLen)
}

func limitText(field, value string, maxLen int) error {
	if utf8.RuneCountInString(value) > maxLen {
		return invalidField(field, "is too long")
	}
	return nil
}

// normalizeEmail lower-cases and trims an address and rejects anything
// that is not a bare address
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", invalidField("email", "is required")
	}
	if len(email) > maxEmailLength {
		return "", invalidField("email", "is too long")
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", invalidField("email", "is not a valid address")
	}
	return email, nil
}

// ValidatePassword enforces the password policy: at least 8 characters
// with an upper-case letter, a lower-case letter and a digit.
func ValidatePassword(password string) error {
	if len(password) < minPasswordLength {
		return invalidField("password", "must be at least 8 characters")
	}
	if len(password) > maxPasswordLength {
		return invalidField("password", "must be at most 72 bytes")
	}
	var upper, lower, digit bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r):
			upper = true
		case unicode.IsLower(r):
			lower = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	if !upper || !lower || !digit {
		return invalidField("password", "must contain upper-case, lower-case and digit characters")
	}
	return nil
}

func validateUser(u *entities.User) error {
	email, err := normalizeEmail(u.Email)
	if err != nil {
		return err
	}
	u.Email = email
	u.Name = strings.TrimSpace(u.Name)
	if err := limitText("name", u.Name, maxNameLength); err != nil {
		return err
	}
	if u.Role == "" {
		u.Role = entities.RoleOperator
	}
	if !u.Role.Valid() {
		return invalidField("role", "must be admin or operator")
	}
	return nil
}

func validateType(t *entities.Type) error {
	t.Name = strings.TrimSpace(t.Name)
	if err := requireText("name", t.Name, maxLabelLength); err != nil {
		return err
	}
	return limitText("description", t.Description, maxDescriptionLength)
}

func validateDevice(d *entities.Device) error {
	d.Name = strings.TrimSpace(d.Name)
	if err := requireText("name", d.Name, maxNameLength); err != nil {
		return err
	}
	return limitText("description", d.Description, maxDescriptionLength)
}

func validateFrequency(f *entities.Frequency) error {
	if f.Unit == "" {
		f.Unit = entities.UnitKHz
	}
	khz := f.Value
	switch f.Unit {
	case entities.UnitKHz:
	case "Hz":
		khz = f.Value / 1000
	default:
		return invalidField("unit", "must be kHz or Hz")
	}
	if math.IsNaN(khz) || khz < entities.MinFrequencyKHz || khz > entities.MaxFrequencyKHz {
		return invalidField("value", "must be between 8 and 192 kHz")
	}
	return nil
}

func validateAudioInterface(a *entities.AudioInterface) error {
	a.ShortName = strings.TrimSpace(a.ShortName)
	if err := requireText("short_name", a.ShortName, maxLabelLength); err != nil {
		return err
	}
	if err := limitText("model", a.ModelName, maxNameLength); err != nil {
		return err
	}
	if err := limitText("commercial_name", a.CommercialName, 150); err != nil {
		return err
	}
	if math.IsNaN(a.Price) || a.Price < 0 {
		return invalidField("price", "must not be negative")
	}
	return nil
}

func validateSource(s *entities.Source) error {
	s.Name = strings.TrimSpace(s.Name)
	return requireText("name", s.Name, maxNameLength)
}

func validateVolume(v float64) error {
	if math.IsNaN(v) || v < 0 || v > 1 {
		return invalidField("volume", "must be between 0 and 1")
	}
	return nil
}

func validateChannel(c *entities.Channel) error {
	c.Label = strings.TrimSpace(c.Label)
	if err := requireText("label", c.Label, maxLabelLength); err != nil {
		return err
	}
	if c.InterfaceID == 0 {
		return invalidField("interface_id", "is required")
	}
	return validateVolume(c.Volume)
}

func validateInput(in *entities.Input) error {
	in.Label = strings.TrimSpace(in.Label)
	if err := requireText("label", in.Label, maxLabelLength); err != nil {
		return err
	}
	return limitText("description", in.Description, maxDescriptionLength)
}
