package entities

// Role is the permission level of a user.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleOperator Role = "operator"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleOperator
}

// User is a login account. PasswordHash is a bcrypt hash and is never serialized.
type User struct {
	Model
	Email        string `gorm:"size:254;uniqueIndex;not null" json:"email"`
	Name         string `gorm:"size:100" json:"name"`
	PasswordHash string `gorm:"size:100;not null" json:"-"`
	Role         Role   `gorm:"size:20;not null" json:"role"`
}

// TableName returns the table name for GORM.
func (User) TableName() string {
	return "users"
}

// IsAdmin reports whether the user has the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

// DisplayName returns the name, or the email when no name is set.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}
