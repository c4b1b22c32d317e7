package model

import (
	"database/sql/driver"
	"fmt"
	"time"
)

// Role is the closed set of account roles stored in users.role.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool { return r == RoleUser || r == RoleAdmin }

// ParseRole converts s into a Role or fails for unknown values.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

func (r *Role) Scan(src any) error {
	return scanEnum(src, func(str string) error {
		v, err := ParseRole(str)
		*r = v
		return err
	})
}

func (r Role) Value() (driver.Value, error) { return string(r), nil }

// User mirrors a row of the users table.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Mobile       string    `json:"mobile"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	ProfileImage *string   `json:"profileImage"`
	Role         Role      `json:"role"`
	Credits      int       `json:"credits"`
	TotalRentals int       `json:"totalRentals"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// IsAdmin is a shorthand for u.Role == RoleAdmin.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }

// RefreshToken models an entry in refresh_tokens. Only the SHA-256 hash of
// the token is stored.
type RefreshToken struct {
	ID        uint64
	UserID    string
	TokenHash string
	ExpiresAt time.Time
	RevokedAt *time.Time
	CreatedAt time.Time
}

// scanEnum normalises the driver value of an ENUM column into a string
// before handing it to parse.
func scanEnum(src any, parse func(string) error) error {
	switch v := src.(type) {
	case string:
		return parse(v)
	case []byte:
		return parse(string(v))
	case nil:
		return fmt.Errorf("enum column is NULL")
	default:
		return fmt.Errorf("unsupported enum source %T", src)
	}
}
