package catalog

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/uptrace/bun"
)

// KindUsers is the cache namespace for users.
const KindUsers = "users"

// Role grants access to admin-only operations.
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// User is an account. PasswordHash is excluded from JSON, and therefore from
// API responses and cache entries.
type User struct {
	bun.BaseModel `bun:"table:users,alias:u" json:"-"`

	ID           string    `bun:"id,pk" json:"id"`
	Email        string    `bun:"email,notnull" json:"email"`
	PasswordHash string    `bun:"password_hash,notnull" json:"-"`
	Role         Role      `bun:"role,notnull" json:"role"`
	CreatedAt    time.Time `bun:"created_at,notnull" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at,notnull" json:"updated_at"`
}

// Validate checks field constraints.
// PasswordHash is never serialized, so its error is keyed explicitly
// instead of by the json tag.
func (u User) Validate() error {
	errs := validation.Errors{}
	if err := validation.ValidateStruct(&u,
		validation.Field(&u.Email, validation.Required, validation.Length(3, 255), is.EmailFormat),
		validation.Field(&u.Role, validation.Required, validation.In(RoleUser, RoleAdmin)),
	); err != nil {
		if !errors.As(err, &errs) {
			return NewValidationError(err)
		}
	}
	if err := validation.Validate(u.PasswordHash, validation.Required); err != nil {
		errs["password_hash"] = err
	}
	return NewValidationError(errs.Filter())
}

// NormalizeEmail trims and lower-cases an address so lookups are case-insensitive.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
