package models

import (
	"fmt"
	"strings"
	"time"
)

// Color scheme preference values stored per user.
const (
	ColorSchemeDark  = "dark"
	ColorSchemeLight = "light"
)

// User represents a registered account.
//
// The password is stored only as a bcrypt hash; the plaintext never reaches
// this type.
type User struct {
	id           string
	sequence     int
	email        string
	passwordHash string
	colorScheme  string
	createdAt    time.Time
	updatedAt    time.Time
	deletedAt    *time.Time
}

// NewUser creates a User with the given sequence, email and bcrypt password hash.
func NewUser(sequence int, email, passwordHash string) *User {
	now := time.Now().UTC()
	return &User{
		sequence:     sequence,
		email:        email,
		passwordHash: passwordHash,
		colorScheme:  ColorSchemeDark,
		createdAt:    now,
		updatedAt:    now,
	}
}

func (u *User) ID() string            { return u.id }
func (u *User) Sequence() int         { return u.sequence }
func (u *User) Email() string         { return u.email }
func (u *User) PasswordHash() string  { return u.passwordHash }
func (u *User) ColorScheme() string   { return u.colorScheme }
func (u *User) CreatedAt() time.Time  { return u.createdAt }
func (u *User) UpdatedAt() time.Time  { return u.updatedAt }
func (u *User) DeletedAt() *time.Time { return u.deletedAt }

func (u *User) SetID(id string)             { u.id = id }
func (u *User) SetUpdatedAt(t time.Time)    { u.updatedAt = t }
func (u *User) SetDeletedAt(t *time.Time)   { u.deletedAt = t }
func (u *User) SetCreatedAt(t time.Time)    { u.createdAt = t }
func (u *User) SetPasswordHash(hash string) { u.passwordHash = hash }

// SetColorScheme stores a display preference; unknown values fall back to dark.
func (u *User) SetColorScheme(scheme string) {
	if scheme != ColorSchemeLight {
		scheme = ColorSchemeDark
	}
	u.colorScheme = scheme
}

// ToggleColorScheme flips between dark and light.
func (u *User) ToggleColorScheme() {
	if u.colorScheme == ColorSchemeDark {
		u.colorScheme = ColorSchemeLight
	} else {
		u.colorScheme = ColorSchemeDark
	}
}

// Validate checks that the user has a plausible email and a password hash.
func (u *User) Validate() error {
	if u.email == "" || !strings.Contains(u.email, "@") {
		return fmt.Errorf("invalid email: %q", u.email)
	}
	if u.passwordHash == "" {
		return fmt.Errorf("missing password hash")
	}
	return nil
}
