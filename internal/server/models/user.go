// Package models holds the server's domain records and the result
// envelopes returned by the credential service.
package models

import "time"

// User is a stored identity record.
//
// PasswordHash is empty when the record was loaded without the password
// column. PasswordResetToken is empty when no reset is pending.
type User struct {
	ID                 string
	Email              string
	Name               string
	PasswordHash       string
	PasswordResetToken string
	PasswordChangedAt  *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ChangedPasswordAfter reports whether the password was changed after a
// token issued at issuedAt was minted.
func (u *User) ChangedPasswordAfter(issuedAt time.Time) bool {
	if u.PasswordChangedAt == nil {
		return false
	}
	return u.PasswordChangedAt.After(issuedAt)
}

// SetPassword stores a new hash, records the change time and drops any
// pending reset token. The change time is kept at microsecond resolution,
// the finest PostgreSQL stores.
func (u *User) SetPassword(hash string, now time.Time) {
	u.PasswordHash = hash
	u.PasswordResetToken = ""
	changed := now.UTC().Truncate(time.Microsecond)
	u.PasswordChangedAt = &changed
	u.UpdatedAt = changed
}

// Public returns the user as it may leave the service.
func (u *User) Public() PublicUser {
	return PublicUser{
		ID:                u.ID,
		Email:             u.Email,
		Name:              u.Name,
		PasswordChangedAt: u.PasswordChangedAt,
		CreatedAt:         u.CreatedAt,
		UpdatedAt:         u.UpdatedAt,
	}
}

// PublicUser is the response projection of a User. It has no password or
// reset token fields.
type PublicUser struct {
	ID                string     `json:"id"`
	Email             string     `json:"email"`
	Name              string     `json:"name,omitempty"`
	PasswordChangedAt *time.Time `json:"passwordChangedAt,omitempty"`
	CreatedAt         time.Time  `json:"createdAt"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}

// Registration is the input of sign-up.
type Registration struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name,omitempty"`
}
