package models

import "time"

// User is the persisted account record. Tokens holds the active session
// tokens in issuance order; index 0 is the oldest live session.
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash []byte
	Tokens       []string
	HasAvatar    bool
	AvatarKey    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserPatch carries the sanitized fields of a profile update.
// Nil fields are left unchanged.
type UserPatch struct {
	Name         *string
	Email        *string
	PasswordHash []byte
}

// IsEmpty reports whether the patch changes nothing.
func (p UserPatch) IsEmpty() bool {
	return p.Name == nil && p.Email == nil && p.PasswordHash == nil
}

// Avatar is a stored profile image.
type Avatar struct {
	Data        []byte
	ContentType string
}
