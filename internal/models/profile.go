package models

import "github.com/google/uuid"

// Profile holds the public display fields of a user. Rows are owned by the
// identity provider and keyed by the same id as the auth user.
type Profile struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"-"`
	Username  string    `json:"username"`
	AvatarURL string    `json:"avatar_url"`
}

func (Profile) TableName() string {
	return "profiles"
}
