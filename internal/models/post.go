package models

import (
	"time"

	"github.com/google/uuid"
)

const DefaultCategory = "General"

// Post is a forum post. Upvotes and Downvotes only ever grow; Version is bumped
// on every counter change and guards conditional updates.
type Post struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"id"`
	Title     string    `gorm:"not null" json:"title"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	Category  string    `gorm:"not null;default:General" json:"category"`
	AuthorID  uuid.UUID `gorm:"type:uuid;not null;index" json:"author_id"`
	Author    *Profile  `gorm:"foreignKey:AuthorID" json:"profiles,omitempty"`
	Upvotes   int       `gorm:"not null;default:0;check:upvotes >= 0" json:"upvotes"`
	Downvotes int       `gorm:"not null;default:0;check:downvotes >= 0" json:"downvotes"`
	Version   int64     `gorm:"not null;default:0" json:"-"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
	Comments  []Comment `gorm:"foreignKey:PostID;constraint:OnDelete:CASCADE" json:"-"`
}

// PostDetail is a post together with its comments, oldest first.
type PostDetail struct {
	Post     Post      `json:"post"`
	Comments []Comment `json:"comments"`
}
