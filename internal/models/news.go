package models

import "time"

type News struct {
	ID          int64     `gorm:"primaryKey" json:"id"`
	Title       string    `gorm:"not null" json:"title"`
	Summary     string    `json:"summary"`
	Content     string    `gorm:"type:text" json:"content"`
	ImageURL    string    `json:"image_url"`
	SourceURL   string    `json:"source_url"`
	CategoryID  *int64    `gorm:"index" json:"category_id"`
	PublishedAt time.Time `gorm:"index" json:"published_at"`
}

func (News) TableName() string {
	return "news"
}

type Category struct {
	ID   int64  `gorm:"primaryKey" json:"id"`
	Name string `gorm:"not null;unique" json:"name"`
}

func (Category) TableName() string {
	return "categories"
}
