package models

import (
	"time"

	"gorm.io/gorm"
)

// TestDescriptor is the test a learner is answering. It is owned by the
// course administration side and read-only here.
type TestDescriptor struct {
	ID              string  `json:"id" gorm:"primaryKey;size:255"`
	Title           string  `json:"title" gorm:"not null;size:200"`
	Description     *string `json:"description" gorm:"type:text"`
	DurationMinutes *int    `json:"duration_minutes" gorm:"column:duration_minutes"`
	DocumentURL     *string `json:"document_url" gorm:"column:google_drive_url;size:500"`
	PassingScore    *int    `json:"passing_score"`
	MaxAttempts     *int    `json:"max_attempts"`
	IsActive        bool    `json:"is_active" gorm:"default:true"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (TestDescriptor) TableName() string {
	return "tests"
}

// HasDuration reports whether the test is time-boxed.
func (t *TestDescriptor) HasDuration() bool {
	return t.DurationMinutes != nil && *t.DurationMinutes > 0
}
