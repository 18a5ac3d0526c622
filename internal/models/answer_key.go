package models

import "time"

// AnswerKeyEntry is one row of a test's answer key. CorrectAnswer is free
// text maintained by instructors and is normalized before use.
type AnswerKeyEntry struct {
	ID             uint    `json:"id" gorm:"primaryKey"`
	TestID         string  `json:"test_id" gorm:"not null;size:255;index:idx_answer_keys_test_question"`
	QuestionNumber int     `json:"question_number" gorm:"not null;index:idx_answer_keys_test_question"`
	CorrectAnswer  *string `json:"correct_answer" gorm:"size:50"`
	Points         *int    `json:"points"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (AnswerKeyEntry) TableName() string {
	return "test_answer_keys"
}

// AnswerKeyChangeType mirrors the row-level change that triggered a notification.
type AnswerKeyChangeType string

const (
	AnswerKeyInserted AnswerKeyChangeType = "insert"
	AnswerKeyUpdated  AnswerKeyChangeType = "update"
	AnswerKeyDeleted  AnswerKeyChangeType = "delete"
)
