package models

import (
	"time"

	"gorm.io/datatypes"
)

// SubmissionResult is what the grading endpoint reports for an attempt.
type SubmissionResult struct {
	AttemptID      string  `json:"attempt_id"`
	Score          float64 `json:"score"`
	Passed         bool    `json:"passed"`
	CorrectCount   *int    `json:"correct_count,omitempty"`
	TotalQuestions *int    `json:"total_questions,omitempty"`
	AttemptNumber  *int    `json:"attempt_number,omitempty"`
}

// SubmissionReceipt is a local record of a graded submission, kept for
// support requests.
type SubmissionReceipt struct {
	ID          uint           `json:"id" gorm:"primaryKey"`
	SessionID   string         `json:"session_id" gorm:"not null;size:64;index"`
	TestID      string         `json:"test_id" gorm:"not null;size:255;index"`
	AttemptID   string         `json:"attempt_id" gorm:"not null;size:255;uniqueIndex"`
	Score       float64        `json:"score"`
	Passed      bool           `json:"passed"`
	Trigger     string         `json:"trigger" gorm:"size:20"`
	Answers     datatypes.JSON `json:"answers" gorm:"type:jsonb"`
	SubmittedAt time.Time      `json:"submitted_at"`
	CreatedAt   time.Time      `json:"created_at"`
}

func (SubmissionReceipt) TableName() string {
	return "submission_receipts"
}
