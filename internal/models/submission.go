package models

import (
	"time"

	"gorm.io/datatypes"
)

const (
	// SubmissionStatusSubmitted marks a scored, immutable submission.
	SubmissionStatusSubmitted = "submitted"
)

// Submission is the scored record created when an attempt ends, whether by
// explicit submit or by timeout. Each attempt yields at most one submission
// and the row is never mutated afterwards.
type Submission struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	AssignmentID     uint           `gorm:"not null;uniqueIndex:idx_submission_attempt" json:"assignment_id"`
	StudentID        uint           `gorm:"not null;uniqueIndex:idx_submission_attempt" json:"student_id"`
	AttemptNumber    int            `gorm:"not null;uniqueIndex:idx_submission_attempt" json:"attempt_number"`
	Answers          datatypes.JSON `gorm:"type:jsonb" json:"answers"`
	Score            int            `gorm:"not null" json:"score"`
	TotalMarks       int            `gorm:"not null" json:"total_marks"`
	Percentage       float64        `gorm:"not null" json:"percentage"`
	TimeTakenSeconds int            `gorm:"not null" json:"time_taken_seconds"`
	ReviewData       datatypes.JSON `gorm:"type:jsonb" json:"review_data"`
	Status           string         `gorm:"size:16;not null;default:submitted" json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}
