package models

import "time"

// AssignmentResult is the per (student, assignment) rollup across all
// submissions. Scores only ever improve; passed never flips back to false.
type AssignmentResult struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	AssignmentID   uint      `gorm:"not null;uniqueIndex:idx_result_pair" json:"assignment_id"`
	StudentID      uint      `gorm:"not null;uniqueIndex:idx_result_pair" json:"student_id"`
	BestScore      int       `gorm:"not null" json:"best_score"`
	BestPercentage float64   `gorm:"not null" json:"best_percentage"`
	AttemptsUsed   int       `gorm:"not null" json:"attempts_used"`
	Passed         bool      `gorm:"not null;default:false" json:"passed"`
	LastAttemptAt  time.Time `gorm:"not null" json:"last_attempt_at"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
