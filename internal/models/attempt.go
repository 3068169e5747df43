package models

import (
	"time"

	"gorm.io/datatypes"
)

// AttemptStatus tracks the lifecycle of a student's pass at an assignment.
type AttemptStatus string

const (
	AttemptInProgress AttemptStatus = "in_progress"
	AttemptCompleted  AttemptStatus = "completed"
	AttemptTimedOut   AttemptStatus = "timed_out"
)

// Attempt is one student's in-progress or finished pass at an assignment.
// At most one in_progress attempt may exist per (student, assignment); the
// unique index on the number triple serialises concurrent starts.
type Attempt struct {
	ID                   uint          `gorm:"primaryKey" json:"id"`
	AssignmentID         uint          `gorm:"not null;uniqueIndex:idx_attempt_number;index:idx_attempt_active" json:"assignment_id"`
	StudentID            uint          `gorm:"not null;uniqueIndex:idx_attempt_number;index:idx_attempt_active" json:"student_id"`
	AttemptNumber        int           `gorm:"not null;uniqueIndex:idx_attempt_number" json:"attempt_number"`
	Status               AttemptStatus `gorm:"size:16;not null;default:in_progress" json:"status"`
	TimeRemainingSeconds int           `gorm:"not null" json:"time_remaining_seconds"`
	// SavedAnswers holds the last auto-saved answer set so a timeout can
	// score real work instead of an empty sheet.
	SavedAnswers datatypes.JSON `gorm:"type:jsonb" json:"-"`
	ShuffleSeed  int64          `gorm:"not null" json:"-"`
	StartTime    time.Time      `gorm:"not null" json:"start_time"`
	EndTime      *time.Time     `json:"end_time"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// IsTerminal reports whether the attempt has reached a final state.
func (a Attempt) IsTerminal() bool {
	return a.Status == AttemptCompleted || a.Status == AttemptTimedOut
}

// ServerRemainingSeconds computes the authoritative remaining time from the
// server clock. Client heartbeats are advisory only.
func (a Attempt) ServerRemainingSeconds(now time.Time, limitSeconds int) int {
	elapsed := int(now.Sub(a.StartTime).Seconds())
	remaining := limitSeconds - elapsed
	if remaining < 0 {
		return 0
	}
	return remaining
}
