package dto

import (
	"time"

	"github.com/skolar-lms/skolar-api/internal/models"
)

// ResultSummary is the rolled-up outcome for one (student, assignment) pair.
type ResultSummary struct {
	AssignmentID   uint      `json:"assignment_id"`
	StudentID      uint      `json:"student_id"`
	BestScore      int       `json:"best_score"`
	BestPercentage float64   `json:"best_percentage"`
	AttemptsUsed   int       `json:"attempts_used"`
	Passed         bool      `json:"passed"`
	LastAttemptAt  time.Time `json:"last_attempt_at"`
}

// NewResultSummary converts an AssignmentResult row into a DTO.
func NewResultSummary(result models.AssignmentResult) ResultSummary {
	return ResultSummary{
		AssignmentID:   result.AssignmentID,
		StudentID:      result.StudentID,
		BestScore:      result.BestScore,
		BestPercentage: result.BestPercentage,
		AttemptsUsed:   result.AttemptsUsed,
		Passed:         result.Passed,
		LastAttemptAt:  result.LastAttemptAt,
	}
}

// StudentResultsResponse lists a student's results across assignments.
type StudentResultsResponse struct {
	StudentID uint            `json:"student_id"`
	Results   []ResultSummary `json:"results"`
	Passed    int             `json:"passed"`
	Attempted int             `json:"attempted"`
}

// RosterEntry is one row in the teacher-facing per-assignment roster.
type RosterEntry struct {
	StudentID      uint      `json:"student_id"`
	Name           string    `json:"name"`
	Email          string    `json:"email"`
	BestScore      int       `json:"best_score"`
	BestPercentage float64   `json:"best_percentage"`
	AttemptsUsed   int       `json:"attempts_used"`
	Passed         bool      `json:"passed"`
	LastAttemptAt  time.Time `json:"last_attempt_at"`
}

// AssignmentRosterResponse is the full roster for an assignment.
type AssignmentRosterResponse struct {
	AssignmentID uint          `json:"assignment_id"`
	Entries      []RosterEntry `json:"entries"`
	PassRate     float64       `json:"pass_rate"`
}
