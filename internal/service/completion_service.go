package service

import (
	"context"
	"encoding/json"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/skolar-lms/skolar-api/internal/models"
	"github.com/skolar-lms/skolar-api/internal/repository"
)

// SubjectAssignmentCompleted is the broker subject for completion events.
const SubjectAssignmentCompleted = "skolar.assignment.completed"

// CompletionEvent is published when a submission passes an assignment.
type CompletionEvent struct {
	AssignmentID   uint      `json:"assignment_id"`
	LearningPartID uint      `json:"learning_part_id"`
	StudentID      uint      `json:"student_id"`
	AttemptNumber  int       `json:"attempt_number"`
	Percentage     float64   `json:"percentage"`
	CompletedAt    time.Time `json:"completed_at"`
}

// CompletionService marks learning parts complete and notifies downstream
// consumers. Failures here never fail the submission that triggered them.
type CompletionService interface {
	HandlePassed(ctx context.Context, assignment models.Assignment, submission models.Submission)
}

type completionService struct {
	progress repository.ProgressRepository
	nc       *nats.Conn
	logger   zerolog.Logger
	now      func() time.Time
}

// NewCompletionService constructs the completion service. The NATS connection
// may be nil; events are then skipped and only progress is recorded.
func NewCompletionService(progress repository.ProgressRepository, nc *nats.Conn, logger zerolog.Logger) CompletionService {
	return &completionService{
		progress: progress,
		nc:       nc,
		logger:   logger.With().Str("component", "completion_service").Logger(),
		now:      time.Now,
	}
}

func (s *completionService) HandlePassed(ctx context.Context, assignment models.Assignment, submission models.Submission) {
	completedAt := s.now()
	if err := s.progress.MarkCompleted(ctx, submission.StudentID, assignment.LearningPartID, completedAt); err != nil {
		s.logger.Error().Err(err).
			Uint("student_id", submission.StudentID).
			Uint("learning_part_id", assignment.LearningPartID).
			Msg("failed to record learning part completion")
	}

	if s.nc == nil {
		return
	}

	event := CompletionEvent{
		AssignmentID:   assignment.ID,
		LearningPartID: assignment.LearningPartID,
		StudentID:      submission.StudentID,
		AttemptNumber:  submission.AttemptNumber,
		Percentage:     submission.Percentage,
		CompletedAt:    s.now(),
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return
	}
	if err := s.nc.Publish(SubjectAssignmentCompleted, payload); err != nil {
		s.logger.Warn().Err(err).Uint("assignment_id", assignment.ID).Msg("failed to publish completion event")
	}
}
