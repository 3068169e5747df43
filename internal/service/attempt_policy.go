package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/repository"
)

const (
	reasonAssignmentNotFound = "Assignment not found"
	reasonMaxAttempts        = "Maximum attempts reached"
)

// AttemptNotAllowedError carries the gate's structured refusal so handlers
// can render attempts-used/max instead of a bare rejection.
type AttemptNotAllowedError struct {
	Eligibility dto.AttemptEligibility
}

func (e *AttemptNotAllowedError) Error() string {
	return fmt.Sprintf("attempt not allowed: %s", e.Eligibility.Reason)
}

// AttemptPolicy decides whether a student may start or resume an attempt.
// The decision is recomputed on every start request; concurrent tabs and
// devices make caching it a correctness bug.
type AttemptPolicy interface {
	CanAttempt(ctx context.Context, studentID, assignmentID uint) (dto.AttemptEligibility, error)
}

type attemptPolicy struct {
	assignments repository.AssignmentRepository
	attempts    repository.AttemptRepository
	submissions repository.SubmissionRepository
	logger      zerolog.Logger
}

// NewAttemptPolicy constructs the policy gate.
func NewAttemptPolicy(assignments repository.AssignmentRepository, attempts repository.AttemptRepository, submissions repository.SubmissionRepository, logger zerolog.Logger) AttemptPolicy {
	return &attemptPolicy{
		assignments: assignments,
		attempts:    attempts,
		submissions: submissions,
		logger:      logger.With().Str("component", "attempt_policy").Logger(),
	}
}

func (p *attemptPolicy) CanAttempt(ctx context.Context, studentID, assignmentID uint) (dto.AttemptEligibility, error) {
	assignment, err := p.assignments.GetActiveByID(ctx, assignmentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AttemptEligibility{CanAttempt: false, Reason: reasonAssignmentNotFound}, nil
		}
		return dto.AttemptEligibility{}, err
	}

	// Count scored submissions, not attempt rows: a crash between writing
	// the submission and closing the attempt must still burn the attempt.
	submitted, err := p.submissions.CountSubmitted(ctx, assignmentID, studentID)
	if err != nil {
		return dto.AttemptEligibility{}, err
	}

	if int(submitted) >= assignment.MaxAttempts {
		return dto.AttemptEligibility{
			CanAttempt:   false,
			Reason:       reasonMaxAttempts,
			AttemptsUsed: int(submitted),
			MaxAttempts:  assignment.MaxAttempts,
		}, nil
	}

	active, err := p.attempts.GetActive(ctx, assignmentID, studentID)
	if err == nil {
		return dto.AttemptEligibility{
			CanAttempt:       true,
			HasActiveAttempt: true,
			AttemptID:        &active.ID,
			AttemptNumber:    &active.AttemptNumber,
			AttemptsUsed:     int(submitted),
			MaxAttempts:      assignment.MaxAttempts,
		}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return dto.AttemptEligibility{}, err
	}

	return dto.AttemptEligibility{
		CanAttempt:   true,
		NextAttempt:  int(submitted) + 1,
		AttemptsUsed: int(submitted),
		MaxAttempts:  assignment.MaxAttempts,
	}, nil
}
