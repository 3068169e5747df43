package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/models"
	"github.com/skolar-lms/skolar-api/internal/observability"
	"github.com/skolar-lms/skolar-api/internal/repository"
)

var (
	// ErrAssignmentNotFound indicates no assignment exists for the request.
	ErrAssignmentNotFound = errors.New("assignment not found")
	// ErrAttemptNotFound indicates the attempt does not exist or belongs to
	// another student. The two cases are indistinguishable on purpose.
	ErrAttemptNotFound = errors.New("attempt not found")
	// ErrAttemptClosed indicates the attempt already reached a final state.
	ErrAttemptClosed = errors.New("attempt already finished")
	// ErrSubmissionNotFound indicates the submission does not exist or
	// belongs to another student.
	ErrSubmissionNotFound = errors.New("submission not found")
	// ErrReviewNotAllowed indicates the assignment disables answer review.
	ErrReviewNotAllowed = errors.New("review not allowed for this assignment")
)

// AttemptService drives the attempt lifecycle: start or resume, heartbeat,
// auto-save, submit, and review. All time arithmetic uses the server clock;
// client-reported remaining time only ever shortens an attempt.
type AttemptService interface {
	Start(ctx context.Context, studentID, learningPartID uint) (dto.StartAttemptResponse, error)
	RecordProgress(ctx context.Context, studentID, attemptID uint, payload dto.ProgressRequest) (dto.AutoSaveResponse, error)
	AutoSave(ctx context.Context, studentID, attemptID uint, payload dto.AutoSaveRequest) (dto.AutoSaveResponse, error)
	Submit(ctx context.Context, studentID, attemptID uint, payload dto.SubmitRequest) (dto.SubmitResponse, error)
	Review(ctx context.Context, studentID, submissionID uint) (dto.ReviewResponse, error)
}

type attemptService struct {
	assignments repository.AssignmentRepository
	attempts    repository.AttemptRepository
	submissions repository.SubmissionRepository
	policy      AttemptPolicy
	questions   QuestionBankService
	results     ResultsService
	completion  CompletionService
	monitor     AttemptMonitor
	validator   *validator.Validate
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewAttemptService constructs the attempt service.
func NewAttemptService(
	assignments repository.AssignmentRepository,
	attempts repository.AttemptRepository,
	submissions repository.SubmissionRepository,
	policy AttemptPolicy,
	questions QuestionBankService,
	results ResultsService,
	completion CompletionService,
	monitor AttemptMonitor,
	validate *validator.Validate,
	logger zerolog.Logger,
) AttemptService {
	return &attemptService{
		assignments: assignments,
		attempts:    attempts,
		submissions: submissions,
		policy:      policy,
		questions:   questions,
		results:     results,
		completion:  completion,
		monitor:     monitor,
		validator:   validate,
		logger:      logger.With().Str("component", "attempt_service").Logger(),
		tracer:      otel.Tracer("github.com/skolar-lms/skolar-api/internal/service/attempt"),
		now:         time.Now,
	}
}

func (s *attemptService) Start(ctx context.Context, studentID, learningPartID uint) (dto.StartAttemptResponse, error) {
	ctx, span := s.tracer.Start(ctx, "attempt.start", trace.WithAttributes(
		attribute.Int64("student_id", int64(studentID)),
		attribute.Int64("learning_part_id", int64(learningPartID)),
	))
	defer span.End()

	assignment, err := s.assignments.GetByLearningPart(ctx, learningPartID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.StartAttemptResponse{}, ErrAssignmentNotFound
		}
		return dto.StartAttemptResponse{}, err
	}

	// An expired attempt left open by a crashed or closed client is
	// finalized here, before the gate counts submissions.
	if err := s.reapExpired(ctx, assignment, studentID); err != nil {
		return dto.StartAttemptResponse{}, err
	}

	eligibility, err := s.policy.CanAttempt(ctx, studentID, assignment.ID)
	if err != nil {
		return dto.StartAttemptResponse{}, err
	}
	if !eligibility.CanAttempt {
		return dto.StartAttemptResponse{}, &AttemptNotAllowedError{Eligibility: eligibility}
	}

	if eligibility.HasActiveAttempt {
		return s.resume(ctx, assignment, studentID, *eligibility.AttemptID)
	}

	now := s.now()
	attempt := models.Attempt{
		AssignmentID:         assignment.ID,
		StudentID:            studentID,
		Status:               models.AttemptInProgress,
		TimeRemainingSeconds: assignment.TimeLimitSeconds(),
		ShuffleSeed:          now.UnixNano(),
		StartTime:            now,
	}
	if err := s.attempts.CreateNext(ctx, &attempt); err != nil {
		return dto.StartAttemptResponse{}, err
	}

	questions, err := s.questions.StudentViews(ctx, assignment, attempt.ShuffleSeed)
	if err != nil {
		return dto.StartAttemptResponse{}, err
	}

	observability.AttemptsStarted().Inc()
	s.logger.Info().
		Uint("student_id", studentID).
		Uint("assignment_id", assignment.ID).
		Int("attempt_number", attempt.AttemptNumber).
		Msg("attempt started")

	s.monitor.Publish(dto.AttemptEvent{
		Type:          EventAttemptStarted,
		AssignmentID:  assignment.ID,
		StudentID:     studentID,
		AttemptID:     attempt.ID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        string(attempt.Status),
		SentAt:        now,
	})

	return dto.StartAttemptResponse{
		Assignment:       dto.NewAssignmentResponse(assignment),
		Attempt:          dto.NewAttemptResponse(attempt),
		Questions:        questions,
		TotalQuestions:   len(questions),
		TimeLimitSeconds: assignment.TimeLimitSeconds(),
	}, nil
}

func (s *attemptService) resume(ctx context.Context, assignment models.Assignment, studentID, attemptID uint) (dto.StartAttemptResponse, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		return dto.StartAttemptResponse{}, err
	}

	// Same seed, same order: a resume must show the questions in the
	// sequence the original start produced.
	questions, err := s.questions.StudentViews(ctx, assignment, attempt.ShuffleSeed)
	if err != nil {
		return dto.StartAttemptResponse{}, err
	}

	attempt.TimeRemainingSeconds = attempt.ServerRemainingSeconds(s.now(), assignment.TimeLimitSeconds())

	s.logger.Info().
		Uint("student_id", studentID).
		Uint("attempt_id", attempt.ID).
		Int("remaining_seconds", attempt.TimeRemainingSeconds).
		Msg("attempt resumed")

	return dto.StartAttemptResponse{
		Assignment:       dto.NewAssignmentResponse(assignment),
		Attempt:          dto.NewAttemptResponse(attempt),
		Questions:        questions,
		TotalQuestions:   len(questions),
		TimeLimitSeconds: assignment.TimeLimitSeconds(),
		Resumed:          true,
	}, nil
}

func (s *attemptService) RecordProgress(ctx context.Context, studentID, attemptID uint, payload dto.ProgressRequest) (dto.AutoSaveResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AutoSaveResponse{}, err
	}

	return s.heartbeat(ctx, studentID, attemptID, *payload.TimeRemainingSeconds, nil)
}

func (s *attemptService) AutoSave(ctx context.Context, studentID, attemptID uint, payload dto.AutoSaveRequest) (dto.AutoSaveResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AutoSaveResponse{}, err
	}

	return s.heartbeat(ctx, studentID, attemptID, *payload.TimeRemainingSeconds, payload.Answers)
}

// heartbeat applies a progress update, optionally persisting answers, and
// finalizes the attempt as timed out when the clamped remaining time hits
// zero.
func (s *attemptService) heartbeat(ctx context.Context, studentID, attemptID uint, clientRemaining int, answers dto.StudentAnswers) (dto.AutoSaveResponse, error) {
	attempt, assignment, err := s.loadOwnedAttempt(ctx, studentID, attemptID)
	if err != nil {
		return dto.AutoSaveResponse{}, err
	}
	if attempt.IsTerminal() {
		return dto.AutoSaveResponse{}, ErrAttemptClosed
	}

	if answers != nil {
		saved, err := json.Marshal(answers)
		if err != nil {
			return dto.AutoSaveResponse{}, err
		}
		attempt.SavedAnswers = saved
	}

	// The server clock rules; the client value can only shorten the clock,
	// never extend it.
	remaining := attempt.ServerRemainingSeconds(s.now(), assignment.TimeLimitSeconds())
	if clientRemaining < remaining {
		remaining = clientRemaining
	}

	if remaining <= 0 {
		result, err := s.finalize(ctx, &attempt, assignment, s.savedAnswers(attempt), true)
		if err != nil {
			return dto.AutoSaveResponse{}, err
		}
		return dto.AutoSaveResponse{TimedOut: true, Result: &result}, nil
	}

	attempt.TimeRemainingSeconds = remaining
	if err := s.attempts.Update(ctx, &attempt); err != nil {
		return dto.AutoSaveResponse{}, err
	}

	return dto.AutoSaveResponse{TimeRemainingSeconds: remaining}, nil
}

func (s *attemptService) Submit(ctx context.Context, studentID, attemptID uint, payload dto.SubmitRequest) (dto.SubmitResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmitResponse{}, err
	}

	ctx, span := s.tracer.Start(ctx, "attempt.submit", trace.WithAttributes(
		attribute.Int64("student_id", int64(studentID)),
		attribute.Int64("attempt_id", int64(attemptID)),
	))
	defer span.End()

	attempt, assignment, err := s.loadOwnedAttempt(ctx, studentID, attemptID)
	if err != nil {
		return dto.SubmitResponse{}, err
	}
	if attempt.IsTerminal() {
		return dto.SubmitResponse{}, ErrAttemptClosed
	}

	// A submit that lands after expiry is treated as a timeout: the answers
	// that count are the last auto-saved set, not the late payload.
	timedOut := attempt.ServerRemainingSeconds(s.now(), assignment.TimeLimitSeconds()) <= 0
	answers := payload.Answers
	if timedOut {
		answers = s.savedAnswers(attempt)
	}

	return s.finalize(ctx, &attempt, assignment, answers, timedOut)
}

// finalize scores an attempt and records its outcome. Ordering matters for
// crash consistency: the submission row lands first, then the result rollup,
// then the attempt is closed. A crash mid-sequence still burns the attempt
// because the gate counts submissions.
func (s *attemptService) finalize(ctx context.Context, attempt *models.Attempt, assignment models.Assignment, answers dto.StudentAnswers, timedOut bool) (dto.SubmitResponse, error) {
	questions, err := s.questions.LoadForScoring(ctx, assignment.ID)
	if err != nil {
		return dto.SubmitResponse{}, err
	}

	breakdown, err := CalculateScore(questions, answers)
	if err != nil {
		return dto.SubmitResponse{}, err
	}

	now := s.now()
	timeTaken := int(now.Sub(attempt.StartTime).Seconds())
	if limit := assignment.TimeLimitSeconds(); timeTaken > limit {
		timeTaken = limit
	}

	answersJSON, err := json.Marshal(answers)
	if err != nil {
		return dto.SubmitResponse{}, err
	}
	reviewJSON, err := json.Marshal(breakdown.ReviewData)
	if err != nil {
		return dto.SubmitResponse{}, err
	}

	submission := models.Submission{
		AssignmentID:     assignment.ID,
		StudentID:        attempt.StudentID,
		AttemptNumber:    attempt.AttemptNumber,
		Answers:          answersJSON,
		Score:            breakdown.Score,
		TotalMarks:       breakdown.TotalMarks,
		Percentage:       breakdown.Percentage,
		TimeTakenSeconds: timeTaken,
		ReviewData:       reviewJSON,
		Status:           models.SubmissionStatusSubmitted,
	}
	duplicate := false
	if err := s.submissions.Create(ctx, &submission); err != nil {
		// A concurrent or interrupted finalization of the same attempt
		// already wrote the row; the first write wins and this request
		// returns its outcome.
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return dto.SubmitResponse{}, err
		}
		existing, getErr := s.submissions.GetByAttempt(ctx, assignment.ID, attempt.StudentID, attempt.AttemptNumber)
		if getErr != nil {
			return dto.SubmitResponse{}, getErr
		}
		submission = existing
		duplicate = true
	}

	// A submission counts exactly once in the rollup. On the duplicate path
	// the rollup was already folded by whoever created the row; only fold it
	// here when that finalization died before reaching the rollup write.
	fold := !duplicate
	var summary dto.ResultSummary
	if duplicate {
		existingSummary, found, sumErr := s.results.CurrentSummary(ctx, assignment.ID, attempt.StudentID)
		if sumErr != nil {
			return dto.SubmitResponse{}, sumErr
		}
		if found {
			summary = existingSummary
		} else {
			fold = true
		}
	}
	if fold {
		recorded, recErr := s.results.RecordSubmission(ctx, assignment, submission)
		if recErr != nil {
			return dto.SubmitResponse{}, recErr
		}
		summary = recorded
	}

	status := models.AttemptCompleted
	eventType := EventAttemptSubmitted
	if timedOut {
		status = models.AttemptTimedOut
		eventType = EventAttemptTimedOut
	}
	attempt.Status = status
	attempt.EndTime = &now
	attempt.TimeRemainingSeconds = 0
	if err := s.attempts.Update(ctx, attempt); err != nil {
		// The submission is already counted by the gate, so a stuck open
		// attempt only affects bookkeeping. Log and keep going.
		s.logger.Error().Err(err).Uint("attempt_id", attempt.ID).Msg("failed to close attempt after scoring")
	}

	passed := assignment.IsPassing(submission.Percentage)
	if passed && fold {
		go s.completion.HandlePassed(context.WithoutCancel(ctx), assignment, submission)
	}

	observability.AttemptsFinalized().WithLabelValues(string(status)).Inc()
	s.logger.Info().
		Uint("student_id", attempt.StudentID).
		Uint("assignment_id", assignment.ID).
		Int("attempt_number", attempt.AttemptNumber).
		Float64("percentage", submission.Percentage).
		Bool("timed_out", timedOut).
		Msg("attempt finalized")

	s.monitor.Publish(dto.AttemptEvent{
		Type:          eventType,
		AssignmentID:  assignment.ID,
		StudentID:     attempt.StudentID,
		AttemptID:     attempt.ID,
		AttemptNumber: attempt.AttemptNumber,
		Status:        string(status),
		Percentage:    &submission.Percentage,
		SentAt:        now,
	})

	response := dto.SubmitResponse{
		SubmissionID:     submission.ID,
		AttemptNumber:    submission.AttemptNumber,
		Score:            submission.Score,
		TotalMarks:       submission.TotalMarks,
		Percentage:       submission.Percentage,
		Passed:           passed,
		TimedOut:         timedOut,
		TimeTakenSeconds: submission.TimeTakenSeconds,
		ResultsSummary:   summary,
	}
	if assignment.ShowResultsImmediately {
		response.ReviewData = breakdown.ReviewData
	}

	return response, nil
}

func (s *attemptService) Review(ctx context.Context, studentID, submissionID uint) (dto.ReviewResponse, error) {
	submission, err := s.submissions.GetByID(ctx, submissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReviewResponse{}, ErrSubmissionNotFound
		}
		return dto.ReviewResponse{}, err
	}
	if submission.StudentID != studentID {
		return dto.ReviewResponse{}, ErrSubmissionNotFound
	}

	assignment, err := s.assignments.GetByID(ctx, submission.AssignmentID)
	if err != nil {
		return dto.ReviewResponse{}, err
	}
	if !assignment.AllowReview {
		return dto.ReviewResponse{}, ErrReviewNotAllowed
	}

	questions, err := s.questions.LoadForScoring(ctx, assignment.ID)
	if err != nil {
		return dto.ReviewResponse{}, err
	}

	views := make([]dto.ReviewQuestionView, 0, len(questions))
	for _, question := range questions {
		views = append(views, dto.ReviewQuestionView{
			QuestionView:   dto.NewQuestionView(question),
			CorrectAnswers: question.Key.Letters(),
			Explanation:    question.Explanation,
		})
	}

	return dto.ReviewResponse{
		Submission: dto.NewSubmissionResponse(submission),
		Questions:  views,
	}, nil
}

// loadOwnedAttempt fetches an attempt and its assignment, hiding attempts
// that belong to other students behind ErrAttemptNotFound.
func (s *attemptService) loadOwnedAttempt(ctx context.Context, studentID, attemptID uint) (models.Attempt, models.Assignment, error) {
	attempt, err := s.attempts.GetByID(ctx, attemptID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Attempt{}, models.Assignment{}, ErrAttemptNotFound
		}
		return models.Attempt{}, models.Assignment{}, err
	}
	if attempt.StudentID != studentID {
		return models.Attempt{}, models.Assignment{}, ErrAttemptNotFound
	}

	assignment, err := s.assignments.GetByID(ctx, attempt.AssignmentID)
	if err != nil {
		return models.Attempt{}, models.Assignment{}, err
	}

	return attempt, assignment, nil
}

// reapExpired finalizes a leftover in_progress attempt whose clock ran out
// while no client was talking to us.
func (s *attemptService) reapExpired(ctx context.Context, assignment models.Assignment, studentID uint) error {
	attempt, err := s.attempts.GetActive(ctx, assignment.ID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}

	if attempt.ServerRemainingSeconds(s.now(), assignment.TimeLimitSeconds()) > 0 {
		return nil
	}

	s.logger.Info().Uint("attempt_id", attempt.ID).Msg("finalizing expired attempt")
	_, err = s.finalize(ctx, &attempt, assignment, s.savedAnswers(attempt), true)
	return err
}

// savedAnswers decodes the attempt's auto-saved answers, treating absent or
// corrupt data as an empty sheet.
func (s *attemptService) savedAnswers(attempt models.Attempt) dto.StudentAnswers {
	if len(attempt.SavedAnswers) == 0 {
		return dto.StudentAnswers{}
	}

	var answers dto.StudentAnswers
	if err := json.Unmarshal(attempt.SavedAnswers, &answers); err != nil {
		s.logger.Warn().Err(err).Uint("attempt_id", attempt.ID).Msg("discarding unreadable saved answers")
		return dto.StudentAnswers{}
	}

	return answers
}
