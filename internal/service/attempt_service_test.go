package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/models"
)

type attemptFixture struct {
	assignments *memoryAssignmentRepo
	attempts    *memoryAttemptRepo
	submissions *memorySubmissionRepo
	questions   *memoryQuestionRepo
	results     *memoryResultRepo
	progress    *memoryProgressRepo
	monitor     *recordingMonitor
	svc         AttemptService
	clock       time.Time
}

func newAttemptFixture(t *testing.T) *attemptFixture {
	t.Helper()

	f := &attemptFixture{
		assignments: newMemoryAssignmentRepo(),
		attempts:    newMemoryAttemptRepo(),
		submissions: newMemorySubmissionRepo(),
		questions:   newMemoryQuestionRepo(),
		results:     newMemoryResultRepo(),
		progress:    newMemoryProgressRepo(),
		monitor:     &recordingMonitor{},
		clock:       time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC),
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.Nop()

	policy := NewAttemptPolicy(f.assignments, f.attempts, f.submissions, logger)
	questionBank := NewQuestionBankService(f.questions, f.attempts, validate, logger)
	resultsService := NewResultsService(f.results, newMemoryStudentRepo(), nil, time.Minute, logger)
	completionService := NewCompletionService(f.progress, nil, logger)

	svc := NewAttemptService(f.assignments, f.attempts, f.submissions, policy, questionBank, resultsService, completionService, f.monitor, validate, logger)
	svc.(*attemptService).now = func() time.Time { return f.clock }
	f.svc = svc
	return f
}

func (f *attemptFixture) advance(d time.Duration) {
	f.clock = f.clock.Add(d)
}

// seedAssignment installs a 2-question, 5-mark assignment: question 1 is
// single-choice "A" worth 2, question 2 is multiple-choice "B,C" worth 3.
func (f *attemptFixture) seedAssignment(t *testing.T) models.Assignment {
	t.Helper()

	ctx := context.Background()
	assignment := models.Assignment{
		LearningPartID:         10,
		Title:                  "Unit quiz",
		TotalMarks:             5,
		PassingMarks:           60,
		TimeLimitMinutes:       10,
		MaxAttempts:            2,
		ShowResultsImmediately: true,
		AllowReview:            true,
		IsActive:               true,
	}
	require.NoError(t, f.assignments.Create(ctx, &assignment))

	q1 := models.Question{
		AssignmentID: assignment.ID, QuestionText: "pick one", QuestionType: models.QuestionTypeSingle,
		OptionA: "a", OptionB: "b", CorrectAnswers: "A", Marks: 2, QuestionOrder: 1, IsActive: true,
	}
	q2 := models.Question{
		AssignmentID: assignment.ID, QuestionText: "pick two", QuestionType: models.QuestionTypeMultiple,
		OptionA: "a", OptionB: "b", OptionC: strPtr("c"), CorrectAnswers: "B,C", Marks: 3, QuestionOrder: 2, IsActive: true,
	}
	require.NoError(t, f.questions.Create(ctx, &q1))
	require.NoError(t, f.questions.Create(ctx, &q2))
	return assignment
}

func TestStartCreatesAttemptWithoutAnswerKeys(t *testing.T) {
	f := newAttemptFixture(t)
	f.seedAssignment(t)

	response, err := f.svc.Start(context.Background(), 1, 10)
	require.NoError(t, err)
	require.False(t, response.Resumed)
	require.Equal(t, 1, response.Attempt.AttemptNumber)
	require.Equal(t, 600, response.TimeLimitSeconds)
	require.Len(t, response.Questions, 2)

	events := f.monitor.Events()
	require.Len(t, events, 1)
	require.Equal(t, EventAttemptStarted, events[0].Type)
}

func TestStartUnknownPart(t *testing.T) {
	f := newAttemptFixture(t)

	_, err := f.svc.Start(context.Background(), 1, 42)
	require.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestStartResumesActiveAttempt(t *testing.T) {
	f := newAttemptFixture(t)
	f.seedAssignment(t)
	ctx := context.Background()

	first, err := f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)

	f.advance(4 * time.Minute)
	second, err := f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)
	require.True(t, second.Resumed)
	require.Equal(t, first.Attempt.ID, second.Attempt.ID)
	require.Equal(t, 360, second.Attempt.TimeRemainingSeconds)

	// The question sequence must not change between start and resume.
	require.Equal(t, len(first.Questions), len(second.Questions))
	for i := range first.Questions {
		require.Equal(t, first.Questions[i].ID, second.Questions[i].ID)
	}
}

func TestShuffledResumeKeepsOrder(t *testing.T) {
	f := newAttemptFixture(t)
	assignment := f.seedAssignment(t)
	assignment.ShuffleQuestions = true
	require.NoError(t, f.assignments.Update(context.Background(), &assignment))

	first, err := f.svc.Start(context.Background(), 1, 10)
	require.NoError(t, err)
	second, err := f.svc.Start(context.Background(), 1, 10)
	require.NoError(t, err)

	for i := range first.Questions {
		require.Equal(t, first.Questions[i].ID, second.Questions[i].ID)
	}
}

func TestSubmitScoresAndRecordsResult(t *testing.T) {
	f := newAttemptFixture(t)
	f.seedAssignment(t)
	ctx := context.Background()

	start, err := f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)

	f.advance(3 * time.Minute)
	response, err := f.svc.Submit(ctx, 1, start.Attempt.ID, dto.SubmitRequest{Answers: dto.StudentAnswers{
		1: {"A"},
		2: {"C", "B"},
	}})
	require.NoError(t, err)
	require.Equal(t, 5, response.Score)
	require.Equal(t, 100.0, response.Percentage)
	require.True(t, response.Passed)
	require.False(t, response.TimedOut)
	require.Equal(t, 180, response.TimeTakenSeconds)
	require.Len(t, response.ReviewData, 2)
	require.Equal(t, 1, response.ResultsSummary.AttemptsUsed)
	require.Equal(t, 5, response.ResultsSummary.BestScore)

	attempt, err := f.attempts.GetByID(ctx, start.Attempt.ID)
	require.NoError(t, err)
	require.Equal(t, models.AttemptCompleted, attempt.Status)
	require.NotNil(t, attempt.EndTime)

	// Passing submissions mark the learning part complete in a background
	// goroutine.
	require.Eventually(t, func() bool {
		rows, err := f.progress.ListByStudent(ctx, 1)
		return err == nil && len(rows) == 1
	}, time.Second, 10*time.Millisecond)
}

func TestSubmitTwiceIsRejected(t *testing.T) {
	f := newAttemptFixture(t)
	f.seedAssignment(t)
	ctx := context.Background()

	start, err := f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, 1, start.Attempt.ID, dto.SubmitRequest{Answers: dto.StudentAnswers{1: {"A"}}})
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, 1, start.Attempt.ID, dto.SubmitRequest{Answers: dto.StudentAnswers{1: {"A"}}})
	require.ErrorIs(t, err, ErrAttemptClosed)
}

func TestRefinalizeReturnsFirstOutcomeWithoutRecounting(t *testing.T) {
	f := newAttemptFixture(t)
	f.seedAssignment(t)
	ctx := context.Background()

	start, err := f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)
	first, err := f.svc.Submit(ctx, 1, start.Attempt.ID, dto.SubmitRequest{Answers: dto.StudentAnswers{1: {"A"}}})
	require.NoError(t, err)
	require.Equal(t, 1, first.ResultsSummary.AttemptsUsed)

	// Reopen the attempt, as if the close after scoring never landed and the
	// student retried against a submission row that already exists.
	attempt, err := f.attempts.GetByID(ctx, start.Attempt.ID)
	require.NoError(t, err)
	attempt.Status = models.AttemptInProgress
	attempt.EndTime = nil
	require.NoError(t, f.attempts.Update(ctx, &attempt))

	second, err := f.svc.Submit(ctx, 1, start.Attempt.ID, dto.SubmitRequest{Answers: dto.StudentAnswers{
		1: {"A"}, 2: {"B", "C"},
	}})
	require.NoError(t, err)

	// The first submission's outcome stands; the retry adds nothing.
	require.Equal(t, first.SubmissionID, second.SubmissionID)
	require.Equal(t, first.Score, second.Score)
	require.Equal(t, 1, second.ResultsSummary.AttemptsUsed)
	require.Equal(t, first.ResultsSummary.BestScore, second.ResultsSummary.BestScore)

	rollup, err := f.results.Get(ctx, attempt.AssignmentID, 1)
	require.NoError(t, err)
	require.Equal(t, 1, rollup.AttemptsUsed)

	attempt, err = f.attempts.GetByID(ctx, start.Attempt.ID)
	require.NoError(t, err)
	require.True(t, attempt.IsTerminal())
}

func TestSubmitOtherStudentsAttempt(t *testing.T) {
	f := newAttemptFixture(t)
	f.seedAssignment(t)
	ctx := context.Background()

	start, err := f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, 2, start.Attempt.ID, dto.SubmitRequest{Answers: dto.StudentAnswers{1: {"A"}}})
	require.ErrorIs(t, err, ErrAttemptNotFound)
}

func TestAutoSaveClampsClientClock(t *testing.T) {
	f := newAttemptFixture(t)
	f.seedAssignment(t)
	ctx := context.Background()

	start, err := f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)

	f.advance(2 * time.Minute)

	// Client claims more time than the server clock allows; server wins.
	claimed := 599
	response, err := f.svc.AutoSave(ctx, 1, start.Attempt.ID, dto.AutoSaveRequest{
		TimeRemainingSeconds: &claimed,
		Answers:              dto.StudentAnswers{1: {"A"}},
	})
	require.NoError(t, err)
	require.False(t, response.TimedOut)
	require.Equal(t, 480, response.TimeRemainingSeconds)

	// Client reporting less time than the server shortens the attempt.
	claimed = 30
	response, err = f.svc.AutoSave(ctx, 1, start.Attempt.ID, dto.AutoSaveRequest{TimeRemainingSeconds: &claimed})
	require.NoError(t, err)
	require.Equal(t, 30, response.TimeRemainingSeconds)
}

func TestAutoSaveTimeoutScoresSavedAnswers(t *testing.T) {
	f := newAttemptFixture(t)
	f.seedAssignment(t)
	ctx := context.Background()

	start, err := f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)

	remaining := 500
	_, err = f.svc.AutoSave(ctx, 1, start.Attempt.ID, dto.AutoSaveRequest{
		TimeRemainingSeconds: &remaining,
		Answers:              dto.StudentAnswers{1: {"A"}},
	})
	require.NoError(t, err)

	f.advance(11 * time.Minute)
	zero := 0
	response, err := f.svc.AutoSave(ctx, 1, start.Attempt.ID, dto.AutoSaveRequest{TimeRemainingSeconds: &zero})
	require.NoError(t, err)
	require.True(t, response.TimedOut)
	require.NotNil(t, response.Result)
	require.True(t, response.Result.TimedOut)
	require.Equal(t, 2, response.Result.Score)

	attempt, err := f.attempts.GetByID(ctx, start.Attempt.ID)
	require.NoError(t, err)
	require.Equal(t, models.AttemptTimedOut, attempt.Status)
}

func TestLateSubmitScoresSavedAnswersNotPayload(t *testing.T) {
	f := newAttemptFixture(t)
	f.seedAssignment(t)
	ctx := context.Background()

	start, err := f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)

	remaining := 400
	_, err = f.svc.AutoSave(ctx, 1, start.Attempt.ID, dto.AutoSaveRequest{
		TimeRemainingSeconds: &remaining,
		Answers:              dto.StudentAnswers{1: {"A"}},
	})
	require.NoError(t, err)

	f.advance(15 * time.Minute)
	response, err := f.svc.Submit(ctx, 1, start.Attempt.ID, dto.SubmitRequest{Answers: dto.StudentAnswers{
		1: {"A"},
		2: {"B", "C"},
	}})
	require.NoError(t, err)
	require.True(t, response.TimedOut)
	// Only the auto-saved single answer counts, not the late perfect sheet.
	require.Equal(t, 2, response.Score)
}

func TestStartReapsExpiredAttempt(t *testing.T) {
	f := newAttemptFixture(t)
	f.seedAssignment(t)
	ctx := context.Background()

	first, err := f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)

	f.advance(20 * time.Minute)
	second, err := f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)
	require.False(t, second.Resumed)
	require.Equal(t, 2, second.Attempt.AttemptNumber)

	attempt, err := f.attempts.GetByID(ctx, first.Attempt.ID)
	require.NoError(t, err)
	require.Equal(t, models.AttemptTimedOut, attempt.Status)
}

func TestStartRefusedAfterMaxSubmissions(t *testing.T) {
	f := newAttemptFixture(t)
	f.seedAssignment(t)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		start, err := f.svc.Start(ctx, 1, 10)
		require.NoError(t, err)
		_, err = f.svc.Submit(ctx, 1, start.Attempt.ID, dto.SubmitRequest{Answers: dto.StudentAnswers{1: {"B"}}})
		require.NoError(t, err)
	}

	_, err := f.svc.Start(ctx, 1, 10)
	var notAllowed *AttemptNotAllowedError
	require.ErrorAs(t, err, &notAllowed)
	require.Equal(t, "Maximum attempts reached", notAllowed.Eligibility.Reason)
	require.Equal(t, 2, notAllowed.Eligibility.AttemptsUsed)
}

func TestFailedAttemptKeepsBestResult(t *testing.T) {
	f := newAttemptFixture(t)
	f.seedAssignment(t)
	ctx := context.Background()

	start, err := f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)
	first, err := f.svc.Submit(ctx, 1, start.Attempt.ID, dto.SubmitRequest{Answers: dto.StudentAnswers{
		1: {"A"}, 2: {"B", "C"},
	}})
	require.NoError(t, err)
	require.True(t, first.Passed)

	start, err = f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)
	second, err := f.svc.Submit(ctx, 1, start.Attempt.ID, dto.SubmitRequest{Answers: dto.StudentAnswers{1: {"B"}}})
	require.NoError(t, err)
	require.False(t, second.Passed)

	// The rollup keeps the best score and the passed flag from attempt one.
	require.Equal(t, 5, second.ResultsSummary.BestScore)
	require.True(t, second.ResultsSummary.Passed)
	require.Equal(t, 2, second.ResultsSummary.AttemptsUsed)
}

func TestReviewRequiresOwnershipAndConfig(t *testing.T) {
	f := newAttemptFixture(t)
	assignment := f.seedAssignment(t)
	ctx := context.Background()

	start, err := f.svc.Start(ctx, 1, 10)
	require.NoError(t, err)
	submitted, err := f.svc.Submit(ctx, 1, start.Attempt.ID, dto.SubmitRequest{Answers: dto.StudentAnswers{1: {"A"}}})
	require.NoError(t, err)

	review, err := f.svc.Review(ctx, 1, submitted.SubmissionID)
	require.NoError(t, err)
	require.Len(t, review.Questions, 2)
	require.Equal(t, []string{"A"}, review.Questions[0].CorrectAnswers)

	_, err = f.svc.Review(ctx, 2, submitted.SubmissionID)
	require.ErrorIs(t, err, ErrSubmissionNotFound)

	assignment.AllowReview = false
	require.NoError(t, f.assignments.Update(ctx, &assignment))
	_, err = f.svc.Review(ctx, 1, submitted.SubmissionID)
	require.ErrorIs(t, err, ErrReviewNotAllowed)
}

func TestHiddenResultsOmitReviewData(t *testing.T) {
	f := newAttemptFixture(t)
	assignment := f.seedAssignment(t)
	assignment.ShowResultsImmediately = false
	require.NoError(t, f.assignments.Update(context.Background(), &assignment))

	start, err := f.svc.Start(context.Background(), 1, 10)
	require.NoError(t, err)
	response, err := f.svc.Submit(context.Background(), 1, start.Attempt.ID, dto.SubmitRequest{Answers: dto.StudentAnswers{1: {"A"}}})
	require.NoError(t, err)
	require.Nil(t, response.ReviewData)
	require.Equal(t, 2, response.Score)
}
