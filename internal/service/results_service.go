package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/models"
	"github.com/skolar-lms/skolar-api/internal/repository"
)

// ResultsService maintains the per-(assignment, student) rollup and serves
// the student summary and teacher roster views.
type ResultsService interface {
	// RecordSubmission folds a scored submission into the rollup. The upsert
	// is a single statement, so two concurrent finalizations never lose an
	// attempt count or a best score.
	RecordSubmission(ctx context.Context, assignment models.Assignment, submission models.Submission) (dto.ResultSummary, error)
	// CurrentSummary reads the stored rollup for a pair without modifying it.
	// The second return reports whether a rollup row exists.
	CurrentSummary(ctx context.Context, assignmentID, studentID uint) (dto.ResultSummary, bool, error)
	StudentSummary(ctx context.Context, studentID uint) (dto.StudentResultsResponse, error)
	AssignmentRoster(ctx context.Context, assignmentID uint) (dto.AssignmentRosterResponse, error)
}

type resultsService struct {
	results  repository.ResultRepository
	students repository.StudentRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewResultsService constructs the results service. The cache client may be
// nil; reads then always go to the database.
func NewResultsService(results repository.ResultRepository, students repository.StudentRepository, cache *redis.Client, cacheTTL time.Duration, logger zerolog.Logger) ResultsService {
	return &resultsService{
		results:  results,
		students: students,
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger.With().Str("component", "results_service").Logger(),
	}
}

func studentResultsKey(studentID uint) string {
	return fmt.Sprintf("results:student:%d", studentID)
}

func assignmentRosterKey(assignmentID uint) string {
	return fmt.Sprintf("results:roster:%d", assignmentID)
}

func (s *resultsService) RecordSubmission(ctx context.Context, assignment models.Assignment, submission models.Submission) (dto.ResultSummary, error) {
	result := models.AssignmentResult{
		AssignmentID:   submission.AssignmentID,
		StudentID:      submission.StudentID,
		BestScore:      submission.Score,
		BestPercentage: submission.Percentage,
		Passed:         assignment.IsPassing(submission.Percentage),
		LastAttemptAt:  submission.CreatedAt,
	}

	if err := s.results.Upsert(ctx, &result); err != nil {
		return dto.ResultSummary{}, err
	}

	// The upsert resolves best-of on the database side; reread for the
	// authoritative rollup.
	current, err := s.results.Get(ctx, submission.AssignmentID, submission.StudentID)
	if err != nil {
		return dto.ResultSummary{}, err
	}

	s.invalidate(ctx, studentResultsKey(submission.StudentID), assignmentRosterKey(submission.AssignmentID))

	return dto.NewResultSummary(current), nil
}

func (s *resultsService) CurrentSummary(ctx context.Context, assignmentID, studentID uint) (dto.ResultSummary, bool, error) {
	current, err := s.results.Get(ctx, assignmentID, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ResultSummary{}, false, nil
		}
		return dto.ResultSummary{}, false, err
	}

	return dto.NewResultSummary(current), true, nil
}

func (s *resultsService) StudentSummary(ctx context.Context, studentID uint) (dto.StudentResultsResponse, error) {
	key := studentResultsKey(studentID)
	if cached, ok := s.cacheGet(ctx, key); ok {
		var response dto.StudentResultsResponse
		if err := json.Unmarshal(cached, &response); err == nil {
			return response, nil
		}
	}

	results, err := s.results.ListByStudent(ctx, studentID)
	if err != nil {
		return dto.StudentResultsResponse{}, err
	}

	response := dto.StudentResultsResponse{
		StudentID: studentID,
		Results:   make([]dto.ResultSummary, 0, len(results)),
		Attempted: len(results),
	}
	for _, result := range results {
		if result.Passed {
			response.Passed++
		}
		response.Results = append(response.Results, dto.NewResultSummary(result))
	}

	s.cacheSet(ctx, key, response)
	return response, nil
}

func (s *resultsService) AssignmentRoster(ctx context.Context, assignmentID uint) (dto.AssignmentRosterResponse, error) {
	key := assignmentRosterKey(assignmentID)
	if cached, ok := s.cacheGet(ctx, key); ok {
		var response dto.AssignmentRosterResponse
		if err := json.Unmarshal(cached, &response); err == nil {
			return response, nil
		}
	}

	results, err := s.results.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return dto.AssignmentRosterResponse{}, err
	}

	studentIDs := make([]uint, 0, len(results))
	for _, result := range results {
		studentIDs = append(studentIDs, result.StudentID)
	}

	students, err := s.students.ListByIDs(ctx, studentIDs)
	if err != nil {
		return dto.AssignmentRosterResponse{}, err
	}
	byID := make(map[uint]models.Student, len(students))
	for _, student := range students {
		byID[student.ID] = student
	}

	response := dto.AssignmentRosterResponse{
		AssignmentID: assignmentID,
		Entries:      make([]dto.RosterEntry, 0, len(results)),
	}

	passed := 0
	for _, result := range results {
		student := byID[result.StudentID]
		if result.Passed {
			passed++
		}
		response.Entries = append(response.Entries, dto.RosterEntry{
			StudentID:      result.StudentID,
			Name:           student.Name,
			Email:          student.Email,
			BestScore:      result.BestScore,
			BestPercentage: result.BestPercentage,
			AttemptsUsed:   result.AttemptsUsed,
			Passed:         result.Passed,
			LastAttemptAt:  result.LastAttemptAt,
		})
	}

	if len(results) > 0 {
		response.PassRate = float64(passed) / float64(len(results)) * 100
	}

	s.cacheSet(ctx, key, response)
	return response, nil
}

func (s *resultsService) cacheGet(ctx context.Context, key string) ([]byte, bool) {
	if s.cache == nil {
		return nil, false
	}

	payload, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("results cache read failed")
		}
		return nil, false
	}

	return payload, true
}

func (s *resultsService) cacheSet(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("results cache write failed")
	}
}

func (s *resultsService) invalidate(ctx context.Context, keys ...string) {
	if s.cache == nil {
		return
	}

	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("results cache invalidation failed")
	}
}
