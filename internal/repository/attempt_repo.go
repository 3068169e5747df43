package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/skolar-lms/skolar-api/internal/models"
)

const attemptNumberRetries = 3

// AttemptRepository defines data operations for attempt rows.
type AttemptRepository interface {
	GetByID(ctx context.Context, id uint) (models.Attempt, error)
	// GetActive returns the single in_progress attempt for the pair, or
	// gorm.ErrRecordNotFound when none exists.
	GetActive(ctx context.Context, assignmentID, studentID uint) (models.Attempt, error)
	// CreateNext allocates attempt_number = max(existing)+1 inside a
	// transaction. A concurrent start hitting the unique index triggers a
	// bounded retry with a freshly computed number.
	CreateNext(ctx context.Context, attempt *models.Attempt) error
	Update(ctx context.Context, attempt *models.Attempt) error
	ListForPair(ctx context.Context, assignmentID, studentID uint) ([]models.Attempt, error)
	// CountActiveByAssignment reports how many attempts are live across all
	// students, used to freeze assignment config during live attempts.
	CountActiveByAssignment(ctx context.Context, assignmentID uint) (int64, error)
}

type attemptRepository struct {
	db *gorm.DB
}

// NewAttemptRepository instantiates the repository.
func NewAttemptRepository(db *gorm.DB) AttemptRepository {
	return &attemptRepository{db: db}
}

func (r *attemptRepository) GetByID(ctx context.Context, id uint) (models.Attempt, error) {
	var attempt models.Attempt
	if err := r.db.WithContext(ctx).First(&attempt, id).Error; err != nil {
		return models.Attempt{}, err
	}

	return attempt, nil
}

func (r *attemptRepository) GetActive(ctx context.Context, assignmentID, studentID uint) (models.Attempt, error) {
	var attempt models.Attempt
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ? AND status = ?", assignmentID, studentID, models.AttemptInProgress).
		First(&attempt).Error; err != nil {
		return models.Attempt{}, err
	}

	return attempt, nil
}

func (r *attemptRepository) CreateNext(ctx context.Context, attempt *models.Attempt) error {
	var lastErr error
	for i := 0; i < attemptNumberRetries; i++ {
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			var maxNumber sql.NullInt64
			if err := tx.Model(&models.Attempt{}).
				Where("assignment_id = ? AND student_id = ?", attempt.AssignmentID, attempt.StudentID).
				Select("MAX(attempt_number)").
				Scan(&maxNumber).Error; err != nil {
				return err
			}

			attempt.AttemptNumber = int(maxNumber.Int64) + 1
			return tx.Create(attempt).Error
		})
		if err == nil {
			return nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return err
		}

		// Another request won the race for this number; try again with a
		// recomputed one instead of surfacing the conflict.
		attempt.ID = 0
		lastErr = err
	}

	return fmt.Errorf("attempt number allocation exhausted retries: %w", lastErr)
}

func (r *attemptRepository) Update(ctx context.Context, attempt *models.Attempt) error {
	return r.db.WithContext(ctx).Save(attempt).Error
}

func (r *attemptRepository) CountActiveByAssignment(ctx context.Context, assignmentID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Attempt{}).
		Where("assignment_id = ? AND status = ?", assignmentID, models.AttemptInProgress).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (r *attemptRepository) ListForPair(ctx context.Context, assignmentID, studentID uint) ([]models.Attempt, error) {
	var attempts []models.Attempt
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Order("attempt_number ASC").
		Find(&attempts).Error; err != nil {
		return nil, err
	}

	return attempts, nil
}
