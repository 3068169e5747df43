package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/skolar-lms/skolar-api/internal/models"
)

// SubmissionRepository defines data operations for scored submissions.
// Submissions are append-only; there is deliberately no update method.
type SubmissionRepository interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	GetByAttempt(ctx context.Context, assignmentID, studentID uint, attemptNumber int) (models.Submission, error)
	// CountSubmitted counts scored submissions for the pair. The policy
	// gate uses this, not attempt status, for the max-attempts check.
	CountSubmitted(ctx context.Context, assignmentID, studentID uint) (int64, error)
	ListForPair(ctx context.Context, assignmentID, studentID uint) ([]models.Submission, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) GetByAttempt(ctx context.Context, assignmentID, studentID uint, attemptNumber int) (models.Submission, error) {
	var submission models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ? AND attempt_number = ?", assignmentID, studentID, attemptNumber).
		First(&submission).Error; err != nil {
		return models.Submission{}, err
	}

	return submission, nil
}

func (r *submissionRepository) CountSubmitted(ctx context.Context, assignmentID, studentID uint) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("assignment_id = ? AND student_id = ? AND status = ?", assignmentID, studentID, models.SubmissionStatusSubmitted).
		Count(&count).Error; err != nil {
		return 0, err
	}

	return count, nil
}

func (r *submissionRepository) ListForPair(ctx context.Context, assignmentID, studentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		Order("attempt_number ASC").
		Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}
