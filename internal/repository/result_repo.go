package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skolar-lms/skolar-api/internal/models"
)

// ResultRepository defines data operations for per-pair result rollups.
type ResultRepository interface {
	// Upsert applies take-the-max semantics atomically in a single
	// statement. best_score/best_percentage never decrease, passed never
	// flips back to false, attempts_used increments by exactly one.
	Upsert(ctx context.Context, result *models.AssignmentResult) error
	Get(ctx context.Context, assignmentID, studentID uint) (models.AssignmentResult, error)
	ListByStudent(ctx context.Context, studentID uint) ([]models.AssignmentResult, error)
	ListByAssignment(ctx context.Context, assignmentID uint) ([]models.AssignmentResult, error)
}

type resultRepository struct {
	db *gorm.DB
}

// NewResultRepository instantiates the repository.
func NewResultRepository(db *gorm.DB) ResultRepository {
	return &resultRepository{db: db}
}

func (r *resultRepository) Upsert(ctx context.Context, result *models.AssignmentResult) error {
	result.AttemptsUsed = 1

	// CASE WHEN instead of GREATEST so the same statement runs on postgres
	// and the sqlite test database.
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "assignment_id"}, {Name: "student_id"}},
		DoUpdates: []clause.Assignment{
			{Column: clause.Column{Name: "best_score"}, Value: gorm.Expr(
				"CASE WHEN excluded.best_score > assignment_results.best_score THEN excluded.best_score ELSE assignment_results.best_score END")},
			{Column: clause.Column{Name: "best_percentage"}, Value: gorm.Expr(
				"CASE WHEN excluded.best_percentage > assignment_results.best_percentage THEN excluded.best_percentage ELSE assignment_results.best_percentage END")},
			{Column: clause.Column{Name: "attempts_used"}, Value: gorm.Expr(
				"assignment_results.attempts_used + 1")},
			{Column: clause.Column{Name: "passed"}, Value: gorm.Expr(
				"assignment_results.passed OR excluded.passed")},
			{Column: clause.Column{Name: "last_attempt_at"}, Value: gorm.Expr(
				"excluded.last_attempt_at")},
			{Column: clause.Column{Name: "updated_at"}, Value: gorm.Expr(
				"excluded.updated_at")},
		},
	}).Create(result).Error
}

func (r *resultRepository) Get(ctx context.Context, assignmentID, studentID uint) (models.AssignmentResult, error) {
	var result models.AssignmentResult
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ? AND student_id = ?", assignmentID, studentID).
		First(&result).Error; err != nil {
		return models.AssignmentResult{}, err
	}

	return result, nil
}

func (r *resultRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.AssignmentResult, error) {
	var results []models.AssignmentResult
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Order("last_attempt_at DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}

func (r *resultRepository) ListByAssignment(ctx context.Context, assignmentID uint) ([]models.AssignmentResult, error) {
	var results []models.AssignmentResult
	if err := r.db.WithContext(ctx).
		Where("assignment_id = ?", assignmentID).
		Order("best_percentage DESC").
		Find(&results).Error; err != nil {
		return nil, err
	}

	return results, nil
}
