package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/skolar-lms/skolar-api/internal/models"
)

// ProgressRepository defines data operations for learning-part completion.
type ProgressRepository interface {
	MarkCompleted(ctx context.Context, studentID, learningPartID uint, at time.Time) error
	ListByStudent(ctx context.Context, studentID uint) ([]models.StudentProgress, error)
}

type progressRepository struct {
	db *gorm.DB
}

// NewProgressRepository instantiates the repository.
func NewProgressRepository(db *gorm.DB) ProgressRepository {
	return &progressRepository{db: db}
}

func (r *progressRepository) MarkCompleted(ctx context.Context, studentID, learningPartID uint, at time.Time) error {
	row := models.StudentProgress{
		StudentID:      studentID,
		LearningPartID: learningPartID,
		Completed:      true,
		CompletedAt:    &at,
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "student_id"}, {Name: "learning_part_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed", "completed_at", "updated_at"}),
	}).Create(&row).Error
}

func (r *progressRepository) ListByStudent(ctx context.Context, studentID uint) ([]models.StudentProgress, error) {
	var rows []models.StudentProgress
	if err := r.db.WithContext(ctx).
		Where("student_id = ?", studentID).
		Find(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}
