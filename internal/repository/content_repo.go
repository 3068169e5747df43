package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/skolar-lms/skolar-api/internal/models"
)

// ContentRepository defines data operations for the module/unit/part tree.
type ContentRepository interface {
	ListModules(ctx context.Context) ([]models.Module, error)
	GetModule(ctx context.Context, id uint) (models.Module, error)
	CreateModule(ctx context.Context, module *models.Module) error
	UpdateModule(ctx context.Context, module *models.Module) error
	CreateUnit(ctx context.Context, unit *models.Unit) error
	UpdateUnit(ctx context.Context, unit *models.Unit) error
	GetPart(ctx context.Context, id uint) (models.LearningPart, error)
	CreatePart(ctx context.Context, part *models.LearningPart) error
	UpdatePart(ctx context.Context, part *models.LearningPart) error
}

type contentRepository struct {
	db *gorm.DB
}

// NewContentRepository instantiates the repository.
func NewContentRepository(db *gorm.DB) ContentRepository {
	return &contentRepository{db: db}
}

func (r *contentRepository) ListModules(ctx context.Context) ([]models.Module, error) {
	var modules []models.Module
	if err := r.db.WithContext(ctx).
		Preload("Units", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Preload("Units.Parts", func(db *gorm.DB) *gorm.DB {
			return db.Order("display_order ASC")
		}).
		Order("display_order ASC").
		Find(&modules).Error; err != nil {
		return nil, err
	}

	return modules, nil
}

func (r *contentRepository) GetModule(ctx context.Context, id uint) (models.Module, error) {
	var module models.Module
	if err := r.db.WithContext(ctx).
		Preload("Units.Parts").
		First(&module, id).Error; err != nil {
		return models.Module{}, err
	}

	return module, nil
}

func (r *contentRepository) CreateModule(ctx context.Context, module *models.Module) error {
	return r.db.WithContext(ctx).Create(module).Error
}

func (r *contentRepository) UpdateModule(ctx context.Context, module *models.Module) error {
	return r.db.WithContext(ctx).Save(module).Error
}

func (r *contentRepository) CreateUnit(ctx context.Context, unit *models.Unit) error {
	return r.db.WithContext(ctx).Create(unit).Error
}

func (r *contentRepository) UpdateUnit(ctx context.Context, unit *models.Unit) error {
	return r.db.WithContext(ctx).Save(unit).Error
}

func (r *contentRepository) GetPart(ctx context.Context, id uint) (models.LearningPart, error) {
	var part models.LearningPart
	if err := r.db.WithContext(ctx).First(&part, id).Error; err != nil {
		return models.LearningPart{}, err
	}

	return part, nil
}

func (r *contentRepository) CreatePart(ctx context.Context, part *models.LearningPart) error {
	return r.db.WithContext(ctx).Create(part).Error
}

func (r *contentRepository) UpdatePart(ctx context.Context, part *models.LearningPart) error {
	return r.db.WithContext(ctx).Save(part).Error
}
