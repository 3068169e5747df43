package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/models"
	"github.com/skolar-lms/skolar-api/internal/repository"
)

// ErrModuleNotFound indicates a learning module could not be found.
var ErrModuleNotFound = errors.New("module not found")

// ContentService manages the module/unit/part hierarchy and exposes student
// progress across it.
type ContentService interface {
	ListModules(ctx context.Context) ([]dto.ModuleResponse, error)
	GetModule(ctx context.Context, id uint) (dto.ModuleResponse, error)
	CreateModule(ctx context.Context, payload dto.ModuleRequest) (dto.ModuleResponse, error)
	CreateUnit(ctx context.Context, payload dto.UnitRequest) (dto.UnitResponse, error)
	CreatePart(ctx context.Context, payload dto.LearningPartRequest) (dto.LearningPartResponse, error)
	StudentProgress(ctx context.Context, studentID uint) ([]dto.ProgressResponse, error)
}

type contentService struct {
	content   repository.ContentRepository
	progress  repository.ProgressRepository
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewContentService constructs the content service.
func NewContentService(content repository.ContentRepository, progress repository.ProgressRepository, validate *validator.Validate, logger zerolog.Logger) ContentService {
	return &contentService{
		content:   content,
		progress:  progress,
		validator: validate,
		logger:    logger.With().Str("component", "content_service").Logger(),
	}
}

func (s *contentService) ListModules(ctx context.Context) ([]dto.ModuleResponse, error) {
	modules, err := s.content.ListModules(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ModuleResponse, 0, len(modules))
	for _, module := range modules {
		responses = append(responses, dto.NewModuleResponse(module))
	}

	return responses, nil
}

func (s *contentService) GetModule(ctx context.Context, id uint) (dto.ModuleResponse, error) {
	module, err := s.content.GetModule(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ModuleResponse{}, ErrModuleNotFound
		}
		return dto.ModuleResponse{}, err
	}

	return dto.NewModuleResponse(module), nil
}

func (s *contentService) CreateModule(ctx context.Context, payload dto.ModuleRequest) (dto.ModuleResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.ModuleResponse{}, err
	}

	module := models.Module{
		Title:        payload.Title,
		Description:  payload.Description,
		DisplayOrder: payload.DisplayOrder,
		IsActive:     true,
	}
	if err := s.content.CreateModule(ctx, &module); err != nil {
		return dto.ModuleResponse{}, err
	}

	s.logger.Info().Uint("module_id", module.ID).Msg("module created")
	return dto.NewModuleResponse(module), nil
}

func (s *contentService) CreateUnit(ctx context.Context, payload dto.UnitRequest) (dto.UnitResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.UnitResponse{}, err
	}

	unit := models.Unit{
		ModuleID:     payload.ModuleID,
		Title:        payload.Title,
		DisplayOrder: payload.DisplayOrder,
		IsActive:     true,
	}
	if err := s.content.CreateUnit(ctx, &unit); err != nil {
		return dto.UnitResponse{}, err
	}

	return dto.NewUnitResponse(unit), nil
}

func (s *contentService) CreatePart(ctx context.Context, payload dto.LearningPartRequest) (dto.LearningPartResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.LearningPartResponse{}, err
	}

	part := models.LearningPart{
		UnitID:       payload.UnitID,
		Title:        payload.Title,
		PartType:     payload.PartType,
		ContentURL:   payload.ContentURL,
		DisplayOrder: payload.DisplayOrder,
		IsActive:     true,
	}
	if err := s.content.CreatePart(ctx, &part); err != nil {
		return dto.LearningPartResponse{}, err
	}

	return dto.NewLearningPartResponse(part), nil
}

func (s *contentService) StudentProgress(ctx context.Context, studentID uint) ([]dto.ProgressResponse, error) {
	rows, err := s.progress.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}

	return dto.NewProgressResponseSlice(rows), nil
}
