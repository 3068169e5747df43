package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"mime/multipart"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/models"
	"github.com/skolar-lms/skolar-api/internal/repository"
)

const attachmentMaxBytes = 10 << 20

var (
	// ErrAssignmentLocked indicates the assignment has live attempts and
	// its configuration must not change under them.
	ErrAssignmentLocked = errors.New("assignment has attempts in progress")
	// ErrAttachmentTooLarge indicates the uploaded attachment exceeds the
	// size cap.
	ErrAttachmentTooLarge = errors.New("attachment exceeds maximum size")
	// ErrAttachmentTypeNotAllowed indicates an unsupported attachment type.
	ErrAttachmentTypeNotAllowed = errors.New("attachment type not allowed")
)

var allowedAttachmentTypes = map[string]struct{}{
	"application/pdf": {},
	"image/png":       {},
	"image/jpeg":      {},
	"image/webp":      {},
}

// FileUploader stores a file and returns its public URL.
type FileUploader interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// AssignmentService covers the teacher-facing assignment configuration
// surface.
type AssignmentService interface {
	List(ctx context.Context) ([]dto.AssignmentResponse, error)
	Get(ctx context.Context, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, createdBy uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	// Update rejects configuration changes while any attempt is live; the
	// rules a student started under hold until they finish.
	Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, id uint) error
	AttachFile(ctx context.Context, id uint, file *multipart.FileHeader) (dto.AssignmentResponse, error)
}

type assignmentService struct {
	assignments repository.AssignmentRepository
	attempts    repository.AttemptRepository
	uploader    FileUploader
	validator   *validator.Validate
	logger      zerolog.Logger
}

// NewAssignmentService constructs the assignment service. The uploader may
// be nil; attachment uploads then fail cleanly.
func NewAssignmentService(assignments repository.AssignmentRepository, attempts repository.AttemptRepository, uploader FileUploader, validate *validator.Validate, logger zerolog.Logger) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		attempts:    attempts,
		uploader:    uploader,
		validator:   validate,
		logger:      logger.With().Str("component", "assignment_service").Logger(),
	}
}

func (s *assignmentService) List(ctx context.Context) ([]dto.AssignmentResponse, error) {
	assignments, err := s.assignments.List(ctx)
	if err != nil {
		return nil, err
	}

	return dto.NewAssignmentResponseSlice(assignments), nil
}

func (s *assignmentService) Get(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, createdBy uint, payload dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment := models.Assignment{
		LearningPartID:         payload.LearningPartID,
		Title:                  payload.Title,
		Description:            payload.Description,
		TotalMarks:             payload.TotalMarks,
		PassingMarks:           payload.PassingMarks,
		TimeLimitMinutes:       payload.TimeLimitMinutes,
		MaxAttempts:            payload.MaxAttempts,
		ShuffleQuestions:       payload.ShuffleQuestions,
		ShowResultsImmediately: payload.ShowResultsImmediately,
		AllowReview:            payload.AllowReview,
		IsActive:               true,
		CreatedBy:              createdBy,
	}

	if err := s.assignments.Create(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", assignment.ID).Uint("created_by", createdBy).Msg("assignment created")
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Update(ctx context.Context, id uint, payload dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	live, err := s.attempts.CountActiveByAssignment(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	if live > 0 {
		return dto.AssignmentResponse{}, ErrAssignmentLocked
	}

	if payload.Title != nil {
		assignment.Title = *payload.Title
	}
	if payload.Description != nil {
		assignment.Description = *payload.Description
	}
	if payload.TotalMarks != nil {
		assignment.TotalMarks = *payload.TotalMarks
	}
	if payload.PassingMarks != nil {
		assignment.PassingMarks = *payload.PassingMarks
	}
	if payload.TimeLimitMinutes != nil {
		assignment.TimeLimitMinutes = *payload.TimeLimitMinutes
	}
	if payload.MaxAttempts != nil {
		assignment.MaxAttempts = *payload.MaxAttempts
	}
	if payload.ShuffleQuestions != nil {
		assignment.ShuffleQuestions = *payload.ShuffleQuestions
	}
	if payload.ShowResultsImmediately != nil {
		assignment.ShowResultsImmediately = *payload.ShowResultsImmediately
	}
	if payload.AllowReview != nil {
		assignment.AllowReview = *payload.AllowReview
	}
	if payload.IsActive != nil {
		assignment.IsActive = *payload.IsActive
	}

	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Delete(ctx context.Context, id uint) error {
	live, err := s.attempts.CountActiveByAssignment(ctx, id)
	if err != nil {
		return err
	}
	if live > 0 {
		return ErrAssignmentLocked
	}

	if err := s.assignments.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAssignmentNotFound
		}
		return err
	}

	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	return nil
}

func (s *assignmentService) AttachFile(ctx context.Context, id uint, file *multipart.FileHeader) (dto.AssignmentResponse, error) {
	if s.uploader == nil {
		return dto.AssignmentResponse{}, errors.New("file storage is not configured")
	}
	if file == nil {
		return dto.AssignmentResponse{}, errors.New("file is required")
	}
	if file.Size > attachmentMaxBytes {
		return dto.AssignmentResponse{}, ErrAttachmentTooLarge
	}

	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
		return dto.AssignmentResponse{}, err
	}

	handle, err := file.Open()
	if err != nil {
		return dto.AssignmentResponse{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, attachmentMaxBytes+1)); err != nil {
		return dto.AssignmentResponse{}, err
	}
	if buf.Len() > attachmentMaxBytes {
		return dto.AssignmentResponse{}, ErrAttachmentTooLarge
	}

	// Content sniffing, not the client-supplied extension, decides the type.
	mime := mimetype.Detect(buf.Bytes())
	if _, ok := allowedAttachmentTypes[mime.String()]; !ok {
		return dto.AssignmentResponse{}, ErrAttachmentTypeNotAllowed
	}

	url, err := s.uploader.Upload(ctx, file.Filename, bytes.NewReader(buf.Bytes()))
	if err != nil {
		return dto.AssignmentResponse{}, err
	}

	assignment.AttachmentURL = url
	if err := s.assignments.Update(ctx, &assignment); err != nil {
		return dto.AssignmentResponse{}, err
	}

	s.logger.Info().Uint("assignment_id", id).Str("mime", mime.String()).Msg("assignment attachment stored")
	return dto.NewAssignmentResponse(assignment), nil
}
