package dto

import (
	"time"

	"github.com/skolar-lms/skolar-api/internal/models"
)

// AssignmentCreateRequest describes the payload for creating an assignment.
type AssignmentCreateRequest struct {
	LearningPartID         uint    `json:"learning_part_id" validate:"required"`
	Title                  string  `json:"title" validate:"required,min=3"`
	Description            string  `json:"description"`
	TotalMarks             int     `json:"total_marks" validate:"required,gt=0"`
	PassingMarks           float64 `json:"passing_marks" validate:"gte=0,lte=100"`
	TimeLimitMinutes       int     `json:"time_limit_minutes" validate:"required,gt=0"`
	MaxAttempts            int     `json:"max_attempts" validate:"required,gte=1"`
	ShuffleQuestions       bool    `json:"shuffle_questions"`
	ShowResultsImmediately bool    `json:"show_results_immediately"`
	AllowReview            bool    `json:"allow_review"`
}

// AssignmentUpdateRequest describes a partial assignment update.
type AssignmentUpdateRequest struct {
	Title                  *string  `json:"title" validate:"omitempty,min=3"`
	Description            *string  `json:"description"`
	TotalMarks             *int     `json:"total_marks" validate:"omitempty,gt=0"`
	PassingMarks           *float64 `json:"passing_marks" validate:"omitempty,gte=0,lte=100"`
	TimeLimitMinutes       *int     `json:"time_limit_minutes" validate:"omitempty,gt=0"`
	MaxAttempts            *int     `json:"max_attempts" validate:"omitempty,gte=1"`
	ShuffleQuestions       *bool    `json:"shuffle_questions"`
	ShowResultsImmediately *bool    `json:"show_results_immediately"`
	AllowReview            *bool    `json:"allow_review"`
	IsActive               *bool    `json:"is_active"`
}

// AssignmentResponse is the serialized assignment configuration.
type AssignmentResponse struct {
	ID                     uint      `json:"id"`
	LearningPartID         uint      `json:"learning_part_id"`
	Title                  string    `json:"title"`
	Description            string    `json:"description"`
	TotalMarks             int       `json:"total_marks"`
	PassingMarks           float64   `json:"passing_marks"`
	TimeLimitMinutes       int       `json:"time_limit_minutes"`
	MaxAttempts            int       `json:"max_attempts"`
	ShuffleQuestions       bool      `json:"shuffle_questions"`
	ShowResultsImmediately bool      `json:"show_results_immediately"`
	AllowReview            bool      `json:"allow_review"`
	AttachmentURL          string    `json:"attachment_url,omitempty"`
	IsActive               bool      `json:"is_active"`
	CreatedAt              time.Time `json:"created_at"`
	UpdatedAt              time.Time `json:"updated_at"`
}

// NewAssignmentResponse converts a model into a DTO.
func NewAssignmentResponse(model models.Assignment) AssignmentResponse {
	return AssignmentResponse{
		ID:                     model.ID,
		LearningPartID:         model.LearningPartID,
		Title:                  model.Title,
		Description:            model.Description,
		TotalMarks:             model.TotalMarks,
		PassingMarks:           model.PassingMarks,
		TimeLimitMinutes:       model.TimeLimitMinutes,
		MaxAttempts:            model.MaxAttempts,
		ShuffleQuestions:       model.ShuffleQuestions,
		ShowResultsImmediately: model.ShowResultsImmediately,
		AllowReview:            model.AllowReview,
		AttachmentURL:          model.AttachmentURL,
		IsActive:               model.IsActive,
		CreatedAt:              model.CreatedAt,
		UpdatedAt:              model.UpdatedAt,
	}
}

// NewAssignmentResponseSlice converts a slice of models into DTOs.
func NewAssignmentResponseSlice(assignments []models.Assignment) []AssignmentResponse {
	responses := make([]AssignmentResponse, 0, len(assignments))
	for _, assignment := range assignments {
		responses = append(responses, NewAssignmentResponse(assignment))
	}

	return responses
}

// QuestionCreateRequest describes the payload for adding a question.
type QuestionCreateRequest struct {
	QuestionText   string  `json:"question_text" validate:"required,min=3"`
	QuestionType   string  `json:"question_type" validate:"required,oneof=single multiple"`
	OptionA        string  `json:"option_a" validate:"required"`
	OptionB        string  `json:"option_b" validate:"required"`
	OptionC        *string `json:"option_c"`
	OptionD        *string `json:"option_d"`
	OptionE        *string `json:"option_e"`
	CorrectAnswers string  `json:"correct_answers" validate:"required"`
	Marks          int     `json:"marks" validate:"required,gt=0"`
	Explanation    string  `json:"explanation"`
	QuestionOrder  int     `json:"question_order" validate:"gte=0"`
}

// QuestionUpdateRequest describes a partial question update.
type QuestionUpdateRequest struct {
	QuestionText   *string `json:"question_text" validate:"omitempty,min=3"`
	QuestionType   *string `json:"question_type" validate:"omitempty,oneof=single multiple"`
	OptionA        *string `json:"option_a"`
	OptionB        *string `json:"option_b"`
	OptionC        *string `json:"option_c"`
	OptionD        *string `json:"option_d"`
	OptionE        *string `json:"option_e"`
	CorrectAnswers *string `json:"correct_answers"`
	Marks          *int    `json:"marks" validate:"omitempty,gt=0"`
	Explanation    *string `json:"explanation"`
	QuestionOrder  *int    `json:"question_order" validate:"omitempty,gte=0"`
	IsActive       *bool   `json:"is_active"`
}

// QuestionAdminResponse is the teacher-facing question projection, answer
// key included.
type QuestionAdminResponse struct {
	ID             uint              `json:"id"`
	AssignmentID   uint              `json:"assignment_id"`
	QuestionText   string            `json:"question_text"`
	QuestionType   string            `json:"question_type"`
	Options        map[string]string `json:"options"`
	CorrectAnswers []string          `json:"correct_answers"`
	Marks          int               `json:"marks"`
	Explanation    string            `json:"explanation,omitempty"`
	QuestionOrder  int               `json:"question_order"`
	IsActive       bool              `json:"is_active"`
	CreatedAt      time.Time         `json:"created_at"`
}

// NewQuestionAdminResponse converts a question model into the admin DTO.
// The question's key must already be parsed.
func NewQuestionAdminResponse(question models.Question) QuestionAdminResponse {
	options := make(map[string]string, 5)
	for letter, text := range question.Options() {
		options[string(letter)] = text
	}

	return QuestionAdminResponse{
		ID:             question.ID,
		AssignmentID:   question.AssignmentID,
		QuestionText:   question.QuestionText,
		QuestionType:   question.QuestionType,
		Options:        options,
		CorrectAnswers: question.Key.Letters(),
		Marks:          question.Marks,
		Explanation:    question.Explanation,
		QuestionOrder:  question.QuestionOrder,
		IsActive:       question.IsActive,
		CreatedAt:      question.CreatedAt,
	}
}

// QuestionImportResult summarises a bulk question import.
type QuestionImportResult struct {
	Imported int `json:"imported"`
}
