package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gorm.io/gorm"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/models"
	"github.com/skolar-lms/skolar-api/internal/repository"
)

// ErrQuestionNotFound indicates a question could not be found.
var ErrQuestionNotFound = errors.New("question not found")

// questionImportSchema validates the shape of bulk-imported question banks
// before any row touches the database.
const questionImportSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "array",
  "minItems": 1,
  "items": {
    "type": "object",
    "required": ["question_text", "question_type", "option_a", "option_b", "correct_answers", "marks"],
    "properties": {
      "question_text": {"type": "string", "minLength": 3},
      "question_type": {"enum": ["single", "multiple"]},
      "option_a": {"type": "string", "minLength": 1},
      "option_b": {"type": "string", "minLength": 1},
      "option_c": {"type": ["string", "null"]},
      "option_d": {"type": ["string", "null"]},
      "option_e": {"type": ["string", "null"]},
      "correct_answers": {"type": "string", "pattern": "^[A-Ea-e](\\s*,\\s*[A-Ea-e])*$"},
      "marks": {"type": "integer", "minimum": 1},
      "explanation": {"type": "string"},
      "question_order": {"type": "integer", "minimum": 0}
    }
  }
}`

// QuestionBankService manages the per-assignment question bank and produces
// the projections used by attempts and reviews.
type QuestionBankService interface {
	ListAdmin(ctx context.Context, assignmentID uint) ([]dto.QuestionAdminResponse, error)
	Create(ctx context.Context, assignmentID uint, payload dto.QuestionCreateRequest) (dto.QuestionAdminResponse, error)
	Update(ctx context.Context, questionID uint, payload dto.QuestionUpdateRequest) (dto.QuestionAdminResponse, error)
	Delete(ctx context.Context, questionID uint) error
	Import(ctx context.Context, assignmentID uint, raw []byte) (dto.QuestionImportResult, error)
	// LoadForScoring returns active questions in display order with parsed
	// answer keys. Scoring and review both read through here.
	LoadForScoring(ctx context.Context, assignmentID uint) ([]models.Question, error)
	// StudentViews returns the answer-free projection. When the assignment
	// shuffles, the order is derived from the attempt's stored seed so a
	// resume sees the same sequence as the original start.
	StudentViews(ctx context.Context, assignment models.Assignment, shuffleSeed int64) ([]dto.QuestionView, error)
}

type questionBankService struct {
	questions repository.QuestionRepository
	attempts  repository.AttemptRepository
	validator *validator.Validate
	sanitizer *bluemonday.Policy
	schema    *jsonschema.Schema
	logger    zerolog.Logger
}

// NewQuestionBankService constructs the question bank service.
func NewQuestionBankService(questions repository.QuestionRepository, attempts repository.AttemptRepository, validate *validator.Validate, logger zerolog.Logger) QuestionBankService {
	schema := jsonschema.MustCompileString("question_import.json", questionImportSchema)

	return &questionBankService{
		questions: questions,
		attempts:  attempts,
		validator: validate,
		sanitizer: bluemonday.UGCPolicy(),
		schema:    schema,
		logger:    logger.With().Str("component", "question_bank_service").Logger(),
	}
}

// ensureUnlocked refuses bank mutations while any attempt on the assignment
// is live; a student mid-attempt scores against the questions they were shown.
func (s *questionBankService) ensureUnlocked(ctx context.Context, assignmentID uint) error {
	live, err := s.attempts.CountActiveByAssignment(ctx, assignmentID)
	if err != nil {
		return err
	}
	if live > 0 {
		return ErrAssignmentLocked
	}

	return nil
}

func (s *questionBankService) ListAdmin(ctx context.Context, assignmentID uint) ([]dto.QuestionAdminResponse, error) {
	questions, err := s.questions.ListByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.QuestionAdminResponse, 0, len(questions))
	for i := range questions {
		if err := questions[i].ParseKey(); err != nil {
			return nil, err
		}
		responses = append(responses, dto.NewQuestionAdminResponse(questions[i]))
	}

	return responses, nil
}

func (s *questionBankService) Create(ctx context.Context, assignmentID uint, payload dto.QuestionCreateRequest) (dto.QuestionAdminResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionAdminResponse{}, err
	}

	if err := s.ensureUnlocked(ctx, assignmentID); err != nil {
		return dto.QuestionAdminResponse{}, err
	}

	question, err := s.buildQuestion(assignmentID, payload)
	if err != nil {
		return dto.QuestionAdminResponse{}, err
	}

	if err := s.questions.Create(ctx, &question); err != nil {
		return dto.QuestionAdminResponse{}, err
	}

	s.logger.Info().Uint("question_id", question.ID).Uint("assignment_id", assignmentID).Msg("question created")
	return dto.NewQuestionAdminResponse(question), nil
}

func (s *questionBankService) Update(ctx context.Context, questionID uint, payload dto.QuestionUpdateRequest) (dto.QuestionAdminResponse, error) {
	if err := s.validator.Struct(payload); err != nil {
		return dto.QuestionAdminResponse{}, err
	}

	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.QuestionAdminResponse{}, ErrQuestionNotFound
		}
		return dto.QuestionAdminResponse{}, err
	}

	if err := s.ensureUnlocked(ctx, question.AssignmentID); err != nil {
		return dto.QuestionAdminResponse{}, err
	}

	if payload.QuestionText != nil {
		question.QuestionText = s.sanitizer.Sanitize(*payload.QuestionText)
	}
	if payload.QuestionType != nil {
		question.QuestionType = *payload.QuestionType
	}
	if payload.OptionA != nil {
		question.OptionA = *payload.OptionA
	}
	if payload.OptionB != nil {
		question.OptionB = *payload.OptionB
	}
	if payload.OptionC != nil {
		question.OptionC = payload.OptionC
	}
	if payload.OptionD != nil {
		question.OptionD = payload.OptionD
	}
	if payload.OptionE != nil {
		question.OptionE = payload.OptionE
	}
	if payload.CorrectAnswers != nil {
		question.CorrectAnswers = strings.ToUpper(strings.ReplaceAll(*payload.CorrectAnswers, " ", ""))
	}
	if payload.Marks != nil {
		question.Marks = *payload.Marks
	}
	if payload.Explanation != nil {
		question.Explanation = s.sanitizer.Sanitize(*payload.Explanation)
	}
	if payload.QuestionOrder != nil {
		question.QuestionOrder = *payload.QuestionOrder
	}
	if payload.IsActive != nil {
		question.IsActive = *payload.IsActive
	}

	// Re-validate the key against the (possibly changed) options.
	if err := question.ParseKey(); err != nil {
		return dto.QuestionAdminResponse{}, err
	}
	question.CorrectAnswers = question.Key.String()

	if err := s.questions.Update(ctx, &question); err != nil {
		return dto.QuestionAdminResponse{}, err
	}

	return dto.NewQuestionAdminResponse(question), nil
}

func (s *questionBankService) Delete(ctx context.Context, questionID uint) error {
	question, err := s.questions.GetByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	if err := s.ensureUnlocked(ctx, question.AssignmentID); err != nil {
		return err
	}

	if err := s.questions.Delete(ctx, questionID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrQuestionNotFound
		}
		return err
	}

	return nil
}

func (s *questionBankService) Import(ctx context.Context, assignmentID uint, raw []byte) (dto.QuestionImportResult, error) {
	if err := s.ensureUnlocked(ctx, assignmentID); err != nil {
		return dto.QuestionImportResult{}, err
	}

	var document interface{}
	if err := json.Unmarshal(raw, &document); err != nil {
		return dto.QuestionImportResult{}, fmt.Errorf("import payload is not valid JSON: %w", err)
	}

	if err := s.schema.Validate(document); err != nil {
		return dto.QuestionImportResult{}, fmt.Errorf("import payload failed schema validation: %w", err)
	}

	var payloads []dto.QuestionCreateRequest
	if err := json.Unmarshal(raw, &payloads); err != nil {
		return dto.QuestionImportResult{}, err
	}

	questions := make([]models.Question, 0, len(payloads))
	for i, payload := range payloads {
		question, err := s.buildQuestion(assignmentID, payload)
		if err != nil {
			return dto.QuestionImportResult{}, fmt.Errorf("import entry %d: %w", i, err)
		}
		if question.QuestionOrder == 0 {
			question.QuestionOrder = i + 1
		}
		questions = append(questions, question)
	}

	if err := s.questions.CreateBatch(ctx, questions); err != nil {
		return dto.QuestionImportResult{}, err
	}

	s.logger.Info().Uint("assignment_id", assignmentID).Int("count", len(questions)).Msg("question bank imported")
	return dto.QuestionImportResult{Imported: len(questions)}, nil
}

func (s *questionBankService) LoadForScoring(ctx context.Context, assignmentID uint) ([]models.Question, error) {
	questions, err := s.questions.ListActiveByAssignment(ctx, assignmentID)
	if err != nil {
		return nil, err
	}

	for i := range questions {
		if err := questions[i].ParseKey(); err != nil {
			return nil, err
		}
	}

	return questions, nil
}

func (s *questionBankService) StudentViews(ctx context.Context, assignment models.Assignment, shuffleSeed int64) ([]dto.QuestionView, error) {
	questions, err := s.questions.ListActiveByAssignment(ctx, assignment.ID)
	if err != nil {
		return nil, err
	}

	views := make([]dto.QuestionView, 0, len(questions))
	for _, question := range questions {
		views = append(views, dto.NewQuestionView(question))
	}

	if assignment.ShuffleQuestions {
		rng := rand.New(rand.NewSource(shuffleSeed))
		rng.Shuffle(len(views), func(i, j int) {
			views[i], views[j] = views[j], views[i]
		})
	}

	return views, nil
}

func (s *questionBankService) buildQuestion(assignmentID uint, payload dto.QuestionCreateRequest) (models.Question, error) {
	question := models.Question{
		AssignmentID:   assignmentID,
		QuestionText:   s.sanitizer.Sanitize(payload.QuestionText),
		QuestionType:   payload.QuestionType,
		OptionA:        payload.OptionA,
		OptionB:        payload.OptionB,
		OptionC:        payload.OptionC,
		OptionD:        payload.OptionD,
		OptionE:        payload.OptionE,
		CorrectAnswers: strings.ToUpper(strings.ReplaceAll(payload.CorrectAnswers, " ", "")),
		Marks:          payload.Marks,
		Explanation:    s.sanitizer.Sanitize(payload.Explanation),
		QuestionOrder:  payload.QuestionOrder,
		IsActive:       true,
	}

	if err := question.ParseKey(); err != nil {
		return models.Question{}, err
	}
	question.CorrectAnswers = question.Key.String()

	if question.QuestionType == models.QuestionTypeSingle && len(question.Key) != 1 {
		return models.Question{}, fmt.Errorf("single-choice question must have exactly one correct answer")
	}

	return question, nil
}
