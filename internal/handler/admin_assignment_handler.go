package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/service"
	"github.com/skolar-lms/skolar-api/internal/utils"
)

// AdminAssignmentHandler wires the teacher-facing assignment and question
// bank routes.
type AdminAssignmentHandler struct {
	assignments service.AssignmentService
	questions   service.QuestionBankService
	results     service.ResultsService
	logger      zerolog.Logger
}

// NewAdminAssignmentHandler constructs the handler.
func NewAdminAssignmentHandler(assignments service.AssignmentService, questions service.QuestionBankService, results service.ResultsService, logger zerolog.Logger) *AdminAssignmentHandler {
	return &AdminAssignmentHandler{
		assignments: assignments,
		questions:   questions,
		results:     results,
		logger:      logger.With().Str("component", "admin_assignment_handler").Logger(),
	}
}

// Register attaches assignment administration endpoints to the router group.
func (h *AdminAssignmentHandler) Register(router fiber.Router) {
	router.Get("", h.list)
	router.Post("", h.create)
	router.Get("/:id", h.get)
	router.Patch("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/attachment", h.attach)
	router.Get("/:id/roster", h.roster)

	router.Get("/:id/questions", h.listQuestions)
	router.Post("/:id/questions", h.createQuestion)
	router.Post("/:id/questions/import", h.importQuestions)
	router.Patch("/questions/:questionId", h.updateQuestion)
	router.Delete("/questions/:questionId", h.deleteQuestion)
}

func (h *AdminAssignmentHandler) list(c *fiber.Ctx) error {
	assignments, err := h.assignments.List(c.UserContext())
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "assignments retrieved", assignments)
}

func (h *AdminAssignmentHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	assignment, err := h.assignments.Get(c.UserContext(), id)
	if err != nil {
		return h.assignmentError(c, err)
	}

	return utils.SendSuccess(c, "assignment retrieved", assignment)
}

func (h *AdminAssignmentHandler) create(c *fiber.Ctx) error {
	var payload dto.AssignmentCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.assignments.Create(c.UserContext(), userIDFromContext(c), payload)
	if err != nil {
		return h.assignmentError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "assignment created", assignment)
}

func (h *AdminAssignmentHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AssignmentUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	assignment, err := h.assignments.Update(c.UserContext(), id, payload)
	if err != nil {
		return h.assignmentError(c, err)
	}

	return utils.SendSuccess(c, "assignment updated", assignment)
}

func (h *AdminAssignmentHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.assignments.Delete(c.UserContext(), id); err != nil {
		return h.assignmentError(c, err)
	}

	return utils.SendSuccess(c, "assignment deleted", nil)
}

func (h *AdminAssignmentHandler) attach(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "file is required")
	}

	assignment, err := h.assignments.AttachFile(c.UserContext(), id, file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAttachmentTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, "attachment exceeds maximum size")
		case errors.Is(err, service.ErrAttachmentTypeNotAllowed):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, "attachment type not allowed")
		default:
			return h.assignmentError(c, err)
		}
	}

	return utils.SendSuccess(c, "attachment stored", assignment)
}

func (h *AdminAssignmentHandler) roster(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	roster, err := h.results.AssignmentRoster(c.UserContext(), id)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "roster retrieved", roster)
}

func (h *AdminAssignmentHandler) listQuestions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	questions, err := h.questions.ListAdmin(c.UserContext(), id)
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "questions retrieved", questions)
}

func (h *AdminAssignmentHandler) createQuestion(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuestionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	question, err := h.questions.Create(c.UserContext(), id, payload)
	if err != nil {
		return h.questionError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "question created", question)
}

func (h *AdminAssignmentHandler) importQuestions(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	result, err := h.questions.Import(c.UserContext(), id, c.Body())
	if err != nil {
		return h.questionError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "questions imported", result)
}

func (h *AdminAssignmentHandler) updateQuestion(c *fiber.Ctx) error {
	questionID, err := parseUintParam(c, "questionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.QuestionUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	question, err := h.questions.Update(c.UserContext(), questionID, payload)
	if err != nil {
		return h.questionError(c, err)
	}

	return utils.SendSuccess(c, "question updated", question)
}

func (h *AdminAssignmentHandler) deleteQuestion(c *fiber.Ctx) error {
	questionID, err := parseUintParam(c, "questionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.questions.Delete(c.UserContext(), questionID); err != nil {
		return h.questionError(c, err)
	}

	return utils.SendSuccess(c, "question deleted", nil)
}

func (h *AdminAssignmentHandler) assignmentError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAssignmentNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
	case errors.Is(err, service.ErrAssignmentLocked):
		return utils.SendError(c, fiber.StatusConflict, "assignment has attempts in progress")
	default:
		return h.internalError(c, err)
	}
}

func (h *AdminAssignmentHandler) questionError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrQuestionNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "question not found")
	case errors.Is(err, service.ErrAssignmentLocked):
		return utils.SendError(c, fiber.StatusConflict, "assignment has attempts in progress")
	default:
		// Key/option mismatches surface as plain errors from the service.
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
}

func (h *AdminAssignmentHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("admin assignment request failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
