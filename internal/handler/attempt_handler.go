package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/service"
	"github.com/skolar-lms/skolar-api/internal/utils"
)

// AttemptHandler wires the student-facing attempt lifecycle routes.
type AttemptHandler struct {
	attempts service.AttemptService
	logger   zerolog.Logger
}

// NewAttemptHandler constructs the handler.
func NewAttemptHandler(attempts service.AttemptService, logger zerolog.Logger) *AttemptHandler {
	return &AttemptHandler{
		attempts: attempts,
		logger:   logger.With().Str("component", "attempt_handler").Logger(),
	}
}

// Register attaches attempt endpoints to the router group.
func (h *AttemptHandler) Register(router fiber.Router) {
	router.Post("/:partId/start", h.start)
	router.Post("/attempt/:attemptId/progress", h.progress)
	router.Post("/attempt/:attemptId/auto-save", h.autoSave)
	router.Post("/attempt/:attemptId/submit", h.submit)
	router.Get("/submission/:submissionId/review", h.review)
}

func (h *AttemptHandler) start(c *fiber.Ctx) error {
	partID, err := parseUintParam(c, "partId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.attempts.Start(c.UserContext(), userIDFromContext(c), partID)
	if err != nil {
		var notAllowed *service.AttemptNotAllowedError
		switch {
		case errors.As(err, &notAllowed):
			return utils.SendErrorWithData(c, fiber.StatusForbidden, notAllowed.Eligibility.Reason, notAllowed.Eligibility)
		case errors.Is(err, service.ErrAssignmentNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "assignment not found")
		default:
			return h.internalError(c, err)
		}
	}

	message := "attempt started"
	if response.Resumed {
		message = "attempt resumed"
	}
	return utils.SendSuccess(c, message, response)
}

func (h *AttemptHandler) progress(c *fiber.Ctx) error {
	attemptID, err := parseUintParam(c, "attemptId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.ProgressRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.attempts.RecordProgress(c.UserContext(), userIDFromContext(c), attemptID, payload)
	if err != nil {
		return h.heartbeatError(c, err)
	}

	return utils.SendSuccess(c, "progress recorded", response)
}

func (h *AttemptHandler) autoSave(c *fiber.Ctx) error {
	attemptID, err := parseUintParam(c, "attemptId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AutoSaveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.attempts.AutoSave(c.UserContext(), userIDFromContext(c), attemptID, payload)
	if err != nil {
		return h.heartbeatError(c, err)
	}

	return utils.SendSuccess(c, "answers saved", response)
}

func (h *AttemptHandler) submit(c *fiber.Ctx) error {
	attemptID, err := parseUintParam(c, "attemptId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	response, err := h.attempts.Submit(c.UserContext(), userIDFromContext(c), attemptID, payload)
	if err != nil {
		return h.heartbeatError(c, err)
	}

	message := "submission scored"
	if response.TimedOut {
		message = "time expired, last saved answers scored"
	}
	return utils.SendSuccess(c, message, response)
}

func (h *AttemptHandler) review(c *fiber.Ctx) error {
	submissionID, err := parseUintParam(c, "submissionId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.attempts.Review(c.UserContext(), userIDFromContext(c), submissionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrSubmissionNotFound):
			return utils.SendError(c, fiber.StatusNotFound, "submission not found")
		case errors.Is(err, service.ErrReviewNotAllowed):
			return utils.SendError(c, fiber.StatusForbidden, "review is disabled for this assignment")
		default:
			return h.internalError(c, err)
		}
	}

	return utils.SendSuccess(c, "review retrieved", response)
}

func (h *AttemptHandler) heartbeatError(c *fiber.Ctx, err error) error {
	switch {
	case isValidationError(err):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrAttemptNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "attempt not found")
	case errors.Is(err, service.ErrAttemptClosed):
		return utils.SendError(c, fiber.StatusConflict, "attempt already finished")
	default:
		return h.internalError(c, err)
	}
}

func (h *AttemptHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("attempt request failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
