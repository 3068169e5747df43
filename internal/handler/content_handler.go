package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/service"
	"github.com/skolar-lms/skolar-api/internal/utils"
)

// ContentHandler wires the module/unit/part content routes.
type ContentHandler struct {
	content service.ContentService
	logger  zerolog.Logger
}

// NewContentHandler constructs the handler.
func NewContentHandler(content service.ContentService, logger zerolog.Logger) *ContentHandler {
	return &ContentHandler{
		content: content,
		logger:  logger.With().Str("component", "content_handler").Logger(),
	}
}

// Register attaches the read-only content endpoints to the router group.
func (h *ContentHandler) Register(router fiber.Router) {
	router.Get("/modules", h.listModules)
	router.Get("/modules/:id", h.getModule)
	router.Get("/progress/me", h.myProgress)
}

// RegisterAdmin attaches the content management endpoints.
func (h *ContentHandler) RegisterAdmin(router fiber.Router) {
	router.Post("/modules", h.createModule)
	router.Post("/units", h.createUnit)
	router.Post("/parts", h.createPart)
}

func (h *ContentHandler) listModules(c *fiber.Ctx) error {
	modules, err := h.content.ListModules(c.UserContext())
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "modules retrieved", modules)
}

func (h *ContentHandler) getModule(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	module, err := h.content.GetModule(c.UserContext(), id)
	if err != nil {
		if errors.Is(err, service.ErrModuleNotFound) {
			return utils.SendError(c, fiber.StatusNotFound, "module not found")
		}
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "module retrieved", module)
}

func (h *ContentHandler) myProgress(c *fiber.Ctx) error {
	progress, err := h.content.StudentProgress(c.UserContext(), userIDFromContext(c))
	if err != nil {
		return h.internalError(c, err)
	}

	return utils.SendSuccess(c, "progress retrieved", progress)
}

func (h *ContentHandler) createModule(c *fiber.Ctx) error {
	var payload dto.ModuleRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	module, err := h.content.CreateModule(c.UserContext(), payload)
	if err != nil {
		return h.contentError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "module created", module)
}

func (h *ContentHandler) createUnit(c *fiber.Ctx) error {
	var payload dto.UnitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	unit, err := h.content.CreateUnit(c.UserContext(), payload)
	if err != nil {
		return h.contentError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "unit created", unit)
}

func (h *ContentHandler) createPart(c *fiber.Ctx) error {
	var payload dto.LearningPartRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	part, err := h.content.CreatePart(c.UserContext(), payload)
	if err != nil {
		return h.contentError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "learning part created", part)
}

func (h *ContentHandler) contentError(c *fiber.Ctx, err error) error {
	if isValidationError(err) {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	return h.internalError(c, err)
}

func (h *ContentHandler) internalError(c *fiber.Ctx, err error) error {
	requestLogger(h.logger, c).Error().Err(err).Msg("content request failed")
	return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
}
