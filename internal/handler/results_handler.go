package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/skolar-lms/skolar-api/internal/service"
	"github.com/skolar-lms/skolar-api/internal/utils"
)

// ResultsHandler wires the student-facing results routes.
type ResultsHandler struct {
	results service.ResultsService
	logger  zerolog.Logger
}

// NewResultsHandler constructs the handler.
func NewResultsHandler(results service.ResultsService, logger zerolog.Logger) *ResultsHandler {
	return &ResultsHandler{
		results: results,
		logger:  logger.With().Str("component", "results_handler").Logger(),
	}
}

// Register attaches results endpoints to the router group.
func (h *ResultsHandler) Register(router fiber.Router) {
	router.Get("/me", h.mine)
}

func (h *ResultsHandler) mine(c *fiber.Ctx) error {
	summary, err := h.results.StudentSummary(c.UserContext(), userIDFromContext(c))
	if err != nil {
		requestLogger(h.logger, c).Error().Err(err).Msg("results request failed")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}

	return utils.SendSuccess(c, "results retrieved", summary)
}
