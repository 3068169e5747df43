package handler

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/skolar-lms/skolar-api/internal/service"
)

// MonitorHandler wires the teacher-facing attempt monitor websocket.
type MonitorHandler struct {
	monitor service.AttemptMonitor
	logger  zerolog.Logger
}

// NewMonitorHandler constructs the handler.
func NewMonitorHandler(monitor service.AttemptMonitor, logger zerolog.Logger) *MonitorHandler {
	return &MonitorHandler{
		monitor: monitor,
		logger:  logger.With().Str("component", "monitor_handler").Logger(),
	}
}

// Register binds the monitor websocket under the provided router group.
func (h *MonitorHandler) Register(router fiber.Router) {
	router.Use("/monitor", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("/monitor", websocket.New(h.handleConnection))
}

func (h *MonitorHandler) handleConnection(conn *websocket.Conn) {
	raw := strings.TrimSpace(conn.Query("assignment_id"))
	assignmentID, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || assignmentID == 0 {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "assignment_id required"))
		_ = conn.Close()
		return
	}

	h.logger.Debug().Uint64("assignment_id", assignmentID).Msg("monitor connection accepted")
	h.monitor.ServeConnection(conn, uint(assignmentID))
}
