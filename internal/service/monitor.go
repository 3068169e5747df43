package service

import (
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/skolar-lms/skolar-api/internal/dto"
	"github.com/skolar-lms/skolar-api/internal/observability"
)

const monitorSendBufferSize = 32

// Attempt event types broadcast to monitoring teachers.
const (
	EventAttemptStarted   = "attempt_started"
	EventAttemptSubmitted = "attempt_submitted"
	EventAttemptTimedOut  = "attempt_timed_out"
)

// AttemptMonitor streams attempt lifecycle events to teachers watching an
// assignment. The stream is one-way; client frames are read only to detect
// disconnects.
type AttemptMonitor interface {
	ServeConnection(conn *websocket.Conn, assignmentID uint)
	Publish(event dto.AttemptEvent)
}

type attemptMonitor struct {
	mu     sync.RWMutex
	rooms  map[uint]map[*monitorClient]struct{}
	logger zerolog.Logger
}

type monitorClient struct {
	conn         *websocket.Conn
	send         chan dto.AttemptEvent
	assignmentID uint
	monitor      *attemptMonitor
	closed       chan struct{}
	once         sync.Once
}

// NewAttemptMonitor constructs the monitor hub.
func NewAttemptMonitor(logger zerolog.Logger) AttemptMonitor {
	return &attemptMonitor{
		rooms:  make(map[uint]map[*monitorClient]struct{}),
		logger: logger.With().Str("component", "attempt_monitor").Logger(),
	}
}

func (m *attemptMonitor) ServeConnection(conn *websocket.Conn, assignmentID uint) {
	client := &monitorClient{
		conn:         conn,
		send:         make(chan dto.AttemptEvent, monitorSendBufferSize),
		assignmentID: assignmentID,
		monitor:      m,
		closed:       make(chan struct{}),
	}

	m.register(client)
	observability.MonitorConnectionsTotal().Inc()

	go client.writer()
	client.reader()
}

func (m *attemptMonitor) Publish(event dto.AttemptEvent) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	clients := m.rooms[event.AssignmentID]
	for client := range clients {
		select {
		case client.send <- event:
		default:
			m.logger.Warn().Uint("assignment_id", event.AssignmentID).Msg("dropping attempt event for slow monitor client")
		}
	}
}

func (m *attemptMonitor) register(client *monitorClient) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.rooms[client.assignmentID]; !exists {
		m.rooms[client.assignmentID] = make(map[*monitorClient]struct{})
	}
	m.rooms[client.assignmentID][client] = struct{}{}
	m.logger.Debug().Uint("assignment_id", client.assignmentID).Msg("monitor client connected")
}

func (m *attemptMonitor) unregister(client *monitorClient) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if clients, ok := m.rooms[client.assignmentID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(m.rooms, client.assignmentID)
		}
	}
	m.logger.Debug().Uint("assignment_id", client.assignmentID).Msg("monitor client disconnected")
}

func (c *monitorClient) reader() {
	defer c.close()

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *monitorClient) writer() {
	defer c.close()

	for {
		select {
		case event, ok := <-c.send:
			if !ok {
				return
			}
			if err := c.conn.WriteJSON(event); err != nil {
				c.monitor.logger.Debug().Err(err).Msg("monitor write loop terminated")
				return
			}
		case <-time.After(30 * time.Second):
			if err := c.conn.WriteMessage(websocket.PingMessage, []byte("keepalive")); err != nil {
				return
			}
		case <-c.closed:
			return
		}
	}
}

func (c *monitorClient) close() {
	c.once.Do(func() {
		close(c.closed)
		c.monitor.unregister(c)
		_ = c.conn.Close()
	})
}
