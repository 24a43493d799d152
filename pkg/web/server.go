// Package web serves a small status dashboard: live behavior state,
// mission log queries, and a manual command injection endpoint sharing
// the steering channel's latest-wins semantics.
package web

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/websocket/v2"

	"github.com/koster51/heat-seaking-roomba/internal/eventlog"
	"github.com/koster51/heat-seaking-roomba/internal/log"
	"github.com/koster51/heat-seaking-roomba/pkg/control"
)

// Server is the dashboard HTTP/websocket server.
type Server struct {
	app  *fiber.App
	addr string

	mu     sync.RWMutex
	status control.Status

	store  *eventlog.Store
	inject func(payload string)

	cmu     sync.Mutex
	clients map[*websocket.Conn]chan []byte
}

// NewServer builds the server. store may be nil (events endpoint then
// returns an empty list); inject feeds payloads into the steering
// channel alongside MQTT.
func NewServer(addr string, store *eventlog.Store, inject func(payload string)) *Server {
	s := &Server{
		addr:    addr,
		store:   store,
		inject:  inject,
		clients: make(map[*websocket.Conn]chan []byte),
	}

	app := fiber.New(fiber.Config{
		AppName:               "Roomba Controller",
		DisableStartupMessage: true,
	})
	app.Use(cors.New())

	api := app.Group("/api")
	api.Get("/status", s.handleStatus)
	api.Get("/events", s.handleEvents)
	api.Post("/command", s.handleCommand)

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/status", websocket.New(s.handleStatusWS))

	s.app = app
	return s
}

// Start serves until Shutdown. Blocks.
func (s *Server) Start() error {
	log.Info("dashboard listening", "addr", s.addr)
	return s.app.Listen(s.addr)
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown() error {
	return s.app.Shutdown()
}

// SetStatus records the latest control loop snapshot and broadcasts it
// to websocket subscribers.
func (s *Server) SetStatus(st control.Status) {
	s.mu.Lock()
	s.status = st
	s.mu.Unlock()

	data, err := json.Marshal(st)
	if err != nil {
		return
	}
	s.broadcast(data)
}

func (s *Server) handleStatus(c *fiber.Ctx) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return c.JSON(s.status)
}

func (s *Server) handleEvents(c *fiber.Ctx) error {
	if s.store == nil {
		return c.JSON([]eventlog.Event{})
	}

	var from, to time.Time
	if q := c.Query("from"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad 'from' timestamp"})
		}
		from = t
	}
	if q := c.Query("to"); q != "" {
		t, err := time.Parse(time.RFC3339, q)
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad 'to' timestamp"})
		}
		to = t
	}

	events, err := s.store.List(c.Context(), from, to, c.Query("type"))
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(events)
}

// commandRequest is the POST /api/command body.
type commandRequest struct {
	Command string `json:"command"`
}

func (s *Server) handleCommand(c *fiber.Ctx) error {
	var req commandRequest
	if err := c.BodyParser(&req); err != nil {
		// Accept a raw text body as the payload itself.
		req.Command = strings.TrimSpace(string(c.Body()))
	}
	if req.Command == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "command is required"})
	}
	if s.inject == nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"error": "steering channel not wired"})
	}

	s.inject(req.Command)
	log.Info("dashboard command injected", "command", req.Command)
	return c.JSON(fiber.Map{"queued": req.Command})
}

func (s *Server) handleStatusWS(conn *websocket.Conn) {
	send := make(chan []byte, 16)

	s.cmu.Lock()
	s.clients[conn] = send
	count := len(s.clients)
	s.cmu.Unlock()
	log.Debug("status subscriber connected", "total", count)

	defer func() {
		s.cmu.Lock()
		if _, ok := s.clients[conn]; ok {
			delete(s.clients, conn)
			close(send)
		}
		s.cmu.Unlock()
		_ = conn.Close()
	}()

	// Push the current snapshot immediately.
	s.mu.RLock()
	if data, err := json.Marshal(s.status); err == nil {
		select {
		case send <- data:
		default:
		}
	}
	s.mu.RUnlock()

	// Writer goroutine; the read loop below just detects disconnect.
	go func() {
		for data := range send {
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

// broadcast fans the payload out to all subscribers, dropping clients
// whose buffers are full rather than blocking the control path.
func (s *Server) broadcast(data []byte) {
	s.cmu.Lock()
	defer s.cmu.Unlock()
	for conn, send := range s.clients {
		select {
		case send <- data:
		default:
			delete(s.clients, conn)
			close(send)
			log.Warn("dropped slow status subscriber")
		}
	}
}
