// Package devserver provides a local stand-in for the chatstream backend's
// send endpoint. It replies to every message with a scripted text/event-stream
// so the CLI and end-to-end tests can run without the real platform.
package devserver

import (
	"encoding/json"
	"io"
	"log/slog"
	"net"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/chatstream/pkg/logger"
	"github.com/papercomputeco/chatstream/pkg/sse"
)

// Config holds the dev server settings.
type Config struct {
	// ListenAddr is the address to listen on (e.g. ":8090").
	ListenAddr string

	// Script produces the event frames streamed in reply to a message.
	// Defaults to EchoScript.
	Script Script

	// FrameDelay is an optional pause between frames to make streaming
	// visible during development. Zero streams as fast as the pipe drains.
	FrameDelay time.Duration

	// Logger defaults to a no-op logger.
	Logger *slog.Logger
}

// sendRequest is the JSON body of the send endpoint.
type sendRequest struct {
	Message string `json:"message"`
}

// errorResponse is the JSON error body for non-streaming failures.
type errorResponse struct {
	Error string `json:"error"`
}

// Server is the dev stub backend.
type Server struct {
	config Config
	app    *fiber.App
	logger *slog.Logger
}

// New creates a dev server.
func New(config Config) *Server {
	if config.Script == nil {
		config.Script = EchoScript
	}
	if config.Logger == nil {
		config.Logger = logger.Nop()
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
	})

	s := &Server{
		config: config,
		app:    app,
		logger: config.Logger,
	}

	app.Post("/chat/conversations/:id/send", s.handleSend)

	return s
}

// Run starts the server on the configured listening address.
func (s *Server) Run() error {
	s.logger.Info("starting dev server", "listen", s.config.ListenAddr)
	return s.app.Listen(s.config.ListenAddr)
}

// RunWithListener starts the server using the provided listener.
func (s *Server) RunWithListener(listener net.Listener) error {
	s.logger.Info("starting dev server", "listen", listener.Addr().String())
	return s.app.Listener(listener)
}

// Close gracefully shuts down the server.
func (s *Server) Close() error {
	return s.app.Shutdown()
}

// handleSend validates the request and streams the scripted reply.
func (s *Server) handleSend(c *fiber.Ctx) error {
	conversationID := c.Params("id")

	var req sendRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "invalid request body"})
	}
	if strings.TrimSpace(req.Message) == "" {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: "message is required"})
	}

	s.logger.Debug("scripting reply",
		"conversation_id", conversationID,
		"message", req.Message,
	)

	frames := s.config.Script(conversationID, req.Message)

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")

	// io.Pipe + SetBodyStream gives per-frame backpressure: pw.Write blocks
	// until fasthttp reads from the pipe and flushes to the socket, so the
	// client sees frames as they are written rather than one buffered blob.
	pr, pw := io.Pipe()
	go s.writeFrames(pw, frames)

	// Unknown size (-1) triggers chunked transfer encoding.
	c.Context().Response.SetBodyStream(pr, -1)

	return nil
}

// writeFrames streams the scripted frames to the pipe writer.
func (s *Server) writeFrames(pw *io.PipeWriter, frames []Frame) {
	defer pw.Close()

	for _, frame := range frames {
		payload := frame.Data
		if payload == "" {
			data, err := json.Marshal(struct{}{})
			if err != nil {
				s.logger.Error("marshaling empty frame payload", "error", err)
				return
			}
			payload = string(data)
		}

		if err := sse.WriteEvent(pw, frame.Event, payload); err != nil {
			// The client hung up; nothing left to stream.
			s.logger.Debug("writing frame", "error", err)
			return
		}

		if s.config.FrameDelay > 0 {
			time.Sleep(s.config.FrameDelay)
		}
	}
}
