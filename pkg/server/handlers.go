package server

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/bedrockhome/agent/pkg/conversation"
	"github.com/bedrockhome/agent/pkg/errorsx"
	"github.com/bedrockhome/agent/pkg/llm"
	"github.com/bedrockhome/agent/pkg/metrics"
	"github.com/bedrockhome/agent/pkg/redact"
)

type processRequest struct {
	Text           string `json:"text"`
	ConversationID string `json:"conversation_id"`
}

func (s *Server) handleHealth(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":        "healthy",
		"conversations": s.store.Count(),
	})
}

func (s *Server) handleProcess(c *fiber.Ctx) error {
	var req processRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if req.Text == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "No text provided"})
	}

	if !s.breaker.Allow() {
		s.logger.Warn("turn_rejected", "reason", "circuit open")
		return c.JSON(errorResponse(s.cfg.Language, req.ConversationID,
			"Sorry, the assistant is temporarily unavailable. Please try again shortly.",
			"throttled"))
	}

	start := time.Now()
	ctx := c.Context()
	conversationID, history := s.store.Resolve(req.ConversationID)
	isNew := history.Len() == 0

	s.logger.Info("turn_started",
		"conversation_id", conversationID,
		"new_conversation", isNew,
		"text", redact.Text(req.Text))

	if isNew || s.cfg.RefreshPromptPerTurn {
		devices, err := s.devices.Snapshot(ctx)
		if err != nil {
			s.logger.Warn("device_snapshot_error", "error", err)
		}
		rendered, err := s.composer.Compose(s.cfg.Template, devices)
		if err != nil {
			s.logger.Error("prompt_render_error", "error", err)
			return c.JSON(errorResponse(s.cfg.Language, conversationID,
				"Sorry, I could not prepare the system prompt: "+err.Error(),
				"prompt_render"))
		}
		history.SetSystem(rendered)
	}
	history.Append(llm.UserMessage(req.Text))

	var answer string
	err := s.retry.Do(ctx, func() error {
		var runErr error
		answer, runErr = s.turner.Run(ctx, history)
		return runErr
	})
	if err != nil {
		s.breaker.OnError(err)
		s.persist(conversationID, history)
		reason := errorsx.Reason(err)
		s.logger.Error("turn_failed",
			"conversation_id", conversationID,
			"reason_code", string(reason),
			"error", err)
		s.observer.RecordEvent(metrics.Event("turn_error", 1, "reason", string(reason)))
		return c.JSON(errorResponse(s.cfg.Language, conversationID,
			speechForError(reason), string(reason)))
	}
	s.breaker.OnSuccess()
	s.persist(conversationID, history)

	s.observer.RecordEvent(metrics.Timing("turn_duration", time.Since(start)))
	s.logger.Info("turn_done",
		"conversation_id", conversationID,
		"duration_ms", time.Since(start).Milliseconds())
	return c.JSON(actionDoneResponse(s.cfg.Language, conversationID, answer))
}

// persist applies the retention policy. Resolve stores the history at
// lookup time, so a no-memory session must be dropped on every exit
// path, failed turns included.
func (s *Server) persist(conversationID string, history *conversation.History) {
	if s.cfg.RememberConversation {
		history.Trim(s.cfg.RememberInteractions)
		s.store.Save(conversationID, history)
		return
	}
	s.store.Drop(conversationID)
}

// speechForError phrases a failure for the voice assistant to speak.
func speechForError(reason errorsx.ReasonCode) string {
	switch reason {
	case errorsx.ReasonThrottled:
		return "Sorry, the model is currently overloaded. Please try again in a moment."
	case errorsx.ReasonAccessDenied:
		return "Sorry, I could not authenticate with the model provider. Please check the credentials."
	case errorsx.ReasonInvalidRequest:
		return "Sorry, the model rejected the request."
	case errorsx.ReasonMalformedResponse:
		return "Sorry, I received an unreadable answer from the model."
	default:
		return "Sorry, I could not reach the model. Please try again."
	}
}
