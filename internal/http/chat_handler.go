package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"securebank-chat/internal/agentapi"
	"securebank-chat/internal/service"
	"securebank-chat/internal/stream"
)

// ChatHandler expone el endpoint de streaming del asistente.
type ChatHandler struct {
	logger *zap.Logger
	agent  *service.AgentService
}

// NewChatHandler crea una instancia de ChatHandler con dependencias necesarias.
func NewChatHandler(logger *zap.Logger, agent *service.AgentService) *ChatHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{logger: logger, agent: agent}
}

type chatStreamRequest struct {
	SessionID string `json:"session_id" binding:"required"`
	UserInput string `json:"user_input" binding:"required"`
}

// Stream maneja POST /chat/stream. Cada evento sale como una linea JSON y se
// hace flush inmediatamente.
func (h *ChatHandler) Stream(c *gin.Context) {
	var req chatStreamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid chat stream request", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	req.SessionID = strings.TrimSpace(req.SessionID)
	req.UserInput = strings.TrimSpace(req.UserInput)
	if req.SessionID == "" || req.UserInput == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "session_id and user_input are required"})
		return
	}

	c.Header("Content-Type", agentapi.ContentTypeJSONStream)
	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	emit := func(ev stream.Event) error {
		line, err := ev.Encode()
		if err != nil {
			return err
		}
		if _, err := c.Writer.Write(line); err != nil {
			return err
		}
		c.Writer.Flush()
		return nil
	}

	if err := h.agent.Respond(c.Request.Context(), req.SessionID, req.UserInput, emit); err != nil {
		h.logger.Warn("chat stream aborted",
			zap.String("session_id", req.SessionID),
			zap.Error(err),
		)
	}
}
