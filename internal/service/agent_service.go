package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"securebank-chat/internal/domain"
	"securebank-chat/internal/llm"
	"securebank-chat/internal/stream"
)

// AgentAuthor es el autor que el backend pone en los metadatos de cada evento.
const AgentAuthor = "securebank_agent"

const defaultSystemPrompt = "You are SecureBank's support assistant. Answer banking questions briefly and never ask for passwords or full card numbers."

var (
	ErrRateLimited        = errors.New("rate limit exceeded")
	ErrUserInputRequired  = errors.New("user input is required")
	ErrAgentNotConfigured = errors.New("agent service not configured")
)

// EmitFunc escribe un evento en el stream de respuesta. Si devuelve error el
// turno se corta (normalmente el cliente se desconecto).
type EmitFunc func(stream.Event) error

// AgentService produce la respuesta del asistente para un turno del usuario.
type AgentService struct {
	logger       *zap.Logger
	sessions     *SessionService
	messages     *MessageService
	llmClient    llm.LLMClient
	limiter      SendRateLimiter
	systemPrompt string
	historyLimit int
}

func NewAgentService(
	logger *zap.Logger,
	sessions *SessionService,
	messages *MessageService,
	llmClient llm.LLMClient,
	limiter SendRateLimiter,
	systemPrompt string,
	historyLimit int,
) *AgentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if strings.TrimSpace(systemPrompt) == "" {
		systemPrompt = defaultSystemPrompt
	}
	return &AgentService{
		logger:       logger,
		sessions:     sessions,
		messages:     messages,
		llmClient:    llmClient,
		limiter:      limiter,
		systemPrompt: systemPrompt,
		historyLimit: historyLimit,
	}
}

// Respond ejecuta un turno completo. Cualquier fallo de negocio se emite como
// evento ERROR; el error devuelto solo indica que emit fallo.
func (s *AgentService) Respond(ctx context.Context, sessionID, userInput string, emit EmitFunc) error {
	reply, err := s.reply(ctx, sessionID, userInput, emit)
	if err != nil {
		var emitErr *emitError
		if errors.As(err, &emitErr) {
			return emitErr.err
		}
		s.logger.Warn("agent turn failed", zap.String("session_id", sessionID), zap.Error(err))
		return emit(stream.Error(err.Error()))
	}

	final := stream.FinalResponse(reply)
	final.Data.EventID = uuid.NewString()
	final.Data.Author = AgentAuthor
	return emit(final)
}

type emitError struct {
	err error
}

func (e *emitError) Error() string { return e.err.Error() }

func (s *AgentService) reply(ctx context.Context, sessionID, userInput string, emit EmitFunc) (string, error) {
	if s == nil || s.sessions == nil || s.messages == nil || s.llmClient == nil {
		return "", ErrAgentNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	userInput = strings.TrimSpace(userInput)
	if sessionID == "" {
		return "", ErrSessionIDRequired
	}
	if userInput == "" {
		return "", ErrUserInputRequired
	}
	if s.limiter != nil && !s.limiter.Allow(sessionID) {
		return "", ErrRateLimited
	}

	session, _, err := s.sessions.Ensure(ctx, sessionID)
	if err != nil {
		return "", err
	}

	history, err := s.messages.Recent(ctx, session.ID, s.historyLimit)
	if err != nil {
		return "", err
	}

	if _, err := s.messages.Save(ctx, domain.Message{
		SessionID: session.ID,
		Sender:    domain.SenderUser,
		Text:      userInput,
	}); err != nil {
		return "", err
	}

	progress := stream.Event{Type: stream.EventIntermediate}
	progress.Data.EventID = uuid.NewString()
	progress.Data.Author = AgentAuthor
	if err := emit(progress); err != nil {
		return "", &emitError{err: err}
	}

	reply, err := s.llmClient.Generate(ctx, s.buildPrompt(history, userInput))
	if err != nil {
		return "", err
	}
	reply = cleanReply(reply)
	if reply == "" {
		return "", errors.New("llm empty response")
	}

	if _, err := s.messages.Save(ctx, domain.Message{
		SessionID: session.ID,
		Sender:    domain.SenderBot,
		Text:      reply,
	}); err != nil {
		return "", err
	}

	s.logger.Info("agent turn completed",
		zap.String("session_id", session.ID),
		zap.Int("history", len(history)),
	)
	return reply, nil
}

func (s *AgentService) buildPrompt(history []domain.Message, userInput string) []llm.Message {
	out := make([]llm.Message, 0, len(history)+2)
	out = append(out, llm.Message{Role: llm.RoleSystem, Content: s.systemPrompt})
	for _, m := range history {
		role := llm.RoleUser
		if m.Sender == domain.SenderBot {
			role = llm.RoleAssistant
		}
		out = append(out, llm.Message{Role: role, Content: m.Text})
	}
	return append(out, llm.Message{Role: llm.RoleUser, Content: userInput})
}
