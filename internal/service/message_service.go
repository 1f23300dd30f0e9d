package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"securebank-chat/internal/domain"
	"securebank-chat/internal/repository"
)

// MessageService encapsula la lógica para guardar y leer turnos de una sesion.
type MessageService struct {
	repo repository.MessageRepository
}

var (
	ErrMessageServiceNotConfigured = errors.New("message service not configured")
	ErrMessageInvalidInput         = errors.New("message invalid input")
)

func NewMessageService(repo repository.MessageRepository) *MessageService {
	return &MessageService{repo: repo}
}

func (s *MessageService) Save(ctx context.Context, msg domain.Message) (domain.Message, error) {
	if s == nil || s.repo == nil {
		return domain.Message{}, ErrMessageServiceNotConfigured
	}

	msg.SessionID = strings.TrimSpace(msg.SessionID)
	msg.Text = strings.TrimSpace(msg.Text)

	if msg.SessionID == "" || msg.Text == "" || !msg.Sender.Valid() {
		return domain.Message{}, ErrMessageInvalidInput
	}
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	return msg, s.repo.Create(ctx, msg)
}

func (s *MessageService) ListBySession(ctx context.Context, sessionID string) ([]domain.Message, error) {
	if s == nil || s.repo == nil {
		return nil, ErrMessageServiceNotConfigured
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return []domain.Message{}, nil
	}
	return s.repo.ListBySessionID(ctx, sessionID)
}

// Recent devuelve los ultimos limit mensajes de la sesion, en orden. limit <= 0
// devuelve todo el historial.
func (s *MessageService) Recent(ctx context.Context, sessionID string, limit int) ([]domain.Message, error) {
	msgs, err := s.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	return msgs, nil
}
