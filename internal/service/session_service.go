package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"securebank-chat/internal/domain"
	"securebank-chat/internal/repository"
)

// DefaultUserID es el usuario con el que el backend asocia las sesiones
// anonimas del widget.
const DefaultUserID = "api_user"

var ErrSessionIDRequired = errors.New("session id is required")

// SessionService resuelve el id de sesion que manda el cliente.
type SessionService struct {
	repo   repository.SessionRepository
	logger *zap.Logger
}

func NewSessionService(repo repository.SessionRepository, logger *zap.Logger) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionService{repo: repo, logger: logger}
}

// Ensure busca la sesion y si no existe la crea con ese mismo id.
func (s *SessionService) Ensure(ctx context.Context, sessionID string) (domain.Session, bool, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Session{}, false, ErrSessionIDRequired
	}

	session, err := s.repo.GetByID(ctx, sessionID)
	if err == nil {
		s.logger.Debug("found existing session", zap.String("session_id", session.ID))
		return session, false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return domain.Session{}, false, err
	}

	session = domain.Session{
		ID:        sessionID,
		UserID:    DefaultUserID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.repo.Create(ctx, session); err != nil {
		return domain.Session{}, false, err
	}
	s.logger.Info("created session", zap.String("session_id", session.ID))
	return session, true, nil
}
