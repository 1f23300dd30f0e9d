// Package sessionstore persiste el id de sesion de la instalacion.
//
// El registro se crea una sola vez y no se modifica despues: Save falla con
// ErrExists si ya hay un registro guardado.
package sessionstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"securebank-chat/internal/domain"
)

var (
	ErrNotFound      = errors.New("session record not found")
	ErrExists        = errors.New("session record already exists")
	ErrInvalidRecord = errors.New("session record invalid")
)

// Store lee y escribe el registro durable de un campo.
type Store interface {
	Load(ctx context.Context) (domain.SessionRecord, error)
	Save(ctx context.Context, rec domain.SessionRecord) error
}

// Ensure devuelve el registro guardado o, si no existe, genera uno nuevo con
// newID y lo guarda de inmediato. Un registro corrupto es un error; nunca se
// regenera encima de estado existente.
func Ensure(ctx context.Context, store Store, newID func() string) (domain.SessionRecord, error) {
	if store == nil {
		return domain.SessionRecord{}, errors.New("session store not configured")
	}
	if newID == nil {
		newID = uuid.NewString
	}

	rec, err := store.Load(ctx)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return domain.SessionRecord{}, fmt.Errorf("load session: %w", err)
	}

	rec = domain.SessionRecord{SessionID: newID()}
	if err := validate(rec); err != nil {
		return domain.SessionRecord{}, err
	}
	err = store.Save(ctx, rec)
	if errors.Is(err, ErrExists) {
		// Otro proceso lo creo entre Load y Save.
		return store.Load(ctx)
	}
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("save session: %w", err)
	}
	return rec, nil
}

func validate(rec domain.SessionRecord) error {
	if strings.TrimSpace(rec.SessionID) == "" {
		return ErrInvalidRecord
	}
	return nil
}

// MemoryStore guarda el registro solo en memoria. Sirve para tests y para
// CHAT_SESSION_STORE=memory.
type MemoryStore struct {
	mu  sync.Mutex
	rec *domain.SessionRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (domain.SessionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return domain.SessionRecord{}, ErrNotFound
	}
	return *s.rec, nil
}

func (s *MemoryStore) Save(_ context.Context, rec domain.SessionRecord) error {
	if err := validate(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec != nil {
		return ErrExists
	}
	s.rec = &rec
	return nil
}
