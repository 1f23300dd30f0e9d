// Package transcript mantiene la lista ordenada de mensajes de una conversacion.
package transcript

import (
	"sync"

	"securebank-chat/internal/domain"
)

// Store guarda mensajes en orden de insercion. Nunca reordena ni borra.
type Store struct {
	mu       sync.RWMutex
	messages []domain.Message
	index    map[string]int
}

// NewStore crea un store con los mensajes iniciales dados (por ejemplo el saludo).
func NewStore(seed ...domain.Message) *Store {
	s := &Store{
		messages: make([]domain.Message, 0, 16+len(seed)),
		index:    make(map[string]int, 16+len(seed)),
	}
	for _, m := range seed {
		s.Append(m)
	}
	return s
}

// Append agrega el mensaje al final.
func (s *Store) Append(msg domain.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages = append(s.messages, msg)
	if _, dup := s.index[msg.ID]; !dup {
		s.index[msg.ID] = len(s.messages) - 1
	}
}

// UpdateByID reemplaza el texto del mensaje con ese id. Si no existe no hace
// nada y devuelve false.
func (s *Store) UpdateByID(id, text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return false
	}
	s.messages[i].Text = text
	return true
}

// Get devuelve el mensaje con ese id.
func (s *Store) Get(id string) (domain.Message, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return domain.Message{}, false
	}
	return s.messages[i], true
}

// Messages devuelve una copia de los mensajes en orden de conversacion.
func (s *Store) Messages() []domain.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	copied := make([]domain.Message, len(s.messages))
	copy(copied, s.messages)
	return copied
}

// Len devuelve la cantidad de mensajes.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages)
}
