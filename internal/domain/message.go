package domain

import "time"

// Sender identifica quien escribio un mensaje del transcript.
type Sender string

const (
	SenderUser Sender = "user"
	SenderBot  Sender = "bot"
)

// Message es un turno de la conversacion. Solo Text puede cambiar, y solo
// mientras el mensaje bot en curso se esta recibiendo por streaming.
type Message struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id,omitempty"`
	Text      string    `json:"text"`
	Sender    Sender    `json:"sender"`
	Timestamp time.Time `json:"timestamp"`
}

// Valid reporta si el sender es uno de los conocidos.
func (s Sender) Valid() bool {
	return s == SenderUser || s == SenderBot
}
