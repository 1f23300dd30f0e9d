package domain

import "time"

// SessionRecord es el unico registro durable del cliente: el id de sesion
// de la instalacion.
type SessionRecord struct {
	SessionID string `json:"sessionId"`
}

// Session es la conversacion tal como la conoce el backend de agentes.
type Session struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
}
