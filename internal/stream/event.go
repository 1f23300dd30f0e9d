// Package stream decodifica el protocolo de eventos del backend de agentes:
// una linea de JSON por evento, terminada en '\n', sobre un cuerpo HTTP que
// llega en trozos de tamano arbitrario.
package stream

import (
	"encoding/json"
	"fmt"
)

// EventType es el discriminador event_type de cada linea.
type EventType string

const (
	EventFinalResponse EventType = "FINAL_RESPONSE"
	EventIntermediate  EventType = "INTERMEDIATE"
	EventError         EventType = "ERROR"
)

// Event es un registro decodificado del stream.
type Event struct {
	Type EventType `json:"event_type"`
	Data EventData `json:"data"`
}

// EventData agrupa todos los campos que el backend puede mandar en data.
// El cliente solo interpreta Text y Message; el resto es metadata.
type EventData struct {
	Text    string `json:"text,omitempty"`
	Message string `json:"message,omitempty"`

	EventID string `json:"event_id,omitempty"`
	Author  string `json:"author,omitempty"`

	ToolName     string          `json:"tool_name,omitempty"`
	ToolArgs     json.RawMessage `json:"tool_args,omitempty"`
	Output       json.RawMessage `json:"output,omitempty"`
	FunctionName string          `json:"function_name,omitempty"`
	FunctionArgs json.RawMessage `json:"function_args,omitempty"`
	FunctionID   string          `json:"function_id,omitempty"`
	Response     json.RawMessage `json:"response,omitempty"`
}

// FinalResponse arma un evento FINAL_RESPONSE con el fragmento de texto.
func FinalResponse(text string) Event {
	return Event{Type: EventFinalResponse, Data: EventData{Text: text}}
}

// Error arma un evento ERROR.
func Error(message string) Event {
	return Event{Type: EventError, Data: EventData{Message: message}}
}

// Encode serializa el evento como una linea del protocolo, incluido el '\n'.
func (e Event) Encode() ([]byte, error) {
	b, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return append(b, '\n'), nil
}

// DecodeError describe una linea que no es un objeto JSON valido. No es fatal:
// el stream sigue con la linea siguiente.
type DecodeError struct {
	Line []byte
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode event line %q: %v", truncate(e.Line, 120), e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
