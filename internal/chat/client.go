// Package chat implementa el cliente de sesion de chat: mantiene el transcript,
// el id de sesion durable y el estado de envio, y convierte el stream de
// eventos del backend en mensajes del asistente que crecen en el lugar.
package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"securebank-chat/internal/agentapi"
	"securebank-chat/internal/domain"
	"securebank-chat/internal/sessionstore"
	"securebank-chat/internal/stream"
	"securebank-chat/internal/transcript"
)

// DefaultGreeting es el mensaje bot con el que arranca cada transcript.
const DefaultGreeting = "How can I help you with your banking needs today?"

const unknownErrorMessage = "An unknown error occurred"

var (
	ErrSendInProgress         = errors.New("a message is already being sent")
	ErrTransportNotConfigured = errors.New("chat transport not configured")
)

// ServerError es un evento ERROR enviado por el backend.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	return e.Message
}

// State es una foto del cliente para renderizar.
type State struct {
	SessionID    string
	Messages     []domain.Message
	IsSending    bool
	Error        string
	DecodeErrors int
}

// Client es el dueno del transcript de una instalacion. Un solo Send puede
// estar en curso a la vez; el transcript solo se modifica en la goroutine que
// llamo a Send.
type Client struct {
	transport   agentapi.Transport
	sessionID   string
	store       *transcript.Store
	logger      *zap.Logger
	newID       func() string
	now         func() time.Time
	greeting    string
	readTimeout time.Duration
	observer    func(State)

	sending atomic.Bool

	mu           sync.RWMutex
	lastErr      string
	decodeErrors int
}

// Option configura un Client.
type Option func(*Client)

func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(c *Client) {
		if newID != nil {
			c.newID = newID
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// WithGreeting cambia el saludo inicial. Vacio deja el transcript sin saludo.
func WithGreeting(text string) Option {
	return func(c *Client) {
		c.greeting = text
	}
}

// WithReadTimeout corta el turno si pasa d sin recibir bytes del backend.
// Cero (el default) espera indefinidamente.
func WithReadTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.readTimeout = d
		}
	}
}

// WithObserver registra una funcion que recibe el estado despues de cada
// cambio. Se llama en la goroutine de Send; no debe bloquear.
func WithObserver(fn func(State)) Option {
	return func(c *Client) {
		c.observer = fn
	}
}

// New carga (o crea y guarda) el id de sesion y arma el transcript con el saludo.
func New(ctx context.Context, transport agentapi.Transport, sessions sessionstore.Store, opts ...Option) (*Client, error) {
	if transport == nil {
		return nil, ErrTransportNotConfigured
	}
	c := &Client{
		transport: transport,
		logger:    zap.NewNop(),
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
		greeting:  DefaultGreeting,
	}
	for _, opt := range opts {
		opt(c)
	}

	rec, err := sessionstore.Ensure(ctx, sessions, c.newID)
	if err != nil {
		return nil, err
	}
	c.sessionID = rec.SessionID

	c.store = transcript.NewStore()
	if c.greeting != "" {
		c.store.Append(c.newMessage(c.greeting, domain.SenderBot))
	}

	c.logger.Debug("chat client ready", zap.String("session_id", c.sessionID))
	return c, nil
}

// Send agrega el mensaje del usuario y consume la respuesta del backend hasta
// que termina el stream. Texto vacio no hace nada. Si ya hay un envio en curso
// devuelve ErrSendInProgress sin tocar el estado. Cualquier otra falla queda en
// Err() y en un mensaje "Error: ..." del transcript; Send devuelve nil.
func (c *Client) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	if !c.sending.CompareAndSwap(false, true) {
		c.logger.Debug("send rejected, another send in flight", zap.String("session_id", c.sessionID))
		return ErrSendInProgress
	}
	defer func() {
		c.sending.Store(false)
		c.notify()
	}()

	c.setError("")
	c.store.Append(c.newMessage(text, domain.SenderUser))
	c.notify()

	start := time.Now()
	if err := c.runTurn(ctx, text); err != nil {
		c.fail(err)
		return nil
	}
	c.logger.Debug("send completed",
		zap.String("session_id", c.sessionID),
		zap.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// runTurn hace el request y reduce los eventos sobre el transcript.
func (c *Client) runTurn(ctx context.Context, text string) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("unexpected failure: %v", r)
		}
	}()

	var wd *watchdog
	if c.readTimeout > 0 {
		var cancel context.CancelCauseFunc
		ctx, cancel = context.WithCancelCause(ctx)
		defer cancel(nil)
		wd = startWatchdog(c.readTimeout, cancel)
		defer wd.stop()
	}

	body, err := c.transport.Stream(ctx, agentapi.StreamRequest{
		SessionID: c.sessionID,
		UserInput: text,
	})
	if err != nil {
		return c.causeOr(ctx, err)
	}
	if body == nil {
		return agentapi.ErrNoResponseBody
	}
	defer body.Close()

	var r io.Reader = body
	if wd != nil {
		r = wd.wrap(body)
	}

	var botID, botText string
	for ev, err := range stream.Events(r) {
		if err != nil {
			var decodeErr *stream.DecodeError
			if errors.As(err, &decodeErr) {
				c.recordDecodeError(decodeErr)
				continue
			}
			return c.causeOr(ctx, fmt.Errorf("read stream: %w", err))
		}

		switch ev.Type {
		case stream.EventFinalResponse:
			if ev.Data.Text == "" {
				continue
			}
			if botID == "" {
				msg := c.newMessage(ev.Data.Text, domain.SenderBot)
				botID, botText = msg.ID, msg.Text
				c.store.Append(msg)
			} else {
				botText += ev.Data.Text
				c.store.UpdateByID(botID, botText)
			}
			c.notify()
		case stream.EventError:
			return &ServerError{Message: ev.Data.Message}
		default:
			c.logger.Debug("ignoring stream event",
				zap.String("event_type", string(ev.Type)),
				zap.String("author", ev.Data.Author),
			)
		}
	}
	return nil
}

// causeOr prefiere la causa de cancelacion del contexto (por ejemplo el
// timeout de lectura) sobre el error de transporte que provoco.
func (c *Client) causeOr(ctx context.Context, err error) error {
	if cause := context.Cause(ctx); cause != nil {
		if errors.Is(cause, ErrReadTimeout) {
			return cause
		}
	}
	return err
}

func (c *Client) fail(err error) {
	msg := strings.TrimSpace(err.Error())
	if msg == "" {
		msg = unknownErrorMessage
	}
	c.logger.Warn("send failed", zap.String("session_id", c.sessionID), zap.Error(err))

	c.setError(msg)
	c.store.Append(c.newMessage("Error: "+msg, domain.SenderBot))
	c.notify()
}

func (c *Client) recordDecodeError(err *stream.DecodeError) {
	c.mu.Lock()
	c.decodeErrors++
	c.mu.Unlock()
	c.logger.Warn("skipping malformed stream event", zap.String("session_id", c.sessionID), zap.Error(err))
}

func (c *Client) newMessage(text string, sender domain.Sender) domain.Message {
	return domain.Message{
		ID:        c.newID(),
		Text:      text,
		Sender:    sender,
		Timestamp: c.now(),
	}
}

func (c *Client) setError(msg string) {
	c.mu.Lock()
	c.lastErr = msg
	c.mu.Unlock()
}

func (c *Client) notify() {
	if c.observer != nil {
		c.observer(c.State())
	}
}

// ClearError borra el ultimo error. Sin error es un no-op.
func (c *Client) ClearError() {
	c.mu.Lock()
	changed := c.lastErr != ""
	c.lastErr = ""
	c.mu.Unlock()
	if changed {
		c.notify()
	}
}

// SessionID devuelve el id de sesion de la instalacion.
func (c *Client) SessionID() string {
	return c.sessionID
}

// Messages devuelve una copia del transcript en orden.
func (c *Client) Messages() []domain.Message {
	return c.store.Messages()
}

// IsSending reporta si hay un envio en curso.
func (c *Client) IsSending() bool {
	return c.sending.Load()
}

// Err devuelve el ultimo error legible, o "" si no hay.
func (c *Client) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

// State devuelve una foto consistente para renderizar.
func (c *Client) State() State {
	c.mu.RLock()
	lastErr, decodeErrors := c.lastErr, c.decodeErrors
	c.mu.RUnlock()
	return State{
		SessionID:    c.sessionID,
		Messages:     c.store.Messages(),
		IsSending:    c.sending.Load(),
		Error:        lastErr,
		DecodeErrors: decodeErrors,
	}
}
