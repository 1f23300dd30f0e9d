package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"securebank-chat/internal/agentapi"
	"securebank-chat/internal/domain"
	"securebank-chat/internal/sessionstore"
)

const (
	hiEvent      = `{"event_type":"FINAL_RESPONSE","data":{"text":"Hi "}}` + "\n"
	thereEvent   = `{"event_type":"FINAL_RESPONSE","data":{"text":"there!"}}` + "\n"
	backendError = `{"event_type":"ERROR","data":{"message":"backend down"}}` + "\n"
)

func sequentialIDs() func() string {
	var n atomic.Int64
	return func() string {
		return fmt.Sprintf("id-%d", n.Add(1))
	}
}

func newTestClient(t *testing.T, transport agentapi.Transport, opts ...Option) *Client {
	t.Helper()
	base := []Option{WithIDGenerator(sequentialIDs()), WithGreeting("")}
	client, err := New(context.Background(), transport, sessionstore.NewMemoryStore(), append(base, opts...)...)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	return client
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func texts(msgs []domain.Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = string(m.Sender) + ":" + m.Text
	}
	return out
}

func TestNew_SeedsGreetingAndSession(t *testing.T) {
	store := sessionstore.NewMemoryStore()
	client, err := New(context.Background(), &agentapi.MockTransport{}, store)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}

	msgs := client.Messages()
	if len(msgs) != 1 || msgs[0].Sender != domain.SenderBot || msgs[0].Text != DefaultGreeting {
		t.Fatalf("expected greeting seed, got %+v", msgs)
	}
	if client.SessionID() == "" {
		t.Fatalf("expected session id")
	}
	rec, err := store.Load(context.Background())
	if err != nil || rec.SessionID != client.SessionID() {
		t.Fatalf("expected session persisted, got %+v, %v", rec, err)
	}

	again, err := New(context.Background(), &agentapi.MockTransport{}, store)
	if err != nil {
		t.Fatalf("New err: %v", err)
	}
	if again.SessionID() != client.SessionID() {
		t.Fatalf("expected session reused, got %s want %s", again.SessionID(), client.SessionID())
	}
}

func TestNew_RequiresTransport(t *testing.T) {
	if _, err := New(context.Background(), nil, sessionstore.NewMemoryStore()); !errors.Is(err, ErrTransportNotConfigured) {
		t.Fatalf("expected ErrTransportNotConfigured, got %v", err)
	}
}

func TestSend_StreamsIntoSingleBotMessage(t *testing.T) {
	transport := &agentapi.MockTransport{Body: hiEvent + thereEvent}
	var updates []State
	client := newTestClient(t, transport, WithObserver(func(s State) { updates = append(updates, s) }))

	if err := client.Send(context.Background(), "Hello"); err != nil {
		t.Fatalf("Send err: %v", err)
	}

	got := texts(client.Messages())
	want := []string{"user:Hello", "bot:Hi there!"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected transcript %v", got)
	}
	if client.IsSending() {
		t.Fatalf("expected isSending false after completion")
	}
	if client.Err() != "" {
		t.Fatalf("expected no error, got %q", client.Err())
	}
	if len(transport.Requests) != 1 || transport.Requests[0].UserInput != "Hello" || transport.Requests[0].SessionID != client.SessionID() {
		t.Fatalf("unexpected requests %+v", transport.Requests)
	}

	// user append, first fragment, second fragment, release.
	if len(updates) != 4 {
		t.Fatalf("expected 4 updates, got %d", len(updates))
	}
	if !updates[1].IsSending || updates[1].Messages[1].Text != "Hi " {
		t.Fatalf("expected first fragment rendered while sending, got %+v", updates[1])
	}
	if updates[3].IsSending {
		t.Fatalf("expected final update with isSending false")
	}
}

func TestSend_ServerErrorEvent(t *testing.T) {
	transport := &agentapi.MockTransport{Body: backendError + thereEvent}
	client := newTestClient(t, transport)

	_ = client.Send(context.Background(), "Help")

	got := texts(client.Messages())
	want := []string{"user:Help", "bot:Error: backend down"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected transcript %v", got)
	}
	if client.Err() != "backend down" {
		t.Fatalf("expected error backend down, got %q", client.Err())
	}
	if client.IsSending() {
		t.Fatalf("expected isSending false")
	}
}

func TestSend_ErrorAfterPartialResponseKeepsPartial(t *testing.T) {
	transport := &agentapi.MockTransport{Body: hiEvent + backendError}
	client := newTestClient(t, transport)

	_ = client.Send(context.Background(), "Help")

	got := texts(client.Messages())
	want := []string{"user:Help", "bot:Hi ", "bot:Error: backend down"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected transcript %v", got)
	}
}

func TestSend_EmptyInputIsNoop(t *testing.T) {
	transport := &agentapi.MockTransport{Body: hiEvent}
	client := newTestClient(t, transport)

	for _, in := range []string{"", "   ", "\n\t"} {
		if err := client.Send(context.Background(), in); err != nil {
			t.Fatalf("expected nil for empty input, got %v", err)
		}
	}
	if len(client.Messages()) != 0 {
		t.Fatalf("expected no messages, got %+v", client.Messages())
	}
	if transport.Calls() != 0 {
		t.Fatalf("expected no network call, got %d", transport.Calls())
	}
}

type pipeTransport struct {
	body    io.ReadCloser
	started chan struct{}
	calls   atomic.Int32
	once    sync.Once
}

func (p *pipeTransport) Stream(context.Context, agentapi.StreamRequest) (io.ReadCloser, error) {
	p.calls.Add(1)
	p.once.Do(func() { close(p.started) })
	return p.body, nil
}

func TestSend_ConcurrentSendRejected(t *testing.T) {
	pr, pw := io.Pipe()
	transport := &pipeTransport{body: pr, started: make(chan struct{})}
	client := newTestClient(t, transport)

	done := make(chan error, 1)
	go func() {
		done <- client.Send(context.Background(), "first")
	}()

	<-transport.started
	if _, err := io.WriteString(pw, hiEvent); err != nil {
		t.Fatalf("write: %v", err)
	}
	waitFor(t, func() bool { return len(client.Messages()) == 2 })

	if !client.IsSending() {
		t.Fatalf("expected isSending while streaming")
	}
	if err := client.Send(context.Background(), "second"); !errors.Is(err, ErrSendInProgress) {
		t.Fatalf("expected ErrSendInProgress, got %v", err)
	}

	if _, err := io.WriteString(pw, thereEvent); err != nil {
		t.Fatalf("write: %v", err)
	}
	pw.Close()

	if err := <-done; err != nil {
		t.Fatalf("first send err: %v", err)
	}

	got := texts(client.Messages())
	want := []string{"user:first", "bot:Hi there!"}
	if strings.Join(got, "|") != strings.Join(want, "|") {
		t.Fatalf("unexpected transcript %v", got)
	}
	if transport.calls.Load() != 1 {
		t.Fatalf("expected one stream, got %d", transport.calls.Load())
	}
	if client.IsSending() {
		t.Fatalf("expected isSending false")
	}
}

func TestSend_TransportFailures(t *testing.T) {
	cases := []struct {
		name      string
		transport *agentapi.MockTransport
		wantErr   string
	}{
		{
			name:      "network error",
			transport: &agentapi.MockTransport{Err: errors.New("do request: connection refused")},
			wantErr:   "do request: connection refused",
		},
		{
			name:      "status error",
			transport: &agentapi.MockTransport{Err: &agentapi.StatusError{StatusCode: 503}},
			wantErr:   "agent backend error: status=503",
		},
		{
			name:      "nil body",
			transport: &agentapi.MockTransport{NilBody: true},
			wantErr:   "response body is null",
		},
		{
			name:      "error without message",
			transport: &agentapi.MockTransport{Body: `{"event_type":"ERROR","data":{}}` + "\n"},
			wantErr:   unknownErrorMessage,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, tc.transport)
			if err := client.Send(context.Background(), "hi"); err != nil {
				t.Fatalf("expected failures absorbed, got %v", err)
			}
			if client.Err() != tc.wantErr {
				t.Fatalf("expected error %q, got %q", tc.wantErr, client.Err())
			}
			msgs := client.Messages()
			if len(msgs) != 2 || msgs[0].Text != "hi" || msgs[1].Text != "Error: "+tc.wantErr || msgs[1].Sender != domain.SenderBot {
				t.Fatalf("unexpected transcript %v", texts(msgs))
			}
			if client.IsSending() {
				t.Fatalf("expected isSending false")
			}
		})
	}
}

type panicTransport struct{}

func (panicTransport) Stream(context.Context, agentapi.StreamRequest) (io.ReadCloser, error) {
	panic("boom")
}

func TestSend_PanicIsAbsorbed(t *testing.T) {
	client := newTestClient(t, panicTransport{})
	if err := client.Send(context.Background(), "hi"); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	if client.Err() != "unexpected failure: boom" {
		t.Fatalf("unexpected error %q", client.Err())
	}
	if client.IsSending() {
		t.Fatalf("expected latch released after panic")
	}
}

func TestSend_MalformedLinesSkipped(t *testing.T) {
	transport := &agentapi.MockTransport{Body: hiEvent + "{oops\n" + `{"event_type":"INTERMEDIATE","data":{"author":"root_agent"}}` + "\n" + thereEvent}
	client := newTestClient(t, transport)

	_ = client.Send(context.Background(), "Hello")

	state := client.State()
	if state.Error != "" {
		t.Fatalf("expected no error, got %q", state.Error)
	}
	if state.DecodeErrors != 1 {
		t.Fatalf("expected 1 decode error, got %d", state.DecodeErrors)
	}
	if got := texts(state.Messages); strings.Join(got, "|") != "user:Hello|bot:Hi there!" {
		t.Fatalf("unexpected transcript %v", got)
	}
}

func TestSend_NoFinalResponseLeavesNoBotMessage(t *testing.T) {
	client := newTestClient(t, &agentapi.MockTransport{Body: `{"event_type":"FINAL_RESPONSE","data":{"text":""}}` + "\n"})
	_ = client.Send(context.Background(), "Hello")

	if got := texts(client.Messages()); strings.Join(got, "|") != "user:Hello" {
		t.Fatalf("unexpected transcript %v", got)
	}
	if client.Err() != "" {
		t.Fatalf("expected success, got %q", client.Err())
	}
}

func TestSend_ErrorClearedOnNextSend(t *testing.T) {
	transport := &agentapi.MockTransport{Body: backendError}
	client := newTestClient(t, transport)

	_ = client.Send(context.Background(), "first")
	if client.Err() == "" {
		t.Fatalf("expected error after first send")
	}

	transport.Body = hiEvent
	_ = client.Send(context.Background(), "second")
	if client.Err() != "" {
		t.Fatalf("expected error cleared, got %q", client.Err())
	}
	if got := texts(client.Messages()); strings.Join(got, "|") != "user:first|bot:Error: backend down|user:second|bot:Hi " {
		t.Fatalf("unexpected transcript %v", got)
	}
}

func TestSend_ReadTimeout(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	transport := &pipeTransport{body: pr, started: make(chan struct{})}
	client := newTestClient(t, transport, WithReadTimeout(50*time.Millisecond))

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = client.Send(context.Background(), "hello")
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("expected send to give up after idle timeout")
	}
	if client.Err() != ErrReadTimeout.Error() {
		t.Fatalf("expected read timeout error, got %q", client.Err())
	}
}

type ctxTransport struct{}

func (ctxTransport) Stream(ctx context.Context, _ agentapi.StreamRequest) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	return io.NopCloser(strings.NewReader(hiEvent)), nil
}

func TestSend_ContextCanceled(t *testing.T) {
	client := newTestClient(t, ctxTransport{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = client.Send(ctx, "hello")
	if client.Err() != "do request: context canceled" {
		t.Fatalf("unexpected error %q", client.Err())
	}
}

func TestClearError_Idempotent(t *testing.T) {
	notified := 0
	client := newTestClient(t, &agentapi.MockTransport{Body: backendError}, WithObserver(func(State) { notified++ }))

	client.ClearError()
	if notified != 0 || client.Err() != "" {
		t.Fatalf("expected no-op clear, got notified=%d err=%q", notified, client.Err())
	}

	_ = client.Send(context.Background(), "x")
	before := notified
	client.ClearError()
	if client.Err() != "" {
		t.Fatalf("expected error cleared")
	}
	if notified != before+1 {
		t.Fatalf("expected one notification on clear, got %d", notified-before)
	}
	client.ClearError()
	if notified != before+1 {
		t.Fatalf("expected second clear to be a no-op")
	}
	if len(client.Messages()) != 2 {
		t.Fatalf("expected transcript untouched by clear, got %d messages", len(client.Messages()))
	}
}

func TestSend_MessagesHaveUniqueIDsAndTimestamps(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	client := newTestClient(t, &agentapi.MockTransport{Body: hiEvent + thereEvent}, WithClock(func() time.Time { return fixed }))

	_ = client.Send(context.Background(), "one")
	_ = client.Send(context.Background(), "two")

	seen := map[string]bool{}
	for _, m := range client.Messages() {
		if seen[m.ID] {
			t.Fatalf("duplicated id %s", m.ID)
		}
		seen[m.ID] = true
		if !m.Timestamp.Equal(fixed) {
			t.Fatalf("expected clock timestamp, got %v", m.Timestamp)
		}
	}
	if len(seen) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(seen))
	}
}
