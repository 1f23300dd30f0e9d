package chat

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"
)

var ErrReadTimeout = errors.New("agent backend stopped responding")

// watchdog cancela el turno si pasa mas de d sin actividad. Al dispararse
// cancela el contexto y cierra el body, para destrabar lecturas que no miran
// el contexto.
type watchdog struct {
	d     time.Duration
	timer *time.Timer

	mu    sync.Mutex
	body  io.Closer
	fired bool
}

func startWatchdog(d time.Duration, cancel context.CancelCauseFunc) *watchdog {
	w := &watchdog{d: d}
	w.timer = time.AfterFunc(d, func() {
		w.mu.Lock()
		w.fired = true
		body := w.body
		w.mu.Unlock()
		cancel(ErrReadTimeout)
		if body != nil {
			body.Close()
		}
	})
	return w
}

func (w *watchdog) wrap(body io.ReadCloser) io.Reader {
	w.mu.Lock()
	w.body = body
	fired := w.fired
	w.mu.Unlock()
	if fired {
		body.Close()
	}
	return &idleReader{r: body, w: w}
}

func (w *watchdog) stop() {
	w.timer.Stop()
}

type idleReader struct {
	r io.Reader
	w *watchdog
}

func (ir *idleReader) Read(p []byte) (int, error) {
	n, err := ir.r.Read(p)
	if n > 0 {
		ir.w.timer.Reset(ir.w.d)
	}
	return n, err
}
