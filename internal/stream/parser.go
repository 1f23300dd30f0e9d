package stream

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"iter"
)

// DefaultChunkSize es el tamano de lectura usado por Events.
const DefaultChunkSize = 4 * 1024

// Result es la salida del parser para una linea completa: un evento o un
// *DecodeError.
type Result struct {
	Event Event
	Err   error
}

// Parser acumula bytes hasta completar lineas. Una instancia por stream.
type Parser struct {
	buf []byte
}

// NewParser crea un parser vacio.
func NewParser() *Parser {
	return &Parser{}
}

// Feed agrega un trozo y devuelve los resultados de las lineas que quedaron
// completas. Una linea partida entre trozos queda en el buffer hasta que
// llegue su '\n'.
func (p *Parser) Feed(chunk []byte) []Result {
	p.buf = append(p.buf, chunk...)

	var out []Result
	for {
		i := bytes.IndexByte(p.buf, '\n')
		if i < 0 {
			break
		}
		line := p.buf[:i]
		if r, ok := decodeLine(line); ok {
			out = append(out, r)
		}
		p.buf = p.buf[i+1:]
	}

	// Compactamos para no retener el array original indefinidamente.
	if len(p.buf) == 0 {
		p.buf = nil
	} else if cap(p.buf) > 2*len(p.buf)+DefaultChunkSize {
		p.buf = append([]byte(nil), p.buf...)
	}
	return out
}

// Flush decodifica una ultima linea sin '\n' al final del stream.
func (p *Parser) Flush() []Result {
	line := p.buf
	p.buf = nil
	if r, ok := decodeLine(line); ok {
		return []Result{r}
	}
	return nil
}

// Pending reporta cuantos bytes de una linea incompleta hay en el buffer.
func (p *Parser) Pending() int {
	return len(p.buf)
}

func decodeLine(line []byte) (Result, bool) {
	line = bytes.TrimSpace(line)
	if len(line) == 0 {
		return Result{}, false
	}
	var ev Event
	if err := json.Unmarshal(line, &ev); err != nil {
		return Result{Err: &DecodeError{Line: append([]byte(nil), line...), Err: err}}, true
	}
	return Result{Event: ev}, true
}

// Events expone r como una secuencia perezosa de eventos. Cada iteracion
// bloquea en el Read del trozo siguiente. Las lineas invalidas llegan como
// *DecodeError y la secuencia continua; un error de lectura llega una vez y
// termina la secuencia. io.EOF termina sin error.
func Events(r io.Reader) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		p := NewParser()
		chunk := make([]byte, DefaultChunkSize)
		for {
			n, err := r.Read(chunk)
			if n > 0 {
				for _, res := range p.Feed(chunk[:n]) {
					if !yield(res.Event, res.Err) {
						return
					}
				}
			}
			if errors.Is(err, io.EOF) {
				for _, res := range p.Flush() {
					if !yield(res.Event, res.Err) {
						return
					}
				}
				return
			}
			if err != nil {
				yield(Event{}, err)
				return
			}
		}
	}
}
