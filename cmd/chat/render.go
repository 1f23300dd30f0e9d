package main

import (
	"fmt"
	"io"

	"securebank-chat/internal/chat"
	"securebank-chat/internal/domain"
)

// printer escribe el texto del bot a medida que crece. Solo mira los mensajes
// agregados despues de mark.
type printer struct {
	out     io.Writer
	mark    int
	current string
	printed map[string]int
}

func newPrinter(out io.Writer) *printer {
	return &printer{out: out, printed: make(map[string]int)}
}

// begin fija el largo del transcript antes de un envio.
func (p *printer) begin(transcriptLen int) {
	p.mark = transcriptLen
	p.current = ""
	p.printed = make(map[string]int)
}

func (p *printer) observe(st chat.State) {
	if p.mark > len(st.Messages) {
		return
	}
	for _, m := range st.Messages[p.mark:] {
		if m.Sender != domain.SenderBot {
			continue
		}
		n, seen := p.printed[m.ID]
		if len(m.Text) <= n {
			continue
		}
		if !seen || m.ID != p.current {
			if p.current != "" {
				fmt.Fprintln(p.out)
			}
			if !seen {
				fmt.Fprint(p.out, "bot> ")
			}
			p.current = m.ID
		}
		fmt.Fprint(p.out, m.Text[n:])
		p.printed[m.ID] = len(m.Text)
	}
}

// end cierra la linea del ultimo mensaje impreso.
func (p *printer) end() {
	if p.current != "" {
		fmt.Fprintln(p.out)
	}
	p.current = ""
}

func printMessage(out io.Writer, m domain.Message) {
	prefix := "bot> "
	if m.Sender == domain.SenderUser {
		prefix = "you> "
	}
	fmt.Fprintln(out, prefix+m.Text)
}
