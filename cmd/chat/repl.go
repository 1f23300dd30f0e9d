package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"securebank-chat/internal/chat"
)

func runREPL(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	p := newPrinter(out)
	client, err := a.newClient(cmd.Context(), chat.WithObserver(p.observe))
	if err != nil {
		return err
	}
	return repl(cmd.Context(), client, p, cmd.InOrStdin(), out)
}

func repl(ctx context.Context, client *chat.Client, p *printer, in io.Reader, out io.Writer) error {
	for _, m := range client.Messages() {
		printMessage(out, m)
	}

	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "you> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}
		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "/clear":
			client.ClearError()
			continue
		}

		p.begin(len(client.Messages()))
		err := client.Send(ctx, line)
		p.end()
		if errors.Is(err, chat.ErrSendInProgress) {
			fmt.Fprintln(out, "still waiting for the previous reply")
			continue
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

func runSend(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.newClient(cmd.Context(), chat.WithGreeting(""))
	if err != nil {
		return err
	}
	text := strings.Join(args, " ")
	if strings.TrimSpace(text) == "" {
		return errors.New("message text is empty")
	}
	before := len(client.Messages())
	if err := client.Send(cmd.Context(), text); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	// Salta el mensaje del usuario.
	for _, m := range client.Messages()[before+1:] {
		printMessage(out, m)
	}
	if msg := client.Err(); msg != "" {
		return errors.New(msg)
	}
	return nil
}

func runSession(cmd *cobra.Command, _ []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	client, err := a.newClient(cmd.Context(), chat.WithGreeting(""))
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), client.SessionID())
	return nil
}
