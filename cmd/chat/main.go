package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "chat",
	Short: "SecureBank support chat client",
	Long: `Chat with the SecureBank support agent from the terminal.

Without a subcommand an interactive session starts. The session id is stored
locally (or in Redis) so the conversation continues across runs.`,
	SilenceUsage: true,
	RunE:         runREPL,
}

var sendCmd = &cobra.Command{
	Use:   "send <text>",
	Short: "Send one message and print the reply",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSend,
}

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Print the persisted session id",
	Args:  cobra.NoArgs,
	RunE:  runSession,
}

var apiURLFlag string

func init() {
	rootCmd.PersistentFlags().StringVar(&apiURLFlag, "api-url", "", "agent backend base URL (overrides CHAT_API_URL)")
	rootCmd.AddCommand(sendCmd, sessionCmd)
}

func main() {
	_ = godotenv.Load()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
