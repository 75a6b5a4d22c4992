/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"assistbot/pkg/config"
	"assistbot/pkg/dispatch"
	"assistbot/pkg/gateway"
	"assistbot/pkg/rich"
	"assistbot/pkg/ui/chat"
)

var (
	chatMessage string
	chatSender  string
)

// chatCmd represents the chat command
var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to the assistant in a local terminal simulator",
	Long:  "Runs the dispatch engine against a console transport. Type a message, or /N to press option N of the last menu.",
	Run: func(cmd *cobra.Command, args []string) {
		message := resolveMessage(args)

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		// The terminal UI owns the screen.
		slog.SetDefault(slog.New(slog.DiscardHandler))
		log := slog.Default()

		ctx := cmd.Context()

		deps, closeDeps, err := buildDependencies(ctx, cfg, log)
		if err != nil {
			fmt.Printf("failed to initialize dependencies: %v\n", err)
			return
		}
		defer func() { _ = closeDeps() }()

		console := chat.NewConsole()
		engine, err := newChatEngine(cfg, deps, console, log)
		if err != nil {
			fmt.Printf("failed to initialize engine: %v\n", err)
			return
		}

		info := chat.Info{Sender: chatSender, Backend: backendName(cfg), State: cfg.State.Backend}
		if message != "" {
			err = chat.RunOneShot(ctx, console, engine.Handle, info, message)
		} else {
			err = chat.RunInteractive(ctx, console, engine.Handle, info)
		}
		if err != nil {
			fmt.Printf("chat failed: %v\n", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	chatCmd.Flags().StringVarP(&chatMessage, "message", "m", "", "send one message and print the replies")
	chatCmd.Flags().StringVar(&chatSender, "sender", "local", "sender id used for conversation state")
}

func resolveMessage(args []string) string {
	if value := strings.TrimSpace(chatMessage); value != "" {
		return value
	}

	return strings.TrimSpace(strings.Join(args, " "))
}

func newChatEngine(cfg *config.Config, deps gateway.Dependencies, console *chat.Console, log *slog.Logger) (*dispatch.Engine, error) {
	return dispatch.New(dispatch.Dependencies{
		Sender:    rich.NewMessenger(console, rich.WithLogger(log)),
		Store:     deps.Store,
		Weather:   deps.Weather,
		Food:      deps.Food,
		Responder: deps.Responder,
	},
		dispatch.WithConfig(cfg.Dispatch),
		dispatch.WithLogger(log),
	)
}
