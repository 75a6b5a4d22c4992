package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"assistbot/pkg/config"
)

var (
	configPath string
	envFiles   []string
)

var rootCmd = &cobra.Command{
	Use:   "assistbot",
	Short: "French conversational assistant for WhatsApp and Telegram",
	Long:  "Assistbot answers weather, news, entertainment, food and free-form questions over WhatsApp and Telegram, or locally in a terminal simulator.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		_ = args

		if err := config.LoadEnvFiles(envFiles...); err != nil {
			return err
		}

		if path := strings.TrimSpace(configPath); path != "" {
			if err := os.Setenv("ASSISTBOT_CONFIG", path); err != nil {
				return fmt.Errorf("set config path: %w", err)
			}
		}

		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command and exits non-zero on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.json (overrides ASSISTBOT_CONFIG)")
	rootCmd.PersistentFlags().StringSliceVar(&envFiles, "env-file", []string{".env"}, ".env files loaded before the config")
}
