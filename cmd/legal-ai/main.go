package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/iamvkosarev/legal-ai-assistant/config"
	"github.com/iamvkosarev/legal-ai-assistant/internal/app"
	"github.com/iamvkosarev/legal-ai-assistant/internal/model"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	cfgPath  string
	envPath  string
	modeName string
	frontend string
	volume   float64
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "legal-ai",
		Short: "Nigerian legal AI assistant",
		Long: `legal-ai answers questions about Nigerian law in four modes:
standard, deep_think, research and guided_learning.

Start a chat:       legal-ai --mode research
Serve on Telegram:  legal-ai --frontend telegram
Saved chats:        legal-ai history
Read text aloud:    legal-ai say "Your rights as a tenant"`,
		SilenceUsage: true,
		RunE:         runChat,
	}

	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "config/config.yaml", "config file path")
	rootCmd.PersistentFlags().StringVar(&envPath, "env", ".env", "dotenv file with secrets")
	rootCmd.PersistentFlags().StringVarP(&modeName, "mode", "m", string(model.ChatModeStandard), "chat mode")
	rootCmd.PersistentFlags().StringVar(&frontend, "frontend", app.FrontendTerminal, "terminal or telegram")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "chat",
		Short: "Start a chat (default command)",
		RunE:  runChat,
	})
	rootCmd.AddCommand(historyCmd())
	rootCmd.AddCommand(sayCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newApp() (*app.App, error) {
	if envPath != "" {
		if err := godotenv.Load(envPath); err != nil && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load %s: %w", envPath, err)
		}
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return app.New(cfg)
}

func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func runChat(cmd *cobra.Command, args []string) error {
	mode, err := model.ParseChatMode(modeName)
	if err != nil {
		return err
	}
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	if err = a.Run(ctx, app.Options{Frontend: frontend, Mode: mode}); err != nil {
		a.Logger().WithError(err).Error("app stopped")
		return err
	}
	return nil
}

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List saved chats",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()
			return a.PrintHistory(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func sayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "say <text>",
		Short: "Read text aloud with the assistant's voice",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signalContext(cmd.Context())
			defer stop()
			return a.Say(ctx, strings.Join(args, " "), volume)
		},
	}
	cmd.Flags().Float64Var(&volume, "volume", 1.0, "playback volume between 0 and 1")
	return cmd
}
