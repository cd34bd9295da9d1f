// Package cli holds the voicechat commands.
package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/adapters/tui"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

// NewRootCmd creates the voicechat command. Without a subcommand it opens the chat UI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "voicechat",
		Short: "Chat with a hosted language model by keyboard or voice",
		Long: `Opens an interactive chat. Type a message and press enter, or press ctrl+r and speak.
Responses can be read aloud with ctrl+s once one has arrived.`,
		SilenceUsage: true,
		RunE:         runChat,
	}
	cmd.PersistentFlags().String("env-file", ".env", "dotenv file loaded before reading the environment")
	cmd.Flags().String("theme", "", "color theme, light or dark (defaults to the settings file)")

	cmd.AddCommand(NewAskCmd(), NewServeCmd(), NewHistoryCmd())
	return cmd
}

func envFile(cmd *cobra.Command) string {
	path, _ := cmd.Flags().GetString("env-file")
	return path
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(envFile(cmd))
	if err != nil {
		return err
	}

	// The UI owns the terminal.
	log.ToFile(cfg.LogFile)
	defer log.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	theme := cfg.UI.Theme
	if flag, _ := cmd.Flags().GetString("theme"); flag != "" {
		theme = flag
	}

	coordinator := a.coordinator(nil, cfg.UI.Creativity)
	model := tui.New(ctx, coordinator, tui.Options{Theme: theme, Store: a.store})
	log.WithCtx(ctx).Info("Chat started", zap.String("session_id", coordinator.SessionID()), zap.String("backend", cfg.Backend))

	if _, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx)).Run(); err != nil {
		return fmt.Errorf("running chat UI: %w", err)
	}
	return nil
}
