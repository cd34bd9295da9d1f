package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satriahrh/cocoa-fruit/voicechat/config"
	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print a saved transcript",
		Long:  "Prints the most recently saved chat session, or the one named with --session.",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().String("session", "", "session id to print")
	cmd.Flags().Bool("json", false, "print the turns as JSON")
	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	// Only the storage settings are needed here, so the backend is not validated.
	loadEnv(envFile(cmd))
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, closeStore, err := newStore(ctx, cfg)
	if err != nil {
		return err
	}
	if closeStore != nil {
		defer closeStore()
	}

	sessionID, _ := cmd.Flags().GetString("session")
	var turns []domain.ChatTurn
	if sessionID != "" {
		turns, err = s.Load(ctx, sessionID)
	} else {
		sessionID, turns, err = s.Latest(ctx)
	}
	if err != nil {
		return err
	}

	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		encoder := json.NewEncoder(cmd.OutOrStdout())
		encoder.SetIndent("", "  ")
		return encoder.Encode(turns)
	}
	printTranscript(cmd.OutOrStdout(), sessionID, turns)
	return nil
}

func printTranscript(w io.Writer, sessionID string, turns []domain.ChatTurn) {
	fmt.Fprintf(w, "Session %s (%d turns)\n\n", sessionID, len(turns))
	for _, turn := range turns {
		fmt.Fprintf(w, "[%s] %s: %s\n", turn.Timestamp.Local().Format("2006-01-02 15:04:05"), roleLabel(turn.Role), turn.Content)
	}
}

func roleLabel(role domain.Role) string {
	if role == "" {
		return "Unknown"
	}
	return strings.ToUpper(string(role[:1])) + string(role[1:])
}
