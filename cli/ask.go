package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
)

// NewAskCmd creates the ask command.
func NewAskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ask <prompt>",
		Short: "Send one prompt and print the response",
		Args:  cobra.MinimumNArgs(1),
		RunE:  runAsk,
	}
	cmd.Flags().Float64("creativity", 0, "sampling temperature, 0.1 to 1.0 (defaults to the settings file)")
	cmd.Flags().Duration("timeout", 2*time.Minute, "how long to wait for the response")
	cmd.Flags().Bool("raw", false, "print the response without markdown rendering")
	cmd.Flags().Bool("save", false, "store the exchange like a chat session")
	return cmd
}

func runAsk(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(envFile(cmd))
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	timeout, _ := cmd.Flags().GetDuration("timeout")
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	a, err := newApp(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	creativity := cfg.UI.Creativity
	if cmd.Flags().Changed("creativity") {
		creativity, _ = cmd.Flags().GetFloat64("creativity")
	}
	coordinator := a.coordinator(nil, creativity)

	if err := coordinator.Submit(ctx, strings.Join(args, " ")); err != nil {
		return err
	}
	outcome, err := coordinator.Next(ctx)
	if err != nil {
		return fmt.Errorf("waiting for response: %w", err)
	}
	coordinator.HandleOutcome(ctx, outcome)

	if save, _ := cmd.Flags().GetBool("save"); save {
		if err := coordinator.Persist(ctx, a.store); err != nil {
			return err
		}
	}

	if !outcome.OK() {
		return &domain.ServiceError{Op: "predict", Err: errors.New(outcome.Reason)}
	}

	out := outcome.Text
	if raw, _ := cmd.Flags().GetBool("raw"); !raw {
		if rendered, err := glamour.Render(out, "auto"); err == nil {
			out = rendered
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), strings.TrimRight(out, "\n"))
	return nil
}
