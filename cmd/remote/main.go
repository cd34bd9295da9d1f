// Command remote follows a voicechat serve session from another terminal.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/config"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "remote",
		Short:        "Follow and type into a voicechat serve session",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE:         run,
	}
	cmd.Flags().String("server", "", "server base URL (defaults to VOICECHAT_URL or http://localhost:8080)")
	return cmd
}

func run(cmd *cobra.Command, args []string) error {
	gotenv.Load()

	server, _ := cmd.Flags().GetString("server")
	if server == "" {
		server = config.GetEnvOrDefault("VOICECHAT_URL", "http://localhost:8080")
	}

	token, err := fetchToken(server, os.Getenv("API_KEY"), os.Getenv("API_SECRET"))
	if err != nil {
		return err
	}

	conn, err := dial(server, token)
	if err != nil {
		return err
	}
	defer conn.Close()

	out := cmd.OutOrStdout()
	go func() {
		for {
			_, message, err := conn.ReadMessage()
			if err != nil {
				log.With(zap.Error(err)).Debug("Error reading message")
				fmt.Fprintln(out, "connection closed")
				os.Exit(0)
			}
			line, err := formatFrame(message)
			if err != nil {
				log.With(zap.Error(err)).Warn("Unreadable frame")
				continue
			}
			fmt.Fprintln(out, line)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		conn.Close()
		os.Exit(0)
	}()

	reader := bufio.NewReader(cmd.InOrStdin())
	fmt.Fprintln(out, "Type a message and press enter (type 'exit' to quit):")
	for {
		text, err := reader.ReadString('\n')
		text = strings.TrimSpace(text)
		if text == "exit" || (err != nil && text == "") {
			return nil
		}
		if text == "" {
			continue
		}
		frame, ferr := submitFrame(text)
		if ferr != nil {
			return ferr
		}
		if werr := conn.WriteMessage(websocket.TextMessage, frame); werr != nil {
			return fmt.Errorf("sending message: %w", werr)
		}
		if err != nil {
			return nil
		}
	}
}
