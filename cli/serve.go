package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	httpadapter "github.com/satriahrh/cocoa-fruit/voicechat/adapters/http"
	"github.com/satriahrh/cocoa-fruit/voicechat/adapters/message_broker"
	"github.com/satriahrh/cocoa-fruit/voicechat/adapters/websocket"
	"github.com/satriahrh/cocoa-fruit/voicechat/config"
	"github.com/satriahrh/cocoa-fruit/voicechat/usecase"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

const shutdownTimeout = 10 * time.Second

// NewServeCmd creates the serve command.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve one chat session over HTTP and websocket",
		Long: `Runs a single chat session on this host and exposes it to remote clients.
Clients obtain a token with their API key and secret, post messages, and follow the
transcript on /ws. Voice capture and playback happen on this host.`,
		Args: cobra.NoArgs,
		RunE: runServe,
	}
	cmd.Flags().String("addr", "", "listen address (defaults to SERVER_ADDR)")
	return cmd
}

// submitter adapts the loop for websocket submit frames.
func submitter(loop *usecase.Loop) websocket.SubmitFunc {
	return func(ctx context.Context, text string) error {
		return loop.Do(ctx, func(ctx context.Context, c *usecase.Coordinator) error {
			return c.Submit(ctx, text)
		})
	}
}

// newEcho builds the server with the middleware stack used in front of the chat API.
func newEcho(cfg *config.Config, loop *usecase.Loop, ws *websocket.Server) *echo.Echo {
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(middleware.RateLimiter(middleware.NewRateLimiterMemoryStore(20)))
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderOrigin,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderAuthorization,
			"X-API-Key",
			"X-API-Secret",
		},
		MaxAge: 86400,
	}))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:    true,
		LogStatus: true,
		LogMethod: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			log.WithCtx(c.Request().Context()).Info("Request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status))
			return nil
		},
	}))

	handler := httpadapter.NewChatHandler(loop, httpadapter.Credentials{
		APIKey:    cfg.APIKey,
		APISecret: cfg.APISecret,
		JWTSecret: cfg.JWTSecret,
	})
	handler.Routes(e, ws.Handler)
	return e
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(envFile(cmd))
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}
	addr := cfg.ServerAddr
	if flag, _ := cmd.Flags().GetString("addr"); flag != "" {
		addr = flag
	}

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.Close()

	broker := message_broker.NewChannelMessageBroker()
	defer broker.Close()

	coordinator := a.coordinator(broker, cfg.UI.Creativity)
	loop := usecase.NewLoop(coordinator, a.store)
	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		loop.Run(ctx)
	}()

	ws := websocket.NewServer(broker, submitter(loop))
	go func() {
		if err := ws.ListenTurns(ctx); err != nil {
			log.WithCtx(ctx).Error("Turn listener failed", zap.Error(err))
		}
	}()

	e := newEcho(cfg, loop, ws)
	serveErr := make(chan error, 1)
	go func() {
		log.WithCtx(ctx).Info("Starting server",
			zap.String("addr", addr),
			zap.String("session_id", coordinator.SessionID()))
		serveErr <- e.Start(addr)
	}()

	select {
	case err = <-serveErr:
		stop()
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
		log.WithCtx(shutdownCtx).Warn("Server shutdown", zap.Error(shutdownErr))
	}
	<-loopDone
	log.Sync()

	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("serving on %s: %w", addr, err)
	}
	return nil
}
