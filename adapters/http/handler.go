package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/cocoa-fruit/voicechat/domain"
	"github.com/satriahrh/cocoa-fruit/voicechat/usecase"
	"github.com/satriahrh/cocoa-fruit/voicechat/utils/log"
)

const (
	JWTExpiry     = 24 * time.Hour
	JWTIssuer     = "voicechat"
	MaxConcurrent = 10
)

// Runner runs actions against the conversation on its owning goroutine.
type Runner interface {
	Do(ctx context.Context, fn usecase.Action) error
}

type Credentials struct {
	APIKey    string
	APISecret string
	JWTSecret string
}

type ChatHandler struct {
	runner      Runner
	credentials Credentials
	jwtSecret   []byte
	semaphore   chan struct{}
	now         func() time.Time
}

type ChatRequest struct {
	Text string `json:"text"`
}

type ChatResponse struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	SessionID string `json:"session_id,omitempty"`
}

type TranscriptResponse struct {
	SessionID          string            `json:"session_id"`
	Turns              []domain.ChatTurn `json:"turns"`
	LatestResponse     string            `json:"latest_response"`
	CanSpeak           bool              `json:"can_speak"`
	PredictionInFlight bool              `json:"prediction_in_flight"`
	SpeechInFlight     bool              `json:"speech_in_flight"`
	Creativity         float64           `json:"creativity"`
}

type JWTClaims struct {
	UserID string `json:"user_id"`
	jwt.RegisteredClaims
}

func NewChatHandler(runner Runner, credentials Credentials) *ChatHandler {
	return &ChatHandler{
		runner:      runner,
		credentials: credentials,
		jwtSecret:   []byte(credentials.JWTSecret),
		semaphore:   make(chan struct{}, MaxConcurrent),
		now:         time.Now,
	}
}

// Routes mounts the API on e. ws, when set, is served on /ws behind the same auth.
func (h *ChatHandler) Routes(e *echo.Echo, ws echo.HandlerFunc) {
	if ws != nil {
		wsGroup := e.Group("/ws")
		wsGroup.Use(h.JWTMiddleware)
		wsGroup.GET("", ws)
	}

	api := e.Group("/api/v1")

	// Public endpoints (no auth required)
	api.GET("/health", h.HealthCheck)
	api.POST("/auth/token", h.GenerateJWT)

	// Chat endpoints (JWT auth required)
	guard := []echo.MiddlewareFunc{h.JWTMiddleware, h.RateLimitMiddleware}
	api.POST("/chat", h.Chat, guard...)
	api.GET("/transcript", h.Transcript, guard...)
	api.POST("/speak", h.Speak, guard...)
	api.POST("/voice", h.Voice, guard...)
}

func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

// GenerateJWT creates a JWT token for clients presenting the configured API key and secret
func (h *ChatHandler) GenerateJWT(c echo.Context) error {
	key := c.Request().Header.Get("X-API-Key")
	secret := c.Request().Header.Get("X-API-Secret")

	if key == "" || !equal(key, h.credentials.APIKey) || !equal(secret, h.credentials.APISecret) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	now := h.now()
	claims := &JWTClaims{
		UserID: uuid.NewString(),
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(JWTExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    JWTIssuer,
			Subject:   "chat",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(h.jwtSecret)
	if err != nil {
		log.WithCtx(c.Request().Context()).Error("Error signing JWT", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate token")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"token": tokenString,
		"type":  "Bearer",
	})
}

// JWTMiddleware rejects requests without a valid bearer token
func (h *ChatHandler) JWTMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		authHeader := c.Request().Header.Get("Authorization")
		if authHeader == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
		}

		token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return h.jwtSecret, nil
		}, jwt.WithIssuer(JWTIssuer))
		if err != nil {
			log.WithCtx(c.Request().Context()).Debug("JWT validation error", zap.Error(err))
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}

		if claims, ok := token.Claims.(*JWTClaims); ok && token.Valid {
			c.Set("user_id", claims.UserID)
			ctx := context.WithValue(c.Request().Context(), log.UserIDKey, claims.UserID)
			c.SetRequest(c.Request().WithContext(ctx))
			return next(c)
		}

		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token claims")
	}
}

// RateLimitMiddleware caps concurrent requests across all guarded routes
func (h *ChatHandler) RateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		select {
		case h.semaphore <- struct{}{}:
			defer func() { <-h.semaphore }()
			return next(c)
		default:
			return echo.NewHTTPError(http.StatusTooManyRequests, "Too many concurrent requests")
		}
	}
}

// Chat submits text as a user turn. The answer arrives later as a turn event.
func (h *ChatHandler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body")
	}

	var sessionID string
	err := h.runner.Do(c.Request().Context(), func(ctx context.Context, co *usecase.Coordinator) error {
		sessionID = co.SessionID()
		return co.Submit(ctx, req.Text)
	})
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}

	return c.JSON(http.StatusAccepted, ChatResponse{
		Success:   true,
		Message:   "Message accepted",
		SessionID: sessionID,
	})
}

func (h *ChatHandler) Transcript(c echo.Context) error {
	var resp TranscriptResponse
	err := h.runner.Do(c.Request().Context(), func(ctx context.Context, co *usecase.Coordinator) error {
		resp = TranscriptResponse{
			SessionID:          co.SessionID(),
			Turns:              co.Transcript(),
			LatestResponse:     co.LatestResponse(),
			CanSpeak:           co.CanSpeak(),
			PredictionInFlight: co.InFlight(domain.PredictionTask),
			SpeechInFlight:     co.InFlight(domain.SpeechTask),
			Creativity:         co.Settings().Creativity,
		}
		return nil
	})
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}
	if resp.Turns == nil {
		resp.Turns = []domain.ChatTurn{}
	}
	return c.JSON(http.StatusOK, resp)
}

// Speak reads the latest response aloud on the host and returns once playback ends.
func (h *ChatHandler) Speak(c echo.Context) error {
	err := h.runner.Do(c.Request().Context(), func(ctx context.Context, co *usecase.Coordinator) error {
		if !co.CanSpeak() {
			return echo.NewHTTPError(http.StatusConflict, "Nothing to speak yet")
		}
		return co.SpeakLatest(ctx)
	})
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}
	return c.JSON(http.StatusOK, ChatResponse{Success: true, Message: "Spoken"})
}

// Voice starts listening on the host microphone.
func (h *ChatHandler) Voice(c echo.Context) error {
	err := h.runner.Do(c.Request().Context(), func(ctx context.Context, co *usecase.Coordinator) error {
		return co.StartVoiceCapture(ctx)
	})
	if err != nil {
		return toHTTPError(c.Request().Context(), err)
	}
	return c.JSON(http.StatusAccepted, ChatResponse{Success: true, Message: "Listening"})
}

// HealthCheck endpoint
func (h *ChatHandler) HealthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":    "healthy",
		"timestamp": h.now().UTC(),
		"service":   "voicechat",
	})
}

func toHTTPError(ctx context.Context, err error) error {
	var httpErr *echo.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, domain.ErrEmptyInput):
		return echo.NewHTTPError(http.StatusBadRequest, "Text must not be blank")
	case errors.Is(err, domain.ErrBusy):
		return echo.NewHTTPError(http.StatusConflict, "A request of this kind is still in flight")
	case errors.Is(err, domain.ErrNoVoice):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Voice capture is not configured")
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return echo.NewHTTPError(http.StatusServiceUnavailable, "Conversation is not available")
	}
	log.WithCtx(ctx).Error("Request failed", zap.Error(err))
	return echo.NewHTTPError(http.StatusInternalServerError, "Request failed")
}
