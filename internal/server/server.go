package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"obfin-advisor/internal/config"
	"obfin-advisor/internal/metrics"
	"obfin-advisor/internal/relay"
	"obfin-advisor/internal/translator"
)

const (
	serviceName         = "obfin-advisor"
	maxBodyBytes        = 1 << 20 // 1 MiB
	shutdownGracePeriod = 10 * time.Second
	readTimeout         = 30 * time.Second
	idleTimeout         = 120 * time.Second
)

// Server serves the advisor HTTP API.
type Server struct {
	cfg     config.Config
	version string
	relay   *relay.Relay
	logger  *zap.Logger
	metrics *metrics.Recorder
	app     *echo.Echo
	address string
}

// Option customises a Server.
type Option func(*Server)

// WithVersion sets the build version reported by /api/version.
func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

// New constructs an HTTP server wired with routing and middleware. rec may be nil
// when metrics are disabled.
func New(cfg config.Config, rl *relay.Relay, log *zap.Logger, rec *metrics.Recorder, opts ...Option) (*Server, error) {
	if rl == nil {
		return nil, errors.New("relay must not be nil")
	}
	if log == nil {
		log = zap.NewNop()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = jsonErrorHandler

	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover())
	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{
		Generator: uuid.NewString,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("request_id", v.RequestID),
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Int64("latency_ms", v.Latency.Milliseconds()),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			log.Info("request", fields...)
			return nil
		},
	}))
	e.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'none'; frame-ancestors 'none'; form-action 'none'",
	}))

	srv := &Server{
		cfg:     cfg,
		version: "dev",
		relay:   rl,
		logger:  log,
		metrics: rec,
		app:     e,
		address: fmt.Sprintf(":%d", cfg.Server.Port),
	}

	for _, opt := range opts {
		opt(srv)
	}

	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the configured echo instance, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.app
}

// Run starts the HTTP server and blocks until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.printStartupBanner()
	s.logger.Info("starting server", zap.String("addr", s.address))

	// No write timeout: a handler may legitimately wait for the upstream client timeout.
	httpServer := &http.Server{
		Addr:        s.address,
		Handler:     s.app,
		ReadTimeout: readTimeout,
		IdleTimeout: idleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.app.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGracePeriod)
		defer cancel()
		if err := s.app.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server shutdown complete")
		return nil
	case err := <-errCh:
		return err
	}
}

func (s *Server) registerRoutes() {
	s.app.GET("/health", s.handleHealth)
	s.app.GET("/api/version", s.handleVersion)
	s.app.POST("/chatbot", s.handleChatbot)
	if s.cfg.Metrics.Enabled && s.metrics != nil {
		s.app.GET(s.cfg.Metrics.Path, echo.WrapHandler(s.metrics.Handler()))
	}
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok", "service": serviceName})
}

func (s *Server) handleVersion(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"api": "v1", "version": s.version})
}

// handleChatbot always answers 200 once the request decodes; upstream failures are
// carried as text in chat_response.
func (s *Server) handleChatbot(c echo.Context) error {
	req, err := decodeChatbotRequest(c)
	if err != nil {
		return err
	}

	answer := s.relay.Answer(c.Request().Context(), req.Query())
	return c.JSON(http.StatusOK, translator.FromAnswer(answer))
}

func decodeChatbotRequest(c echo.Context) (translator.ChatbotRequest, error) {
	req := c.Request()
	defer req.Body.Close()

	body, err := io.ReadAll(http.MaxBytesReader(c.Response(), req.Body, maxBodyBytes))
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return translator.ChatbotRequest{}, requestError{
				Status:  http.StatusRequestEntityTooLarge,
				Message: fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit),
				Type:    "invalid_request_error",
			}
		}
		return translator.ChatbotRequest{}, requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("read request body: %v", err),
			Type:    "invalid_request_error",
		}
	}
	if len(body) == 0 {
		return translator.ChatbotRequest{}, requestError{
			Status:  http.StatusBadRequest,
			Message: "request body is required",
			Type:    "invalid_request_error",
		}
	}

	decoded, err := translator.DecodeChatbotRequest(body)
	if err != nil {
		var schemaErr *translator.SchemaError
		if errors.As(err, &schemaErr) {
			return translator.ChatbotRequest{}, requestError{
				Status:  http.StatusUnprocessableEntity,
				Message: schemaErr.Error(),
				Type:    "invalid_request_error",
			}
		}
		return translator.ChatbotRequest{}, requestError{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("invalid JSON payload: %v", err),
			Type:    "invalid_request_error",
		}
	}
	return decoded, nil
}

type requestError struct {
	Status  int
	Message string
	Type    string
}

func (e requestError) Error() string {
	return e.Message
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func writeError(c echo.Context, status int, message, errType string) error {
	var payload errorBody
	payload.Error.Message = message
	payload.Error.Type = errType
	return c.JSON(status, payload)
}

func jsonErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var reqErr requestError
	if errors.As(err, &reqErr) {
		_ = writeError(c, reqErr.Status, reqErr.Message, reqErr.Type)
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		_ = writeError(c, he.Code, http.StatusText(he.Code), "invalid_request_error")
		return
	}

	_ = writeError(c, http.StatusInternalServerError, "internal server error", "server_error")
}

func (s *Server) printStartupBanner() {
	host := "127.0.0.1"
	port := s.cfg.Server.Port
	fmt.Println()
	fmt.Println("obfin-advisor ready")
	fmt.Printf("Listening on http://%s:%d\n", host, port)
	fmt.Println("Endpoints:")
	fmt.Println("  GET  /health")
	fmt.Println("  GET  /api/version")
	fmt.Println("  POST /chatbot")
	if s.cfg.Metrics.Enabled {
		fmt.Printf("  GET  %s\n", s.cfg.Metrics.Path)
	}
	fmt.Printf("Example:\n  curl http://%s:%d/chatbot -H 'Content-Type: application/json' -d '{\"user_question\":\"How can I save more?\",\"total_food\":320.5,\"total_rent\":1400,\"total_entertainment\":90}'\n\n", host, port)
}
