package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/jo-hoe/sdimg/internal/cache"
	"github.com/jo-hoe/sdimg/internal/catalog"
	"github.com/jo-hoe/sdimg/internal/common"
	"github.com/jo-hoe/sdimg/internal/metadata"
)

const shutdownTimeout = 10 * time.Second

// Options holds the collaborators of the HTTP API
type Options struct {
	Codec *metadata.Codec
	// optional
	Cache   cache.Cache
	Catalog catalog.Service
}

// Server exposes the codec over HTTP
type Server struct {
	echo    *echo.Echo
	codec   *metadata.Codec
	cache   cache.Cache
	catalog catalog.Service
}

// New creates the server and registers its routes
func New(opts Options) *Server {
	s := &Server{
		echo:    defineServer(),
		codec:   opts.Codec,
		cache:   opts.Cache,
		catalog: opts.Catalog,
	}
	s.setRoutes()
	return s
}

// Handler returns the HTTP handler of the server
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Run serves on port until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, port int) error {
	address := fmt.Sprintf(":%d", port)
	errCh := make(chan error, 1)

	go func() {
		slog.Info("Server: listening", "address", address)
		if err := s.echo.Start(address); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Server: shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	return nil
}

func defineServer() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// the probe endpoint is polled and would flood the log
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/probe"
		},
		LogStatus:    true,
		LogLatency:   true,
		LogMethod:    true,
		LogURI:       true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRoutePath: true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{
				"method", v.Method,
				"uri", v.URI,
				"route", v.RoutePath,
				"status", v.Status,
				"latency", v.Latency,
				"remote_ip", v.RemoteIP,
				"user_agent", v.UserAgent,
			}
			if v.Error != nil {
				slog.Warn("Server: request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Info("Server: request", attrs...)
			return nil
		},
	}))

	e.Use(middleware.Recover())
	e.Pre(middleware.RemoveTrailingSlash())

	e.Validator = &common.GenericEchoValidator{}

	return e
}
