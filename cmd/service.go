package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/isometry/echo-api/internal/config"
	"github.com/isometry/echo-api/internal/echo"
	"github.com/isometry/echo-api/internal/middleware"
	"github.com/isometry/echo-api/internal/runtime"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func cmdService() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "service",
		Aliases: []string{"s", "serve", "standalone", "server"},
		Short:   "Serve the endpoint over HTTP",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			logger = logger.With("mode", config.ModeService)
			logger.Info("Spawning...")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runService(cmd)
		},
	}

	bindEnvMap(cmd, svcEnvMapString)
	bindEnvMap(cmd, svcEnvMapDuration)
	bindEnvMap(cmd, svcEnvMapInt64)

	return cmd
}

func runService(cmd *cobra.Command) error {
	logger.Debug("Creating runtime...")
	rt := newRuntime()

	logger.Debug("Creating HTTP server...")
	mux := http.NewServeMux()
	rt.Register(runtime.NewMuxRouter(mux))

	s := &http.Server{
		Handler: middleware.Recovery(logger)(
			middleware.Logging(logger.With("component", "access"))(mux),
		),
		Addr:         net.JoinHostPort(config.Service.Addr, config.Service.Port),
		WriteTimeout: config.Service.Timeout,
		ReadTimeout:  config.Service.Timeout,
		IdleTimeout:  config.Service.Timeout,
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}

	logger.Info("Serving...", "address", ln.Addr().String(), "path", echo.Path, "timeout", config.Service.Timeout.String())
	return serve(cmd.Context(), s, ln)
}

// serve runs s on ln until ctx is cancelled or the process receives SIGINT or SIGTERM, then drains
// in-flight requests.
func serve(ctx context.Context, s *http.Server, ln net.Listener) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errChan := make(chan error, 1)
	go func() {
		if err := s.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
		close(errChan)
	}()

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
		logger.Info("Shutting down...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error("error during server shutdown", slog.Any("error", err))
		return err
	}
	return nil
}
