package cmd

import (
	"net"
	"net/http"
	"net/url"

	"github.com/isometry/echo-api/internal/config"
	"github.com/isometry/echo-api/internal/gateway"
	"github.com/isometry/echo-api/internal/guardian"
	"github.com/isometry/echo-api/internal/middleware"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func cmdGateway() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "gateway",
		Aliases: []string{"g", "proxy"},
		Short:   "Screen JSON prompts and proxy them to the endpoint",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			logger = logger.With("mode", config.ModeGateway)
			logger.Info("Spawning...")
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runGateway(cmd)
		},
	}

	bindEnvMap(cmd, gwEnvMapString)
	bindEnvMap(cmd, gwEnvMapInt)
	bindEnvMap(cmd, gwEnvMapInt64)
	bindEnvMap(cmd, gwEnvMapDuration)

	return cmd
}

// newGateway wires the screening gateway from the configuration.
func newGateway() *gateway.Gateway {
	opts := []gateway.Option{
		gateway.WithLogger(logger.With("component", "gateway")),
		gateway.WithEventLogger(diagnostics),
		gateway.WithMarker(config.Gateway.Marker),
		gateway.WithMaxBodyBytes(config.Gateway.MaxBodyBytes),
		gateway.WithLimiter(gateway.NewLimiter(config.Gateway.RateLimit.Requests, config.Gateway.RateLimit.Period)),
	}
	if g := config.Gateway.Guardian; g.URL != "" {
		opts = append(opts, gateway.WithAnalyzer(guardian.New(
			guardian.WithURL(g.URL),
			guardian.WithTimeout(g.Timeout),
			guardian.WithRetry(g.MaxAttempts, g.Backoff),
			guardian.WithLogger(logger.With("component", "guardian")),
		)))
	} else {
		logger.Warn("no guardian URL configured, prompts are forwarded unscreened")
	}
	return gateway.New(opts...)
}

func runGateway(cmd *cobra.Command) error {
	upstream, err := url.Parse(config.Gateway.Upstream)
	if err != nil || upstream.Scheme == "" || upstream.Host == "" {
		return errors.Errorf("invalid gateway upstream URL: %q", config.Gateway.Upstream)
	}

	logger.Debug("Creating gateway...")
	s := &http.Server{
		Handler: middleware.Recovery(logger)(
			middleware.Logging(logger.With("component", "access"))(newGateway().Handler(upstream)),
		),
		Addr:         net.JoinHostPort(config.Gateway.Addr, config.Gateway.Port),
		WriteTimeout: config.Gateway.Timeout,
		ReadTimeout:  config.Gateway.Timeout,
		IdleTimeout:  config.Gateway.Timeout,
	}

	ln, err := net.Listen("tcp", s.Addr)
	if err != nil {
		return err
	}

	logger.Info("Serving...", "address", ln.Addr().String(), "upstream", upstream.String(), "screening", config.Gateway.Guardian.URL != "")
	return serve(cmd.Context(), s, ln)
}
