// Package cmd provides the entrypoint for the echo-api cli.
package cmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/isometry/echo-api/internal/config"
	"github.com/isometry/echo-api/internal/echo"
	"github.com/isometry/echo-api/internal/helpers"
	"github.com/isometry/echo-api/internal/runtime"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	configFilePath string
	logger         *slog.Logger
	diagnostics    *slog.Logger
)

type boundEnvVar[T argType] struct {
	Name, Description string
	Env, Short        *string
	Hidden            bool
	// Count registers an int as a repeatable counter flag (-vvv).
	Count bool
}

// New returns the root command for the echo-api.
func New() *cobra.Command {
	if err := config.Reset(); err != nil {
		panic(err)
	}

	cmd := &cobra.Command{
		Use:           "echo-api",
		Short:         "Acknowledge JSON requests on POST " + echo.Path,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := loadConfig(cmd); err != nil {
				return err
			}
			config.Global.Mode = strings.TrimSpace(config.Global.Mode)
			logger = slog.New(slog.NewJSONHandler(cmd.OutOrStdout(), &slog.HandlerOptions{
				AddSource: config.Global.Logging.CallerTrace,
				Level:     slog.LevelWarn - slog.Level(config.Global.Logging.Verbosity*4),
			})).With("mode", config.Global.Mode)
			diagnostics = helpers.NewLogger(cmd.OutOrStdout(), config.Global.Diagnostics.Format, nil)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch config.Global.Mode {
			case config.ModeService:
				return runService(cmd)
			case config.ModeLambda:
				return runLambda(cmd)
			case config.ModeGateway:
				return runGateway(cmd)
			default:
				return fmt.Errorf("invalid mode: %s", config.Global.Mode)
			}
		},
	}

	// Root command flags
	cmd.PersistentFlags().StringVarP(&configFilePath, "config", "c", "config.yaml", "path to the configuration file")

	// Dynamic flags
	setupDynamicFlags(cmd)

	// Subcommands
	cmd.AddCommand(
		cmdService(),
		cmdLambda(),
		cmdGateway(),
		cmdSend(),
	)

	return cmd
}

func setupDynamicFlags(cmd *cobra.Command) {
	viper.Reset()
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(replacer)

	bindEnvMap(cmd, envMapString)
	bindEnvMap(cmd, envMapBool)
	bindEnvMap(cmd, envMapInt)
}

// loadConfig overlays the configuration file on the defaults, then re-applies every flag set on the command
// line or through its environment variable so that both keep precedence over the file.
func loadConfig(cmd *cobra.Command) error {
	overrides := collectOverrides(cmd.Root())
	if err := config.LoadFromFile(configFilePath); err != nil {
		return errors.Wrap(err, "failed to load configuration")
	}
	for flag, value := range overrides {
		if err := flag.Value.Set(value); err != nil {
			return errors.Wrapf(err, "failed to apply --%s", flag.Name)
		}
	}
	return nil
}

// newRuntime wires the echo handler and its diagnostic sink into a runtime.
func newRuntime() *runtime.Runtime {
	hdl := echo.NewHandler(
		echo.WithLogger(logger.With("component", "echo-handler")),
		echo.WithSink(echo.NewLogSink(diagnostics)),
		echo.WithMaxBodyBytes(config.Service.MaxBodyBytes))

	return runtime.NewRuntime(hdl,
		runtime.WithLogger(logger.With("component", "runtime")),
		runtime.WithPayloadType(config.Lambda.PayloadType))
}
