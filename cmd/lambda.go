package cmd

import (
	"slices"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/isometry/echo-api/internal/config"
	"github.com/isometry/echo-api/internal/runtime"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func cmdLambda() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lambda",
		Short: "Serve the endpoint as an AWS Lambda function",
		PreRunE: func(_ *cobra.Command, _ []string) error {
			logger = logger.With("mode", config.ModeLambda)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runLambda(cmd)
		},
	}

	bindEnvMap(cmd, lambdaEnvMapString)

	return cmd
}

func runLambda(cmd *cobra.Command) error {
	if !slices.Contains(runtime.PayloadTypes, config.Lambda.PayloadType) {
		return errors.Errorf("unsupported lambda payload type: %s", config.Lambda.PayloadType)
	}

	logger.Debug("creating runtime...")
	rt := newRuntime()

	logger.Info("lambda starting...", "payloadType", config.Lambda.PayloadType)
	lambda.StartWithOptions(rt.HandleEvent,
		lambda.WithContext(cmd.Context()))

	return nil
}
