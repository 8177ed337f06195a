package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/isometry/echo-api/internal/client"
	"github.com/isometry/echo-api/internal/config"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

func cmdSend() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "send [json]",
		Short: "POST a JSON body to the echo endpoint and print the replies",
		Long: "POST a JSON body to the echo endpoint and print the replies.\n" +
			"The body is read from the first argument, or from stdin when no argument is given.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var body []byte
			if len(args) == 1 {
				body = []byte(args[0])
			} else {
				var err error
				if body, err = io.ReadAll(cmd.InOrStdin()); err != nil {
					return errors.Wrap(err, "failed to read body from stdin")
				}
			}

			c := client.New(
				client.WithURL(config.Client.URL),
				client.WithTimeout(config.Client.Timeout),
				client.WithConcurrency(config.Client.Concurrency),
				client.WithLogger(logger.With("component", "client")))

			start := time.Now()
			results, err := c.Send(cmd.Context(), body, config.Client.Requests)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, "Completed %d requests in %.2fs\n", len(results), time.Since(start).Seconds())
			failed := 0
			for _, r := range results {
				if r.Err != nil {
					failed++
					_, _ = fmt.Fprintf(out, "%d ERROR %v\n", r.Index, r.Err)
					continue
				}
				_, _ = fmt.Fprintf(out, "%d %d %s\n", r.Index, r.StatusCode, r.Body)
			}
			if failed > 0 {
				return errors.Errorf("%d of %d requests failed", failed, len(results))
			}
			return nil
		},
	}

	bindEnvMap(cmd, sendEnvMapString)
	bindEnvMap(cmd, sendEnvMapInt)
	bindEnvMap(cmd, sendEnvMapDuration)

	return cmd
}
