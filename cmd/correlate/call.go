package main

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"3tcapital/correlate/internal/infrastructure/config"
	httpinfra "3tcapital/correlate/internal/infrastructure/http"
	"3tcapital/correlate/internal/infrastructure/logger"
)

var callCorrelationID string

var callCmd = &cobra.Command{
	Use:   "call <url>",
	Short: "Perform one correlated GET request",
	Long: `Performs a GET request to the given URL under a correlation id.
The id is sent in the correlation header and printed together with the response status.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return call(cmd.Context(), cmd.OutOrStdout(), args[0], callCorrelationID)
	},
}

func init() {
	callCmd.Flags().StringVar(&callCorrelationID, "correlation-id", "", "correlation id to use; generated when empty")
}

func call(ctx context.Context, out io.Writer, url, correlationID string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.App.Name, cfg.Log.Level, cfg.App.Environment)

	stack, err := newCorrelationStack(cfg, log)
	if err != nil {
		return err
	}

	clientCfg := httpinfra.DefaultClientConfig()
	clientCfg.Timeout = cfg.Downstream.Timeout
	clientCfg.RetryMax = cfg.Downstream.RetryMax
	client := httpinfra.NewClient(clientCfg, stack.accessor, log).StandardClient()

	return stack.manager.Correlate(ctx, correlationID, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		resp, err := client.Do(req)
		if err != nil {
			return fmt.Errorf("call %s: %w", url, err)
		}
		defer resp.Body.Close()
		_, _ = io.Copy(io.Discard, resp.Body)

		if cc := stack.accessor.Current(ctx); cc != nil {
			fmt.Fprintf(out, "correlation id: %s\n", cc.CorrelationID)
		}
		fmt.Fprintf(out, "status: %s\n", resp.Status)
		return nil
	}, nil)
}
