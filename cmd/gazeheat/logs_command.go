package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"gazeheat/internal/logs"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		server    string
		token     string
		lines     int
		follow    bool
		jobID     string
		component string
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent log output",
		Long: "Show recent log output from the local log file, or from a running " +
			"server's log endpoint when --server is given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			client, err := logs.NewStreamClient(server, token)
			if err != nil {
				return fmt.Errorf("server address: %w", err)
			}
			if client != nil {
				return streamFromAPI(cmd.Context(), out, client, lines, follow, jobID, component)
			}
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			return streamFromFile(cmd.Context(), out, cfg.LogFilePath(), lines, follow, jobID, component)
		},
	}
	cmd.Flags().StringVar(&server, "server", "", "Server address (host:port) to read logs from")
	cmd.Flags().StringVar(&token, "token", "", "Bearer token for the server")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of recent lines to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep printing new log lines")
	cmd.Flags().StringVar(&jobID, "job", "", "Only show lines for this job ID (prefix allowed)")
	cmd.Flags().StringVar(&component, "component", "", "Only show lines from this component")
	return cmd
}

func streamFromFile(ctx context.Context, out io.Writer, path string, lines int, follow bool, jobID, component string) error {
	opts := logs.TailOptions{Offset: -1, Limit: lines}
	for {
		result, err := logs.Tail(ctx, path, opts)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}
		for _, line := range result.Lines {
			evt, ok := logs.ParseFileLine(line)
			if !ok {
				if jobID == "" && component == "" {
					fmt.Fprintln(out, line)
				}
				continue
			}
			if logs.Matches(evt, jobID, component) {
				fmt.Fprintln(out, logs.FormatEvent(evt))
			}
		}
		if !follow {
			return nil
		}
		opts = logs.TailOptions{Offset: result.Offset, Follow: true, Wait: 5 * time.Second}
	}
}

func streamFromAPI(ctx context.Context, out io.Writer, client *logs.StreamClient, lines int, follow bool, jobID, component string) error {
	query := logs.StreamQuery{Limit: lines, Tail: true, JobID: jobID, Component: component}
	for {
		resp, err := client.Fetch(ctx, query)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return nil
			}
			if logs.IsAPIUnavailable(err) {
				return fmt.Errorf("server unreachable: %w", err)
			}
			return err
		}
		for _, evt := range resp.Events {
			fmt.Fprintln(out, logs.FormatEvent(evt))
		}
		if !follow {
			return nil
		}
		query = logs.StreamQuery{Since: resp.Next, Limit: 200, Follow: true, JobID: jobID, Component: component}
	}
}
