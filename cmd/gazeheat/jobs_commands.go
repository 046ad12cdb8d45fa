package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"gazeheat/internal/jobs"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect generation history",
	}
	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	return jobsCmd
}

func openStore(ctx *commandContext) (*jobs.Store, error) {
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return jobs.Open(cfg)
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var statuses []string
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := jobs.ListOptions{Limit: limit}
			for _, value := range statuses {
				status, ok := jobs.ParseStatus(value)
				if !ok {
					return fmt.Errorf("unknown status %q", value)
				}
				opts.Statuses = append(opts.Statuses, status)
			}

			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			list, err := store.List(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if jsonOut {
				if list == nil {
					list = []*jobs.Job{}
				}
				return writeJSON(cmd, list)
			}

			out := cmd.OutOrStdout()
			if len(list) == 0 {
				fmt.Fprintln(out, "No jobs recorded")
				return nil
			}
			colorize := shouldColorize(out)
			rows := make([][]string, 0, len(list))
			for _, job := range list {
				rows = append(rows, []string{
					shortID(job.ID),
					string(job.Kind),
					colorStatus(job.Status, colorize),
					job.UserName,
					job.VideoName,
					strconv.Itoa(job.ClickCount),
					strconv.Itoa(job.FramesWritten),
					job.CreatedAt.Local().Format(time.DateTime),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"ID", "Kind", "Status", "User", "Video", "Clicks", "Frames", "Created"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
			))
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&statuses, "status", "s", nil, "Filter by status (repeatable)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum jobs to show (0 for all)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print jobs as JSON")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show one job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := openStore(ctx)
			if err != nil {
				return err
			}
			defer store.Close()

			job, err := resolveJob(cmd, store, args[0])
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, job)
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Job "+job.ID, colorize) {
				fmt.Fprintln(out, line)
			}
			fields := [][2]string{
				{"Kind", string(job.Kind)},
				{"Status", colorStatus(job.Status, colorize)},
				{"User", job.UserName},
				{"Video", job.VideoName},
				{"Tracking type", job.TrackingType},
				{"Clicks", strconv.Itoa(job.ClickCount)},
				{"Source", job.SourcePath},
				{"Scale", fmt.Sprintf("%.3f x %.3f", job.ScaleX, job.ScaleY)},
				{"Tracking data", job.DataPath},
				{"Output", job.OutputPath},
				{"Frames written", strconv.Itoa(job.FramesWritten)},
				{"Truncated", yesNo(job.Truncated)},
				{"Hold frame", yesNo(job.HoldFrame)},
				{"Field", job.FieldMode},
				{"Error", job.ErrorMessage},
				{"Created", job.CreatedAt.Local().Format(time.DateTime)},
			}
			if job.CompletedAt != nil {
				fields = append(fields, [2]string{"Completed", job.CompletedAt.Local().Format(time.DateTime)})
			}
			for _, f := range fields {
				if strings.TrimSpace(f[1]) == "" {
					continue
				}
				fmt.Fprintf(out, "%s%-*s %s\n", statusIndent, statusLabelWidth, f[0]+":", f[1])
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the job as JSON")
	return cmd
}

// resolveJob accepts a full ID or a unique prefix as printed by jobs list.
func resolveJob(cmd *cobra.Command, store *jobs.Store, id string) (*jobs.Job, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, errors.New("job id is required")
	}
	job, err := store.Get(cmd.Context(), id)
	if err != nil {
		return nil, err
	}
	if job != nil {
		return job, nil
	}
	all, err := store.List(cmd.Context(), jobs.ListOptions{})
	if err != nil {
		return nil, err
	}
	var match *jobs.Job
	for _, candidate := range all {
		if !strings.HasPrefix(candidate.ID, id) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("job id %q is ambiguous", id)
		}
		match = candidate
	}
	if match == nil {
		return nil, fmt.Errorf("job %q not found", id)
	}
	return match, nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
