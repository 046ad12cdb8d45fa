package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"gazeheat/internal/logging"
	"gazeheat/internal/pipeline"
	"gazeheat/internal/session"
	"gazeheat/internal/workflow"
)

func newGenerateCommand(ctx *commandContext) *cobra.Command {
	var videoPath string
	var trackingPath string
	var outputName string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Render a heatmap for one video and tracking file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(videoPath) == "" || strings.TrimSpace(trackingPath) == "" {
				return errors.New("--video and --tracking are required")
			}
			tracking, err := session.Load(trackingPath)
			if err != nil {
				return err
			}

			rt, err := ctx.openRuntime(nil)
			if err != nil {
				return err
			}
			defer rt.Close()

			sampler := logging.NewProgressSampler(10)
			out := cmd.OutOrStdout()
			outcome, err := rt.manager.Generate(cmd.Context(), workflow.Request{
				VideoPath:  videoPath,
				Tracking:   tracking,
				OutputName: outputName,
				OnProgress: func(p pipeline.Progress) {
					if !jsonOut && sampler.ShouldLog(p.Percent, "rendering") {
						fmt.Fprintf(out, "Rendering %5.1f%% (%d/%d frames)\n", p.Percent, p.Written, p.Total)
					}
				},
			})
			if err != nil {
				return err
			}
			if jsonOut {
				return writeJSON(cmd, outcome)
			}
			printOutcome(cmd, outcome)
			return nil
		},
	}

	cmd.Flags().StringVar(&videoPath, "video", "", "Source video path")
	cmd.Flags().StringVar(&trackingPath, "tracking", "", "Tracking data JSON file")
	cmd.Flags().StringVarP(&outputName, "output", "o", "", "Output file name inside the output directory")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the outcome as JSON")
	return cmd
}

func printOutcome(cmd *cobra.Command, outcome *workflow.Outcome) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Heatmap video: %s\n", outcome.OutputPath)
	if outcome.DataPath != "" {
		fmt.Fprintf(out, "Tracking data: %s\n", outcome.DataPath)
	}
	if outcome.JobID != "" {
		fmt.Fprintf(out, "Job: %s\n", outcome.JobID)
	}
	result := outcome.Result
	fmt.Fprintf(out, "Frames written: %d\n", result.FramesWritten)
	fmt.Fprintf(out, "Audio merged: %s\n", yesNo(outcome.AudioMerged))
	if result.Truncated {
		fmt.Fprintln(out, "Warning: source ended early; output was truncated")
	}
}
