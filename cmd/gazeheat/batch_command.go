package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"gazeheat/internal/batch"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var folder string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "batch [folder]",
		Short: "Render the averaged heatmap for a folder of participant files",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			target := folder
			if len(args) == 1 {
				target = args[0]
			}
			if target == "" {
				return fmt.Errorf("a folder is required (pass it as an argument or with --folder)")
			}
			return runBatch(cmd, ctx, target, jsonOut)
		},
	}
	cmd.Flags().StringVarP(&folder, "folder", "f", "", "Folder containing participant JSON files and the source video")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "Print the result as JSON")
	return cmd
}

func runBatch(cmd *cobra.Command, ctx *commandContext, folder string, jsonOut bool) error {
	rt, err := ctx.openRuntime(nil)
	if err != nil {
		return err
	}
	defer rt.Close()

	processor := batch.NewProcessor(rt.cfg, rt.manager, rt.logger)
	result, err := processor.ProcessFolder(cmd.Context(), folder)
	if err != nil {
		return fmt.Errorf("process folder: %w", err)
	}
	if jsonOut {
		return writeJSON(cmd, result)
	}

	out := cmd.OutOrStdout()
	summary := result.Summary
	fmt.Fprintf(out, "Video: %s\n", result.VideoPath)
	fmt.Fprintf(out, "Participants: %d (%d clicks)\n", summary.ParticipantCount, summary.TotalClicks)
	if len(summary.SkippedFiles) > 0 {
		fmt.Fprintf(out, "Skipped files: %d\n", len(summary.SkippedFiles))
	}
	fmt.Fprintf(out, "Averaged heatmap: %s\n", result.OutputPath)
	fmt.Fprintf(out, "Summary: %s\n", result.SummaryPath)
	return nil
}
