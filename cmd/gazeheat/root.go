package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var folderFlag string
	var portFlag int

	ctx := newCommandContext(&configFlag)

	rootCmd := &cobra.Command{
		Use:           "gazeheat",
		Short:         "Heatmap compositing for gaze and click recordings",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			if folderFlag != "" {
				return runBatch(cmd, ctx, folderFlag, false)
			}
			return runServe(cmd, ctx, portFlag, false)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.Flags().StringVarP(&folderFlag, "folder", "f", "", "Folder containing participant JSON files and the source video")
	rootCmd.Flags().IntVarP(&portFlag, "port", "p", 0, "Port to serve on (default: configured bind, random when 0)")

	rootCmd.AddCommand(newGenerateCommand(ctx))
	rootCmd.AddCommand(newBatchCommand(ctx))
	rootCmd.AddCommand(newServeCommand(ctx))
	rootCmd.AddCommand(newJobsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newDepsCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))

	return rootCmd
}
