// cmd/tools/artifact-tool/root.go
package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"

	"heart-risk-workers/internal/common/logger"
)

var rootCmd = &cobra.Command{
	Use:           "artifact-tool",
	Short:         "Build and check heart risk model artifacts",
	Long:          "artifact-tool fits the preprocessing transform from a survey dataset, inspects transform and classifier artifacts, runs single predictions and maintains the worker activity registry.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(fitCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(activitiesCmd)
}

func commandLogger(cmd *cobra.Command) logger.Logger {
	level, _ := cmd.Flags().GetString("log-level")
	return logger.NewStructured(level, "console", "stderr")
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
