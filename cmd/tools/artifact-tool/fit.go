// cmd/tools/artifact-tool/fit.go
package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"heart-risk-workers/internal/preprocess"
)

var fitCmd = &cobra.Command{
	Use:   "fit",
	Short: "Fit the preprocessing transform from a CSV dataset",
	RunE:  runFit,
}

func init() {
	fitCmd.Flags().String("data", "", "Path to the survey CSV dataset")
	fitCmd.Flags().String("out", "artifacts/transform.json", "Where to write the transform artifact")
	fitCmd.Flags().String("version", "", "Artifact version (default: transform-<fit time>)")
	_ = fitCmd.MarkFlagRequired("data")
}

func runFit(cmd *cobra.Command, args []string) error {
	log := commandLogger(cmd)
	dataPath, _ := cmd.Flags().GetString("data")
	outPath, _ := cmd.Flags().GetString("out")
	version, _ := cmd.Flags().GetString("version")

	ds, err := preprocess.ReadCSVFile(dataPath)
	if err != nil {
		return fmt.Errorf("read dataset: %w", err)
	}

	t, err := preprocess.Fit(ds)
	if err != nil {
		return fmt.Errorf("fit transform: %w", err)
	}
	if version != "" {
		t.Version = version
	}

	if err := t.SaveFile(outPath); err != nil {
		return fmt.Errorf("write transform: %w", err)
	}

	log.Info("transform fitted", map[string]interface{}{
		"rows":      t.Rows,
		"outputDim": t.OutputDim(),
		"path":      outPath,
	})
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s: version=%s rows=%d features=%d dropped=%v\n",
		outPath, t.Version, t.Rows, t.OutputDim(), t.DroppedColumns)
	return nil
}
