// cmd/tools/artifact-tool/inspect.go
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"heart-risk-workers/internal/classifier"
	"heart-risk-workers/internal/preprocess"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect <artifact.json>",
	Short: "Print a summary of a transform or classifier artifact",
	Args:  cobra.ExactArgs(1),
	RunE:  runInspect,
}

type transformSummary struct {
	Kind         string   `json:"kind"`
	Version      string   `json:"version"`
	Rows         int      `json:"rows"`
	OutputDim    int      `json:"outputDim"`
	Dropped      []string `json:"droppedColumns,omitempty"`
	FeatureNames []string `json:"featureNames"`
}

type classifierSummary struct {
	Kind string          `json:"kind"`
	Info classifier.Info `json:"info"`
}

func runInspect(cmd *cobra.Command, args []string) error {
	path := args[0]
	kind, err := artifactKind(path)
	if err != nil {
		return err
	}

	switch kind {
	case "classifier":
		c, err := classifier.LoadFile(path)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), classifierSummary{Kind: kind, Info: c.Info()})
	default:
		t, err := preprocess.LoadFile(path)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), transformSummary{
			Kind:         kind,
			Version:      t.Version,
			Rows:         t.Rows,
			OutputDim:    t.OutputDim(),
			Dropped:      t.DroppedColumns,
			FeatureNames: t.FeatureNames(),
		})
	}
}

// artifactKind tells classifier artifacts (which carry a "type") from transforms.
func artifactKind(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return "", fmt.Errorf("%s is not a JSON artifact: %w", path, err)
	}
	if probe.Type != "" {
		return "classifier", nil
	}
	return "transform", nil
}
