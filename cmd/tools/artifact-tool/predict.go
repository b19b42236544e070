// cmd/tools/artifact-tool/predict.go
package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"heart-risk-workers/internal/common/config"
	"heart-risk-workers/internal/predictor"
	"heart-risk-workers/internal/survey"
)

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Run one survey record through the prediction chain",
	Long:  "predict loads the artifacts, validates the survey record and prints the risk label. --survey takes a JSON object or @file.",
	RunE:  runPredict,
}

func init() {
	predictCmd.Flags().String("config", "", "Load the model section from this config file instead of flags")
	predictCmd.Flags().String("variant", config.VariantDirect, "Feature variant (direct, preprocessed)")
	predictCmd.Flags().String("classifier", "", "Classifier artifact path")
	predictCmd.Flags().String("transform", "", "Transform artifact path (preprocessed variant)")
	predictCmd.Flags().String("policy", config.PolicyAuto, "Decision policy (auto, threshold, equality)")
	predictCmd.Flags().Float64("threshold", 0.5, "Threshold for the threshold policy")
	predictCmd.Flags().String("survey", "", "Survey record as JSON or @path")
	_ = predictCmd.MarkFlagRequired("survey")
}

func runPredict(cmd *cobra.Command, args []string) error {
	log := commandLogger(cmd)

	modelCfg, err := predictModelConfig(cmd)
	if err != nil {
		return err
	}

	raw, _ := cmd.Flags().GetString("survey")
	payload, err := readSurveyArg(raw)
	if err != nil {
		return err
	}
	rec, err := survey.DecodeJSON(payload)
	if err != nil {
		return err
	}

	p, err := predictor.Init(modelCfg, log)
	if err != nil {
		return err
	}

	result, err := p.Predict(context.Background(), rec)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), struct {
		*predictor.Result
		Message string `json:"message"`
	}{result, result.Label.Message()})
}

func predictModelConfig(cmd *cobra.Command) (config.ModelConfig, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		cfg, err := config.LoadFromFile(path)
		if err != nil {
			return config.ModelConfig{}, err
		}
		return cfg.Model, nil
	}

	var m config.ModelConfig
	m.Variant, _ = cmd.Flags().GetString("variant")
	m.ClassifierPath, _ = cmd.Flags().GetString("classifier")
	m.TransformPath, _ = cmd.Flags().GetString("transform")
	m.DecisionPolicy, _ = cmd.Flags().GetString("policy")
	m.Threshold, _ = cmd.Flags().GetFloat64("threshold")
	if m.ClassifierPath == "" {
		return m, fmt.Errorf("--classifier or --config is required")
	}
	if m.Variant == config.VariantPreprocessed && m.TransformPath == "" {
		return m, fmt.Errorf("--transform is required for the preprocessed variant")
	}
	return m, nil
}

func readSurveyArg(arg string) ([]byte, error) {
	if strings.HasPrefix(arg, "@") {
		return os.ReadFile(strings.TrimPrefix(arg, "@"))
	}
	return []byte(arg), nil
}
