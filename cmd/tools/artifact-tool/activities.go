// cmd/tools/artifact-tool/activities.go
package main

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/spf13/cobra"

	"heart-risk-workers/internal/common/config"
	"heart-risk-workers/internal/common/errors"
	notifyriskresult "heart-risk-workers/internal/workers/risk/notify-risk-result"
	predictheartrisk "heart-risk-workers/internal/workers/risk/predict-heart-risk"
	"heart-risk-workers/pkg/registry"
)

const registryVersion = "1.0.0"

var activitiesCmd = &cobra.Command{
	Use:   "activities",
	Short: "Maintain the activity registry for the BPMN job workers",
}

var activitiesGenerateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Write the registry entries for the risk workers",
	RunE:  runActivitiesGenerate,
}

var activitiesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a registry file",
	RunE:  runActivitiesValidate,
}

func init() {
	activitiesCmd.PersistentFlags().String("path", "configs/activity-registry.json", "Path to registry file")
	activitiesGenerateCmd.Flags().String("config", "", "Take worker timeouts and retries from this config file")

	activitiesCmd.AddCommand(activitiesGenerateCmd)
	activitiesCmd.AddCommand(activitiesValidateCmd)
}

func runActivitiesGenerate(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("path")

	appConfig := &config.Config{}
	if cfgPath, _ := cmd.Flags().GetString("config"); cfgPath != "" {
		loaded, err := config.LoadFromFile(cfgPath)
		if err != nil {
			return err
		}
		appConfig = loaded
	}

	reg, err := registry.LoadRegistry(path)
	if err != nil {
		reg = &registry.ActivityRegistry{Version: registryVersion}
	}
	for _, a := range riskActivities(appConfig) {
		reg.Upsert(a)
	}
	if err := reg.Validate(); err != nil {
		return err
	}
	if err := registry.Save(reg, path); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d activities to %s\n", len(reg.Activities), path)
	return nil
}

func runActivitiesValidate(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("path")
	reg, err := registry.LoadRegistry(path)
	if err != nil {
		return fmt.Errorf("failed to load registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return fmt.Errorf("registry validation failed: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "registry validation passed, %d activities\n", len(reg.Activities))
	return nil
}

func riskActivities(appConfig *config.Config) []registry.Activity {
	predictCfg := config.GetWorkerConfig(appConfig, predictheartrisk.TaskType)
	notifyCfg := config.GetWorkerConfig(appConfig, notifyriskresult.TaskType)

	return []registry.Activity{
		{
			ID:                   predictheartrisk.TaskType,
			DisplayName:          "Predict Heart Risk",
			Description:          "Scores a survey record with the loaded model and records the prediction",
			Category:             "risk",
			Version:              registryVersion,
			TaskType:             predictheartrisk.TaskType,
			ImplementationStatus: "completed",
			InputSchema:          predictheartrisk.GetInputSchema(),
			OutputVariables:      jsonFields(predictheartrisk.Output{}),
			ErrorCodes: codes(errors.ErrCodeInvalidInput, errors.ErrCodeOutOfDomainInput, errors.ErrCodeParseError,
				errors.ErrCodeInferenceFailed, errors.ErrCodePredictionPersistFailed),
			Timeout:   config.GetDuration(predictCfg.Timeout).String(),
			Retries:   predictCfg.MaxRetries,
			Workflows: []string{"heart-risk-screening"},
			Tags:      []string{"prediction", "model"},
		},
		{
			ID:                   notifyriskresult.TaskType,
			DisplayName:          "Notify Risk Result",
			Description:          "Sends the high risk result to the respondent by email or SMS",
			Category:             "risk",
			Version:              registryVersion,
			TaskType:             notifyriskresult.TaskType,
			ImplementationStatus: "completed",
			InputSchema:          notifyriskresult.GetInputSchema(),
			OutputVariables:      jsonFields(notifyriskresult.Output{}),
			ErrorCodes:           codes(errors.ErrCodeInvalidInput, errors.ErrCodeNotificationSendFailed),
			Timeout:              config.GetDuration(notifyCfg.Timeout).String(),
			Retries:              notifyCfg.MaxRetries,
			Workflows:            []string{"heart-risk-screening"},
			Tags:                 []string{"notification", "ses", "sns"},
		},
	}
}

func codes(cs ...errors.ErrorCode) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = string(c)
	}
	return out
}

// jsonFields lists the JSON names of v's exported fields.
func jsonFields(v interface{}) []string {
	t := reflect.TypeOf(v)
	var names []string
	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		name := strings.Split(tag, ",")[0]
		if name == "" || name == "-" {
			continue
		}
		names = append(names, name)
	}
	return names
}
