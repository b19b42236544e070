package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heart-risk-workers/internal/classifier"
	"heart-risk-workers/pkg/registry"
)

const datasetCSV = `HeartDiseaseorAttack,HighBP,HighChol,CholCheck,BMI,Smoker,Stroke,Diabetes,PhysActivity,Fruits,Veggies,HvyAlcoholConsump,AnyHealthcare,NoDocbcCost,GenHlth,MentHlth,PhysHlth,DiffWalk,Sex,Age,Education,Income
0,1,0,0,20,0,0,0,0,1,1,0,0,0,1,0,0,0,1,1,4,5
1,0,1,1,30,1,0,1,1,0,1,1,1,1,2,3,10,1,1,5,5,6
0,1,1,1,NA,1,1,2,1,1,0,1,1,1,3,6,20,0,0,9,6,7
`

const surveyJSON = `{"HighBP":1,"HighChol":1,"CholCheck":1,"BMI":30,"Smoker":1,"Stroke":0,"Diabetes":1,
	"PhysActivity":0,"HvyAlcoholConsump":0,"AnyHealthcare":1,"NoDocbcCost":0,"GenHlth":4,"MentHlth":5,
	"PhysHlth":10,"Sex":1,"Age":9}`

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func writeClassifier(t *testing.T, dir string) string {
	t.Helper()
	weights := make([]float64, 16)
	weights[0] = 4
	path := filepath.Join(dir, "classifier.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, (&classifier.Artifact{
		Type: classifier.TypeLogistic, Version: "lr-cli", FeatureLayout: classifier.LayoutDirect,
		InputDim: 16, Output: classifier.OutputProbability, Weights: weights, Bias: -2,
	}).Write(f))
	return path
}

func TestFitAndInspectTransform(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "survey.csv")
	require.NoError(t, os.WriteFile(data, []byte(datasetCSV), 0o644))
	out := filepath.Join(dir, "transform.json")

	stdout, err := run(t, "fit", "--data", data, "--out", out, "--version", "transform-test")
	require.NoError(t, err)
	assert.Contains(t, stdout, "version=transform-test")
	assert.Contains(t, stdout, "rows=3")

	stdout, err = run(t, "inspect", out)
	require.NoError(t, err)
	var summary transformSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, "transform", summary.Kind)
	assert.Equal(t, "num__BMI", summary.FeatureNames[0])
	assert.Equal(t, summary.OutputDim, len(summary.FeatureNames))
}

func TestFit_MissingColumns(t *testing.T) {
	dir := t.TempDir()
	data := filepath.Join(dir, "partial.csv")
	require.NoError(t, os.WriteFile(data, []byte("HighBP,BMI\n1,30\n"), 0o644))

	_, err := run(t, "fit", "--data", data, "--out", filepath.Join(dir, "t.json"))
	assert.Error(t, err)
}

func TestInspectClassifier(t *testing.T) {
	path := writeClassifier(t, t.TempDir())

	stdout, err := run(t, "inspect", path)
	require.NoError(t, err)
	var summary classifierSummary
	require.NoError(t, json.Unmarshal([]byte(stdout), &summary))
	assert.Equal(t, "classifier", summary.Kind)
	assert.Equal(t, "lr-cli", summary.Info.Version)
	assert.Equal(t, 16, summary.Info.InputDim)
}

func TestPredictCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeClassifier(t, dir)

	stdout, err := run(t, "predict", "--variant", "direct", "--classifier", path, "--survey", surveyJSON)
	require.NoError(t, err)

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(stdout), &got))
	assert.Equal(t, "High Risk", got["riskLabel"])
	assert.Contains(t, got["message"], "high risk")

	surveyFile := filepath.Join(dir, "survey.json")
	require.NoError(t, os.WriteFile(surveyFile, []byte(surveyJSON), 0o644))
	_, err = run(t, "predict", "--variant", "direct", "--classifier", path, "--survey", "@"+surveyFile)
	assert.NoError(t, err)
}

func TestPredictCommand_OutOfDomain(t *testing.T) {
	path := writeClassifier(t, t.TempDir())

	_, err := run(t, "predict", "--variant", "direct", "--classifier", path, "--survey", `{"HighBP":3}`)
	assert.Error(t, err)
}

func TestActivitiesGenerateAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "activity-registry.json")

	stdout, err := run(t, "activities", "generate", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "wrote 2 activities")

	reg, err := registry.LoadRegistry(path)
	require.NoError(t, err)
	predict, ok := reg.Find("predict-heart-risk")
	require.True(t, ok)
	assert.Equal(t, "30s", predict.Timeout)
	assert.Contains(t, predict.OutputVariables, "riskLabel")
	assert.Contains(t, predict.ErrorCodes, "OUT_OF_DOMAIN_INPUT")

	_, err = run(t, "activities", "generate", "--path", path)
	require.NoError(t, err)
	reg, err = registry.LoadRegistry(path)
	require.NoError(t, err)
	assert.Len(t, reg.Activities, 2)

	stdout, err = run(t, "activities", "validate", "--path", path)
	require.NoError(t, err)
	assert.Contains(t, stdout, "validation passed")
}
