package predictor

import (
	"context"
	stderrors "errors"
	"math"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heart-risk-workers/internal/classifier"
	"heart-risk-workers/internal/common/config"
	"heart-risk-workers/internal/common/errors"
	"heart-risk-workers/internal/common/logger"
	"heart-risk-workers/internal/decision"
	"heart-risk-workers/internal/preprocess"
	"heart-risk-workers/internal/survey"
)

// fakeClassifier records what it was asked and answers with a fixed score.
type fakeClassifier struct {
	info  classifier.Info
	score float64
	err   error
	calls int
	last  []float64
}

func (f *fakeClassifier) Predict(_ context.Context, x []float64) (float64, error) {
	f.calls++
	f.last = x
	return f.score, f.err
}

func (f *fakeClassifier) Info() classifier.Info { return f.info }

func directFake(score float64) *fakeClassifier {
	return &fakeClassifier{
		info:  classifier.Info{Type: "fake", Version: "v-test", Layout: classifier.LayoutDirect, InputDim: 16, Output: classifier.OutputProbability},
		score: score,
	}
}

func scenarioRecord() survey.Record {
	return survey.Record{
		HighBP: 1, HighChol: 1, CholCheck: 1, BMI: 30, Smoker: 1, Stroke: 0,
		Diabetes: 1, PhysActivity: 0, HvyAlcoholConsump: 0, AnyHealthcare: 1,
		NoDocbcCost: 0, GenHlth: 4, MentHlth: 5, PhysHlth: 10, Sex: 1, Age: 9,
	}
}

const trainingCSV = `HeartDiseaseorAttack,HighBP,HighChol,CholCheck,BMI,Smoker,Stroke,Diabetes,PhysActivity,Fruits,Veggies,HvyAlcoholConsump,AnyHealthcare,NoDocbcCost,GenHlth,MentHlth,PhysHlth,DiffWalk,Sex,Age,Education,Income
0,1,0,0,20,0,0,0,0,1,1,0,0,0,1,0,0,0,1,1,4,5
1,0,1,1,30,1,0,1,1,0,1,1,1,1,2,3,10,1,1,5,5,6
0,1,1,1,35,1,1,2,1,1,0,1,1,1,3,6,20,0,0,9,6,7
1,0,1,1,40,1,0,1,1,1,1,1,1,1,4,9,30,1,0,13,3,2
`

func fitTransform(t *testing.T) *preprocess.Transform {
	t.Helper()
	ds, err := preprocess.ReadCSV(strings.NewReader(trainingCSV))
	require.NoError(t, err)
	tr, err := preprocess.Fit(ds)
	require.NoError(t, err)
	return tr
}

func TestPredict_EndToEndScenario(t *testing.T) {
	model := directFake(0.81)
	p, err := New(config.VariantDirect, model, nil, decision.Threshold{Cutoff: 0.5})
	require.NoError(t, err)

	result, err := p.Predict(context.Background(), scenarioRecord())
	require.NoError(t, err)

	assert.Equal(t, []float64{1, 1, 1, 30, 1, 0, 1, 0, 0, 1, 0, 4, 5, 10, 1, 9}, model.last)
	assert.Equal(t, decision.HighRisk, result.Label)
	assert.Equal(t, 0.81, result.Score)
	assert.Equal(t, config.PolicyThreshold, result.Policy)
	assert.Equal(t, "v-test", result.ModelVersion)
}

func TestPredict_PolicyChoiceChangesLabel(t *testing.T) {
	threshold, err := New(config.VariantDirect, directFake(0.97), nil, decision.Threshold{Cutoff: 0.5})
	require.NoError(t, err)
	equality, err := New(config.VariantDirect, directFake(0.97), nil, decision.Equality{})
	require.NoError(t, err)

	r1, err := threshold.Predict(context.Background(), scenarioRecord())
	require.NoError(t, err)
	r2, err := equality.Predict(context.Background(), scenarioRecord())
	require.NoError(t, err)

	assert.Equal(t, decision.HighRisk, r1.Label)
	assert.Equal(t, decision.LowRisk, r2.Label)
}

func TestPredict_OutOfDomainSkipsModel(t *testing.T) {
	model := directFake(0.9)
	p, err := New(config.VariantDirect, model, nil, decision.Threshold{Cutoff: 0.5})
	require.NoError(t, err)

	rec := scenarioRecord()
	rec.BMI = 99

	_, err = p.Predict(context.Background(), rec)
	assert.True(t, stderrors.Is(err, errors.ErrOutOfDomainInput))
	assert.Zero(t, model.calls)
}

func TestPredict_InferenceFailures(t *testing.T) {
	tests := []struct {
		name  string
		score float64
		err   error
	}{
		{"classifier error", 0, stderrors.New("session closed")},
		{"NaN score", math.NaN(), nil},
		{"infinite score", math.Inf(1), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			model := directFake(tt.score)
			model.err = tt.err
			p, err := New(config.VariantDirect, model, nil, decision.Threshold{Cutoff: 0.5})
			require.NoError(t, err)

			_, err = p.Predict(context.Background(), scenarioRecord())
			require.Error(t, err)
			assert.True(t, stderrors.Is(err, errors.ErrInferenceFailed))
			assert.Equal(t, 1, model.calls, "no retry")
		})
	}
}

func TestNew_LayoutBinding(t *testing.T) {
	tr := fitTransform(t)

	t.Run("preprocessed model on direct variant", func(t *testing.T) {
		model := directFake(0.5)
		model.info.Layout = classifier.LayoutPreprocessed
		_, err := New(config.VariantDirect, model, nil, decision.Equality{})
		assert.True(t, stderrors.Is(err, errors.ErrInvalidArtifact))
	})

	t.Run("width mismatch", func(t *testing.T) {
		model := directFake(0.5)
		model.info.Layout = classifier.LayoutPreprocessed
		model.info.InputDim = tr.OutputDim() + 1
		_, err := New(config.VariantPreprocessed, model, tr, decision.Equality{})
		assert.True(t, stderrors.Is(err, errors.ErrInvalidArtifact))
	})

	t.Run("preprocessed without transform", func(t *testing.T) {
		model := directFake(0.5)
		model.info.Layout = classifier.LayoutPreprocessed
		_, err := New(config.VariantPreprocessed, model, nil, decision.Equality{})
		assert.True(t, stderrors.Is(err, errors.ErrMissingArtifact))
	})
}

func TestPredict_PreprocessedVariant(t *testing.T) {
	tr := fitTransform(t)
	model := &fakeClassifier{
		info:  classifier.Info{Type: "fake", Version: "v2", Layout: classifier.LayoutPreprocessed, InputDim: tr.OutputDim(), Output: classifier.OutputLabel},
		score: 1,
	}
	p, err := New(config.VariantPreprocessed, model, tr, decision.Equality{})
	require.NoError(t, err)

	result, err := p.Predict(context.Background(), scenarioRecord())
	require.NoError(t, err)

	assert.Equal(t, decision.HighRisk, result.Label)
	assert.Equal(t, tr.Version, result.TransformVersion)
	assert.Equal(t, tr.Apply(scenarioRecord().Features()), model.last)
	assert.Equal(t, tr.FeatureNames(), p.Info().FeatureNames)
}

func TestCacheKey(t *testing.T) {
	p, err := New(config.VariantDirect, directFake(0.5), nil, decision.Threshold{Cutoff: 0.5})
	require.NoError(t, err)

	rec := scenarioRecord()
	assert.Equal(t, p.CacheKey(rec), p.CacheKey(scenarioRecord()))
	assert.True(t, strings.HasPrefix(p.CacheKey(rec), "heart-risk:direct:v-test:threshold@0.5:"))

	rec.Age = 3
	assert.NotEqual(t, p.CacheKey(rec), p.CacheKey(scenarioRecord()))

	strict, err := New(config.VariantDirect, directFake(0.5), nil, decision.Threshold{Cutoff: 0.7})
	require.NoError(t, err)
	assert.NotEqual(t, p.CacheKey(scenarioRecord()), strict.CacheKey(scenarioRecord()))
}

func writeLogistic(t *testing.T, dir string, layout string, dim int, output string) string {
	t.Helper()
	weights := make([]float64, dim)
	for i := range weights {
		weights[i] = 0.1
	}
	a := &classifier.Artifact{
		Type: classifier.TypeLogistic, Version: "lr-1", FeatureLayout: layout,
		InputDim: dim, Output: output, Weights: weights, Bias: -3,
	}
	path := filepath.Join(dir, "classifier.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, a.Write(f))
	require.NoError(t, f.Close())
	return path
}

func TestInit_Direct(t *testing.T) {
	dir := t.TempDir()
	cfg := config.ModelConfig{
		Variant:        config.VariantDirect,
		ClassifierPath: writeLogistic(t, dir, classifier.LayoutDirect, 16, classifier.OutputProbability),
		DecisionPolicy: config.PolicyAuto,
		Threshold:      0.5,
	}

	p, err := Init(cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, config.PolicyThreshold, p.Info().Policy)

	// z = -3 + 0.1*sum(vector) = -3 + 0.1*65
	result, err := p.Predict(context.Background(), scenarioRecord())
	require.NoError(t, err)
	assert.InDelta(t, 1/(1+math.Exp(-3.5)), result.Score, 1e-9)
	assert.Equal(t, decision.HighRisk, result.Label)
}

func TestInit_Preprocessed(t *testing.T) {
	dir := t.TempDir()
	tr := fitTransform(t)
	transformPath := filepath.Join(dir, "transform.json")
	require.NoError(t, tr.SaveFile(transformPath))

	cfg := config.ModelConfig{
		Variant:        config.VariantPreprocessed,
		ClassifierPath: writeLogistic(t, dir, classifier.LayoutPreprocessed, tr.OutputDim(), classifier.OutputLabel),
		TransformPath:  transformPath,
		DecisionPolicy: config.PolicyAuto,
		Threshold:      0.5,
	}

	p, err := Init(cfg, logger.NewTestLogger(t))
	require.NoError(t, err)
	assert.Equal(t, config.PolicyEquality, p.Info().Policy)
	assert.Equal(t, tr.Version, p.Info().TransformVersion)
}

func TestInit_Failures(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing classifier", func(t *testing.T) {
		_, err := Init(config.ModelConfig{
			Variant: config.VariantDirect, ClassifierPath: filepath.Join(dir, "nope.json"),
			DecisionPolicy: config.PolicyAuto, Threshold: 0.5,
		}, logger.NewNoOpLogger())
		assert.True(t, stderrors.Is(err, errors.ErrMissingArtifact))
	})

	t.Run("missing transform", func(t *testing.T) {
		_, err := Init(config.ModelConfig{
			Variant:        config.VariantPreprocessed,
			ClassifierPath: writeLogistic(t, dir, classifier.LayoutPreprocessed, 10, classifier.OutputProbability),
			TransformPath:  filepath.Join(dir, "absent-transform.json"),
			DecisionPolicy: config.PolicyAuto, Threshold: 0.5,
		}, logger.NewNoOpLogger())
		assert.True(t, stderrors.Is(err, errors.ErrMissingArtifact))
	})

	t.Run("direct variant with preprocessed classifier", func(t *testing.T) {
		_, err := Init(config.ModelConfig{
			Variant:        config.VariantDirect,
			ClassifierPath: writeLogistic(t, dir, classifier.LayoutPreprocessed, 16, classifier.OutputProbability),
			DecisionPolicy: config.PolicyAuto, Threshold: 0.5,
		}, logger.NewNoOpLogger())
		assert.True(t, stderrors.Is(err, errors.ErrInvalidArtifact))
	})
}

func TestInit_RemoteModel(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"predictions": [[0.12]]}`))
	}))
	defer server.Close()

	p, err := Init(config.ModelConfig{
		Variant:        config.VariantDirect,
		DecisionPolicy: config.PolicyAuto,
		Threshold:      0.5,
		Remote: config.RemoteModelConfig{
			URL: server.URL, Timeout: 1000, Output: classifier.OutputProbability, Version: "serving-3",
		},
	}, logger.NewNoOpLogger())
	require.NoError(t, err)
	assert.Equal(t, 16, p.Info().Classifier.InputDim)

	result, err := p.Predict(context.Background(), scenarioRecord())
	require.NoError(t, err)
	assert.Equal(t, decision.LowRisk, result.Label)
	assert.Equal(t, "serving-3", result.ModelVersion)
}

func TestInit_RemoteModelUnavailable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	p, err := Init(config.ModelConfig{
		Variant: config.VariantDirect, DecisionPolicy: config.PolicyAuto, Threshold: 0.5,
		Remote: config.RemoteModelConfig{URL: server.URL, Timeout: 1000, Output: classifier.OutputProbability},
	}, logger.NewNoOpLogger())
	require.NoError(t, err)

	_, err = p.Predict(context.Background(), scenarioRecord())
	assert.True(t, stderrors.Is(err, errors.ErrInferenceFailed))
}
