// Package predictor owns the loaded artifacts and runs the
// assemble -> transform -> infer -> decide chain for one survey record.
package predictor

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"heart-risk-workers/internal/classifier"
	"heart-risk-workers/internal/common/config"
	"heart-risk-workers/internal/common/errors"
	commonhttp "heart-risk-workers/internal/common/http"
	"heart-risk-workers/internal/common/logger"
	"heart-risk-workers/internal/common/metrics"
	"heart-risk-workers/internal/common/observability"
	"heart-risk-workers/internal/decision"
	"heart-risk-workers/internal/preprocess"
	"heart-risk-workers/internal/survey"
)

// Result is the outcome of one prediction.
type Result struct {
	Score            float64        `json:"riskScore"`
	Label            decision.Label `json:"riskLabel"`
	Policy           string         `json:"policy"`
	Variant          string         `json:"variant"`
	ModelVersion     string         `json:"modelVersion"`
	TransformVersion string         `json:"transformVersion,omitempty"`
}

// ModelInfo summarizes the loaded artifacts.
type ModelInfo struct {
	Variant          string          `json:"variant"`
	Policy           string          `json:"policy"`
	Classifier       classifier.Info `json:"classifier"`
	TransformVersion string          `json:"transformVersion,omitempty"`
	FeatureNames     []string        `json:"featureNames"`
}

// Predictor is immutable after construction and shared by all requests.
type Predictor struct {
	variant   string
	model     classifier.Classifier
	transform *preprocess.Transform
	policy    decision.Policy
	obs       *observability.Observability
}

type Option func(*Predictor)

// WithObservability adds spans and OTel meters to Predict.
func WithObservability(obs *observability.Observability) Option {
	return func(p *Predictor) { p.obs = obs }
}

// New binds a classifier, an optional transform and a policy. The classifier's
// layout must match variant and its input width must match what assembly
// produces, otherwise INVALID_ARTIFACT.
func New(variant string, model classifier.Classifier, transform *preprocess.Transform, policy decision.Policy, opts ...Option) (*Predictor, error) {
	info := model.Info()

	if info.Layout != variant {
		return nil, errors.NewInvalidArtifactError("classifier",
			fmt.Sprintf("classifier trained on %q layout cannot serve the %q variant", info.Layout, variant))
	}

	var want int
	switch variant {
	case config.VariantDirect:
		want = survey.VectorLength
	case config.VariantPreprocessed:
		if transform == nil {
			return nil, errors.NewMissingArtifactError("transform", "", fmt.Errorf("preprocessed variant needs a transform"))
		}
		want = transform.OutputDim()
	default:
		return nil, errors.NewInvalidInputError(fmt.Sprintf("unknown variant %q", variant))
	}
	if info.InputDim != want {
		return nil, errors.NewInvalidArtifactError("classifier",
			fmt.Sprintf("classifier expects %d features, %s assembly produces %d", info.InputDim, variant, want))
	}

	p := &Predictor{variant: variant, model: model, policy: policy}
	if variant == config.VariantPreprocessed {
		p.transform = transform
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Init loads the artifacts named by cfg. Any failure aborts startup.
func Init(cfg config.ModelConfig, log logger.Logger, opts ...Option) (*Predictor, error) {
	var transform *preprocess.Transform
	if cfg.Variant == config.VariantPreprocessed {
		t, err := preprocess.LoadFile(cfg.TransformPath)
		if err != nil {
			return nil, err
		}
		transform = t
		metrics.ArtifactsLoaded.WithLabelValues("transform").Set(1)
	}

	model, err := loadClassifier(cfg, transform)
	if err != nil {
		return nil, err
	}
	metrics.ArtifactsLoaded.WithLabelValues("classifier").Set(1)

	policy, err := decision.ForModel(cfg.DecisionPolicy, cfg.Threshold, model.Info().Output)
	if err != nil {
		return nil, errors.NewInvalidArtifactError("classifier", err.Error())
	}

	p, err := New(cfg.Variant, model, transform, policy, opts...)
	if err != nil {
		return nil, err
	}

	info := p.Info()
	log.Info("Model artifacts loaded", map[string]interface{}{
		"variant":          info.Variant,
		"classifierType":   info.Classifier.Type,
		"modelVersion":     info.Classifier.Version,
		"inputDim":         info.Classifier.InputDim,
		"output":           info.Classifier.Output,
		"policy":           info.Policy,
		"transformVersion": info.TransformVersion,
	})
	return p, nil
}

func loadClassifier(cfg config.ModelConfig, transform *preprocess.Transform) (classifier.Classifier, error) {
	if !cfg.IsRemote() {
		return classifier.LoadFile(cfg.ClassifierPath)
	}

	dim := cfg.Remote.InputDim
	if dim == 0 {
		dim = survey.VectorLength
		if transform != nil {
			dim = transform.OutputDim()
		}
	}
	client := commonhttp.NewClient(config.GetDuration(cfg.Remote.Timeout))
	return classifier.NewRemote(cfg.Remote.URL, client, classifier.Info{
		Version:  cfg.Remote.Version,
		Layout:   cfg.Variant,
		InputDim: dim,
		Output:   cfg.Remote.Output,
	}), nil
}

// Assemble builds the classifier input for rec under the configured variant.
func (p *Predictor) Assemble(rec survey.Record) []float64 {
	if p.transform != nil {
		return p.transform.Apply(rec.Features())
	}
	return rec.Vector()
}

// Predict validates rec, runs the classifier and applies the decision policy.
func (p *Predictor) Predict(ctx context.Context, rec survey.Record) (result *Result, err error) {
	start := time.Now()
	ctx, span := p.startSpan(ctx, "predictor.predict", attribute.String("variant", p.variant))
	defer func() {
		observability.EndSpan(span, err)
		if err != nil {
			metrics.PredictionFailures.WithLabelValues(string(errors.AsStandardError(err).Code)).Inc()
		}
	}()

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	_, assembleSpan := p.startSpan(ctx, "predictor.assemble")
	x := p.Assemble(rec)
	observability.EndSpan(assembleSpan, nil)

	inferCtx, inferSpan := p.startSpan(ctx, "predictor.infer", attribute.Int("features", len(x)))
	inferStart := time.Now()
	score, inferErr := p.model.Predict(inferCtx, x)
	inferDuration := time.Since(inferStart)
	if inferErr == nil && (math.IsNaN(score) || math.IsInf(score, 0)) {
		inferErr = fmt.Errorf("classifier returned non-finite score %v", score)
	}
	observability.EndSpan(inferSpan, inferErr)
	metrics.InferenceDuration.WithLabelValues(p.variant).Observe(inferDuration.Seconds())

	if inferErr != nil {
		if errors.AsStandardError(inferErr).Code == errors.ErrCodeFeatureMismatch {
			return nil, inferErr
		}
		return nil, errors.NewInferenceFailedError(p.model.Info().Type, inferErr)
	}

	label := p.policy.Decide(score)
	metrics.PredictionsTotal.WithLabelValues(p.variant, string(label)).Inc()
	if p.obs != nil {
		p.obs.RecordPrediction(ctx, p.variant, string(label), time.Since(start))
	}

	result = &Result{
		Score:        score,
		Label:        label,
		Policy:       p.policy.Name(),
		Variant:      p.variant,
		ModelVersion: p.model.Info().Version,
	}
	if p.transform != nil {
		result.TransformVersion = p.transform.Version
	}
	return result, nil
}

// Info describes the loaded artifacts.
func (p *Predictor) Info() ModelInfo {
	info := ModelInfo{
		Variant:    p.variant,
		Policy:     p.policy.Name(),
		Classifier: p.model.Info(),
	}
	if p.transform != nil {
		info.TransformVersion = p.transform.Version
		info.FeatureNames = p.transform.FeatureNames()
	} else {
		for _, f := range survey.Fields {
			info.FeatureNames = append(info.FeatureNames, f.Name)
		}
	}
	return info
}

// CacheKey identifies rec's result under the loaded artifacts.
func (p *Predictor) CacheKey(rec survey.Record) string {
	key := fmt.Sprintf("heart-risk:%s:%s:%s", p.variant, p.model.Info().Version, policyKey(p.policy))
	if p.transform != nil {
		key += ":" + p.transform.Version
	}
	return key + ":" + rec.Fingerprint()
}

// policyKey names the policy together with its cutoff.
func policyKey(policy decision.Policy) string {
	if t, ok := policy.(decision.Threshold); ok {
		return policy.Name() + "@" + strconv.FormatFloat(t.Cutoff, 'g', -1, 64)
	}
	return policy.Name()
}

// Decide applies the loaded policy to score.
func (p *Predictor) Decide(score float64) decision.Label {
	return p.policy.Decide(score)
}

var noopTracer = noop.NewTracerProvider().Tracer("predictor")

func (p *Predictor) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if p.obs == nil {
		return noopTracer.Start(ctx, name)
	}
	return p.obs.StartSpan(ctx, name, attrs...)
}
