// internal/workers/risk/predict-heart-risk/handler.go
package predictheartrisk

import (
	"context"
	"fmt"
	"time"

	"heart-risk-workers/internal/common/errors"
	"heart-risk-workers/internal/common/logger"
	"heart-risk-workers/internal/common/metrics"
	"heart-risk-workers/internal/common/observability"
	"heart-risk-workers/internal/common/validation"
	"heart-risk-workers/internal/predictor"
	"heart-risk-workers/internal/survey"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

const TaskType = "predict-heart-risk"

const source = "worker"

type Handler struct {
	config       *Config
	pipeline     *predictor.Pipeline
	obs          *observability.Observability
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	Config        *Config
	Pipeline      *predictor.Pipeline
	Observability *observability.Observability
	Logger        logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if opts.Pipeline == nil {
		return nil, fmt.Errorf("%s: pipeline is required", TaskType)
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       opts.Config,
		pipeline:     opts.Pipeline,
		obs:          opts.Observability,
		logger:       log,
		errorHandler: errors.NewErrorHandler(log),
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	metrics.WorkerJobsActive.WithLabelValues(TaskType).Inc()
	defer metrics.WorkerJobsActive.WithLabelValues(TaskType).Dec()

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":             job.GetKey(),
		"processInstanceKey": job.GetProcessInstanceKey(),
	})

	input, err := h.parseInput(job)
	if err != nil {
		h.fail(ctx, client, job, err, startTime)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		h.fail(ctx, client, job, err, startTime)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
	if h.obs != nil {
		h.obs.RecordJobProcessed(ctx, "completed")
		h.obs.RecordJobDuration(ctx, time.Since(startTime), "completed")
	}
}

func (h *Handler) parseInput(job entities.Job) (*Input, error) {
	variables, err := job.GetVariablesAsMap()
	if err != nil {
		return nil, errors.NewParseError(err)
	}

	result, err := validation.ValidateInput(variables, GetInputSchema())
	if err != nil {
		return nil, errors.NewParseError(err)
	}
	if !result.Valid {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("job variables: %v", result.GetErrorMessages()))
	}

	input := &Input{Survey: variables["survey"].(map[string]interface{})}
	if respondentID, ok := variables["respondentId"].(string); ok {
		input.RespondentID = respondentID
	}
	return input, nil
}

// Execute validates the survey and runs the assessment pipeline.
func (h *Handler) Execute(ctx context.Context, input *Input) (output *Output, err error) {
	ctx, span := h.startSpan(ctx, "job."+TaskType, attribute.Bool("respondent", input.RespondentID != ""))
	defer func() { observability.EndSpan(span, err) }()

	rec, err := survey.Decode(input.Survey)
	if err != nil {
		return nil, err
	}

	assessment, err := h.pipeline.Assess(ctx, input.RespondentID, rec, source)
	if err != nil {
		return nil, err
	}

	return &Output{
		PredictionID:     assessment.PredictionID,
		RiskLabel:        string(assessment.RiskLabel),
		RiskScore:        assessment.RiskScore,
		HighRisk:         assessment.HighRisk,
		RiskMessage:      assessment.Message,
		Policy:           assessment.Policy,
		Variant:          assessment.Variant,
		ModelVersion:     assessment.ModelVersion,
		TransformVersion: assessment.TransformVersion,
		CacheHit:         assessment.CacheHit,
		Persisted:        assessment.Persisted,
		PredictedAt:      assessment.PredictedAt.Format(time.RFC3339),
	}, nil
}

func (h *Handler) completeJob(ctx context.Context, client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.GetKey()).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	if _, err := cmd.Send(ctx); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"jobKey": job.GetKey(),
			"error":  err.Error(),
		})
		return
	}

	h.logger.Info("job completed successfully", map[string]interface{}{
		"jobKey":       job.GetKey(),
		"predictionId": output.PredictionID,
		"riskLabel":    output.RiskLabel,
		"cacheHit":     output.CacheHit,
	})
}

func (h *Handler) fail(ctx context.Context, client worker.JobClient, job entities.Job, err error, startTime time.Time) {
	code := string(errors.AsStandardError(err).Code)
	metrics.WorkerJobsFailed.WithLabelValues(TaskType, code).Inc()
	if h.obs != nil {
		h.obs.RecordJobProcessed(ctx, "failed")
		h.obs.RecordJobDuration(ctx, time.Since(startTime), "failed")
	}
	h.errorHandler.HandleJobError(ctx, client, job, err)
}

func (h *Handler) startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if h.obs == nil {
		return noop.NewTracerProvider().Tracer(TaskType).Start(ctx, name)
	}
	return h.obs.StartSpan(ctx, name, attrs...)
}
