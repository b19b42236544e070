// internal/workers/risk/notify-risk-result/handler.go
package notifyriskresult

import (
	"context"
	"fmt"
	"time"

	"heart-risk-workers/internal/common/aws"
	"heart-risk-workers/internal/common/errors"
	"heart-risk-workers/internal/common/logger"
	"heart-risk-workers/internal/common/metrics"
	"heart-risk-workers/internal/common/validation"
	"heart-risk-workers/internal/decision"
	"heart-risk-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
)

const TaskType = "notify-risk-result"

const (
	ChannelEmail = "email"
	ChannelSMS   = "sms"
)

type EmailSender interface {
	Send(ctx context.Context, e aws.Email) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, senderID, message string) (string, error)
}

type Handler struct {
	config       *Config
	email        EmailSender
	sms          SMSSender
	logger       logger.Logger
	errorHandler *errors.ErrorHandler
}

type HandlerOptions struct {
	Config *Config
	Email  EmailSender
	SMS    SMSSender
	Logger logger.Logger
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	if err := opts.Config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration for %s: %w", TaskType, err)
	}
	if opts.Config.EmailEnabled && opts.Email == nil {
		return nil, fmt.Errorf("%s: email sender is required when email is enabled", TaskType)
	}
	if opts.Config.SMSEnabled && opts.SMS == nil {
		return nil, fmt.Errorf("%s: sms sender is required when sms is enabled", TaskType)
	}

	log := opts.Logger
	if log == nil {
		log = logger.NewStructured("info", "json")
	}
	log = log.WithFields(map[string]interface{}{"taskType": TaskType})

	return &Handler{
		config:       opts.Config,
		email:        opts.Email,
		sms:          opts.SMS,
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
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandardError(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	output, err := h.Execute(ctx, input)
	if err != nil {
		metrics.WorkerJobsFailed.WithLabelValues(TaskType, string(errors.AsStandardError(err).Code)).Inc()
		h.errorHandler.HandleJobError(ctx, client, job, err)
		return
	}

	h.completeJob(ctx, client, job, output)
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
	metrics.WorkerJobDuration.WithLabelValues(TaskType).Observe(time.Since(startTime).Seconds())
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

	input := &Input{
		PredictionID: variables["predictionId"].(string),
		RiskLabel:    variables["riskLabel"].(string),
	}
	if v, ok := variables["respondentId"].(string); ok {
		input.RespondentID = v
	}
	if v, ok := variables["riskScore"].(float64); ok {
		input.RiskScore = v
	}
	if v, ok := variables["email"].(string); ok {
		input.Email = v
	}
	if v, ok := variables["phone"].(string); ok {
		input.Phone = v
	}
	return input, nil
}

// Execute notifies the respondent of a High Risk result on every enabled
// channel with a contact. Low Risk results are not sent.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	label := decision.Label(input.RiskLabel)
	if label != decision.HighRisk && label != decision.LowRisk {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("unknown risk label %q", input.RiskLabel))
	}
	if input.Email != "" && !validation.ValidateEmail(input.Email) {
		return nil, errors.NewInvalidInputError(fmt.Sprintf("invalid email %q", input.Email))
	}
	if input.Phone != "" && !validation.ValidatePhone(input.Phone) {
		return nil, errors.NewInvalidInputError("phone must be in E.164 format")
	}

	output := &Output{Channels: []string{}, Notifications: []models.Notification{}}
	if !label.IsHigh() {
		h.logger.Info("low risk result, no notification sent", map[string]interface{}{
			"predictionId": input.PredictionID,
		})
		return output, nil
	}

	var firstErr error
	var firstChannel string
	attempt := func(channel string, send func() (string, error)) {
		n := models.Notification{
			ID:           uuid.New().String(),
			PredictionID: input.PredictionID,
			RespondentID: input.RespondentID,
			Channel:      channel,
		}
		messageID, err := send()
		if err != nil {
			n.Status = "failed"
			n.Error = err.Error()
			if firstErr == nil {
				firstErr, firstChannel = err, channel
			}
			h.logger.Warn("notification failed", map[string]interface{}{
				"predictionId": input.PredictionID,
				"channel":      channel,
				"error":        err.Error(),
			})
		} else {
			n.Status = "sent"
			n.MessageID = messageID
			n.SentAt = time.Now().UTC().Format(time.RFC3339)
			output.Channels = append(output.Channels, channel)
			metrics.NotificationsSent.WithLabelValues(channel).Inc()
		}
		output.Notifications = append(output.Notifications, n)
	}

	if h.config.EmailEnabled && input.Email != "" {
		tmpl := emailTemplate(input)
		attempt(ChannelEmail, func() (string, error) {
			return h.email.Send(ctx, aws.Email{
				From:     h.config.FromEmail,
				To:       input.Email,
				Subject:  tmpl.Subject,
				TextBody: tmpl.Body,
				HTMLBody: tmpl.HTMLBody,
			})
		})
	}
	if h.config.SMSEnabled && input.Phone != "" {
		attempt(ChannelSMS, func() (string, error) {
			return h.sms.SendSMS(ctx, input.Phone, h.config.SenderID, smsMessage(input))
		})
	}

	output.Notified = len(output.Channels) > 0
	if !output.Notified && firstErr != nil {
		return nil, errors.NewNotificationSendFailedError(firstChannel, firstErr)
	}

	h.logger.Info("risk result notification processed", map[string]interface{}{
		"predictionId": input.PredictionID,
		"notified":     output.Notified,
		"channels":     output.Channels,
	})
	return output, nil
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
		"jobKey":   job.GetKey(),
		"notified": output.Notified,
	})
}
