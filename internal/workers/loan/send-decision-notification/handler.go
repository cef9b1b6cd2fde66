package senddecisionnotification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"

	"loan-eligibility-workers/internal/common/aws"
	apperrors "loan-eligibility-workers/internal/common/errors"
	"loan-eligibility-workers/internal/common/logger"
	"loan-eligibility-workers/internal/common/metrics"
	"loan-eligibility-workers/internal/common/validation"
)

const (
	TaskType = "send-decision-notification"
)

var (
	ErrInvalidInput           = errors.New("INPUT_VALIDATION_FAILED")
	ErrUnknownStatus          = errors.New("UNKNOWN_APPLICATION_STATUS")
	ErrNotificationSendFailed = errors.New("NOTIFICATION_SEND_FAILED")
)

type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Handler struct {
	config     *Config
	sesClient  SESService
	snsClient  SNSService
	now        func() time.Time
	errHandler *apperrors.ErrorHandler
	logger     logger.Logger
}

func NewHandler(config *Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	l := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:     config,
		sesClient:  sesClient,
		snsClient:  snsClient,
		now:        time.Now,
		errHandler: apperrors.NewErrorHandler(l),
		logger:     l,
	}
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	var input Input
	if err := json.Unmarshal([]byte(job.Variables), &input); err != nil {
		h.errHandler.HandleJobError(context.Background(), client, job, apperrors.NewParseError(err))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		h.errHandler.HandleJobError(context.Background(), client, job, toStandardError(err))
		return
	}

	h.completeJob(client, job, output)
}

// execute sends the decision on every enabled channel the applicant has a
// contact for. With no usable channel the notification is reported as
// disabled rather than failed.
func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	input.resolveContact()
	if res := validation.Struct(input); !res.Valid {
		return nil, fmt.Errorf("%w: %s", ErrInvalidInput, res.Error())
	}

	tmpl, ok := templates[input.ApplicationStatus]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownStatus, input.ApplicationStatus)
	}

	data := map[string]interface{}{
		"fullName":          input.FullName,
		"applicationNumber": input.ApplicationNumber,
		"applicationStatus": input.ApplicationStatus,
		"loanAmount":        input.LoanAmount,
	}

	out := &Output{
		NotificationID: uuid.New().String(),
		Status:         StatusDisabled,
		Channels:       []string{},
		SentAt:         h.now().UTC().Format(time.RFC3339),
	}

	if h.config.EmailEnabled && h.sesClient != nil && input.Email != "" {
		req := aws.BuildEmailInput(aws.Email{
			From:     h.config.FromEmail,
			To:       input.Email,
			Subject:  renderTemplate(tmpl.Subject, data),
			TextBody: renderTemplate(tmpl.Body, data),
		})
		if _, err := h.sesClient.SendEmail(ctx, req); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotificationSendFailed, ChannelEmail, err)
		}
		out.Channels = append(out.Channels, ChannelEmail)
	}

	if h.config.SMSEnabled && h.snsClient != nil && input.PhoneNumber != "" {
		req := aws.BuildSMSInput(input.PhoneNumber, renderTemplate(tmpl.SMS, data), h.config.SenderID)
		if _, err := h.snsClient.Publish(ctx, req); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotificationSendFailed, ChannelSMS, err)
		}
		out.Channels = append(out.Channels, ChannelSMS)
	}

	if len(out.Channels) > 0 {
		out.Status = StatusSent
	}

	h.logger.Info("decision notification processed", map[string]interface{}{
		"userId":            input.UserID,
		"applicationNumber": input.ApplicationNumber,
		"applicationStatus": input.ApplicationStatus,
		"status":            out.Status,
		"channels":          out.Channels,
	})
	return out, nil
}

func toStandardError(err error) error {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnknownStatus):
		return apperrors.NewInputValidationFailedError(err.Error())
	default:
		return apperrors.NewNotificationSendFailedError("aws", err)
	}
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		h.logger.Error("failed to create complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	if _, err := cmd.Send(context.Background()); err != nil {
		h.logger.Error("failed to send complete job command", map[string]interface{}{
			"error": err,
		})
		return
	}
	metrics.WorkerJobsCompleted.WithLabelValues(TaskType).Inc()
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
