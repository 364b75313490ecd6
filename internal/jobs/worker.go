// Package jobs serves forecast requests that arrive through the message
// broker instead of HTTP. Each request is answered with one response event.
package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/soltixdb/seasoncast/internal/logging"
	"github.com/soltixdb/seasoncast/internal/metrics"
	"github.com/soltixdb/seasoncast/internal/models"
	"github.com/soltixdb/seasoncast/internal/queue"
	"github.com/soltixdb/seasoncast/internal/services"
	"github.com/soltixdb/seasoncast/internal/subscriber"
	"github.com/soltixdb/seasoncast/internal/utils"
)

// Subjects relative to the configured prefix
const (
	SubjectRequests  = "requests"
	SubjectResponses = "responses"
)

// Response statuses
const (
	StatusOK       = "ok"
	StatusRejected = "rejected" // the request or its configuration was invalid
	StatusFailed   = "failed"   // the run itself failed
)

// Request is the payload consumed from the requests subject
type Request struct {
	JobID   string                 `json:"job_id,omitempty"`   // generated when empty
	ReplyTo string                 `json:"reply_to,omitempty"` // full subject; default is the responses subject
	Request models.ForecastRequest `json:"request"`
}

// Response is published once per request
type Response struct {
	JobID  string                   `json:"job_id"`
	Status string                   `json:"status"`
	Result *models.ForecastResponse `json:"result,omitempty"`
	Error  *models.ErrorDetail      `json:"error,omitempty"`
}

// Worker runs broker requests through the forecast service
type Worker struct {
	logger    *logging.Logger
	service   *services.ForecastService
	defaults  services.RunConfig
	publisher queue.Publisher
	subject   func(string) string
	metrics   *metrics.Metrics
}

// NewWorker creates a worker. subject maps SubjectRequests/SubjectResponses
// to full subject names. m may be nil.
func NewWorker(logger *logging.Logger, service *services.ForecastService, defaults services.RunConfig,
	publisher queue.Publisher, subject func(string) string, m *metrics.Metrics) *Worker {
	return &Worker{
		logger:    logger.With("component", "jobs"),
		service:   service,
		defaults:  defaults,
		publisher: publisher,
		subject:   subject,
		metrics:   m,
	}
}

// Start subscribes the worker to the requests subject
func (w *Worker) Start(ctx context.Context, sub subscriber.Subscriber) error {
	subject := w.subject(SubjectRequests)
	if err := sub.Subscribe(ctx, subject, w.Handle); err != nil {
		return fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	w.logger.Info("Consuming forecast jobs", "subject", subject)
	return nil
}

// Handle processes one request message. Only a failure to publish the
// response is returned, so the broker may redeliver; an undecodable payload
// is logged and dropped.
func (w *Worker) Handle(ctx context.Context, _ string, data []byte) error {
	var req Request
	if err := json.Unmarshal(data, &req); err != nil {
		w.count(StatusRejected)
		w.logger.Error("Dropping undecodable job", "error", err, "size", len(data))
		return nil
	}
	if req.JobID == "" {
		req.JobID = uuid.NewString()
	}
	ctx = logging.WithLogger(logging.WithRequestID(ctx, req.JobID), w.logger)

	resp := w.run(ctx, req)
	w.count(resp.Status)

	payload, err := json.Marshal(resp)
	if err != nil {
		return fmt.Errorf("encode response for job %s: %w", req.JobID, err)
	}

	reply := req.ReplyTo
	if reply == "" {
		reply = w.subject(SubjectResponses)
	}
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), utils.PublishTimeout)
	defer cancel()
	if err := w.publisher.Publish(pubCtx, reply, payload); err != nil {
		if w.metrics != nil {
			w.metrics.PublishErrors.Inc()
		}
		return fmt.Errorf("publish response for job %s: %w", req.JobID, err)
	}

	logging.Ctx(ctx).Debug("Job answered", "status", resp.Status, "reply_to", reply)
	return nil
}

func (w *Worker) run(ctx context.Context, req Request) Response {
	reject := func(err error) Response {
		detail := models.NewErrorDetail(err)
		return Response{JobID: req.JobID, Status: StatusRejected, Error: &detail}
	}

	series, err := req.Request.SeriesMap()
	if err != nil {
		return reject(err)
	}
	cfg, err := req.Request.RunConfig(w.defaults)
	if err != nil {
		return reject(err)
	}

	ctx, cancel := context.WithTimeout(ctx, utils.DefaultRequestTimeout)
	defer cancel()

	result, err := w.service.Run(ctx, series, cfg)
	if err != nil {
		detail := models.NewErrorDetail(err)
		status := StatusFailed
		if detail.Code != services.CodeInternal {
			status = StatusRejected
		}
		logging.Ctx(ctx).Warn("Forecast job failed", "code", detail.Code, "error", err)
		return Response{JobID: req.JobID, Status: status, Error: &detail}
	}

	out := models.NewForecastResponse(result, cfg.Confidence)
	return Response{JobID: req.JobID, Status: StatusOK, Result: &out}
}

func (w *Worker) count(status string) {
	if w.metrics != nil {
		w.metrics.JobsTotal.WithLabelValues(status).Inc()
	}
}
