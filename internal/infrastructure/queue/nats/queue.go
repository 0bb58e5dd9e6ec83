package nats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kirillkom/meal-nutrition/internal/core/domain"
	"github.com/kirillkom/meal-nutrition/internal/infrastructure/resilience"
)

const workerQueueGroup = "nutrition-workers"

type Queue struct {
	conn     *nats.Conn
	subject  string
	executor *resilience.Executor
	logger   *slog.Logger
}

type Options struct {
	ConnectTimeout       time.Duration
	ReconnectWait        time.Duration
	MaxReconnects        int
	RetryOnFailedConnect *bool
	ResilienceExecutor   *resilience.Executor
	Logger               *slog.Logger
}

func New(url, subject string, options Options) (*Queue, error) {
	connectTimeout := options.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = 2 * time.Second
	}
	reconnectWait := options.ReconnectWait
	if reconnectWait <= 0 {
		reconnectWait = 2 * time.Second
	}
	maxReconnects := options.MaxReconnects
	if maxReconnects <= 0 {
		maxReconnects = 60
	}
	retryOnFailedConnect := true
	if options.RetryOnFailedConnect != nil {
		retryOnFailedConnect = *options.RetryOnFailedConnect
	}
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := nats.Connect(
		url,
		nats.Name("meal-nutrition"),
		nats.Timeout(connectTimeout),
		nats.ReconnectWait(reconnectWait),
		nats.MaxReconnects(maxReconnects),
		nats.RetryOnFailedConnect(retryOnFailedConnect),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats_disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats_reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}
	return &Queue{
		conn:     conn,
		subject:  subject,
		executor: options.ResilienceExecutor,
		logger:   logger,
	}, nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) PublishAnalysisRequested(ctx context.Context, job domain.AnalysisJob) error {
	payload, err := encodeJob(job)
	if err != nil {
		return err
	}

	err = q.executor.Execute(ctx, publishOperation, func(_ context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return fmt.Errorf("nats publish: %w", err)
		}
		return nil
	}, classifyNATSError)
	if err != nil {
		return wrapTemporaryIfNeeded(err)
	}
	return nil
}

func (q *Queue) SubscribeAnalysisRequested(ctx context.Context, handler func(context.Context, domain.AnalysisJob) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, workerQueueGroup, func(msg *nats.Msg) {
		if errors.Is(ctx.Err(), context.Canceled) {
			return
		}

		job, err := decodeJob(msg.Data)
		if err != nil {
			q.logger.Error("analysis_job_decode_failed", "error", err, "bytes", len(msg.Data))
			return
		}

		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		if err := handler(handlerCtx, job); err != nil {
			q.logger.Error("analysis_job_failed", "report_id", job.ReportID, "error", err)
		}
	})
	if err != nil {
		return fmt.Errorf("nats subscribe: %w", err)
	}

	if err := q.conn.Flush(); err != nil {
		return fmt.Errorf("nats flush: %w", err)
	}

	<-ctx.Done()
	if err := sub.Drain(); err != nil {
		return fmt.Errorf("nats drain subscription: %w", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		return fmt.Errorf("nats flush after drain: %w", err)
	}
	return nil
}

func encodeJob(job domain.AnalysisJob) ([]byte, error) {
	if strings.TrimSpace(job.ReportID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "encode analysis job", errors.New("report id is required"))
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("marshal analysis job: %w", err)
	}
	return payload, nil
}

// decodeJob accepts the JSON envelope and, for older publishers, a bare
// report id.
func decodeJob(data []byte) (domain.AnalysisJob, error) {
	raw := strings.TrimSpace(string(data))
	if raw == "" {
		return domain.AnalysisJob{}, errors.New("empty analysis job payload")
	}
	if !strings.HasPrefix(raw, "{") {
		return domain.AnalysisJob{ReportID: raw}, nil
	}
	var job domain.AnalysisJob
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		return domain.AnalysisJob{}, fmt.Errorf("unmarshal analysis job: %w", err)
	}
	if strings.TrimSpace(job.ReportID) == "" {
		return domain.AnalysisJob{}, errors.New("analysis job without report id")
	}
	return job, nil
}
