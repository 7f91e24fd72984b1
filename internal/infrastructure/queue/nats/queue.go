package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/avelinsk/finpaper/internal/core/domain"
	"github.com/avelinsk/finpaper/internal/infrastructure/resilience"
)

const queueGroup = "workers"

// processRequest is the wire payload for document processing requests.
type processRequest struct {
	DocumentID string `json:"document_id"`
	RunID      string `json:"run_id"`
}

// Queue publishes and consumes document processing requests over NATS.
type Queue struct {
	conn     *nats.Conn
	subject  string
	logger   *slog.Logger
	executor *resilience.Executor
}

func New(url, subject string, logger *slog.Logger) (*Queue, error) {
	opts := []nats.Option{
		nats.Name("finpaper"),
		nats.Timeout(2 * time.Second),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(60),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats.disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats.reconnected", "url", nc.ConnectedUrl())
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, domain.WrapError(domain.ErrTemporary, "nats connect", err)
	}

	return &Queue{
		conn:     conn,
		subject:  subject,
		logger:   logger,
		executor: resilience.NewExecutor(resilience.DefaultConfig()),
	}, nil
}

// PublishProcessRequest enqueues a processing request for the document.
func (q *Queue) PublishProcessRequest(ctx context.Context, documentID, runID string) error {
	payload, err := json.Marshal(processRequest{DocumentID: documentID, RunID: runID})
	if err != nil {
		return domain.WrapError(domain.ErrInvalidInput, "marshal process request", err)
	}

	err = q.executor.Execute(ctx, "nats.publish", func(ctx context.Context) error {
		if err := q.conn.Publish(q.subject, payload); err != nil {
			return err
		}
		return q.conn.FlushTimeout(2 * time.Second)
	}, classifyNATSError)
	if err != nil {
		return wrapTemporaryIfNeeded("publish process request", err)
	}

	q.logger.Debug("queue.published",
		"subject", q.subject,
		"document_id", documentID,
		"run_id", runID,
	)
	return nil
}

// SubscribeProcessRequests consumes processing requests in the workers queue
// group until ctx is cancelled. The handler runs synchronously per message.
//
// Core NATS delivery is at-most-once: a handler error is logged and the
// message is not redelivered. Recovery is the reprocess endpoint, which
// republishes the recorded run id; a JetStream consumer with acks would
// be the upgrade path if broker-side redelivery is needed.
func (q *Queue) SubscribeProcessRequests(ctx context.Context, handler func(ctx context.Context, documentID, runID string) error) error {
	sub, err := q.conn.QueueSubscribe(q.subject, queueGroup, func(msg *nats.Msg) {
		var req processRequest
		if err := json.Unmarshal(msg.Data, &req); err != nil {
			q.logger.Error("queue.malformed_message",
				"subject", q.subject,
				"error", err,
			)
			return
		}
		if req.DocumentID == "" {
			q.logger.Error("queue.malformed_message",
				"subject", q.subject,
				"error", "empty document_id",
			)
			return
		}
		if err := handler(ctx, req.DocumentID, req.RunID); err != nil {
			q.logger.Error("queue.handler_failed",
				"document_id", req.DocumentID,
				"run_id", req.RunID,
				"error", err,
			)
		}
	})
	if err != nil {
		return domain.WrapError(domain.ErrTemporary, "nats subscribe", err)
	}

	q.logger.Info("queue.subscribed", "subject", q.subject, "queue_group", queueGroup)

	<-ctx.Done()

	if err := sub.Drain(); err != nil {
		q.logger.Warn("queue.drain_failed", "error", err)
	}
	if err := q.conn.FlushTimeout(5 * time.Second); err != nil {
		q.logger.Warn("queue.flush_failed", "error", err)
	}
	return nil
}

func (q *Queue) Close() {
	if q.conn != nil {
		q.conn.Close()
	}
}

func (q *Queue) HealthCheck(_ context.Context) error {
	if !q.conn.IsConnected() {
		return fmt.Errorf("nats connection is %s", q.conn.Status())
	}
	return nil
}
