// Package worker checks units arriving on a Kafka topic and publishes the
// reports to another, so that batch pipelines can use the checker without
// going through HTTP.
package worker

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/internal/checksvc"
	apperrors "github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/doc-style-checker/pkg/proto"
)

// Publisher sends results downstream. *kafka.Producer implements it.
type Publisher interface {
	Publish(ctx context.Context, events ...kafka.Event) error
}

// Message statuses, used as the metric label.
const (
	StatusOK       = "ok"
	StatusInvalid  = "invalid"
	StatusRejected = "rejected"
	StatusFailed   = "failed"
)

type Worker struct {
	svc       *checksvc.Service
	publisher Publisher
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// New returns a Worker. m may be nil.
func New(svc *checksvc.Service, publisher Publisher, m *metrics.Metrics) *Worker {
	return &Worker{
		svc:       svc,
		publisher: publisher,
		metrics:   m,
		logger:    slog.Default().With("component", "check-worker"),
	}
}

// Handle is a kafka.MessageHandler. Messages that can never succeed are
// dropped with a nil error so the consumer commits past them; other
// failures are returned and the message is left uncommitted.
func (w *Worker) Handle(ctx context.Context, msg kafka.Message) error {
	log := logger.FromContext(ctx)
	req, err := kafka.DecodeJSON[proto.CheckRequest](msg.Value)
	if err != nil {
		log.Error("dropping undecodable check request",
			"key", string(msg.Key),
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		w.record(StatusInvalid)
		return nil
	}

	res, err := w.svc.Check(ctx, req)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidInput) {
			log.Warn("dropping rejected check request", "key", string(msg.Key), "error", err)
			w.record(StatusRejected)
			return nil
		}
		w.record(StatusFailed)
		return err
	}

	key := string(msg.Key)
	if key == "" {
		key = msg.RequestID
	}
	if err := w.publisher.Publish(ctx, kafka.Event{Key: key, Value: res.Proto()}); err != nil {
		w.record(StatusFailed)
		return err
	}
	w.record(StatusOK)
	log.Info("check request processed",
		"key", key,
		"units", len(req.Units),
		"errors", res.Report.Summary.Errors,
		"warnings", res.Report.Summary.Warnings,
	)
	return nil
}

func (w *Worker) record(status string) {
	if w.metrics != nil {
		w.metrics.QueueMessagesTotal.WithLabelValues(status).Inc()
	}
}
