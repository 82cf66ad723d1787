package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"studyvoice/internal/app"
	"studyvoice/internal/model"
)

// PipelineWorker consumes processing jobs and runs the document pipeline
// on each. Concurrency bounds how many documents process at once; the
// broker's prefetch is matched to it so idle jobs stay queued for other
// instances.
type PipelineWorker struct {
	conn        *amqp.Connection
	pipeline    *app.Pipeline
	queueName   string
	concurrency int
	logger      *zap.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPipelineWorker(conn *amqp.Connection, pipeline *app.Pipeline, queueName string, concurrency int, logger *zap.Logger) *PipelineWorker {
	if concurrency <= 0 {
		concurrency = 2
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PipelineWorker{
		conn:        conn,
		pipeline:    pipeline,
		queueName:   queueName,
		concurrency: concurrency,
		logger:      logger,
	}
}

func (w *PipelineWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	ch, err := w.conn.Channel()
	if err != nil {
		cancel()
		return fmt.Errorf("open worker channel failed: %w", err)
	}

	_, err = ch.QueueDeclare(
		w.queueName,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("declare worker queue failed: %w", err)
	}

	if err := ch.Qos(w.concurrency, 0, false); err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("set worker prefetch failed: %w", err)
	}

	deliveries, err := ch.Consume(
		w.queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		_ = ch.Close()
		cancel()
		return fmt.Errorf("consume queue failed: %w", err)
	}

	var once sync.Once
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			defer once.Do(func() { _ = ch.Close() })
			w.consume(workerCtx, deliveries)
		}()
	}
	return nil
}

func (w *PipelineWorker) consume(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				return
			}
			w.handle(ctx, d)
		}
	}
}

func (w *PipelineWorker) handle(ctx context.Context, d amqp.Delivery) {
	var job model.ProcessJob
	if err := json.Unmarshal(d.Body, &job); err != nil {
		w.logger.Error("worker decode job failed", zap.Error(err))
		_ = d.Nack(false, false)
		return
	}

	// The pipeline records a terminal status for every outcome, so the
	// delivery is always acked: requeueing a failed job would just rerun
	// it against the same broken input.
	if err := w.pipeline.Run(ctx, job); err != nil {
		w.logger.Warn("pipeline job failed",
			zap.String("document_id", job.DocumentID),
			zap.Uint("user_id", job.UserID),
			zap.Error(err))
	}
	_ = d.Ack(false)
}

func (w *PipelineWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
