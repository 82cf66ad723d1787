package rabbitmq

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// New dials the broker and probes the given queue passively to prove it is
// answering AMQP traffic, not just accepting TCP. A "queue not found" reply
// still counts as healthy; the publisher and worker declare the queue
// durably on their own channels. connectTimeout bounds the probe; zero
// falls back to 3s.
func New(ctx context.Context, url, probeQueue string, connectTimeout time.Duration) (*amqp.Connection, error) {
	if connectTimeout <= 0 {
		connectTimeout = 3 * time.Second
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq failed: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	probeCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	done := make(chan struct{})
	go func() {
		_, _ = ch.QueueDeclarePassive(probeQueue, true, false, false, false, nil)
		close(done)
	}()

	select {
	case <-probeCtx.Done():
		_ = conn.Close()
		return nil, fmt.Errorf("rabbitmq probe timeout: %w", probeCtx.Err())
	case <-done:
		return conn, nil
	}
}
