package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"

	"paperchat/internal/model"
	rabbitmqClient "paperchat/internal/platform/rabbitmq"
)

const (
	// writeTimeout bounds one database write; it is detached from worker shutdown.
	writeTimeout = 10 * time.Second
	// retryDelay spaces out requeues while the database is unavailable.
	retryDelay = time.Second
)

// errMalformed marks deliveries that can never be persisted.
var errMalformed = errors.New("malformed exchange message")

type ExchangeWriter interface {
	Create(ctx context.Context, exchange *model.Exchange) error
}

// ExchangePersistWorker drains the exchange queue into the history database.
type ExchangePersistWorker struct {
	conn      *amqp.Connection
	repo      ExchangeWriter
	queueName string
	log       zerolog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewExchangePersistWorker(conn *amqp.Connection, repo ExchangeWriter, queueName string, log zerolog.Logger) *ExchangePersistWorker {
	return &ExchangePersistWorker{
		conn:      conn,
		repo:      repo,
		queueName: queueName,
		log:       log,
	}
}

func (w *ExchangePersistWorker) Start(ctx context.Context) error {
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

	if _, err := rabbitmqClient.DeclareQueue(ch, w.queueName); err != nil {
		_ = ch.Close()
		cancel()
		return err
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

	w.log.Info().Str("queue", w.queueName).Msg("exchange worker started")
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					w.log.Warn().Msg("exchange delivery channel closed")
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					requeue := shouldRequeue(err)
					w.log.Error().Err(err).Bool("requeue", requeue).Msg("persist exchange failed")
					if requeue {
						select {
						case <-workerCtx.Done():
						case <-time.After(retryDelay):
						}
					}
					_ = d.Nack(false, requeue)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *ExchangePersistWorker) handle(ctx context.Context, body []byte) error {
	var exchange model.Exchange
	if err := json.Unmarshal(body, &exchange); err != nil {
		return fmt.Errorf("%w: %w", errMalformed, err)
	}
	if exchange.DocumentID == "" {
		return fmt.Errorf("%w: missing document id", errMalformed)
	}
	// The database assigns ids; a replayed message must not collide.
	exchange.ID = 0

	// Close must not abort a write in flight; the delivery is settled on its real outcome.
	writeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), writeTimeout)
	defer cancel()
	return w.repo.Create(writeCtx, &exchange)
}

// shouldRequeue keeps transient failures (database, timeout, shutdown) on the
// queue; only payloads that can never decode are dropped.
func shouldRequeue(err error) bool {
	return !errors.Is(err, errMalformed)
}

func (w *ExchangePersistWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
