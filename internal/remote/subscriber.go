package remote

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/dmitrijs2005/cartsync/internal/logging"
)

// Subscriber listens on a Postgres NOTIFY channel and invokes a callback for
// every change signal. The payload identifies what changed but the store
// refetches everything anyway, so the callback carries no arguments.
//
// LISTEN requires a session-scoped connection, so the subscriber holds its
// own native pgx connection instead of borrowing from the *sql.DB pool.
type Subscriber struct {
	dsn     string
	channel string
	log     logging.Logger
	cancel  context.CancelFunc
	done    chan struct{}
}

func NewSubscriber(dsn, channel string, log logging.Logger) *Subscriber {
	return &Subscriber{dsn: dsn, channel: channel, log: log, done: make(chan struct{})}
}

// Start begins listening in a background goroutine. onChange is invoked on
// the subscriber's goroutine; it must not block for long.
func (s *Subscriber) Start(ctx context.Context, onChange func()) {
	ctx, s.cancel = context.WithCancel(ctx)
	go s.run(ctx, onChange)
}

// Close stops the listener and waits for the goroutine to exit. A no-op if
// Start was never called.
func (s *Subscriber) Close() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	<-s.done
}

func (s *Subscriber) run(ctx context.Context, onChange func()) {
	defer close(s.done)

	backoff := time.Second
	for {
		err := s.listen(ctx, onChange)
		if ctx.Err() != nil {
			return
		}
		s.log.Warn(ctx, "change subscription dropped, reconnecting",
			"error", err, "backoff", backoff.String())

		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

func (s *Subscriber) listen(ctx context.Context, onChange func()) error {
	conn, err := pgx.Connect(ctx, s.dsn)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer conn.Close(context.Background())

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.channel, err)
	}
	s.log.Debug(ctx, "change subscription established", "channel", s.channel)

	for {
		n, err := conn.WaitForNotification(ctx)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			return fmt.Errorf("failed waiting for notification: %w", err)
		}
		s.log.Debug(ctx, "change notification", "payload", n.Payload)
		onChange()
	}
}
