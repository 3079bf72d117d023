package redisclient

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/esrf-bliss/blisscore/errors"
)

// invalidationChannel is the pub/sub channel Redis pushes invalidation
// messages to when tracking runs in REDIRECT mode.
const invalidationChannel = "__redis__:invalidate"

// invalidator abstracts the server-side key tracking handshake so the
// cache can be exercised against servers without tracking support.
type invalidator interface {
	// open performs the tracking handshake. On success invalidations()
	// and writer() become usable. A failed open is terminal.
	open(ctx context.Context) error

	// invalidations returns the channel of invalidated key batches.
	// The channel is closed when the listener connection terminates.
	invalidations() <-chan []string

	// writer returns the command surface whose writes are tracked, so
	// the server does not echo this client's own writes back at it.
	writer() redis.Cmdable

	close() error
}

// trackingInvalidator implements invalidator with CLIENT TRACKING in
// BCAST REDIRECT mode. It owns two connections: a subscriber whose
// client id receives the invalidation push, and a dedicated write
// connection carrying the tracked commands (NOLOOP suppresses
// self-invalidation for writes on that connection only).
type trackingInvalidator struct {
	client *Client

	sub    *redis.Client
	pubsub *redis.PubSub
	conn   *redis.Conn

	keysCh chan []string
}

func newTrackingInvalidator(client *Client) *trackingInvalidator {
	return &trackingInvalidator{client: client}
}

func (t *trackingInvalidator) open(ctx context.Context) error {
	idCh := make(chan int64, 1)

	t.sub = redis.NewClient(&redis.Options{
		Addr:     t.client.addr,
		DB:       t.client.db,
		Password: t.client.password,
		OnConnect: func(ctx context.Context, cn *redis.Conn) error {
			id, err := cn.ClientID(ctx).Result()
			if err != nil {
				return err
			}
			select {
			case idCh <- id:
			default:
			}
			return nil
		},
	})

	t.pubsub = t.sub.Subscribe(ctx, invalidationChannel)
	if _, err := t.pubsub.Receive(ctx); err != nil {
		t.cleanup()
		return errors.WrapTransient(err, "trackingInvalidator", "open", "subscribe")
	}

	var subID int64
	select {
	case subID = <-idCh:
	case <-time.After(5 * time.Second):
		t.cleanup()
		return errors.WrapTransient(errors.ErrNoConnection, "trackingInvalidator", "open", "client id")
	case <-ctx.Done():
		t.cleanup()
		return ctx.Err()
	}

	t.conn = t.client.rdb.Conn()
	tracking := redis.NewCmd(ctx, "CLIENT", "TRACKING", "on",
		"REDIRECT", subID, "BCAST", "NOLOOP")
	if err := t.conn.Process(ctx, tracking); err != nil {
		t.cleanup()
		return errors.WrapTransient(err, "trackingInvalidator", "open", "client tracking")
	}

	t.keysCh = make(chan []string, 64)
	go t.listen(t.pubsub)
	return nil
}

// listen forwards invalidation messages until the pub/sub connection
// terminates, then closes the key channel.
func (t *trackingInvalidator) listen(pubsub *redis.PubSub) {
	defer close(t.keysCh)
	for msg := range pubsub.Channel() {
		var keys []string
		if len(msg.PayloadSlice) > 0 {
			keys = msg.PayloadSlice
		} else if msg.Payload != "" {
			keys = []string{msg.Payload}
		}
		if len(keys) > 0 {
			t.keysCh <- keys
		}
	}
}

func (t *trackingInvalidator) invalidations() <-chan []string {
	return t.keysCh
}

func (t *trackingInvalidator) writer() redis.Cmdable {
	return t.conn
}

func (t *trackingInvalidator) close() error {
	t.cleanup()
	return nil
}

func (t *trackingInvalidator) cleanup() {
	if t.pubsub != nil {
		_ = t.pubsub.Close()
		t.pubsub = nil
	}
	if t.conn != nil {
		_ = t.conn.Close()
		t.conn = nil
	}
	if t.sub != nil {
		_ = t.sub.Close()
		t.sub = nil
	}
}
