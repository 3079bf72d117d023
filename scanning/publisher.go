package scanning

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/pkg/worker"
	"github.com/esrf-bliss/blisscore/redisclient"
	"github.com/esrf-bliss/blisscore/streaming"
)

type publishJob struct {
	stream *streaming.DataStream
	fields map[string]any
}

// StreamPublisher forwards acquisition channel emissions into Redis
// streams, one stream per channel, named "<prefix>:<channel>". The
// channel callback only enqueues; a worker pool performs the stream
// appends so emitting devices never block on Redis.
type StreamPublisher struct {
	client  *redisclient.Client
	prefix  string
	logger  *slog.Logger
	maxLen  int64
	workers int

	pool *worker.Pool[publishJob]

	mu      sync.Mutex
	streams map[string]*streaming.DataStream
	unsubs  []func()
}

// PublisherOption configures a StreamPublisher.
type PublisherOption func(*StreamPublisher)

// WithPublisherLogger sets the publisher's logger.
func WithPublisherLogger(l *slog.Logger) PublisherOption {
	return func(p *StreamPublisher) {
		p.logger = l
	}
}

// WithPublisherMaxLen caps every published stream at n entries.
func WithPublisherMaxLen(n int64) PublisherOption {
	return func(p *StreamPublisher) {
		p.maxLen = n
	}
}

// WithPublisherWorkers sets the number of append workers.
func WithPublisherWorkers(n int) PublisherOption {
	return func(p *StreamPublisher) {
		p.workers = n
	}
}

// NewStreamPublisher creates a publisher appending through client
// under the given stream name prefix.
func NewStreamPublisher(client *redisclient.Client, prefix string, opts ...PublisherOption) *StreamPublisher {
	p := &StreamPublisher{
		client:  client,
		prefix:  prefix,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		workers: 2,
		streams: make(map[string]*streaming.DataStream),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.pool = worker.NewPool(p.workers, 1024, p.process)
	return p
}

func (p *StreamPublisher) process(ctx context.Context, job publishJob) error {
	if _, err := job.stream.Add(ctx, job.fields); err != nil {
		p.logger.Error("stream append failed", "stream", job.stream.Name(), "error", err)
		return err
	}
	return nil
}

// Start launches the append workers.
func (p *StreamPublisher) Start(ctx context.Context) error {
	return p.pool.Start(ctx)
}

// Watch creates the backing stream for each channel and subscribes to
// it. One stream event is appended per emission.
func (p *StreamPublisher) Watch(ctx context.Context, channels ...*AcquisitionChannel) error {
	for _, ch := range channels {
		name := p.prefix + ":" + ch.Name()

		var streamOpts []streaming.StreamOption
		if p.maxLen > 0 {
			streamOpts = append(streamOpts, streaming.WithMaxLen(p.maxLen), streaming.WithApproximateTrim())
		}
		stream, err := streaming.CreateDataStream(ctx, name, p.client, streamOpts...)
		if err != nil {
			return errors.Wrap(err, "StreamPublisher", "Watch", name)
		}

		p.mu.Lock()
		p.streams[ch.Name()] = stream
		p.mu.Unlock()

		unsub := ch.Subscribe(func(ev ChannelEvent) {
			job := publishJob{
				stream: stream,
				fields: map[string]any{
					"channel":   ev.Channel,
					"value":     encodeValue(ev.Value),
					"timestamp": ev.Timestamp.UnixMilli(),
				},
			}
			if err := p.pool.Submit(job); err != nil {
				p.logger.Warn("emission dropped", "channel", ev.Channel, "error", err)
			}
		})
		p.mu.Lock()
		p.unsubs = append(p.unsubs, unsub)
		p.mu.Unlock()
	}
	return nil
}

// Stream returns the backing stream of a watched channel.
func (p *StreamPublisher) Stream(channel string) (*streaming.DataStream, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	s, ok := p.streams[channel]
	return s, ok
}

// Close unsubscribes from every channel and drains the append queue.
func (p *StreamPublisher) Close() error {
	p.mu.Lock()
	unsubs := p.unsubs
	p.unsubs = nil
	p.mu.Unlock()
	for _, unsub := range unsubs {
		unsub()
	}
	return p.pool.Stop(10 * time.Second)
}

// encodeValue flattens a channel value into a stream field. Scalars
// pass through as Redis understands them; everything else is JSON.
func encodeValue(v any) any {
	switch v := v.(type) {
	case nil:
		return ""
	case string, bool,
		int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64,
		float32, float64:
		return v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(raw)
	}
}
