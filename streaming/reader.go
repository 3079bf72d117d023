package streaming

import (
	"context"
	stderrors "errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/redisclient"
)

// ReaderState is the consumer-side state of a DataStreamReader
type ReaderState int32

// Reader states. Finished is terminal.
const (
	StateWaiting ReaderState = iota
	StateProcessing
	StateFinished
)

// String returns the string representation of ReaderState
func (s ReaderState) String() string {
	switch s {
	case StateWaiting:
		return "waiting"
	case StateProcessing:
		return "processing"
	case StateFinished:
		return "finished"
	default:
		return "unknown"
	}
}

// synchroPriority sorts the hidden synchronization stream before every
// subscribed stream.
const synchroPriority = -1

// synchroMaxLen caps the synchronization stream; only recent control
// events matter.
const synchroMaxLen = 16

// Synchronization event kinds published on the hidden stream
const (
	synchroKindField = "kind"
	synchroAdd       = "add"
	synchroRemove    = "remove"
	synchroEnd       = "end"
)

type subscription struct {
	stream   *DataStream
	priority int

	// nextID is the XREAD position: events strictly after it are read
	nextID string

	// source points at the subscribed entry an active copy was taken
	// from, so the read task can tell a re-subscription (fresh entry,
	// position reset) apart from its own stale copy.
	source *subscription
}

type queueItem struct {
	events []StreamEvent
	err    error
	end    bool
}

// DataStreamReader multiplexes any number of DataStreams for exactly
// one consumer. A background task batch-reads all subscribed streams in
// ascending priority-number order; when a higher-priority stream has
// unread data, every lower-priority batch in the same pass is withheld
// and re-read on the immediate next pass.
//
// Blocking behavior is fixed at construction: the default blocks
// indefinitely for new data, WithBlockTimeout bounds each read attempt,
// and WithNoWait drains current data once and then ends the stream.
type DataStreamReader struct {
	client *redisclient.Client

	noWait  bool
	timeout time.Duration

	synchro *DataStream

	// mu guards subscribed and the reader-task start
	mu         sync.Mutex
	subscribed map[string]*subscription
	started    bool

	state atomic.Int32

	queue      chan queueItem
	readerDone chan struct{}
	cancel     context.CancelFunc

	// consumeMu enforces the single-consumer contract
	consumeMu sync.Mutex
	pending   []StreamEvent

	closed atomic.Bool
}

// ReaderOption configures a DataStreamReader
type ReaderOption func(*DataStreamReader)

// WithNoWait makes the reader drain currently available data and then
// signal end-of-stream instead of blocking for more.
func WithNoWait() ReaderOption {
	return func(r *DataStreamReader) {
		r.noWait = true
	}
}

// WithBlockTimeout bounds each blocking read attempt. A timeout yields
// nothing but does not end the reader.
func WithBlockTimeout(d time.Duration) ReaderOption {
	return func(r *DataStreamReader) {
		r.timeout = d
	}
}

// NewReader creates a reader on client with no subscribed streams
func NewReader(client *redisclient.Client, opts ...ReaderOption) *DataStreamReader {
	r := &DataStreamReader{
		client:     client,
		subscribed: make(map[string]*subscription),
		queue:      make(chan queueItem, 256),
		readerDone: make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.synchro = NewDataStream("reader:synchro:"+uuid.NewString(), client,
		WithMaxLen(synchroMaxLen))
	return r
}

// State returns the consumer-side state
func (r *DataStreamReader) State() ReaderState {
	return ReaderState(r.state.Load())
}

// StopHandler returns a handle that can stop this reader from another
// process sharing the same Redis.
func (r *DataStreamReader) StopHandler() *DataStreamReaderStopHandler {
	return &DataStreamReaderStopHandler{client: r.client, name: r.synchro.Name()}
}

// AddStreams subscribes streams at the given priority. Lower numbers
// are served first. fromIndex "$" reads only events appended after the
// call; "0" replays the stream from the beginning; any other index
// reads strictly after it. Re-adding an already subscribed stream
// resets its read position and priority. Safe to call while the
// consumer runs.
func (r *DataStreamReader) AddStreams(ctx context.Context, priority int, fromIndex string, streams ...*DataStream) error {
	if r.closed.Load() {
		return errors.WrapInvalid(errors.ErrReaderClosed, "DataStreamReader", "AddStreams", "closed")
	}
	if priority < 0 {
		return errors.WrapInvalid(errors.ErrInvalidValue, "DataStreamReader", "AddStreams", "negative priority")
	}
	for _, s := range streams {
		if s.Client() != r.client {
			return errors.WrapInvalid(errors.ErrMixedConnections, "DataStreamReader", "AddStreams", s.Name())
		}
	}

	for _, s := range streams {
		nextID := fromIndex
		if nextID == "" || nextID == "$" {
			last, err := r.client.Raw().XRevRangeN(ctx, s.Name(), "+", "-", 1).Result()
			if err != nil {
				return errors.WrapTransient(err, "DataStreamReader", "AddStreams", s.Name())
			}
			nextID = "0"
			if len(last) > 0 {
				nextID = last[0].ID
			}
		}
		r.mu.Lock()
		r.subscribed[s.Name()] = &subscription{stream: s, priority: priority, nextID: nextID}
		r.mu.Unlock()
	}

	if err := r.publishSynchro(ctx, synchroAdd); err != nil {
		return err
	}
	r.startReadTask()
	return nil
}

// RemoveStreams unsubscribes streams. Batches already handed to the
// consumer are unaffected.
func (r *DataStreamReader) RemoveStreams(ctx context.Context, streams ...*DataStream) error {
	r.mu.Lock()
	for _, s := range streams {
		delete(r.subscribed, s.Name())
	}
	started := r.started
	r.mu.Unlock()

	if !started {
		return nil
	}
	return r.publishSynchro(ctx, synchroRemove)
}

// Next returns the next event in priority order. It returns (nil, nil)
// at end-of-stream. A failure in the background reader surfaces here on
// the following pull. Only one goroutine may consume at a time.
func (r *DataStreamReader) Next(ctx context.Context) (*StreamEvent, error) {
	if !r.consumeMu.TryLock() {
		return nil, errors.WrapInvalid(errors.ErrAlreadyConsuming, "DataStreamReader", "Next", "concurrent consumer")
	}
	defer r.consumeMu.Unlock()

	if r.State() == StateFinished {
		return nil, nil
	}
	if len(r.pending) > 0 {
		return r.popPending(), nil
	}

	r.state.Store(int32(StateWaiting))
	r.startReadTask()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case item := <-r.queue:
		if item.err != nil {
			r.state.Store(int32(StateFinished))
			return nil, item.err
		}
		if item.end {
			r.state.Store(int32(StateFinished))
			return nil, nil
		}
		r.state.Store(int32(StateProcessing))
		r.pending = item.events
		return r.popPending(), nil
	}
}

func (r *DataStreamReader) popPending() *StreamEvent {
	ev := r.pending[0]
	r.pending = r.pending[1:]
	if m := r.client.Metrics(); m != nil {
		m.RecordStreamConsumed()
	}
	return &ev
}

// Stop publishes an end event and joins the reader task. Batches
// already queued stay consumable.
func (r *DataStreamReader) Stop(ctx context.Context) error {
	r.mu.Lock()
	started := r.started
	r.mu.Unlock()
	if !started {
		r.state.Store(int32(StateFinished))
		return nil
	}

	if err := r.publishSynchro(ctx, synchroEnd); err != nil {
		return err
	}
	select {
	case <-r.readerDone:
	case <-ctx.Done():
		if r.cancel != nil {
			r.cancel()
		}
		<-r.readerDone
	}
	return nil
}

// Close stops the reader and deletes its synchronization stream.
// Safe to call more than once.
func (r *DataStreamReader) Close(ctx context.Context) error {
	if r.closed.Swap(true) {
		return nil
	}
	if err := r.Stop(ctx); err != nil {
		return err
	}
	return r.synchro.Clear(ctx)
}

func (r *DataStreamReader) publishSynchro(ctx context.Context, kind string) error {
	_, err := r.synchro.Add(ctx, map[string]any{synchroKindField: kind})
	return err
}

// startReadTask launches the background reader exactly once. It is
// called after every synchro publication so the task is guaranteed to
// observe the mutation even when it starts late.
func (r *DataStreamReader) startReadTask() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return
	}
	r.started = true
	ctx, cancel := context.WithCancel(context.Background())
	r.cancel = cancel
	go r.readLoop(ctx)
}

// block translates the configured waiting mode into an XREAD block
// argument: negative disables blocking, zero blocks forever.
func (r *DataStreamReader) block() time.Duration {
	if r.noWait {
		return -1
	}
	if r.timeout > 0 {
		return r.timeout
	}
	return 0
}

func (r *DataStreamReader) readLoop(ctx context.Context) {
	defer close(r.readerDone)

	// The synchro stream is replayed from the beginning so control
	// events published before the task started are never missed.
	active := map[string]*subscription{
		r.synchro.Name(): {stream: r.synchro, priority: synchroPriority, nextID: "0"},
	}

	for {
		if ctx.Err() != nil {
			return
		}

		// Resync the active set only while the consumer is not holding
		// a batch that references it
		if r.State() != StateProcessing {
			r.mu.Lock()
			for name := range active {
				if name == r.synchro.Name() {
					continue
				}
				if _, ok := r.subscribed[name]; !ok {
					delete(active, name)
				}
			}
			for name, sub := range r.subscribed {
				if cur, ok := active[name]; !ok || cur.source != sub {
					active[name] = &subscription{stream: sub.stream, priority: sub.priority, nextID: sub.nextID, source: sub}
				}
			}
			r.mu.Unlock()
		}

		subs := make([]*subscription, 0, len(active))
		for _, sub := range active {
			subs = append(subs, sub)
		}
		sort.Slice(subs, func(i, j int) bool {
			if subs[i].priority != subs[j].priority {
				return subs[i].priority < subs[j].priority
			}
			return subs[i].stream.Name() < subs[j].stream.Name()
		})

		streams := make([]string, 0, len(subs)*2)
		for _, sub := range subs {
			streams = append(streams, sub.stream.Name())
		}
		for _, sub := range subs {
			streams = append(streams, sub.nextID)
		}

		res, err := r.client.Raw().XRead(ctx, &redis.XReadArgs{
			Streams: streams,
			Block:   r.block(),
		}).Result()
		if stderrors.Is(err, redis.Nil) {
			if r.noWait {
				r.enqueue(ctx, queueItem{end: true})
				return
			}
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			r.enqueue(ctx, queueItem{err: errors.WrapTransient(err, "DataStreamReader", "readLoop", "xread")})
			return
		}

		byName := make(map[string][]redis.XMessage, len(res))
		for _, xs := range res {
			if len(xs.Messages) > 0 {
				byName[xs.Stream] = xs.Messages
			}
		}
		if len(byName) == 0 {
			continue
		}

		// Strict priority: only streams sharing the lowest present
		// priority number are served this pass, the rest keep their
		// read position and are retried immediately.
		minPriority := 0
		first := true
		for name := range byName {
			p := active[name].priority
			if first || p < minPriority {
				minPriority = p
				first = false
			}
		}

		for _, sub := range subs {
			msgs, hasData := byName[sub.stream.Name()]
			if !hasData || sub.priority > minPriority {
				continue
			}

			if sub.stream == r.synchro {
				if end := r.handleSynchro(msgs, sub); end {
					r.enqueue(ctx, queueItem{end: true})
					return
				}
				continue
			}

			events := sub.stream.toEvents(msgs)
			sub.nextID = msgs[len(msgs)-1].ID
			r.mu.Lock()
			// write back only into the entry this copy came from: a
			// re-subscription holds a fresh position that must win
			if cur, ok := r.subscribed[sub.stream.Name()]; ok && cur == sub.source {
				cur.nextID = sub.nextID
			}
			r.mu.Unlock()

			if !r.enqueue(ctx, queueItem{events: events}) {
				return
			}
		}
	}
}

func (r *DataStreamReader) enqueue(ctx context.Context, item queueItem) bool {
	select {
	case r.queue <- item:
		return true
	case <-ctx.Done():
		return false
	}
}

// handleSynchro advances past control events and reports whether an
// end event was seen.
func (r *DataStreamReader) handleSynchro(msgs []redis.XMessage, sub *subscription) bool {
	for _, m := range msgs {
		sub.nextID = m.ID
		kind, _ := m.Values[synchroKindField].(string)
		if kind == synchroEnd {
			return true
		}
	}
	return false
}

// DataStreamReaderStopHandler stops a reader identified by its
// synchronization stream, possibly from another process.
type DataStreamReaderStopHandler struct {
	client *redisclient.Client
	name   string
}

// NewStopHandler builds a stop handle for the reader owning the given
// synchronization stream name.
func NewStopHandler(client *redisclient.Client, synchroName string) *DataStreamReaderStopHandler {
	return &DataStreamReaderStopHandler{client: client, name: synchroName}
}

// SynchroName returns the synchronization stream name the handle
// targets.
func (h *DataStreamReaderStopHandler) SynchroName() string {
	return h.name
}

// Stop publishes the end event on the reader's synchronization stream
func (h *DataStreamReaderStopHandler) Stop(ctx context.Context) error {
	stream := NewDataStream(h.name, h.client, WithMaxLen(synchroMaxLen))
	_, err := stream.Add(ctx, map[string]any{synchroKindField: synchroEnd})
	return err
}
