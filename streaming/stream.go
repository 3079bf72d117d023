package streaming

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/esrf-bliss/blisscore/config"
	"github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/redisclient"
)

// createStreamScript establishes a stream key without adding a visible
// entry: the log primitive has no "create empty" operation, so a dummy
// entry is added and deleted in one atomic evaluation. Re-running it on
// an existing stream is a no-op.
const createStreamScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
	local id = redis.call("XADD", KEYS[1], "0-1", "init", "1")
	redis.call("XDEL", KEYS[1], id)
	return 1
end
return 0
`

const createStreamScriptName = "create_data_stream"

// StreamEvent is one entry read from a DataStream
type StreamEvent struct {
	// ID is the composite "<millis>-<seq>" index of the entry
	ID string

	// Stream is the name of the stream the entry came from
	Stream string

	Fields map[string]any
}

// DataStream is an append-only ordered log stored as one Redis stream
type DataStream struct {
	name   string
	client *redisclient.Client
	maxLen int64
	approx bool
}

// StreamOption configures a DataStream
type StreamOption func(*DataStream)

// WithMaxLen caps the stream length; older entries are trimmed on Add
func WithMaxLen(n int64) StreamOption {
	return func(s *DataStream) {
		s.maxLen = n
	}
}

// WithApproximateTrim lets the server trim lazily (MAXLEN ~)
func WithApproximateTrim() StreamOption {
	return func(s *DataStream) {
		s.approx = true
	}
}

// OptionsFromConfig translates the configured stream defaults into
// options for new streams.
func OptionsFromConfig(cfg *config.StreamConfig) []StreamOption {
	var opts []StreamOption
	if cfg.MaxLen > 0 {
		opts = append(opts, WithMaxLen(cfg.MaxLen))
		if cfg.Approximate {
			opts = append(opts, WithApproximateTrim())
		}
	}
	return opts
}

// NewDataStream returns a handle over stream name. The stream is
// created implicitly on the first Add.
func NewDataStream(name string, client *redisclient.Client, opts ...StreamOption) *DataStream {
	s := &DataStream{name: name, client: client}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateDataStream returns a handle like NewDataStream but establishes
// the stream key on the server first. Creation is atomic: concurrent
// callers and repeated calls all observe one empty stream.
func CreateDataStream(ctx context.Context, name string, client *redisclient.Client, opts ...StreamOption) (*DataStream, error) {
	client.RegisterScript(createStreamScriptName, createStreamScript)
	if _, err := client.RunScript(ctx, createStreamScriptName, []string{name}); err != nil {
		return nil, err
	}
	return NewDataStream(name, client, opts...), nil
}

// Name returns the stream key
func (s *DataStream) Name() string {
	return s.name
}

// Client returns the connection this stream lives on
func (s *DataStream) Client() *redisclient.Client {
	return s.client
}

// Add appends an entry and returns its index
func (s *DataStream) Add(ctx context.Context, fields map[string]any) (string, error) {
	args := &redis.XAddArgs{
		Stream: s.name,
		Values: fields,
	}
	if s.maxLen > 0 {
		args.MaxLen = s.maxLen
		args.Approx = s.approx
	}
	id, err := s.client.Raw().XAdd(ctx, args).Result()
	if err != nil {
		return "", errors.WrapTransient(err, "DataStream", "Add", s.name)
	}
	if m := s.client.Metrics(); m != nil {
		m.RecordStreamPublished()
	}
	return id, nil
}

// Len returns the number of entries
func (s *DataStream) Len(ctx context.Context) (int64, error) {
	n, err := s.client.Raw().XLen(ctx, s.name).Result()
	if err != nil {
		return 0, errors.WrapTransient(err, "DataStream", "Len", s.name)
	}
	return n, nil
}

// Range returns entries between from and to inclusive, oldest first.
// Empty bounds mean the whole stream.
func (s *DataStream) Range(ctx context.Context, from, to string) ([]StreamEvent, error) {
	if from == "" {
		from = "-"
	}
	if to == "" {
		to = "+"
	}
	msgs, err := s.client.Raw().XRange(ctx, s.name, from, to).Result()
	if err != nil {
		return nil, errors.WrapTransient(err, "DataStream", "Range", s.name)
	}
	return s.toEvents(msgs), nil
}

// RevRange returns entries between from and to inclusive, newest
// first. Empty bounds mean the whole stream.
func (s *DataStream) RevRange(ctx context.Context, from, to string) ([]StreamEvent, error) {
	if from == "" {
		from = "+"
	}
	if to == "" {
		to = "-"
	}
	msgs, err := s.client.Raw().XRevRange(ctx, s.name, from, to).Result()
	if err != nil {
		return nil, errors.WrapTransient(err, "DataStream", "RevRange", s.name)
	}
	return s.toEvents(msgs), nil
}

// Remove deletes entries by index
func (s *DataStream) Remove(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := s.client.Raw().XDel(ctx, s.name, ids...).Err(); err != nil {
		return errors.WrapTransient(err, "DataStream", "Remove", s.name)
	}
	return nil
}

// Clear removes the stream key entirely
func (s *DataStream) Clear(ctx context.Context) error {
	_, err := s.client.Del(ctx, s.name)
	return err
}

// HasNewData reports whether the stream holds at least one entry
// strictly after lastIndex. An empty lastIndex asks for any entry at
// all.
func (s *DataStream) HasNewData(ctx context.Context, lastIndex string) (bool, error) {
	from := "-"
	if lastIndex != "" {
		next, err := IncrIndex(lastIndex)
		if err != nil {
			return false, err
		}
		from = next
	}
	msgs, err := s.client.Raw().XRangeN(ctx, s.name, from, "+", 1).Result()
	if err != nil {
		return false, errors.WrapTransient(err, "DataStream", "HasNewData", s.name)
	}
	return len(msgs) > 0, nil
}

// DecrIndex returns the greatest possible index strictly below index.
// Within one millisecond that is a sequence decrement; at sequence zero
// the millisecond rolls back and the maximal existing sequence at that
// earlier millisecond is resolved by a reverse query, falling back to
// sequence zero when nothing exists there.
func (s *DataStream) DecrIndex(ctx context.Context, index string) (string, error) {
	millis, seq, err := ParseIndex(index)
	if err != nil {
		return "", err
	}
	if seq > 0 {
		return FormatIndex(millis, seq-1), nil
	}
	if millis == 0 {
		return "", errors.WrapInvalid(errors.ErrInvalidValue, "DataStream", "DecrIndex", index)
	}
	prev := millis - 1
	msgs, err := s.client.Raw().XRevRangeN(ctx, s.name,
		strconv.FormatInt(prev, 10), FormatIndex(prev, 0), 1).Result()
	if err != nil {
		return "", errors.WrapTransient(err, "DataStream", "DecrIndex", s.name)
	}
	if len(msgs) > 0 {
		return msgs[0].ID, nil
	}
	return FormatIndex(prev, 0), nil
}

func (s *DataStream) toEvents(msgs []redis.XMessage) []StreamEvent {
	events := make([]StreamEvent, len(msgs))
	for i, m := range msgs {
		events[i] = StreamEvent{ID: m.ID, Stream: s.name, Fields: m.Values}
	}
	return events
}
