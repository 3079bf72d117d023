package redisclient

import (
	"context"
	stderrors "errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/esrf-bliss/blisscore/errors"
	"github.com/esrf-bliss/blisscore/metric"
	"github.com/esrf-bliss/blisscore/pkg/retry"
)

// ConnectionStatus represents the state of the Redis connection
type ConnectionStatus int

// Possible connection statuses
const (
	StatusDisconnected ConnectionStatus = iota
	StatusConnecting
	StatusConnected
	StatusClosed
)

// String returns the string representation of ConnectionStatus
func (s ConnectionStatus) String() string {
	switch s {
	case StatusDisconnected:
		return "disconnected"
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	case StatusClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Client manages a Redis connection for the settings and streaming layers
type Client struct {
	addr   string
	status atomic.Value // stores ConnectionStatus
	logger Logger

	rdb *redis.Client

	// Connection options
	db          int
	password    string
	poolSize    int
	dialTimeout time.Duration
	retryCfg    retry.Config

	// Server-side scripts by symbolic name
	scripts   map[string]*redis.Script
	scriptsMu sync.RWMutex

	// Metrics
	metrics *metric.Metrics

	closeMu sync.Mutex
	closed  atomic.Bool
}

// NewClient creates a new Redis client with optional configuration.
// The client is not connected until Connect is called.
func NewClient(addr string, opts ...ClientOption) (*Client, error) {
	c := &Client{
		addr:        addr,
		logger:      &defaultLogger{},
		poolSize:    10,
		dialTimeout: 5 * time.Second,
		retryCfg:    retry.DefaultConfig(),
		scripts:     make(map[string]*redis.Script),
	}
	c.status.Store(StatusDisconnected)

	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, errors.WrapInvalid(err, "Client", "NewClient", "apply option")
		}
	}
	return c, nil
}

// Connect establishes the connection and verifies it with a ping.
// Transient ping failures are retried with exponential backoff.
func (c *Client) Connect(ctx context.Context) error {
	if c.closed.Load() {
		return errors.ErrConnectionClosed
	}
	if c.Status() == StatusConnected {
		return nil
	}
	c.status.Store(StatusConnecting)

	c.rdb = redis.NewClient(&redis.Options{
		Addr:        c.addr,
		DB:          c.db,
		Password:    c.password,
		PoolSize:    c.poolSize,
		DialTimeout: c.dialTimeout,
	})

	err := retry.Do(ctx, c.retryCfg, func() error {
		return c.rdb.Ping(ctx).Err()
	})
	if err != nil {
		c.status.Store(StatusDisconnected)
		if c.metrics != nil {
			c.metrics.RecordRedisStatus(false)
		}
		return errors.WrapTransient(err, "Client", "Connect", "ping")
	}

	c.status.Store(StatusConnected)
	if c.metrics != nil {
		c.metrics.RecordRedisStatus(true)
	}
	c.logger.Printf("connected to redis at %s (db %d)", c.addr, c.db)
	return nil
}

// Status returns the current connection status
func (c *Client) Status() ConnectionStatus {
	return c.status.Load().(ConnectionStatus)
}

// DB returns the database index this client is bound to
func (c *Client) DB() int {
	return c.db
}

// Addr returns the server address this client is bound to
func (c *Client) Addr() string {
	return c.addr
}

// Raw returns the underlying go-redis client for command surfaces not
// covered by Commands (streams, pubsub, server commands).
func (c *Client) Raw() *redis.Client {
	return c.rdb
}

// Metrics returns the core metrics this client records to, if any
func (c *Client) Metrics() *metric.Metrics {
	return c.metrics
}

// Pipeline returns a new non-transactional pipeline
func (c *Client) Pipeline() redis.Pipeliner {
	return c.rdb.Pipeline()
}

// TxPipeline returns a new transactional (MULTI/EXEC) pipeline
func (c *Client) TxPipeline() redis.Pipeliner {
	return c.rdb.TxPipeline()
}

// Subscribe subscribes to the given pub/sub channels
func (c *Client) Subscribe(ctx context.Context, channels ...string) *redis.PubSub {
	return c.rdb.Subscribe(ctx, channels...)
}

// RegisterScript registers a server-side script under a symbolic name.
// The script body is loaded lazily on first run.
func (c *Client) RegisterScript(name, src string) {
	c.scriptsMu.Lock()
	defer c.scriptsMu.Unlock()
	c.scripts[name] = redis.NewScript(src)
}

// RunScript evaluates a registered script by name. Evaluation goes by
// SHA first and falls back to loading the body when the server does not
// know it yet.
func (c *Client) RunScript(ctx context.Context, name string, keys []string, args ...any) (any, error) {
	c.scriptsMu.RLock()
	script, ok := c.scripts[name]
	c.scriptsMu.RUnlock()
	if !ok {
		return nil, errors.WrapInvalid(errors.ErrScriptUnknown, "Client", "RunScript", name)
	}
	res, err := script.Run(ctx, c.rdb, keys, args...).Result()
	if err != nil && !stderrors.Is(err, redis.Nil) {
		return nil, errors.WrapTransient(err, "Client", "RunScript", name)
	}
	return res, nil
}

// Close closes the connection. Safe to call more than once.
func (c *Client) Close() error {
	c.closeMu.Lock()
	defer c.closeMu.Unlock()

	if c.closed.Swap(true) {
		return nil
	}
	c.status.Store(StatusClosed)
	if c.metrics != nil {
		c.metrics.RecordRedisStatus(false)
	}
	if c.rdb != nil {
		return c.rdb.Close()
	}
	return nil
}
