package redisclient

import (
	"log"
	"time"

	"github.com/esrf-bliss/blisscore/metric"
	"github.com/esrf-bliss/blisscore/pkg/retry"
)

// Logger interface for injecting custom loggers
type Logger interface {
	Printf(format string, v ...any)
	Errorf(format string, v ...any)
	Debugf(format string, v ...any)
}

// defaultLogger implements Logger using the standard log package
type defaultLogger struct{}

func (l *defaultLogger) Printf(format string, v ...any) {
	log.Printf("[REDIS] "+format, v...)
}

func (l *defaultLogger) Errorf(format string, v ...any) {
	log.Printf("[REDIS ERROR] "+format, v...)
}

func (l *defaultLogger) Debugf(_ string, _ ...any) {
	// Silent by default
}

// ClientOption is a functional option for configuring the Client
type ClientOption func(*Client) error

// WithDB selects the database index
func WithDB(db int) ClientOption {
	return func(c *Client) error {
		c.db = db
		return nil
	}
}

// WithPassword sets the authentication password
func WithPassword(password string) ClientOption {
	return func(c *Client) error {
		c.password = password
		return nil
	}
}

// WithPoolSize sets the connection pool size
func WithPoolSize(n int) ClientOption {
	return func(c *Client) error {
		c.poolSize = n
		return nil
	}
}

// WithDialTimeout sets the dial timeout for new connections
func WithDialTimeout(d time.Duration) ClientOption {
	return func(c *Client) error {
		c.dialTimeout = d
		return nil
	}
}

// WithRetryConfig sets the retry policy used by Connect
func WithRetryConfig(cfg retry.Config) ClientOption {
	return func(c *Client) error {
		c.retryCfg = cfg
		return nil
	}
}

// WithLogger sets a custom logger for the client
func WithLogger(logger Logger) ClientOption {
	return func(c *Client) error {
		if logger == nil {
			logger = &defaultLogger{}
		}
		c.logger = logger
		return nil
	}
}

// WithMetricsRegistry wires the client to the module's core metrics
func WithMetricsRegistry(registry *metric.MetricsRegistry) ClientOption {
	return func(c *Client) error {
		if registry != nil {
			c.metrics = registry.CoreMetrics()
		}
		return nil
	}
}
