package kvtable

// config.go defines the internal configuration object and the
// functional options New[K,V] accepts: a private config struct filled
// in by defaultConfig and mutated by a list of Option[K,V] closures,
// validated once in applyOptions.
//
// © 2025 chunktable authors. MIT License.

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Option configures a Table[K,V] at construction time.
type Option[K comparable, V any] func(*config[K, V])

type config[K comparable, V any] struct {
	initialBuckets uint64
	maxKeyLength   int
	gcLoopWait     time.Duration
	hugePages      bool

	registry *prometheus.Registry
	logger   *zap.Logger
}

func defaultConfig[K comparable, V any](initialBuckets uint64) *config[K, V] {
	return &config[K, V]{
		initialBuckets: initialBuckets,
		maxKeyLength:   65535,
		gcLoopWait:     20 * time.Millisecond,
		logger:         zap.NewNop(),
		registry:       nil,
	}
}

// WithMetrics enables Prometheus metrics collection. Passing nil disables
// metrics, which is also the default.
func WithMetrics[K comparable, V any](reg *prometheus.Registry) Option[K, V] {
	return func(c *config[K, V]) {
		c.registry = reg
	}
}

// WithLogger plugs an external zap.Logger. The table only logs slow or
// unexpected events (GC stalls, out-of-space rejections), never on the
// plain Get/Set hot path.
func WithLogger[K comparable, V any](l *zap.Logger) Option[K, V] {
	return func(c *config[K, V]) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithMaxKeyLength overrides the default maximum encoded key length of
// 65535 bytes.
func WithMaxKeyLength[K comparable, V any](n int) Option[K, V] {
	return func(c *config[K, V]) {
		c.maxKeyLength = n
	}
}

// WithHugePages backs the table's chunk and slot arrays with 2 MiB pages
// where the platform supports them. The table falls back to ordinary
// pages silently when it can't get them, so this is always safe to set.
func WithHugePages[K comparable, V any]() Option[K, V] {
	return func(c *config[K, V]) {
		c.hugePages = true
	}
}

// WithGCLoopWait overrides how long the epoch collector sleeps between
// sweeps. Shorter waits reclaim deleted entries sooner at the cost of more
// background wakeups.
func WithGCLoopWait[K comparable, V any](d time.Duration) Option[K, V] {
	return func(c *config[K, V]) {
		if d > 0 {
			c.gcLoopWait = d
		}
	}
}

func applyOptions[K comparable, V any](cfg *config[K, V], opts []Option[K, V]) error {
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.initialBuckets == 0 {
		return errInvalidBuckets
	}
	if cfg.maxKeyLength <= 0 || cfg.maxKeyLength > 65535 {
		return errInvalidMaxKey
	}
	return nil
}
