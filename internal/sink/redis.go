// Package sink publishes detections to Redis so other services can consume
// scan results.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/zsiec/codescan/internal/config"
	"github.com/zsiec/codescan/internal/logger"
	"github.com/zsiec/codescan/internal/metrics"
	"github.com/zsiec/codescan/internal/scanner"
)

// LastKey holds the JSON encoding of the most recent detection.
const LastKey = "codescan:last"

var (
	// ErrSinkClosed is returned by Enqueue after Close.
	ErrSinkClosed = errors.New("sink closed")

	// ErrSinkFull is returned by Enqueue when the publish backlog is full.
	ErrSinkFull = errors.New("sink backlog full")
)

// NewClient builds the Redis client described by cfg.
func NewClient(cfg config.RedisConfig) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         cfg.Address,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		WriteTimeout: cfg.WriteTimeout,
	})
}

// RedisSink appends detections to a capped Redis stream and keeps the latest
// one under LastKey. Enqueue never blocks the scan loop; a background
// goroutine started by Run does the writes.
type RedisSink struct {
	client       *redis.Client
	logger       logger.Logger
	stream       string
	maxLen       int64
	writeTimeout time.Duration

	mu     sync.RWMutex
	queue  chan scanner.Detection
	closed bool
}

// NewRedisSink creates a sink writing to cfg.Stream.
func NewRedisSink(client *redis.Client, log logger.Logger, cfg config.RedisConfig) *RedisSink {
	timeout := cfg.WriteTimeout
	if timeout <= 0 {
		timeout = 3 * time.Second
	}
	return &RedisSink{
		client:       client,
		logger:       logger.OrNull(log).WithField("component", "sink"),
		stream:       cfg.Stream,
		maxLen:       cfg.MaxLen,
		writeTimeout: timeout,
		queue:        make(chan scanner.Detection, 64),
	}
}

// Publish writes one detection synchronously.
func (s *RedisSink) Publish(ctx context.Context, det scanner.Detection) error {
	data, err := json.Marshal(det)
	if err != nil {
		return fmt.Errorf("failed to marshal detection: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: s.maxLen > 0,
		Values: map[string]interface{}{
			"payload":      det.Payload,
			"kind":         string(det.Kind),
			"format":       det.Format,
			"decoder":      det.Decoder,
			"session":      det.SessionID,
			"attempt":      strconv.FormatUint(det.AttemptID, 10),
			"detected_at":  det.DetectedAt.UTC().Format(time.RFC3339Nano),
			"scan_cost_ms": strconv.FormatInt(det.ScanCost.Milliseconds(), 10),
		},
	})
	pipe.Set(ctx, LastKey, data, 0)

	if _, err := pipe.Exec(ctx); err != nil {
		metrics.IncrementSinkErrors()
		return fmt.Errorf("failed to publish detection: %w", err)
	}

	metrics.IncrementSinkPublished()
	s.logger.WithFields(map[string]interface{}{
		"stream":     s.stream,
		"session_id": det.SessionID,
	}).Debug("Detection published")
	return nil
}

// Last returns the most recently published detection, or nil when nothing
// has been published.
func (s *RedisSink) Last(ctx context.Context) (*scanner.Detection, error) {
	data, err := s.client.Get(ctx, LastKey).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read last detection: %w", err)
	}

	var det scanner.Detection
	if err := json.Unmarshal(data, &det); err != nil {
		return nil, fmt.Errorf("failed to unmarshal detection: %w", err)
	}
	return &det, nil
}

// Enqueue hands det to the publish goroutine without blocking.
func (s *RedisSink) Enqueue(det scanner.Detection) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return ErrSinkClosed
	}
	select {
	case s.queue <- det:
		return nil
	default:
		metrics.IncrementSinkErrors()
		return ErrSinkFull
	}
}

// Run publishes queued detections until ctx is cancelled or Close is called,
// then drains what is left.
func (s *RedisSink) Run(ctx context.Context) {
	for {
		select {
		case det, ok := <-s.queue:
			if !ok {
				return
			}
			s.publishQueued(det)
		case <-ctx.Done():
			s.Close()
			for det := range s.queue {
				s.publishQueued(det)
			}
			return
		}
	}
}

func (s *RedisSink) publishQueued(det scanner.Detection) {
	// The scan context may already be gone; give each write its own deadline.
	ctx, cancel := context.WithTimeout(context.Background(), s.writeTimeout)
	defer cancel()

	if err := s.Publish(ctx, det); err != nil {
		s.logger.WithError(err).Error("Failed to publish detection")
	}
}

// Close stops accepting detections. Run drains the backlog and returns.
func (s *RedisSink) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.queue)
	}
}
