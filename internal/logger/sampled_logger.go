package logger

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// SampledLogger rate limits high frequency log categories. The scan loop runs
// ten ticks a second, and a miss on every attempt would otherwise flood the
// output.
type SampledLogger struct {
	base     Logger
	samplers *samplerSet
}

type samplerSet struct {
	mu  sync.RWMutex
	m   map[string]*LogSampler
	now func() time.Time
}

// LogSampler holds the sampling state for one category.
type LogSampler struct {
	name     string
	interval time.Duration // window in which the burst applies
	burst    int64         // messages let through per window
	every    int64         // after the burst, one in every N is let through

	windowStart int64 // unix nanos, atomic
	inWindow    int64 // atomic
	total       int64 // atomic
	logged      int64 // atomic
}

func NewSampledLogger(base Logger) *SampledLogger {
	return &SampledLogger{
		base: base,
		samplers: &samplerSet{
			m:   make(map[string]*LogSampler),
			now: time.Now,
		},
	}
}

// WithSampler configures category to let burst messages through per interval,
// then one in every messages until the window rolls over. every <= 0 drops
// everything past the burst.
func (s *SampledLogger) WithSampler(category string, interval time.Duration, burst, every int) *SampledLogger {
	s.samplers.mu.Lock()
	defer s.samplers.mu.Unlock()

	s.samplers.m[category] = &LogSampler{
		name:     category,
		interval: interval,
		burst:    int64(burst),
		every:    int64(every),
	}
	return s
}

func (s *SampledLogger) sampler(category string) *LogSampler {
	s.samplers.mu.RLock()
	defer s.samplers.mu.RUnlock()
	return s.samplers.m[category]
}

func (s *SampledLogger) shouldLog(category string) bool {
	sm := s.sampler(category)
	if sm == nil {
		return true
	}

	now := s.samplers.now().UnixNano()
	atomic.AddInt64(&sm.total, 1)

	start := atomic.LoadInt64(&sm.windowStart)
	if now-start >= sm.interval.Nanoseconds() && atomic.CompareAndSwapInt64(&sm.windowStart, start, now) {
		atomic.StoreInt64(&sm.inWindow, 0)
	}

	n := atomic.AddInt64(&sm.inWindow, 1)
	if n <= sm.burst {
		atomic.AddInt64(&sm.logged, 1)
		return true
	}
	if sm.every > 0 && (n-sm.burst)%sm.every == 0 {
		atomic.AddInt64(&sm.logged, 1)
		return true
	}
	return false
}

// CategoryLog logs msg at level if the category's sampler lets it through.
func (s *SampledLogger) CategoryLog(level logrus.Level, category, msg string, fields map[string]interface{}) {
	if !s.shouldLog(category) {
		return
	}

	if fields == nil {
		fields = make(map[string]interface{}, 3)
	}
	fields["category"] = category
	if sm := s.sampler(category); sm != nil {
		fields["_sampling_dropped"] = atomic.LoadInt64(&sm.total) - atomic.LoadInt64(&sm.logged)
	}
	s.base.WithFields(fields).Log(level, msg)
}

func (s *SampledLogger) DebugWithCategory(category, msg string, fields map[string]interface{}) {
	s.CategoryLog(logrus.DebugLevel, category, msg, fields)
}

func (s *SampledLogger) InfoWithCategory(category, msg string, fields map[string]interface{}) {
	s.CategoryLog(logrus.InfoLevel, category, msg, fields)
}

func (s *SampledLogger) WarnWithCategory(category, msg string, fields map[string]interface{}) {
	s.CategoryLog(logrus.WarnLevel, category, msg, fields)
}

// ErrorWithCategory is never sampled.
func (s *SampledLogger) ErrorWithCategory(category, msg string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{}, 1)
	}
	fields["category"] = category
	s.base.WithFields(fields).Error(msg)
}

// SamplerStats holds statistics for a log sampler
type SamplerStats struct {
	Name    string `json:"name"`
	Total   int64  `json:"total"`
	Logged  int64  `json:"logged"`
	Dropped int64  `json:"dropped"`
}

func (s *SampledLogger) GetSamplerStats() map[string]SamplerStats {
	s.samplers.mu.RLock()
	defer s.samplers.mu.RUnlock()

	stats := make(map[string]SamplerStats, len(s.samplers.m))
	for name, sm := range s.samplers.m {
		total := atomic.LoadInt64(&sm.total)
		logged := atomic.LoadInt64(&sm.logged)
		stats[name] = SamplerStats{Name: name, Total: total, Logged: logged, Dropped: total - logged}
	}
	return stats
}

// Scan loop log categories.
const (
	CategoryTick         = "tick"
	CategoryScanAttempt  = "scan_attempt"
	CategoryDecoderMiss  = "decoder_miss"
	CategoryDecoderFault = "decoder_fault"
	CategoryPreview      = "preview"
	CategoryCamera       = "camera" // not sampled
)

// NewScanLogger returns a SampledLogger configured for the scan loop.
func NewScanLogger(base Logger) *SampledLogger {
	return NewSampledLogger(base).
		WithSampler(CategoryTick, time.Second, 1, 0).
		WithSampler(CategoryScanAttempt, time.Second, 2, 10).
		WithSampler(CategoryDecoderMiss, 5*time.Second, 1, 50).
		WithSampler(CategoryDecoderFault, time.Second, 3, 10).
		WithSampler(CategoryPreview, time.Second, 1, 0)
}

func (s *SampledLogger) WithFields(fields map[string]interface{}) Logger {
	return &SampledLogger{base: s.base.WithFields(fields), samplers: s.samplers}
}

func (s *SampledLogger) WithField(key string, value interface{}) Logger {
	return &SampledLogger{base: s.base.WithField(key, value), samplers: s.samplers}
}

func (s *SampledLogger) WithError(err error) Logger {
	return &SampledLogger{base: s.base.WithError(err), samplers: s.samplers}
}

func (s *SampledLogger) Debug(args ...interface{})                   { s.base.Debug(args...) }
func (s *SampledLogger) Info(args ...interface{})                    { s.base.Info(args...) }
func (s *SampledLogger) Warn(args ...interface{})                    { s.base.Warn(args...) }
func (s *SampledLogger) Error(args ...interface{})                   { s.base.Error(args...) }
func (s *SampledLogger) Log(level logrus.Level, args ...interface{}) { s.base.Log(level, args...) }
func (s *SampledLogger) Debugf(format string, args ...interface{})   { s.base.Debugf(format, args...) }
func (s *SampledLogger) Infof(format string, args ...interface{})    { s.base.Infof(format, args...) }
func (s *SampledLogger) Warnf(format string, args ...interface{})    { s.base.Warnf(format, args...) }
func (s *SampledLogger) Errorf(format string, args ...interface{})   { s.base.Errorf(format, args...) }
