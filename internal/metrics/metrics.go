package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Scan loop metrics
	renderTicksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codescan_render_ticks_total",
		Help: "Render ticks executed by the scan loop",
	})

	framesCompositedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codescan_frames_composited_total",
		Help: "Camera frames drawn into the output buffer",
	})

	scanAttemptsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codescan_scan_attempts_total",
		Help: "Scan attempts by outcome",
	}, []string{"result"}) // hit, miss, abandoned

	scanDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "codescan_scan_duration_seconds",
		Help:    "Time from scan start to attempt resolution",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~2s
	})

	scansSkippedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codescan_scans_skipped_total",
		Help: "Due scans that were not started",
	}, []string{"reason"}) // in_flight, static, detected

	// Decoder metrics
	decoderHitsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codescan_decoder_hits_total",
		Help: "Successful decodes by decoder",
	}, []string{"decoder"})

	decoderErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codescan_decoder_errors_total",
		Help: "Decoder faults (errors other than not found, and panics)",
	}, []string{"decoder"})

	codesDetectedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codescan_codes_detected_total",
		Help: "Codes reported to the consumer by kind",
	}, []string{"kind"})

	// Camera metrics
	cameraFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "codescan_camera_failures_total",
		Help: "Camera acquisition failures by error type",
	}, []string{"type"})

	cameraStreaming = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "codescan_camera_streaming",
		Help: "1 while a camera stream is attached",
	})

	// Result sink metrics
	sinkPublishedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codescan_sink_published_total",
		Help: "Detections written to the result sink",
	})

	sinkErrorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "codescan_sink_errors_total",
		Help: "Failed result sink writes",
	})
)

// Scan attempt outcomes.
const (
	ResultHit       = "hit"
	ResultMiss      = "miss"
	ResultAbandoned = "abandoned"
)

// Reasons a due scan is skipped.
const (
	SkipInFlight = "in_flight"
	SkipStatic   = "static"
	SkipDetected = "detected"
)

func IncrementRenderTicks() {
	renderTicksTotal.Inc()
}

func IncrementFramesComposited() {
	framesCompositedTotal.Inc()
}

// RecordScanAttempt counts a resolved attempt and observes its cost.
func RecordScanAttempt(result string, cost time.Duration) {
	scanAttemptsTotal.WithLabelValues(result).Inc()
	if result != ResultAbandoned {
		scanDuration.Observe(cost.Seconds())
	}
}

func IncrementScansSkipped(reason string) {
	scansSkippedTotal.WithLabelValues(reason).Inc()
}

func IncrementDecoderHit(decoder string) {
	decoderHitsTotal.WithLabelValues(decoder).Inc()
}

func IncrementDecoderError(decoder string) {
	decoderErrorsTotal.WithLabelValues(decoder).Inc()
}

// DecoderErrors returns the fault counter for decoder.
func DecoderErrors(decoder string) prometheus.Counter {
	return decoderErrorsTotal.WithLabelValues(decoder)
}

func IncrementCodesDetected(kind string) {
	codesDetectedTotal.WithLabelValues(kind).Inc()
}

func IncrementCameraFailure(errorType string) {
	cameraFailuresTotal.WithLabelValues(errorType).Inc()
}

func SetCameraStreaming(streaming bool) {
	if streaming {
		cameraStreaming.Set(1)
		return
	}
	cameraStreaming.Set(0)
}

func IncrementSinkPublished() {
	sinkPublishedTotal.Inc()
}

func IncrementSinkErrors() {
	sinkErrorsTotal.Inc()
}
