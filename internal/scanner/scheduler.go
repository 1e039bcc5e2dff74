// Package scanner runs the render and scan loop: it composites camera frames
// into a fixed buffer on every tick and, on a slower cadence, races the point
// and linear decoders against a snapshot of that buffer.
package scanner

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/zsiec/codescan/internal/camera"
	"github.com/zsiec/codescan/internal/decoder"
	apperrors "github.com/zsiec/codescan/internal/errors"
	"github.com/zsiec/codescan/internal/frame"
	"github.com/zsiec/codescan/internal/logger"
	"github.com/zsiec/codescan/internal/metrics"
)

// ErrAlreadyRunning is returned by a second concurrent Run.
var ErrAlreadyRunning = errors.New("scanner: already running")

// Scheduler owns one camera source, one output buffer and one decoder set.
// Reset, SetShowStaticImage and the read accessors are safe to call from any
// goroutine while Run is active.
type Scheduler struct {
	opts Options
	src  camera.Source
	set  *decoder.Set
	log  logger.Logger
	slog *logger.SampledLogger
	comp *frame.Compositor

	frozen   atomic.Bool
	running  atomic.Bool
	outcomes chan outcome
	done     chan struct{}

	mu sync.Mutex
	st state
}

type acquisition struct {
	size frame.Size
	err  error
}

func New(opts Options, src camera.Source, set *decoder.Set, log logger.Logger) (*Scheduler, error) {
	opts.setDefaults()
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("scanner: nil camera source")
	}
	if set == nil || set.Point == nil {
		return nil, fmt.Errorf("scanner: decoder set needs a point decoder")
	}

	log = logger.OrNull(log).WithField("component", "scanner")
	s := &Scheduler{
		opts:     opts,
		src:      src,
		set:      set,
		log:      log,
		slog:     logger.NewScanLogger(log),
		comp:     frame.NewCompositor(frame.NewBuffer(frame.Size{W: opts.Width, H: opts.Height})),
		outcomes: make(chan outcome, 4),
		done:     make(chan struct{}),
	}
	s.st.session = uuid.New().String()
	s.frozen.Store(opts.ShowStaticImage)
	return s, nil
}

// Run acquires the camera and drives the tick loop until ctx is cancelled.
//
// A camera acquisition failure is handed to OnError and the loop idles; with
// no OnError, Run returns the failure. Cancelling ctx stops the loop and
// closes the source; decodes still running are abandoned and their results
// dropped. Run returns nil on cancellation.
func (s *Scheduler) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(s.done)

	acquired := make(chan acquisition, 1)
	go func() {
		size, err := s.src.Start(ctx)
		acquired <- acquisition{size: size, err: err}
	}()

	// A source still starting is closed once Start returns, so a stream
	// opened after cancellation is released too.
	defer func() {
		metrics.SetCameraStreaming(false)
		if acquired == nil {
			s.closeSource()
			return
		}
		go func(pending <-chan acquisition) {
			<-pending
			s.closeSource()
		}(acquired)
	}()

	timer := s.opts.Clock.NewTimer(s.opts.RenderInterval)
	defer timer.Stop()

	s.log.WithFields(map[string]interface{}{
		"output":          frame.Size{W: s.opts.Width, H: s.opts.Height}.String(),
		"render_interval": s.opts.RenderInterval.String(),
		"scan_interval":   s.opts.ScanInterval.String(),
		"session_id":      s.SessionID(),
	}).Info("Scan loop started")

	for {
		select {
		case <-ctx.Done():
			s.log.Info("Scan loop stopped")
			return nil

		case a := <-acquired:
			acquired = nil
			if err := s.acquire(a); err != nil {
				return err
			}

		case <-timer.C():
			s.tick(ctx)
			timer.Reset(s.opts.RenderInterval)

		case o := <-s.outcomes:
			s.finish(o)
		}
	}
}

func (s *Scheduler) closeSource() {
	if err := s.src.Close(); err != nil {
		s.log.WithError(err).Warn("Failed to close camera source")
	}
}

// acquire applies the camera acquisition result. It returns the failure
// when there is no OnError to take it.
func (s *Scheduler) acquire(a acquisition) error {
	if a.err == nil {
		s.mu.Lock()
		s.st.phase = Streaming
		s.st.device = a.size
		s.mu.Unlock()

		metrics.SetCameraStreaming(true)
		s.log.WithField("device", a.size.String()).Info("Camera stream acquired")
		return nil
	}

	s.mu.Lock()
	s.st.phase = Failed
	s.st.failure = a.err
	s.mu.Unlock()

	errType := string(apperrors.ErrorTypeInternal)
	if appErr, ok := apperrors.GetAppError(a.err); ok {
		errType = string(appErr.Type)
	}
	metrics.IncrementCameraFailure(errType)
	s.slog.ErrorWithCategory(logger.CategoryCamera, "Failed to request camera stream", map[string]interface{}{
		"error":      a.err.Error(),
		"error_type": errType,
	})

	if s.opts.OnError != nil {
		s.opts.OnError(a.err)
		return nil
	}
	return fmt.Errorf("camera acquisition: %w", a.err)
}

// tick is one iteration of the render loop.
func (s *Scheduler) tick(ctx context.Context) {
	metrics.IncrementRenderTicks()

	s.mu.Lock()
	phase, device := s.st.phase, s.st.device
	s.mu.Unlock()

	if phase != Streaming || s.frozen.Load() {
		return
	}

	img, err := s.src.Frame()
	if err != nil {
		s.slog.WarnWithCategory(logger.CategoryTick, "Failed to read camera frame", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	s.comp.Composite(img, device)
	metrics.IncrementFramesComposited()

	s.maybeScan(ctx, s.opts.Clock.Now())
}

// maybeScan starts a scan attempt when the scan interval has elapsed.
func (s *Scheduler) maybeScan(ctx context.Context, now time.Time) {
	s.mu.Lock()
	if !s.st.lastScan.IsZero() && now.Sub(s.st.lastScan) <= s.opts.ScanInterval {
		s.mu.Unlock()
		return
	}
	if s.st.detected != nil {
		s.mu.Unlock()
		metrics.IncrementScansSkipped(metrics.SkipDetected)
		return
	}
	if s.st.inFlight > 0 && !s.opts.AllowOverlappingScans {
		s.mu.Unlock()
		metrics.IncrementScansSkipped(metrics.SkipInFlight)
		return
	}
	s.st.lastAttempt++
	id := s.st.lastAttempt
	s.st.lastScan = now
	s.mu.Unlock()

	s.slog.DebugWithCategory(logger.CategoryScanAttempt, "Scanning", map[string]interface{}{"attempt": id})
	s.scan(ctx, id, s.comp.Buffer().Snapshot())
}

// scan runs the decoder race for one attempt. The point decoder runs inline;
// the linear decoder runs inline or on its own goroutine, reporting back
// through s.outcomes.
func (s *Scheduler) scan(ctx context.Context, id uint64, snap image.Image) {
	start := s.opts.Clock.Now()

	if hit, ok := s.set.TryPoint(ctx, snap); ok {
		s.finish(outcome{id: id, hit: hit, ok: true, cost: s.opts.Clock.Since(start)})
		return
	}

	if !s.set.LinearAsync {
		hit, ok := s.set.TryLinear(ctx, snap)
		s.finish(outcome{id: id, hit: hit, ok: ok, cost: s.opts.Clock.Since(start)})
		return
	}

	s.mu.Lock()
	s.st.inFlight++
	s.mu.Unlock()

	go func() {
		hit, ok := s.set.TryLinear(ctx, snap)
		o := outcome{id: id, hit: hit, ok: ok, cost: s.opts.Clock.Since(start), async: true}
		select {
		case s.outcomes <- o:
		case <-s.done:
		}
	}()
}

// finish resolves an attempt. The first hit of a session is reported; hits
// from attempts issued before the last Reset, or arriving after the session
// already reported, are dropped.
func (s *Scheduler) finish(o outcome) {
	s.mu.Lock()
	if o.async {
		s.st.inFlight--
	}
	stale := o.id <= s.st.staleBelow || s.st.phase == Failed
	report := o.ok && !stale && s.st.detected == nil

	var det Detection
	if report {
		det = Detection{
			Hit:        o.hit,
			SessionID:  s.st.session,
			AttemptID:  o.id,
			DetectedAt: s.opts.Clock.Now(),
			ScanCost:   o.cost,
		}
		s.st.detected = &det
	}
	s.mu.Unlock()

	switch {
	case stale:
		metrics.RecordScanAttempt(metrics.ResultAbandoned, o.cost)
		return
	case report:
		metrics.RecordScanAttempt(metrics.ResultHit, o.cost)
	default:
		metrics.RecordScanAttempt(metrics.ResultMiss, o.cost)
	}

	if s.opts.OnScanFinish != nil {
		s.opts.OnScanFinish(ScanInfo{AttemptID: o.id, ScanCost: o.cost, Hit: report})
	}

	if !report {
		if o.ok {
			s.log.WithField("attempt", o.id).Debug("Dropped late decode result")
		}
		return
	}

	metrics.IncrementCodesDetected(string(det.Kind))
	s.log.WithFields(map[string]interface{}{
		"kind":       det.Kind,
		"decoder":    det.Decoder,
		"attempt":    det.AttemptID,
		"scan_cost":  det.ScanCost.String(),
		"session_id": det.SessionID,
	}).Info("Code detected")

	s.opts.OnCodeDetected(det.Payload, det.Kind)
	if s.opts.OnDetection != nil {
		s.opts.OnDetection(det)
	}
}

// Reset starts a new scan session: the detection latch is cleared and results
// of attempts issued so far are dropped. The scan throttle still counts from
// the last scan, so a code left in view is not decoded on every tick. A
// camera failure is not cleared.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.st.detected = nil
	s.st.staleBelow = s.st.lastAttempt
	s.st.session = uuid.New().String()
}

// SetShowStaticImage freezes (true) or resumes (false) compositing. The loop
// keeps ticking while frozen and no scans are attempted.
func (s *Scheduler) SetShowStaticImage(frozen bool) {
	s.frozen.Store(frozen)
}

// Preview returns a copy of the output buffer.
func (s *Scheduler) Preview() *image.RGBA {
	return s.comp.Buffer().Snapshot()
}

// ErrorText is the configured failure text once the camera has failed, and
// empty otherwise.
func (s *Scheduler) ErrorText() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.st.phase != Failed {
		return ""
	}
	return s.opts.ErrorLocale
}

// Err returns the latched camera failure, if any.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.failure
}

func (s *Scheduler) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.session
}

func (s *Scheduler) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Status{
		Phase:     s.st.phase.String(),
		Device:    s.st.device,
		Output:    s.comp.Buffer().Size(),
		Frozen:    s.frozen.Load(),
		SessionID: s.st.session,
		Attempts:  s.st.lastAttempt,
		InFlight:  s.st.inFlight,
	}
	if s.st.detected != nil {
		det := *s.st.detected
		st.Detection = &det
	}
	if s.st.failure != nil {
		st.Error = s.st.failure.Error()
	}
	return st
}
