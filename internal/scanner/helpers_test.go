package scanner

import (
	"context"
	"image"
	"image/color"
	"image/draw"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zsiec/codescan/internal/clock"
	"github.com/zsiec/codescan/internal/decoder"
	"github.com/zsiec/codescan/internal/frame"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// fakeSource serves frames from next, which defaults to a solid grey frame.
type fakeSource struct {
	size     frame.Size
	startErr error

	mu     sync.Mutex
	next   func(n int) (image.Image, error)
	frames int
	closed bool
}

func newFakeSource(size frame.Size) *fakeSource {
	return &fakeSource{size: size}
}

func (f *fakeSource) Start(ctx context.Context) (frame.Size, error) {
	if f.startErr != nil {
		return frame.Size{}, f.startErr
	}
	return f.size, nil
}

func (f *fakeSource) Frame() (image.Image, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.frames++
	if f.next != nil {
		return f.next(f.frames)
	}
	return solid(f.size, color.Gray{Y: 0x80}), nil
}

func (f *fakeSource) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeSource) frameCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.frames
}

func solid(size frame.Size, c color.Color) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, size.W, size.H))
	draw.Draw(img, img.Rect, image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

// stubDecoder answers each call with answer(call number), counting calls.
type stubDecoder struct {
	name   string
	calls  atomic.Int32
	answer func(call int) (decoder.Result, error)
}

func (d *stubDecoder) Name() string { return d.name }

func (d *stubDecoder) Decode(ctx context.Context, img image.Image) (decoder.Result, error) {
	n := int(d.calls.Add(1))
	if d.answer == nil {
		return decoder.Result{}, decoder.ErrNotFound
	}
	return d.answer(n)
}

func always(text string) func(int) (decoder.Result, error) {
	return func(int) (decoder.Result, error) { return decoder.Result{Text: text}, nil }
}

// recorder captures callback invocations.
type recorder struct {
	mu       sync.Mutex
	codes    []decoder.Hit
	errs     []error
	finishes []ScanInfo
}

func (r *recorder) onCode(payload string, kind decoder.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.codes = append(r.codes, decoder.Hit{Payload: payload, Kind: kind})
}

func (r *recorder) onError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder) onFinish(info ScanInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishes = append(r.finishes, info)
}

func (r *recorder) detected() []decoder.Hit {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]decoder.Hit(nil), r.codes...)
}

func (r *recorder) errors() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}

func (r *recorder) finished() []ScanInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ScanInfo(nil), r.finishes...)
}

type harness struct {
	s     *Scheduler
	src   *fakeSource
	clk   *clock.Mock
	rec   *recorder
	point *stubDecoder
	lin   *stubDecoder
}

// newHarness builds a scheduler driven step by step: tests call step instead
// of Run so every tick happens at a known mock time.
func newHarness(t *testing.T, async bool, mutate func(*Options)) *harness {
	t.Helper()

	h := &harness{
		src:   newFakeSource(frame.Size{W: 640, H: 480}),
		clk:   clock.NewMock(epoch),
		rec:   &recorder{},
		point: &stubDecoder{name: "point"},
		lin:   &stubDecoder{name: "linear"},
	}

	opts := Options{
		OnCodeDetected: h.rec.onCode,
		OnError:        h.rec.onError,
		OnScanFinish:   h.rec.onFinish,
		Clock:          h.clk,
	}
	if mutate != nil {
		mutate(&opts)
	}

	s, err := New(opts, h.src, decoder.NewSet(h.point, h.lin, async, nil), nil)
	require.NoError(t, err)
	h.s = s
	return h
}

func (h *harness) stream(t *testing.T) {
	t.Helper()
	size, err := h.src.Start(context.Background())
	require.NoError(t, h.s.acquire(acquisition{size: size, err: err}))
}

// step advances the clock one render interval and runs a tick.
func (h *harness) step() {
	h.clk.Advance(h.s.opts.RenderInterval)
	h.s.tick(context.Background())
}

// settle waits for one asynchronous outcome and resolves it on the test
// goroutine, as the loop would.
func (h *harness) settle(t *testing.T) {
	t.Helper()
	select {
	case o := <-h.s.outcomes:
		h.s.finish(o)
	case <-time.After(2 * time.Second):
		t.Fatal("no asynchronous outcome")
	}
}
