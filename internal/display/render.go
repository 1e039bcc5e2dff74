package display

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/zsiec/codescan/internal/scanner"
)

// ErrorPanel renders text on the failure background, sized to the scanner
// output in terminal cells.
func ErrorPanel(text string, width, height int) string {
	return ErrorPanelStyle.Width(width).Height(height).Render(text)
}

// DetectionBanner renders one reported code.
func DetectionBanner(det scanner.Detection) string {
	header := KindStyle.Render(strings.ToUpper(string(det.Kind)))
	if det.Format != "" {
		header += MutedStyle.Render(" " + det.Format)
	}

	meta := MutedStyle.Render(fmt.Sprintf("attempt %d, %s via %s",
		det.AttemptID, det.ScanCost.Round(time.Millisecond), det.Decoder))

	return BannerStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		header,
		PayloadStyle.Render(det.Payload),
		meta,
	))
}

// PhaseLabel renders the scheduler phase with its colour.
func PhaseLabel(phase string) string {
	switch phase {
	case scanner.Streaming.String():
		return streamingStyle.Render(phase)
	case scanner.Failed.String():
		return failedStyle.Render(phase)
	default:
		return waitingStyle.Render(phase)
	}
}

// Printer writes banners and failure panels to a plain terminal.
type Printer struct {
	mu     sync.Mutex
	w      io.Writer
	width  int
	height int
}

// NewPrinter sizes failure panels to width x height cells.
func NewPrinter(w io.Writer, width, height int) *Printer {
	return &Printer{w: w, width: width, height: height}
}

func (p *Printer) Detection(det scanner.Detection) {
	p.print(DetectionBanner(det))
}

func (p *Printer) Failure(text string) {
	p.print(ErrorPanel(text, p.width, p.height))
}

func (p *Printer) print(s string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.w, s)
}
