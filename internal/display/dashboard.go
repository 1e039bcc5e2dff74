package display

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/zsiec/codescan/internal/scanner"
)

// Controller is the scanner surface the dashboard polls and drives.
type Controller interface {
	Status() scanner.Status
	ErrorText() string
	SetShowStaticImage(frozen bool)
	Reset()
}

// DetectionMsg delivers a detection to a running dashboard via
// tea.Program.Send.
type DetectionMsg scanner.Detection

type tickMsg time.Time

const (
	refreshInterval = 250 * time.Millisecond
	maxDetections   = 8
)

// Dashboard is a bubbletea model showing the scanner status and recent
// detections. Keys: f toggles freeze, r resets the session, q quits.
type Dashboard struct {
	ctrl       Controller
	status     scanner.Status
	errorText  string
	detections []scanner.Detection
	width      int
	quitting   bool
}

func NewDashboard(ctrl Controller) *Dashboard {
	return &Dashboard{ctrl: ctrl, status: ctrl.Status(), width: 60}
}

func (d *Dashboard) Init() tea.Cmd {
	return tickEvery(refreshInterval)
}

func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		d.width = msg.Width
		return d, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			d.quitting = true
			return d, tea.Quit
		case "f":
			d.ctrl.SetShowStaticImage(!d.status.Frozen)
		case "r":
			d.ctrl.Reset()
		}
		d.refresh()
		return d, nil

	case DetectionMsg:
		d.detections = append([]scanner.Detection{scanner.Detection(msg)}, d.detections...)
		if len(d.detections) > maxDetections {
			d.detections = d.detections[:maxDetections]
		}
		d.refresh()
		return d, nil

	case tickMsg:
		if d.quitting {
			return d, nil
		}
		d.refresh()
		return d, tickEvery(refreshInterval)
	}

	return d, nil
}

func (d *Dashboard) refresh() {
	d.status = d.ctrl.Status()
	d.errorText = d.ctrl.ErrorText()
}

func (d *Dashboard) View() string {
	if d.quitting {
		return "Stopping scanner...\n"
	}

	st := d.status
	frozen := "live"
	if st.Frozen {
		frozen = "frozen"
	}

	rows := []string{
		fmt.Sprintf("camera   %s %s", PhaseLabel(st.Phase), MutedStyle.Render(st.Device.String())),
		fmt.Sprintf("output   %s (%s)", st.Output, frozen),
		fmt.Sprintf("session  %s", MutedStyle.Render(st.SessionID)),
		fmt.Sprintf("attempts %d, %d in flight", st.Attempts, st.InFlight),
	}

	var b strings.Builder
	b.WriteString(PanelStyle.Width(d.width - 2).Render(strings.Join(rows, "\n")))
	b.WriteString("\n")

	if d.errorText != "" {
		b.WriteString(ErrorPanel(d.errorText, d.width-2, 3))
		b.WriteString("\n")
	}

	for _, det := range d.detections {
		b.WriteString(DetectionBanner(det))
		b.WriteString("\n")
	}

	b.WriteString(MutedStyle.Render("f freeze  r reset  q quit"))
	return lipgloss.NewStyle().MaxWidth(d.width).Render(b.String()) + "\n"
}

func tickEvery(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
