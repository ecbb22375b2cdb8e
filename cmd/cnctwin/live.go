package main

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/sentomas/Digital-Twin-CNC/internal/health"
	"github.com/sentomas/Digital-Twin-CNC/internal/logger"
	"github.com/sentomas/Digital-Twin-CNC/internal/machine"
	"github.com/sentomas/Digital-Twin-CNC/internal/spectrum"
	"github.com/sentomas/Digital-Twin-CNC/internal/twin"
)

var (
	titleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
	valueStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("255"))
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("82"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("220"))
	critStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	borderStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// frameInterval at ticksPerFrame integrator steps per frame keeps the
// dashboard close to real time (200 Hz logical rate).
const (
	frameInterval = 25 * time.Millisecond
	ticksPerFrame = 5
	historyLen    = 120
)

type liveModel struct {
	tw      *twin.Twin
	paused  bool
	history []float64
	width   int
}

type frameMsg time.Time

func frameTick() tea.Cmd {
	return tea.Tick(frameInterval, func(t time.Time) tea.Msg { return frameMsg(t) })
}

func (m *liveModel) Init() tea.Cmd { return frameTick() }

func (m *liveModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case " ":
			m.paused = !m.paused
		case "c":
			m.tw.UpdateCommand(func(c *machine.Command) { c.CycleActive = !c.CycleActive })
		case "o":
			m.tw.UpdateCommand(func(c *machine.Command) { c.CoolantActive = !c.CoolantActive })
		case "+", "=":
			m.tw.UpdateCommand(func(c *machine.Command) { c.FeedOverride = min(c.FeedOverride+0.1, 1.5) })
		case "-":
			m.tw.UpdateCommand(func(c *machine.Command) { c.FeedOverride = max(c.FeedOverride-0.1, 0) })
		case "]":
			m.tw.UpdateCommand(func(c *machine.Command) { c.SpindleOverride = min(c.SpindleOverride+0.1, 1.5) })
		case "[":
			m.tw.UpdateCommand(func(c *machine.Command) { c.SpindleOverride = max(c.SpindleOverride-0.1, 0) })
		case "up":
			m.tw.UpdateCommand(func(c *machine.Command) { c.TargetSpeed += 100 })
		case "down":
			m.tw.UpdateCommand(func(c *machine.Command) { c.TargetSpeed = max(c.TargetSpeed-100, 0) })
		}
		return m, nil

	case frameMsg:
		if !m.paused {
			var last machine.Sample
			for i := 0; i < ticksPerFrame; i++ {
				last = m.tw.Tick()
			}
			m.history = append(m.history, last.Displacement*1e6)
			if len(m.history) > historyLen {
				m.history = m.history[1:]
			}
		}
		return m, frameTick()
	}
	return m, nil
}

func statusStyle(s health.Status) lipgloss.Style {
	switch s {
	case health.StatusCritical:
		return critStyle
	case health.StatusWarning:
		return warnStyle
	default:
		return okStyle
	}
}

func (m *liveModel) View() string {
	state := m.tw.State()
	stats := m.tw.Stats()
	est := m.tw.Estimate()
	cmd := m.tw.Command()

	var b strings.Builder
	b.WriteString(titleStyle.Render("cnctwin — spindle digital twin"))
	b.WriteString("\n\n")

	row := func(label, value string) string {
		return labelStyle.Render(fmt.Sprintf("%-18s", label)) + valueStyle.Render(value) + "\n"
	}

	var machinePanel strings.Builder
	machinePanel.WriteString(row("t", fmt.Sprintf("%.2f s", state.Time)))
	machinePanel.WriteString(row("phase", state.Phase.String()))
	machinePanel.WriteString(row("z position", fmt.Sprintf("%.4f m", state.ZPos)))
	machinePanel.WriteString(row("spindle", fmt.Sprintf("%.0f rpm", state.SpindleSpeed)))
	machinePanel.WriteString(row("temperature", fmt.Sprintf("%.1f °C", state.Temperature)))
	machinePanel.WriteString(row("viscosity", fmt.Sprintf("%.1f cSt", state.Viscosity)))
	machinePanel.WriteString(row("wear", fmt.Sprintf("%.4f", state.Wear)))

	var healthPanel strings.Builder
	healthPanel.WriteString(labelStyle.Render(fmt.Sprintf("%-18s", "status")) +
		statusStyle(stats.Status).Render(stats.Status.String()) + "\n")
	healthPanel.WriteString(row("rms disp", fmt.Sprintf("%.2e m", stats.RMSDisplacement)))
	healthPanel.WriteString(row("peak vel", fmt.Sprintf("%.2e m/s", stats.PeakVelocity)))
	healthPanel.WriteString(row("avg load", fmt.Sprintf("%.1f %%", stats.AverageLoad)))
	healthPanel.WriteString(row("dominant freq", fmt.Sprintf("%.1f Hz", stats.DominantFrequency)))
	if est.Stable {
		healthPanel.WriteString(row("remaining life", "stable"))
	} else {
		healthPanel.WriteString(row("remaining life", fmt.Sprintf("%.1f units", est.TimeToFailure)))
	}
	if peak, ok := spectrum.Dominant(m.tw.Spectrum()); ok {
		healthPanel.WriteString(row("spectral peak", fmt.Sprintf("%.1f Hz", peak.Frequency)))
	}

	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		borderStyle.Render(machinePanel.String()),
		borderStyle.Render(healthPanel.String()),
	))
	b.WriteString("\n")

	if len(m.history) > 2 {
		b.WriteString(asciigraph.Plot(m.history,
			asciigraph.Height(7),
			asciigraph.Width(70),
			asciigraph.Caption("displacement (µm)"),
		))
		b.WriteString("\n")
	}

	cycleState := "held"
	if cmd.CycleActive {
		cycleState = "running"
	}
	b.WriteString(labelStyle.Render(fmt.Sprintf(
		"\ncycle %s  feed %.1f  spindle %.1f  %.0f rpm  coolant %v\n",
		cycleState, cmd.FeedOverride, cmd.SpindleOverride, cmd.TargetSpeed, cmd.CoolantActive)))
	b.WriteString(labelStyle.Render("space pause · c cycle · o coolant · +/- feed · [/] spindle · ↑/↓ speed · q quit\n"))

	return b.String()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig()
	if err != nil {
		return err
	}

	tw := twin.New(cfg.Parameters(), cfg.InitialCommand(), cfg.Run.Seed, logger.NewNop())
	m := &liveModel{
		tw:      tw,
		history: make([]float64, 0, historyLen),
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	_, err = p.Run()
	return err
}
