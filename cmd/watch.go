package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/mcpherrinm/potwatch/internal/buffer"
	"github.com/mcpherrinm/potwatch/internal/events"
	"github.com/mcpherrinm/potwatch/internal/monitor"
	"github.com/mcpherrinm/potwatch/internal/store"
)

// emptyFloor is the fill ratio below which the pot is drawn empty.
const emptyFloor = 0.04

var (
	titleStyle  = lipgloss.NewStyle().Bold(true)
	weightStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15"))
	dimStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	eventStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
)

// sampleMsg asks the model to process the next recorded sample
type sampleMsg struct{}

// potModel replays a recorded history through a monitor and draws what the
// scale's display would show
type potModel struct {
	ctx     context.Context
	mon     *monitor.Monitor
	entries []buffer.Entry[float64]
	next    int
	speed   float64

	emptyWeight float64
	bar         progress.Model

	snap      monitor.Snapshot
	fill      float64
	lastDraw  float64
	drawn     bool
	lastEvent *events.Event

	width  int
	height int
}

func newPotModel(ctx context.Context, mon *monitor.Monitor, entries []buffer.Entry[float64], speed, emptyWeight float64, width, height int) potModel {
	if speed <= 0 {
		speed = 1
	}
	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	m := potModel{
		ctx:         ctx,
		mon:         mon,
		entries:     entries,
		speed:       speed,
		emptyWeight: emptyWeight,
		bar:         bar,
		width:       width,
		height:      height,
	}
	m.resizeBar()
	return m
}

func (m potModel) Init() tea.Cmd {
	return m.tick()
}

// tick schedules the next sample after its recorded gap, scaled by speed.
func (m potModel) tick() tea.Cmd {
	if m.next >= len(m.entries) {
		return nil
	}
	var gap float64
	if m.next > 0 {
		gap = m.entries[m.next].TS - m.entries[m.next-1].TS
	}
	if gap < 0 {
		gap = 0
	}
	delay := time.Duration(gap / m.speed * float64(time.Second))
	return tea.Tick(delay, func(time.Time) tea.Msg { return sampleMsg{} })
}

func (m potModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeBar()
	case sampleMsg:
		if m.next >= len(m.entries) {
			return m, nil
		}
		e := m.entries[m.next]
		m.next++
		if ev, ok := m.mon.Process(m.ctx, e.TS, e.Value); ok {
			m.lastEvent = &ev
		}
		m.refresh(e.TS)
		return m, m.tick()
	}
	return m, nil
}

// refresh takes a new snapshot at most once per second of sample time. The
// fill level only moves while the reading is stable.
func (m *potModel) refresh(ts float64) {
	if m.drawn && ts-m.lastDraw <= 1 {
		return
	}
	m.snap = m.mon.Snapshot()
	m.lastDraw = ts
	m.drawn = true

	if m.snap.HaveReading && m.snap.Reading.Stable {
		m.fill = fillRatio(m.snap.Reading.Median, m.emptyWeight, m.mon.Thresholds().FullWeight)
	}
}

func (m *potModel) resizeBar() {
	w := m.width - 4
	if w < 10 {
		w = 10
	}
	m.bar.Width = w
}

func fillRatio(median, empty, full float64) float64 {
	if full <= empty {
		return 0
	}
	r := (median - empty) / (full - empty)
	if r > 1 {
		return 1
	}
	if r < emptyFloor {
		return 0
	}
	return r
}

func (m potModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Coffee pot") + "\n\n")

	switch {
	case m.snap.HaveReading:
		b.WriteString(weightStyle.Render(fmt.Sprintf("%6.0f g", m.snap.Reading.Median)))
		if m.snap.Reading.Stable {
			b.WriteString("  stable\n")
		} else {
			b.WriteString(dimStyle.Render("  settling") + "\n")
		}
	default:
		b.WriteString(dimStyle.Render("waiting for data") + "\n")
	}

	b.WriteString("\n" + m.bar.ViewAs(m.fill) + "\n\n")

	if m.snap.HaveLastNew {
		b.WriteString("New pot: " + time.Unix(int64(m.snap.LastNew), 0).Format("Mon 15:04") + "\n")
	}
	if m.lastEvent != nil {
		b.WriteString(eventStyle.Render(fmt.Sprintf("Last event: %s at %s",
			m.lastEvent.Kind.Code(), time.Unix(int64(m.lastEvent.TS), 0).Format("15:04:05"))) + "\n")
	}
	if m.snap.HaveStats {
		rec := m.snap.Stats.Value
		b.WriteString(dimStyle.Render(fmt.Sprintf("window: median %.1f  deviation %.1f  %d samples / %.2fs",
			rec.Median, rec.Deviation, rec.Count, rec.Duration)) + "\n")
	}

	b.WriteString(dimStyle.Render(fmt.Sprintf("\nsample %d/%d  press q to quit", m.next, len(m.entries))) + "\n")
	return b.String()
}

var watchSpeed float64

var watchCmd = &cobra.Command{
	Use:   "watch FILE",
	Short: "Replay a recorded history on a live display",
	Long:  "Replay a recorded CSV history at its recorded pace (scaled by --speed) and show the weight, fill level and events as the scale's display would.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		entries, err := store.LoadCSVFile(args[0])
		if err != nil {
			return fmt.Errorf("load %s: %w", args[0], err)
		}

		// the display owns the terminal, so logs go nowhere
		log, err := newLogger(conf, io.Discard)
		if err != nil {
			return err
		}
		mon := monitor.New(monitorConfig(conf), nil, log, nil)

		p := tea.NewProgram(newPotModel(cmd.Context(), mon, entries, watchSpeed, conf.GetFloat64("display.weight_empty"), 80, 24), tea.WithAltScreen())
		if _, err := p.Run(); err != nil {
			return fmt.Errorf("running TUI: %w", err)
		}
		return nil
	},
}

func init() {
	watchCmd.Flags().Float64Var(&watchSpeed, "speed", 1, "playback speed multiplier")
	rootCmd.AddCommand(watchCmd)
}
