package ui

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/seb26/fioctl/engine"
)

// slotRow is the display state of one transfer slot.
type slotRow struct {
	Name    string
	Size    int64
	Done    int64
	Active  bool
	Pending bool
}

// Model implements the tea.Model interface, rendering one row per
// transfer slot plus an aggregate bar fed from engine stats.
type Model struct {
	title    string
	rows     []slotRow
	snapshot engine.StatsSnapshot
	done     bool

	spinner  spinner.Model
	progress progress.Model

	width  int
	height int

	titleStyle lipgloss.Style
	infoStyle  lipgloss.Style
	rowStyle   lipgloss.Style
	helpStyle  lipgloss.Style
	doneStyle  lipgloss.Style
}

// SlotStartedMsg marks a slot as occupied by a new transfer. The file
// stays pending until its first chunk lands.
type SlotStartedMsg struct {
	Slot int
	Name string
	Size int64
}

// SlotActiveMsg moves a slot from pending to actively transferring.
type SlotActiveMsg struct {
	Slot int
}

// SlotAdvanceMsg reports completed bytes on a slot.
type SlotAdvanceMsg struct {
	Slot  int
	Bytes int64
}

// SlotFinishedMsg frees a slot.
type SlotFinishedMsg struct {
	Slot int
}

// StatsMsg carries the latest aggregate snapshot.
type StatsMsg struct {
	Snapshot engine.StatsSnapshot
}

// DoneMsg signals the run is over and the program should exit.
type DoneMsg struct{}

// NewModel creates a model with capacity slot rows.
func NewModel(title string, capacity int) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	prog := progress.New(progress.WithDefaultGradient())

	return Model{
		title:      title,
		rows:       make([]slotRow, capacity),
		spinner:    s,
		progress:   prog,
		titleStyle: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Padding(0, 1),
		infoStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")),
		rowStyle:   lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
		helpStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("241")).MarginTop(1),
		doneStyle:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
	}
}

func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.progress.Width = msg.Width - 14

	case SlotStartedMsg:
		if msg.Slot >= 0 && msg.Slot < len(m.rows) {
			m.rows[msg.Slot] = slotRow{Name: msg.Name, Size: msg.Size, Pending: true}
		}

	case SlotActiveMsg:
		if msg.Slot >= 0 && msg.Slot < len(m.rows) {
			m.rows[msg.Slot].Pending = false
			m.rows[msg.Slot].Active = true
		}

	case SlotAdvanceMsg:
		if msg.Slot >= 0 && msg.Slot < len(m.rows) {
			m.rows[msg.Slot].Done += msg.Bytes
		}

	case SlotFinishedMsg:
		if msg.Slot >= 0 && msg.Slot < len(m.rows) {
			m.rows[msg.Slot] = slotRow{}
		}

	case StatsMsg:
		m.snapshot = msg.Snapshot

	case DoneMsg:
		m.done = true
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		cmds = append(cmds, cmd)

	case progress.FrameMsg:
		progressModel, cmd := m.progress.Update(msg)
		m.progress = progressModel.(progress.Model)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}

	var sb strings.Builder

	header := fmt.Sprintf("%s fioctl %s", m.spinner.View(), m.titleStyle.Render(m.title))
	sb.WriteString(header + "\n")

	snap := m.snapshot
	var percent float64
	if snap.TotalBytes > 0 {
		percent = float64(snap.DoneBytes) / float64(snap.TotalBytes)
	}

	info := fmt.Sprintf("Files: %d/%d | %s / %s | %s",
		snap.DoneFiles, snap.TotalFiles,
		engine.FormatBytes(snap.DoneBytes), engine.FormatBytes(snap.TotalBytes),
		engine.FormatBytesPerSec(snap.BytesPerSec))

	sb.WriteString(m.infoStyle.Render(info) + "\n")
	sb.WriteString(m.progress.ViewAs(percent) + "\n\n")

	for i, row := range m.rows {
		sb.WriteString(m.viewRow(i, row) + "\n")
	}

	help := m.helpStyle.Render("q/ctrl+c: quit")
	if m.done {
		help = m.doneStyle.Render("Transfer complete!")
	}
	sb.WriteString(help)

	return sb.String()
}

func (m Model) viewRow(i int, row slotRow) string {
	label := fmt.Sprintf("[%2d]", i)
	if row.Name == "" {
		return fmt.Sprintf("%s %s", label, m.infoStyle.Render("idle"))
	}

	name := row.Name
	if len(name) > 40 {
		name = "..." + name[len(name)-37:]
	}

	if row.Pending {
		return fmt.Sprintf("%s %s %s", label, m.infoStyle.Render("waiting"), name)
	}

	var frac float64
	if row.Size > 0 {
		frac = float64(row.Done) / float64(row.Size)
	}
	return fmt.Sprintf("%s %s | %s | %s",
		label, m.progress.ViewAs(frac),
		m.rowStyle.Render(engine.FormatBytes(row.Done)), name)
}

// Sink adapts a running tea.Program to engine.ProgressSink. Events are
// sent from worker goroutines; Program.Send is safe for that.
type Sink struct {
	program *tea.Program
}

// NewSink wraps the program in a ProgressSink.
func NewSink(p *tea.Program) *Sink {
	return &Sink{program: p}
}

func (s *Sink) FileStarted(slot int, name string, size int64) engine.TransferProgress {
	s.program.Send(SlotStartedMsg{Slot: slot, Name: name, Size: size})
	return &slotProgress{program: s.program, slot: slot}
}

func (s *Sink) FileFinished(slot int) {
	s.program.Send(SlotFinishedMsg{Slot: slot})
}

type slotProgress struct {
	program *tea.Program
	slot    int
	active  atomic.Bool
}

func (p *slotProgress) Activate() {
	if p.active.CompareAndSwap(false, true) {
		p.program.Send(SlotActiveMsg{Slot: p.slot})
	}
}

func (p *slotProgress) Advance(n int64) {
	p.program.Send(SlotAdvanceMsg{Slot: p.slot, Bytes: n})
}

// PollStats pushes stats snapshots into the program until stop closes.
func PollStats(p *tea.Program, stats *engine.TransferStats, interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			p.Send(StatsMsg{Snapshot: stats.Snapshot()})
			p.Send(DoneMsg{})
			return
		case <-ticker.C:
			p.Send(StatsMsg{Snapshot: stats.Snapshot()})
		}
	}
}
