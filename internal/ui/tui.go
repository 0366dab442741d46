package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Aman-CERP/fsindex/internal/index"
)

// TUIRenderer shows a live progress panel using bubbletea.
type TUIRenderer struct {
	mu      sync.Mutex
	cfg     Config
	model   *runModel
	program *tea.Program
	done    chan struct{}
}

// NewTUIRenderer fails when cfg.Output is not a terminal.
func NewTUIRenderer(cfg Config) (*TUIRenderer, error) {
	if !IsTTY(cfg.Output) {
		return nil, errors.New("output is not a terminal")
	}
	m := newRunModel(cfg.Root)
	m.onQuit = cfg.OnQuit
	m.styles = GetStyles(cfg.NoColor || DetectNoColor())
	return &TUIRenderer{cfg: cfg, model: m, done: make(chan struct{})}, nil
}

func (r *TUIRenderer) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.program != nil {
		return nil
	}
	opts := []tea.ProgramOption{tea.WithContext(ctx), tea.WithoutSignalHandler()}
	if f, ok := r.cfg.Output.(*os.File); ok {
		opts = append(opts, tea.WithOutput(f))
	}
	r.program = tea.NewProgram(r.model, opts...)

	go func() {
		defer close(r.done)
		_, _ = r.program.Run()
	}()
	return nil
}

func (r *TUIRenderer) Update(p index.Progress) {
	r.send(progressMsg(p))
}

func (r *TUIRenderer) Complete(res *index.Result, err error) {
	r.send(completeMsg{res: res, err: err})
}

// Stop waits briefly for the final frame, then quits the program.
func (r *TUIRenderer) Stop() error {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()

	if p == nil {
		return nil
	}
	select {
	case <-r.done:
	case <-time.After(500 * time.Millisecond):
		p.Quit()
		select {
		case <-r.done:
		case <-time.After(2 * time.Second):
		}
	}
	return nil
}

func (r *TUIRenderer) send(msg tea.Msg) {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

type progressMsg index.Progress

type completeMsg struct {
	res *index.Result
	err error
}

// runModel is the bubbletea model of one indexing run.
type runModel struct {
	root string
	last index.Progress

	complete bool
	result   *index.Result
	err      error
	quitting bool
	onQuit   func()

	width   int
	spinner spinner.Model
	bar     progress.Model
	styles  Styles
}

func newRunModel(root string) *runModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent))

	return &runModel{
		root:    root,
		width:   80,
		spinner: s,
		bar: progress.New(
			progress.WithSolidFill(ColorAccent),
			progress.WithWidth(50),
			progress.WithoutPercentage(),
		),
		styles: DefaultStyles(),
	}
}

func (m *runModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m *runModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			m.quitting = true
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(20, msg.Width-20)
	case progressMsg:
		m.last = index.Progress(msg)
	case completeMsg:
		m.complete = true
		m.result, m.err = msg.res, msg.err
		return m, tea.Quit
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *runModel) View() string {
	if m.complete {
		return m.renderComplete()
	}
	if m.quitting {
		return "Cancelling...\n"
	}

	width := max(40, m.width-4)
	lines := []string{
		m.renderStages(),
		m.styles.Dim.Render(strings.Repeat("─", width)),
		m.renderProgress(),
		m.renderRate(),
	}
	if m.last.CurrentPath != "" {
		lines = append(lines, m.styles.Dim.Render(truncatePath(m.last.CurrentPath, width-2)))
	}

	title := "fsindex"
	if m.root != "" {
		title += " • " + m.root
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		m.styles.Header.Render(title),
		m.styles.Panel.Width(width).Render(strings.Join(lines, "\n")),
		m.styles.Dim.Render("q to cancel"),
	) + "\n"
}

func (m *runModel) renderStages() string {
	stages := []struct {
		stage index.Stage
		name  string
	}{
		{index.StageScanning, "Scan"},
		{index.StageWriting, "Write"},
	}
	current := m.last.Stage
	if current == "" {
		current = index.StageScanning
	}

	parts := make([]string, 0, len(stages))
	passed := false
	for _, s := range stages {
		switch {
		case s.stage == current:
			parts = append(parts, m.styles.Active.Render(m.spinner.View()+" "+s.name))
			passed = true
		case !passed:
			parts = append(parts, m.styles.Success.Render("● "+s.name))
		default:
			parts = append(parts, m.styles.Dim.Render("○ "+s.name))
		}
	}
	return strings.Join(parts, m.styles.Dim.Render(" → "))
}

func (m *runModel) renderProgress() string {
	pct := m.last.Percent()
	if pct < 0 {
		return fmt.Sprintf("%s %d files %s", m.spinner.View(), m.last.Processed, m.styles.Dim.Render("(counting...)"))
	}
	return fmt.Sprintf("%s  %s\n%s",
		m.bar.ViewAs(pct/100),
		m.styles.Active.Render(fmt.Sprintf("%3.0f%%", pct)),
		m.styles.Label.Render(fmt.Sprintf("%d / %d files", m.last.Processed, m.last.Total)))
}

func (m *runModel) renderRate() string {
	elapsed := m.last.Elapsed
	if elapsed <= 0 || m.last.Processed == 0 {
		return m.styles.Label.Render("Rate: -")
	}
	rate := float64(m.last.Processed) / elapsed.Seconds()
	s := fmt.Sprintf("Rate: %.0f files/s", rate)
	if m.last.Total > m.last.Processed && rate > 0 {
		eta := time.Duration(float64(m.last.Total-m.last.Processed) / rate * float64(time.Second))
		s += "  •  ETA: " + formatDuration(eta)
	}
	return m.styles.Label.Render(s)
}

func (m *runModel) renderComplete() string {
	if m.result == nil {
		return m.styles.Error.Render(fmt.Sprintf("✗ Indexing failed: %v", m.err)) + "\n"
	}

	res := m.result
	header := m.styles.Success.Render("✓ Indexing complete")
	border := lipgloss.Color(ColorAccent)
	switch res.State {
	case index.StateCancelled:
		header = m.styles.Warning.Render("⚠ Indexing cancelled")
		border = lipgloss.Color(ColorYellow)
	case index.StateFailed:
		header = m.styles.Error.Render("✗ Indexing failed")
		border = lipgloss.Color(ColorRed)
	}

	row := func(label string, v any) string {
		return fmt.Sprintf("%s %s", m.styles.Label.Render(fmt.Sprintf("%-10s", label)), m.styles.Active.Render(fmt.Sprint(v)))
	}
	lines := []string{
		header,
		"",
		row("Indexed:", res.Indexed),
		row("Embedded:", res.Embedded),
		row("Skipped:", res.Skipped),
		row("Duration:", formatDuration(res.Duration)),
	}
	if res.Deleted > 0 {
		lines = append(lines, row("Removed:", res.Deleted))
	}
	if res.Errors > 0 {
		lines = append(lines, "", m.styles.Error.Render(fmt.Sprintf("✗ %d errors (see log)", res.Errors)))
	}
	if m.err != nil && res.State == index.StateFailed {
		lines = append(lines, m.styles.Error.Render(m.err.Error()))
	}

	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, 2).
		Width(max(40, m.width-4)).
		Render(strings.Join(lines, "\n")) + "\n"
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		if s := int(d.Seconds()) % 60; s != 0 {
			return fmt.Sprintf("%dm %ds", int(d.Minutes()), s)
		}
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%dh %dm", int(d.Hours()), int(d.Minutes())%60)
	}
}

// truncatePath shortens path to at most maxLen bytes, keeping the file name
// and as much of its directory as fits.
func truncatePath(path string, maxLen int) string {
	if len(path) <= maxLen {
		return path
	}
	if maxLen < 4 {
		return "..."
	}
	name := filepath.Base(path)
	if len(name)+4 > maxLen {
		return "..." + name[len(name)-(maxLen-3):]
	}
	dir := filepath.Dir(path)
	keep := maxLen - len(name) - 4
	return "..." + dir[len(dir)-keep:] + string(filepath.Separator) + name
}

var _ Renderer = (*TUIRenderer)(nil)
