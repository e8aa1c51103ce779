package controller

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	m "gooze.dev/pkg/testsynth/internal/model"
)

const maxRecentTests = 8

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
	dimStyle     = lipgloss.NewStyle().Faint(true)
	summaryStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

type runInfoMsg struct{ suites, workers int }

type suiteStartedMsg struct {
	suite m.Path
	tests int
}

type testResultMsg struct {
	suite m.Path
	test  m.TestReport
}

type quitMsg struct{}

type progressModel struct {
	mode     StartMode
	spinner  spinner.Model
	suites   int
	workers  int
	current  m.Path
	expected int
	finished int
	passed   int
	recent   []string
	done     bool
}

func newProgressModel(mode StartMode) progressModel {
	return progressModel{
		mode:    mode,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
}

func (pm progressModel) Init() tea.Cmd {
	return pm.spinner.Tick
}

func (pm progressModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runInfoMsg:
		pm.suites, pm.workers = msg.suites, msg.workers
	case suiteStartedMsg:
		pm.current = msg.suite
		pm.expected += msg.tests
	case testResultMsg:
		pm.finished++

		mark := failStyle.Render("✗")
		if testMark(msg.test) == "✓" {
			pm.passed++
			mark = passStyle.Render("✓")
		}

		pm.recent = append(pm.recent, fmt.Sprintf("%s %s %s", mark, msg.test.Name, dimStyle.Render(string(msg.suite))))
		if len(pm.recent) > maxRecentTests {
			pm.recent = pm.recent[len(pm.recent)-maxRecentTests:]
		}
	case quitMsg:
		pm.done = true
		return pm, tea.Quit
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			pm.done = true
			return pm, tea.Quit
		}
	case spinner.TickMsg:
		var cmd tea.Cmd
		pm.spinner, cmd = pm.spinner.Update(msg)

		return pm, cmd
	}

	return pm, nil
}

func (pm progressModel) View() string {
	if pm.mode != ModeRun {
		return ""
	}

	var b strings.Builder

	status := pm.spinner.View()
	if pm.done {
		status = passStyle.Render("●")
	}

	b.WriteString(titleStyle.Render("testsynth run"))
	fmt.Fprintf(&b, " %s %d suite(s), %d worker(s)\n", status, pm.suites, pm.workers)

	if pm.current != "" {
		fmt.Fprintf(&b, "%s %s\n", dimStyle.Render("suite"), pm.current)
	}

	for _, line := range pm.recent {
		b.WriteString("  " + line + "\n")
	}

	b.WriteString(summaryStyle.Render(fmt.Sprintf("%d/%d tests · %d passed", pm.finished, pm.expected, pm.passed)))
	b.WriteString("\n")

	return b.String()
}

// TUI implements UI with a live Bubble Tea progress view. Tables are printed
// once the view is closed.
type TUI struct {
	output io.Writer

	mu      sync.Mutex
	program *tea.Program
	done    chan struct{}
	pending strings.Builder
}

// NewTUI creates a new TUI writing to output.
func NewTUI(output io.Writer) *TUI {
	return &TUI{output: output}
}

// Start launches the progress view.
func (t *TUI) Start(ctx context.Context, options ...StartOption) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	cfg := StartConfig{}
	for _, option := range options {
		option(&cfg)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.program != nil {
		return nil
	}

	t.program = tea.NewProgram(newProgressModel(cfg.mode),
		tea.WithContext(ctx),
		tea.WithOutput(t.output),
		tea.WithInput(nil),
	)
	t.done = make(chan struct{})

	go func(program *tea.Program, done chan struct{}) {
		defer close(done)

		_, _ = program.Run()
	}(t.program, t.done)

	return nil
}

// Close stops the progress view and prints the collected tables.
func (t *TUI) Close(context.Context) {
	t.mu.Lock()
	program, done := t.program, t.done
	t.program = nil
	t.mu.Unlock()

	if program != nil {
		program.Send(quitMsg{})
		<-done
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	_, _ = io.WriteString(t.output, t.pending.String())
	t.pending.Reset()
}

func (t *TUI) send(msg tea.Msg) {
	t.mu.Lock()
	program := t.program
	t.mu.Unlock()

	if program != nil {
		program.Send(msg)
	}
}

func (t *TUI) queue(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(&t.pending, format, args...)
}

// DisplayRunInfo implements UI.
func (t *TUI) DisplayRunInfo(ctx context.Context, suites int, workers int) {
	if ctx.Err() != nil {
		return
	}

	t.send(runInfoMsg{suites: suites, workers: workers})
}

// DisplaySuiteStarted implements UI.
func (t *TUI) DisplaySuiteStarted(ctx context.Context, suite m.Path, tests int) {
	if ctx.Err() != nil {
		return
	}

	t.send(suiteStartedMsg{suite: suite, tests: tests})
}

// DisplayTestResult implements UI.
func (t *TUI) DisplayTestResult(ctx context.Context, suite m.Path, test m.TestReport) {
	if ctx.Err() != nil {
		return
	}

	t.send(testResultMsg{suite: suite, test: test})
}

// DisplayReport implements UI.
func (t *TUI) DisplayReport(ctx context.Context, report m.Report) {
	if ctx.Err() != nil {
		return
	}

	t.queue("\n%s\n%s\n%s", titleStyle.Render(string(report.Suite)), renderTestTable(report), renderCoverageTable(report))

	if uncovered := renderUncovered(report); uncovered != "" {
		t.queue("\n%s", uncovered)
	}
}

// DisplayRendered implements UI.
func (t *TUI) DisplayRendered(ctx context.Context, path m.Path, tests int, diff string) {
	if ctx.Err() != nil {
		return
	}

	if diff != "" {
		t.queue("%s %s is out of date:\n%s", failStyle.Render("✗"), path, diff)
		return
	}

	t.queue("%s %s: %d test(s)\n", passStyle.Render("✓"), path, tests)
}

// DisplayClasses implements UI.
func (t *TUI) DisplayClasses(ctx context.Context, classes []m.ClassInfo) {
	if ctx.Err() != nil {
		return
	}

	t.queue("%s", renderClassTable(classes))
}
