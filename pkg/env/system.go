package env

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/afero"
)

// system holds the real implementations used when no substitute is
// installed.
var system = struct {
	dialogs Dialogs
	clock   Clock
	fs      FileSystem
	random  Random
	environ Environ
}{
	dialogs: terminalDialogs{},
	clock:   systemClock{},
	fs:      osFileSystem{fs: afero.NewOsFs()},
	random:  globalRandom{},
	environ: processEnviron{},
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

func (systemClock) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type osFileSystem struct {
	fs afero.Fs
}

func (o osFileSystem) Fs() afero.Fs { return o.fs }

type globalRandom struct{}

func (globalRandom) Intn(n int) int { return rand.IntN(n) }

func (globalRandom) Float64() float64 { return rand.Float64() }

type processEnviron struct{}

func (processEnviron) Getenv(key string) string { return os.Getenv(key) }

// terminalDialogs shows dialogs on the controlling terminal and blocks until
// the user answers.
type terminalDialogs struct{}

func (terminalDialogs) ShowMessageDialog(ctx context.Context, _ any, message any) error {
	_, err := runDialog(ctx, "Message", message, false)
	return err
}

func (terminalDialogs) ShowInternalMessageDialog(ctx context.Context, _ any, message any) error {
	_, err := runDialog(ctx, "Message", message, false)
	return err
}

func (terminalDialogs) ShowConfirmDialog(ctx context.Context, _ any, message any) (bool, error) {
	return runDialog(ctx, "Select an Option", message, true)
}

type dialogKeys struct {
	Yes   key.Binding
	No    key.Binding
	Close key.Binding
}

var defaultDialogKeys = dialogKeys{
	Yes:   key.NewBinding(key.WithKeys("y", "Y"), key.WithHelp("y", "yes")),
	No:    key.NewBinding(key.WithKeys("n", "N"), key.WithHelp("n", "no")),
	Close: key.NewBinding(key.WithKeys("enter", "esc", "q"), key.WithHelp("enter", "close")),
}

var dialogStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("63")).
	Padding(1, 2)

var dialogTitleStyle = lipgloss.NewStyle().Bold(true)

type dialogModel struct {
	title   string
	message string
	confirm bool
	answer  bool
	keys    dialogKeys
}

func (dm dialogModel) Init() tea.Cmd {
	return nil
}

func (dm dialogModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	keyMsg, ok := msg.(tea.KeyMsg)
	if !ok {
		return dm, nil
	}

	switch {
	case dm.confirm && key.Matches(keyMsg, dm.keys.Yes):
		dm.answer = true
		return dm, tea.Quit
	case dm.confirm && key.Matches(keyMsg, dm.keys.No):
		dm.answer = false
		return dm, tea.Quit
	case key.Matches(keyMsg, dm.keys.Close):
		return dm, tea.Quit
	}

	return dm, nil
}

func (dm dialogModel) View() string {
	help := dm.keys.Close.Help().Key + " " + dm.keys.Close.Help().Desc
	if dm.confirm {
		help = fmt.Sprintf("%s %s · %s %s", dm.keys.Yes.Help().Key, dm.keys.Yes.Help().Desc, dm.keys.No.Help().Key, dm.keys.No.Help().Desc)
	}

	body := lipgloss.JoinVertical(lipgloss.Left,
		dialogTitleStyle.Render(dm.title),
		"",
		dm.message,
		"",
		help,
	)

	return dialogStyle.Render(body) + "\n"
}

func runDialog(ctx context.Context, title string, message any, confirm bool) (bool, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	model := dialogModel{
		title:   title,
		message: fmt.Sprint(message),
		confirm: confirm,
		keys:    defaultDialogKeys,
	}

	program := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(os.Stderr))

	final, err := program.Run()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return false, ctxErr
	}

	if err != nil {
		return false, fmt.Errorf("dialog: %w", err)
	}

	answered, _ := final.(dialogModel)

	return answered.answer, nil
}
