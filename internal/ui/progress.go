package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/files"
	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/transfer"
)

// TransferMode represents send or receive
type TransferMode int

const (
	ModeSend TransferMode = iota
	ModeReceive
)

// TickMsg is sent periodically to refresh the progress display
type TickMsg time.Time

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}

// TransferUI is the live Bubble Tea view of one transfer. It polls the
// session for progress, so the transfer goroutines never talk to the
// terminal directly.
type TransferUI struct {
	program *tea.Program
	model   *transferModel
}

type transferModel struct {
	mode    TransferMode
	session *transfer.Session

	progress progress.Model
	spinner  spinner.Model
	width    int

	onCancel func()
	finished bool
}

// NewTransferUI builds the live view for a session.
func NewTransferUI(mode TransferMode, session *transfer.Session, onCancel func()) *TransferUI {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	p := progress.New(
		progress.WithGradient(ProgressStart, ProgressEnd),
		progress.WithWidth(40),
		progress.WithoutPercentage(),
	)

	model := &transferModel{
		mode:     mode,
		session:  session,
		progress: p,
		spinner:  s,
		width:    80,
		onCancel: onCancel,
	}
	return &TransferUI{
		program: tea.NewProgram(model),
		model:   model,
	}
}

// Run blocks until the transfer reaches a terminal state or the user quits.
func (u *TransferUI) Run() error {
	_, err := u.program.Run()
	return err
}

func (m *transferModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, tickCmd())
}

func (m *transferModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			if m.onCancel != nil {
				m.onCancel()
			}
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		if w := msg.Width - 40; w > 0 && w < 40 {
			m.progress.Width = w
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case TickMsg:
		switch m.session.State() {
		case transfer.StateCompleted, transfer.StateFailed:
			if m.finished {
				return m, tea.Quit
			}
			// one more frame so the final state renders before quitting
			m.finished = true
			return m, tickCmd()
		}
		return m, tickCmd()

	case progress.FrameMsg:
		model, cmd := m.progress.Update(msg)
		m.progress = model.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m *transferModel) View() string {
	var b strings.Builder

	var modeIcon, modeText string
	if m.mode == ModeSend {
		modeIcon = IconSend
		modeText = "Sending"
	} else {
		modeIcon = IconReceive
		modeText = "Receiving"
	}
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s meow - %s", modeIcon, modeText)) + "\n\n")

	switch m.session.State() {
	case transfer.StateWaiting:
		if m.mode == ModeSend {
			b.WriteString(fmt.Sprintf("%s Waiting for receiver...", m.spinner.View()))
		} else {
			b.WriteString(fmt.Sprintf("%s Waiting for sender...", m.spinner.View()))
		}

	case transfer.StateTransferring:
		b.WriteString(m.viewTransferring())

	case transfer.StateCompleted:
		b.WriteString(SuccessStyle.Render(fmt.Sprintf("%s Transfer complete!", IconComplete)))

	case transfer.StateFailed:
		b.WriteString(ErrorStyle.Render(fmt.Sprintf("%s Transfer failed", IconError)))
		if err := m.session.Err(); err != nil {
			b.WriteString("\n\n" + ErrorBoxStyle.Render(err.Error()))
		}
	}

	b.WriteString("\n\n" + MutedStyle.Render("Press 'q' or Ctrl+C to cancel"))
	return ContainerStyle.Render(b.String())
}

func (m *transferModel) viewTransferring() string {
	var b strings.Builder

	percent, speed := m.session.Progress()

	name := "payload"
	var total int64
	if meta := m.session.Metadata(); meta != nil {
		name = truncateString(meta.Name, 30)
		total = meta.Size
	}

	b.WriteString(fmt.Sprintf("%s %s ", IconFile, name))
	b.WriteString(m.progress.ViewAs(percent / 100))
	b.WriteString(fmt.Sprintf(" %5.1f%%", percent))

	if speed > 0 {
		b.WriteString(MutedStyle.Render(" " + files.FormatSpeed(speed)))
		done := int64(percent / 100 * float64(total))
		if remaining := total - done; remaining > 0 {
			eta := time.Duration(float64(remaining)/speed) * time.Second
			b.WriteString(MutedStyle.Render(" ETA: " + files.FormatDuration(eta)))
		}
	}
	return b.String()
}
