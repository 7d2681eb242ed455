// Package ui is an interactive terminal scanner. The modal owns one scanner
// session while it is open and always releases the camera when it closes.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"
	"github.com/toolcrib/toolscan/pkg/scanner"
)

const refreshTimeout = 10 * time.Second

type (
	camerasMsg  struct{ err error }
	startedMsg  struct{ err error }
	switchedMsg struct {
		id  string
		err error
	}
	stateMsg  struct{ state scanner.State }
	resultMsg struct{ result scanner.ScanResult }
	errorMsg  struct{ msg string }
)

// Modal is the bubbletea model for the scanner dialog. Engine callbacks run
// on engine goroutines, so they only post to events and the model picks
// them up in Update.
type Modal struct {
	sc     *scanner.Scanner
	keys   KeyMap
	events chan tea.Msg

	// OnResult, if set, is called from Update for every decode.
	OnResult func(scanner.ScanResult)

	open   bool
	state  scanner.State
	last   *scanner.ScanResult
	err    string
	notice string
	width  int
}

func NewModal(sc *scanner.Scanner) Modal {
	return Modal{
		sc:     sc,
		keys:   DefaultKeyMap(),
		events: make(chan tea.Msg, 16),
		state:  sc.State(),
	}
}

func (m Modal) post(msg tea.Msg) {
	select {
	case m.events <- msg:
	default:
		log.Warn().Msg("ui event queue full, dropping")
	}
}

func (m Modal) onSuccess(res scanner.ScanResult) {
	m.post(resultMsg{result: res})
}

func (m Modal) onError(msg string) {
	m.post(errorMsg{msg: msg})
}

func (m Modal) listenEvents() tea.Cmd {
	events := m.events
	return func() tea.Msg {
		return <-events
	}
}

func (m Modal) listenChanges() tea.Cmd {
	changes := m.sc.Changes()
	return func() tea.Msg {
		st, ok := <-changes
		if !ok {
			return nil
		}
		return stateMsg{state: st}
	}
}

func (m Modal) refresh() tea.Cmd {
	sc := m.sc
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()
		return camerasMsg{err: sc.Refresh(ctx)}
	}
}

// show mounts a session on the selected camera.
func (m Modal) show() (Modal, tea.Cmd) {
	m.open = true
	m.err = ""
	m.notice = ""

	sc := m.sc
	return m, func() tea.Msg {
		return startedMsg{err: sc.Start(m.onSuccess, m.onError)}
	}
}

// hide unmounts the session. This is a forced stop, nothing is reported.
func (m Modal) hide() Modal {
	m.open = false
	m.notice = ""
	m.sc.Stop()
	m.state = m.sc.State()
	return m
}

func (m Modal) nextCamera() (Modal, tea.Cmd) {
	cameras := m.sc.Cameras()
	if len(cameras) < 2 {
		return m, nil
	}

	if m.sc.IsSwitching() {
		m.notice = scanner.ErrSwitchInProgress.Error()
		return m, nil
	}

	next := cameras[0].Id
	selected := m.sc.SelectedCamera()
	for i, c := range cameras {
		if c.Id == selected {
			next = cameras[(i+1)%len(cameras)].Id
			break
		}
	}

	if !m.open {
		err := m.sc.Select(next)
		if err != nil {
			m.err = err.Error()
		}
		return m, nil
	}

	m.notice = "switching camera..."
	m.err = ""

	sc := m.sc
	return m, func() tea.Msg {
		return switchedMsg{
			id:  next,
			err: sc.SwitchCamera(next, m.onSuccess, m.onError),
		}
	}
}

func (m Modal) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.listenEvents(), m.listenChanges())
}

func (m Modal) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	case camerasMsg:
		if msg.err != nil {
			m.err = msg.err.Error()
		} else if !m.open {
			m.err = ""
		}
		return m, nil
	case startedMsg:
		if msg.err != nil && !errors.Is(msg.err, scanner.ErrAlreadyScanning) {
			m.err = msg.err.Error()
		}
		m.state = m.sc.State()
		return m, nil
	case switchedMsg:
		m.notice = ""
		if !m.open {
			// closed while the switch was restarting the camera
			m.sc.Stop()
		} else if msg.err != nil && !errors.Is(msg.err, scanner.ErrSwitchCancelled) {
			m.err = msg.err.Error()
		}
		m.state = m.sc.State()
		return m, nil
	case stateMsg:
		// the channel may drop transitions, the scanner has the truth
		m.state = m.sc.State()
		return m, m.listenChanges()
	case resultMsg:
		res := msg.result
		m.last = &res
		m.err = ""
		// the session has already torn itself down
		if m.sc.Mode() == scanner.ModeSingleShot {
			m.open = false
		}
		if m.OnResult != nil {
			m.OnResult(res)
		}
		return m, m.listenEvents()
	case errorMsg:
		m.err = msg.msg
		return m, m.listenEvents()
	}

	return m, nil
}

func (m Modal) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m = m.hide()
		return m, tea.Quit
	case key.Matches(msg, m.keys.Close):
		if m.open {
			m = m.hide()
		}
		return m, nil
	case key.Matches(msg, m.keys.Open):
		if m.open {
			return m, nil
		}
		return m.show()
	case key.Matches(msg, m.keys.Camera):
		return m.nextCamera()
	case key.Matches(msg, m.keys.Refresh):
		return m, m.refresh()
	}

	return m, nil
}

func (m Modal) View() string {
	var b strings.Builder

	title := "Scanner"
	if m.open {
		title = "Scan a tool code"
	}
	b.WriteString(TitleStyle.Render(title))
	b.WriteString("\n\n")

	selected := m.sc.SelectedCamera()
	cameras := m.sc.Cameras()
	if len(cameras) == 0 {
		b.WriteString(StateStyle.Render("no cameras"))
		b.WriteString("\n")
	}
	for _, c := range cameras {
		if c.Id == selected {
			b.WriteString(CameraSelected.Render("> " + c.Label))
		} else {
			b.WriteString(CameraStyle.Render("  " + c.Label))
		}
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(StateStyle.Render(fmt.Sprintf("%s (%s)", m.state, m.sc.Mode())))
	b.WriteString("\n")

	if m.notice != "" {
		b.WriteString(StateStyle.Render(m.notice))
		b.WriteString("\n")
	}

	if m.last != nil {
		b.WriteString(ResultStyle.Render(m.last.Text))
		b.WriteString("\n")
	}

	if m.err != "" {
		b.WriteString(ErrorStyle.Render(m.err))
		b.WriteString("\n")
	}

	var help []string
	for _, k := range m.keys.ShortHelp() {
		h := k.Help()
		help = append(help, HelpKey.Render(h.Key)+" "+HelpDesc.Render(h.Desc))
	}
	b.WriteString("\n")
	b.WriteString(strings.Join(help, "  "))

	box := ModalStyle.Render(b.String())
	if m.width > 0 {
		return lipgloss.PlaceHorizontal(m.width, lipgloss.Center, box)
	}
	return box
}

// LastResult returns the most recent decode seen by the modal.
func (m Modal) LastResult() (scanner.ScanResult, bool) {
	if m.last == nil {
		return scanner.ScanResult{}, false
	}
	return *m.last, true
}

// Run shows the modal until the user quits. The session is always stopped
// on the way out.
func Run(sc *scanner.Scanner, onResult func(scanner.ScanResult)) error {
	m := NewModal(sc)
	m.OnResult = onResult

	defer sc.Stop()

	_, err := tea.NewProgram(m).Run()
	return err
}
