package ui

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"nexus/internal/session"
	"nexus/internal/types"
)

// Page identifies the visible page.
type Page int

const (
	PageWorkspace Page = iota
	PageStream
)

// AppModel is the top-level viewer model. It owns space navigation and page
// switching; the pages render from the live session on every frame.
type AppModel struct {
	width  int
	height int
	page   Page

	workspace WorkspacePageModel
	stream    StreamPageModel

	st     *session.State
	styles Styles
	err    string
}

// NewAppModel creates the viewer over the session.
func NewAppModel(st *session.State) AppModel {
	return AppModel{
		workspace: NewWorkspacePageModel(st),
		stream:    NewStreamPageModel(st),
		st:        st,
		styles:    DefaultStyles(),
	}
}

// Init initializes the model.
func (m AppModel) Init() tea.Cmd {
	return nil
}

// Update handles messages.
func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.workspace.SetSize(msg.Width, msg.Height)
		m.stream.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.page == PageStream {
				m.page = PageWorkspace
			}
			return m, nil
		case "tab", "right":
			if m.page == PageWorkspace {
				m.cycleSpace(1)
			}
			return m, nil
		case "shift+tab", "left":
			if m.page == PageWorkspace {
				m.cycleSpace(-1)
			}
			return m, nil
		case "enter":
			if m.page == PageWorkspace {
				if streamID := m.workspace.FocusedChatStream(); streamID != "" {
					m.stream.SetStream(streamID)
					m.page = PageStream
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	switch m.page {
	case PageStream:
		m.stream, cmd = m.stream.Update(msg)
	default:
		m.workspace, cmd = m.workspace.Update(msg)
	}
	return m, cmd
}

func (m *AppModel) cycleSpace(step int) {
	ids := types.AllSpaceIDs()
	active := m.st.ActiveSpaceID()
	for i, id := range ids {
		if id == active {
			next := ids[(i+step+len(ids))%len(ids)]
			if err := m.st.SwitchActiveSpace(next); err != nil {
				m.err = err.Error()
			}
			return
		}
	}
}

// View renders the app.
func (m AppModel) View() string {
	header := m.styles.Header.Render(" nexus ")
	var body string
	switch m.page {
	case PageStream:
		body = m.stream.View()
	default:
		body = m.workspace.View()
	}

	footer := m.styles.Footer.Render("[tab] space  [enter] stream  [esc] back  [q] quit")
	if m.err != "" {
		footer = m.styles.Error.Render(m.err) + "  " + footer
	}
	return fmt.Sprintf("%s\n\n%s\n%s", header, m.styles.Content.Render(body), footer)
}

// Run starts the viewer over the session and blocks until it exits.
func Run(st *session.State) error {
	p := tea.NewProgram(NewAppModel(st), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("viewer failed: %w", err)
	}
	return nil
}
