package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"nexus/internal/session"
	"nexus/internal/types"
)

// WorkspacePageModel renders the active space's panel stack, bottom to top,
// so the last card is the focused panel.
type WorkspacePageModel struct {
	width  int
	height int
	st     *session.State
	styles Styles
}

// NewWorkspacePageModel creates the workspace page over the session.
func NewWorkspacePageModel(st *session.State) WorkspacePageModel {
	return WorkspacePageModel{st: st, styles: DefaultStyles()}
}

// Init initializes the model.
func (m WorkspacePageModel) Init() tea.Cmd {
	return nil
}

// Update handles messages. The page itself is stateless between renders;
// space navigation is handled by the app model.
func (m WorkspacePageModel) Update(msg tea.Msg) (WorkspacePageModel, tea.Cmd) {
	return m, nil
}

// FocusedChatStream returns the stream id of the topmost chat panel in the
// active space, or "".
func (m WorkspacePageModel) FocusedChatStream() string {
	panels, err := m.st.LayoutOf(m.st.ActiveSpaceID())
	if err != nil {
		return ""
	}
	for i := len(panels) - 1; i >= 0; i-- {
		if ref := payloadStreamRef(panels[i]); ref != "" {
			return ref
		}
	}
	return ""
}

func payloadStreamRef(p types.Panel) string {
	if p.Data != nil {
		if ref := p.Data.StreamRef(); ref != "" {
			return ref
		}
	}
	if tab := p.TabByID(p.ActiveTabID); tab != nil && tab.Data != nil {
		return tab.Data.StreamRef()
	}
	return ""
}

// View renders the page.
func (m WorkspacePageModel) View() string {
	var sb strings.Builder

	active := m.st.ActiveSpaceID()
	sb.WriteString(m.renderSpaceBar(active))
	sb.WriteString("\n\n")

	panels, err := m.st.LayoutOf(active)
	if err != nil {
		sb.WriteString(m.styles.Error.Render(err.Error()))
		return sb.String()
	}
	if len(panels) == 0 {
		sb.WriteString(m.styles.Muted.Render("No panels in this space."))
		return sb.String()
	}

	for i, p := range panels {
		focused := i == len(panels)-1
		sb.WriteString(m.renderPanel(p, focused))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m WorkspacePageModel) renderSpaceBar(active types.SpaceID) string {
	var sb strings.Builder
	for _, id := range types.AllSpaceIDs() {
		style := m.styles.Muted
		if id == active {
			style = m.styles.Bold.Underline(true).Foreground(m.styles.Theme.Primary)
		}
		sb.WriteString(style.Render(string(id)))
		sb.WriteString("  ")
	}
	return sb.String()
}

func (m WorkspacePageModel) renderPanel(p types.Panel, focused bool) string {
	var badges []string
	if focused {
		badges = append(badges, m.styles.Badge.Render("FOCUS"))
	}
	if p.IsPinned {
		badges = append(badges, m.styles.Info.Render("pinned"))
	}
	if p.IsMinimized {
		badges = append(badges, m.styles.Muted.Render("minimized"))
	}
	if p.IsEphemeral {
		badges = append(badges, m.styles.Warning.Render("ephemeral"))
	}

	head := fmt.Sprintf("%s  %s", m.styles.Bold.Render(p.Title), m.styles.Subtitle.Render(string(p.Kind)))
	if len(badges) > 0 {
		head += "  " + strings.Join(badges, " ")
	}

	geom := m.styles.Muted.Render(fmt.Sprintf("(%d,%d) %dx%d z=%d", p.X, p.Y, p.Width, p.Height, p.ZIndex))
	lines := []string{head, geom}

	if len(p.Tabs) > 0 {
		var tabs []string
		for _, t := range p.Tabs {
			label := t.Title
			if t.ID == p.ActiveTabID {
				label = "[" + label + "]"
			}
			tabs = append(tabs, label)
		}
		lines = append(lines, m.styles.Muted.Render("tabs: "+strings.Join(tabs, " · ")))
	}
	if ref := payloadStreamRef(p); ref != "" {
		if stream, err := m.st.StreamByID(ref); err == nil {
			lines = append(lines, m.styles.Info.Render("#"+stream.Name))
		}
	}

	return m.styles.PanelCard.Render(strings.Join(lines, "\n"))
}

// SetSize updates the size.
func (m *WorkspacePageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
}
