package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"nexus/internal/session"
	"nexus/internal/types"
)

// StreamPageModel renders a stream's message history in a scrollable
// viewport.
type StreamPageModel struct {
	width    int
	height   int
	streamID string
	viewport viewport.Model
	st       *session.State
	styles   Styles
}

// NewStreamPageModel creates the stream page over the session.
func NewStreamPageModel(st *session.State) StreamPageModel {
	vp := viewport.New(80, 20)
	return StreamPageModel{st: st, viewport: vp, styles: DefaultStyles()}
}

// Init initializes the model.
func (m StreamPageModel) Init() tea.Cmd {
	return nil
}

// SetStream points the page at a stream and rebuilds the viewport content.
func (m *StreamPageModel) SetStream(streamID string) {
	m.streamID = streamID
	m.refresh()
}

// StreamID returns the stream currently shown.
func (m StreamPageModel) StreamID() string {
	return m.streamID
}

// Update scrolls the viewport.
func (m StreamPageModel) Update(msg tea.Msg) (StreamPageModel, tea.Cmd) {
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// View renders the page.
func (m StreamPageModel) View() string {
	var sb strings.Builder

	name := m.streamID
	topic := ""
	if stream, err := m.st.StreamByID(m.streamID); err == nil {
		name = stream.Name
		topic = stream.Topic
	}
	sb.WriteString(m.styles.Header.Render(" #" + name + " "))
	if topic != "" {
		sb.WriteString("  " + m.styles.Subtitle.Render(topic))
	}
	sb.WriteString("\n\n")
	sb.WriteString(m.viewport.View())
	return sb.String()
}

func (m *StreamPageModel) refresh() {
	msgs, err := m.st.MessagesFor(m.streamID)
	if err != nil {
		m.viewport.SetContent(m.styles.Error.Render(err.Error()))
		return
	}
	if len(msgs) == 0 {
		m.viewport.SetContent(m.styles.Muted.Render("No messages yet."))
		return
	}

	var sb strings.Builder
	for _, msg := range msgs {
		sb.WriteString(m.renderMessage(msg))
		sb.WriteString("\n")
	}
	m.viewport.SetContent(sb.String())
	m.viewport.GotoBottom()
}

func (m *StreamPageModel) renderMessage(msg types.Message) string {
	author := msg.AuthorID
	badge := ""
	if u, err := m.st.UserByID(msg.AuthorID); err == nil {
		author = u.Name
		if u.Badge != "" {
			badge = " " + m.styles.Badge.Render(u.Badge)
		}
	}

	head := m.styles.Bold.Render(author) + badge +
		"  " + m.styles.Muted.Render(msg.Timestamp.Format("15:04"))
	if msg.Kind != types.MessageText && msg.Kind != "" {
		head += "  " + m.styles.Subtitle.Render(string(msg.Kind))
	}

	body := msg.Content
	switch {
	case msg.Task != nil:
		body += "\n" + m.styles.Info.Render(fmt.Sprintf("task: %s [%s]", msg.Task.Title, msg.Task.Status))
	case msg.Voice != nil:
		body += "\n" + m.styles.Info.Render(fmt.Sprintf("voice packet: %.0fs", msg.Voice.Duration))
	case msg.Module != nil:
		body += "\n" + m.styles.Info.Render("module: "+msg.Module.Component)
	}

	if len(msg.Reactions) > 0 {
		var parts []string
		for _, r := range msg.Reactions {
			parts = append(parts, fmt.Sprintf("%s %d", r.Emoji, r.Count()))
		}
		body += "\n" + m.styles.Muted.Render(strings.Join(parts, "  "))
	}
	if msg.ReplyCount > 0 {
		body += "\n" + m.styles.Muted.Render(fmt.Sprintf("thread · %d replies", msg.ReplyCount))
	}

	return head + "\n" + m.styles.Body.Render(body) + "\n"
}

// SetSize updates the size.
func (m *StreamPageModel) SetSize(w, h int) {
	m.width = w
	m.height = h
	m.viewport.Width = w - 4
	m.viewport.Height = h - 6
	m.refresh()
}
