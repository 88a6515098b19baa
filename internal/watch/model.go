package watch

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/gorilla/websocket"

	"github.com/lbogdanov/nixieclock/internal/display"
	"github.com/lbogdanov/nixieclock/internal/ui"
)

// State of the feed connection
type State int

const (
	StateConnecting State = iota
	StateLive
	StateDisconnected
)

// Messages for async operations
type connectedMsg struct{ conn *websocket.Conn }
type frameMsg display.Frame
type disconnectedMsg struct{ err error }

type keyMap struct {
	Reconnect key.Binding
	Quit      key.Binding
}

// ShortHelp returns keybindings to be shown in the mini help view
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Reconnect, k.Quit}
}

// FullHelp returns keybindings for the expanded help view
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Reconnect, k.Quit}}
}

// Model mirrors a clock's display feed in the terminal.
type Model struct {
	URL    string
	Dialer *websocket.Dialer

	State  State
	Frame  display.Frame
	Frames int
	Err    error
	Width  int

	conn    *websocket.Conn
	spinner spinner.Model
	help    help.Model
	keys    keyMap
}

// New creates a model for the feed at feedURL (see FeedURL).
func New(feedURL string) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(ui.TubeColor)

	return Model{
		URL:     feedURL,
		Dialer:  websocket.DefaultDialer,
		State:   StateConnecting,
		Width:   ui.GetTerminalWidth(),
		spinner: s,
		help:    help.New(),
		keys: keyMap{
			Reconnect: key.NewBinding(
				key.WithKeys("r"),
				key.WithHelp("r", "reconnect"),
			),
			Quit: key.NewBinding(
				key.WithKeys("q", "esc", "ctrl+c"),
				key.WithHelp("q", "quit"),
			),
		},
	}
}

// FeedURL turns "host:port", "http://host:port" or a full ws:// URL into
// the WebSocket URL of the display feed.
func FeedURL(addr string) (string, error) {
	if !strings.Contains(addr, "://") {
		addr = "ws://" + addr
	}
	u, err := url.Parse(addr)
	if err != nil {
		return "", fmt.Errorf("invalid feed address %q: %w", addr, err)
	}
	switch u.Scheme {
	case "http", "ws":
		u.Scheme = "ws"
	case "https", "wss":
		u.Scheme = "wss"
	default:
		return "", fmt.Errorf("invalid feed address %q: unsupported scheme %s", addr, u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid feed address %q: missing host", addr)
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}
	return u.String(), nil
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.connect())
}

func (m Model) connect() tea.Cmd {
	dialer, feed := m.Dialer, m.URL
	return func() tea.Msg {
		conn, _, err := dialer.Dial(feed, nil)
		if err != nil {
			return disconnectedMsg{err: err}
		}
		return connectedMsg{conn: conn}
	}
}

func listen(conn *websocket.Conn) tea.Cmd {
	return func() tea.Msg {
		var f display.Frame
		if err := conn.ReadJSON(&f); err != nil {
			return disconnectedMsg{err: err}
		}
		return frameMsg(f)
	}
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Reconnect) && m.State == StateDisconnected:
			m.State = StateConnecting
			m.Err = nil
			return m, tea.Batch(m.spinner.Tick, m.connect())
		}
		return m, nil

	case connectedMsg:
		m.conn = msg.conn
		m.State = StateLive
		return m, listen(msg.conn)

	case frameMsg:
		m.Frame = display.Frame(msg)
		m.Frames++
		if m.conn == nil {
			return m, nil
		}
		return m, listen(m.conn)

	case disconnectedMsg:
		m.close()
		m.State = StateDisconnected
		m.Err = msg.err
		return m, nil

	case spinner.TickMsg:
		if m.State != StateConnecting {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) close() {
	if m.conn != nil {
		_ = m.conn.Close()
		m.conn = nil
	}
}

// View implements tea.Model
func (m Model) View() string {
	var b strings.Builder

	b.WriteString(ui.TitleStyle.Render("NIXIE CLOCK"))
	b.WriteString("  ")
	b.WriteString(ui.MutedStyle.Render(m.URL))
	b.WriteString("\n\n")

	switch m.State {
	case StateConnecting:
		b.WriteString(m.spinner.View() + " Connecting...")
	case StateLive:
		if m.Frames == 0 {
			b.WriteString(ui.MutedStyle.Render("Waiting for the first frame..."))
		} else {
			b.WriteString(display.Render(m.Frame))
		}
	case StateDisconnected:
		if m.Frames > 0 {
			b.WriteString(display.Render(m.Frame))
			b.WriteString("\n")
		}
		b.WriteString(ui.ErrorStyle.Render(fmt.Sprintf("%s Disconnected: %v", ui.FailureMarker, m.Err)))
	}

	b.WriteString("\n\n")
	b.WriteString(m.help.View(m.keys))
	return b.String()
}
