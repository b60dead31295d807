// Package ui provides the Bubble Tea TUI for the wallet bridge.
package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/kitefoundry/wallet-bridge/business/wallet/domain"
	"github.com/kitefoundry/wallet-bridge/pkg/ui/components"
)

// ConnectionInfo holds connection state and latency of the wallet agent link.
type ConnectionInfo struct {
	Connected bool
	Latency   time.Duration
	LastSeen  time.Time
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"   // Initial welcome screen
	PhaseDashboard Phase = "dashboard" // Main dashboard
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	// Components
	session  *components.SessionComponent
	networks *components.NetworksComponent

	keys KeyMap

	// Phase state
	phase        Phase
	welcomeStart time.Time

	// State
	ready       bool
	quitting    bool
	width       int
	height      int
	current     domain.Session
	catalog     []domain.NetworkDescriptor
	agent       ConnectionInfo
	lastUpdate  time.Time
	errors      []ErrorEntry // Persistent error panel (last 3)
	logs        []string     // Recent log messages
}

// New creates a new TUI model.
func New() Model {
	return Model{
		session:      components.NewSessionComponent(),
		networks:     components.NewNetworksComponent(),
		keys:         DefaultKeyMap(),
		phase:        PhaseWelcome,
		welcomeStart: time.Now(),
		errors:       make([]ErrorEntry, 0, 3),
		logs:         make([]string, 0, 5),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// tickCmd returns a command that sends a tick every 100ms for smooth animations.
func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(t time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		// Always allow quit
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		// During welcome phase, any other key skips to the dashboard
		if m.phase == PhaseWelcome {
			m.enterDashboard()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Connect):
			if OnConnect != nil {
				go OnConnect()
			}
		case key.Matches(msg, m.keys.Disconnect):
			if OnDisconnect != nil {
				go OnDisconnect()
			}
		case key.Matches(msg, m.keys.Next):
			m.networks.Next()
		case key.Matches(msg, m.keys.Switch):
			if row, ok := m.networks.Selected(); ok && OnSwitchNetwork != nil {
				go OnSwitchNetwork(row.ID)
			}
		case key.Matches(msg, m.keys.Refresh):
			if OnRefreshBalance != nil {
				go OnRefreshBalance()
			}
		case key.Matches(msg, m.keys.ClearErrs):
			m.errors = make([]ErrorEntry, 0, 3)
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true

	case TickMsg:
		// Check if welcome timeout has elapsed
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.enterDashboard()
		}
		return m, tickCmd()

	case SessionMsg:
		m.current = msg.Session
		m.session.Update(m.sessionView())
		m.networks.SetActive(msg.Session.ChainID)
		m.lastUpdate = time.Now()
		if msg.Session.LastError != nil {
			m.pushError(msg.Session.LastError.Error())
		}

	case NetworksMsg:
		m.catalog = msg.Networks
		rows := make([]components.NetworkRow, 0, len(msg.Networks))
		for _, n := range msg.Networks {
			rows = append(rows, components.NetworkRow{
				ID:      n.ID,
				Name:    n.Name,
				ChainID: n.ChainID,
				Symbol:  n.Currency.Symbol,
			})
		}
		m.networks.Update(rows)
		m.session.Update(m.sessionView())

	case ConnectionStatusMsg:
		m.agent = ConnectionInfo{
			Connected: msg.Connected,
			Latency:   msg.Latency,
			LastSeen:  time.Now(),
		}
		m.lastUpdate = time.Now()

	case ErrorMsg:
		m.pushError(msg.Error.Error())
		m.logs = addLog(m.logs, "error", msg.Error.Error())

	case LogMsg:
		m.logs = addLog(m.logs, msg.Level, msg.Message)
	}

	return m, nil
}

func (m *Model) enterDashboard() {
	m.phase = PhaseDashboard
	// Trigger callback directly (don't use Send() from within Update)
	if OnStartModules != nil {
		go OnStartModules()
	}
}

func (m *Model) pushError(message string) {
	m.errors = append(m.errors, ErrorEntry{Message: message, Timestamp: time.Now()})
	if len(m.errors) > 3 {
		m.errors = m.errors[len(m.errors)-3:]
	}
}

// sessionView maps the domain session onto display fields, resolving the
// active network name from the catalog when the chain id is known.
func (m Model) sessionView() components.SessionView {
	view := components.SessionView{
		Phase:   string(m.current.Phase()),
		Address: m.current.Address,
		ChainID: m.current.ChainID,
		Balance: m.current.BalanceDisplay,
	}
	for _, n := range m.catalog {
		if n.ChainID == m.current.ChainID {
			view.NetworkName = n.Name
			view.CurrencySymbol = n.Currency.Symbol
			break
		}
	}
	if m.current.LastError != nil {
		view.LastError = m.current.LastError.Error()
	}
	return view
}

// addLog adds a log message and returns the updated slice (keeps last 5).
func addLog(logs []string, level, message string) []string {
	timestamp := time.Now().Format("15:04:05")
	logLine := fmt.Sprintf("[%s] %s: %s", timestamp, level, message)
	logs = append(logs, logLine)
	if len(logs) > 5 {
		logs = logs[len(logs)-5:]
	}
	return logs
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	if m.phase == PhaseWelcome {
		return m.renderWelcomeScreen()
	}

	var b strings.Builder

	// Title
	title := TitleStyle.Render(" 🔌 Wallet Bridge ")
	b.WriteString(title)
	b.WriteString("\n\n")

	// Status bar
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	// Main content: session on left, networks on right
	leftCol := m.session.View()
	rightCol := m.networks.View()

	if m.width > 100 {
		left := BoxStyle.Width(m.width/2 - 2).Render(leftCol)
		right := BoxStyle.Width(m.width/2 - 2).Render(rightCol)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, left, right))
	} else {
		b.WriteString(BoxStyle.Width(m.width - 4).Render(leftCol))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(m.width - 4).Render(rightCol))
	}

	b.WriteString("\n\n")

	// Persistent error panel (show last 3 errors)
	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(ColorDanger)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(ColorDanger)
		mutedError := lipgloss.NewStyle().Foreground(lipgloss.Color("#9CA3AF"))

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(mutedError.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, err := range m.errors {
			ago := time.Since(err.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", err.Message)))
			b.WriteString(mutedError.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Recent logs
	if len(m.logs) > 0 {
		mutedStyle := lipgloss.NewStyle().Foreground(ColorMuted)
		for _, line := range m.logs {
			b.WriteString(mutedStyle.Render("  " + line))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	// Help
	helpText := "c: connect • d: disconnect • tab: select • enter: switch • r: refresh • q: quit"
	b.WriteString(HelpStyle.Render(helpText))

	return b.String()
}

// renderWelcomeScreen renders the animated welcome screen.
func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("#7C3AED"))

	mutedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280"))

	greenStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	// Animated dots based on time
	elapsed := time.Since(m.welcomeStart)
	dotCount := int(elapsed.Milliseconds()/300) % 4
	dots := strings.Repeat(".", dotCount)

	var sb strings.Builder

	sb.WriteString("\n\n\n\n")

	logo := `
   ██╗    ██╗ █████╗ ██╗     ██╗     ███████╗████████╗
   ██║    ██║██╔══██╗██║     ██║     ██╔════╝╚══██╔══╝
   ██║ █╗ ██║███████║██║     ██║     █████╗     ██║
   ██║███╗██║██╔══██║██║     ██║     ██╔══╝     ██║
   ╚███╔███╔╝██║  ██║███████╗███████╗███████╗   ██║
    ╚══╝╚══╝ ╚═╝  ╚═╝╚══════╝╚══════╝╚══════╝   ╚═╝
`
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")

	subtitle := "                B R I D G E"
	sb.WriteString(mutedStyle.Render(subtitle))
	sb.WriteString("\n\n\n")

	loading := fmt.Sprintf("                  Initializing%s", dots)
	sb.WriteString(greenStyle.Render(loading))
	sb.WriteString("\n\n")

	hint := "            Press any key to skip, or wait..."
	sb.WriteString(mutedStyle.Render(hint))
	sb.WriteString("\n")

	return sb.String()
}

func (m Model) renderStatusBar() string {
	var parts []string

	// Session phase
	switch m.current.Phase() {
	case domain.PhaseConnected:
		parts = append(parts, StatusConnected.Render("● connected"))
	case domain.PhaseConnecting:
		parts = append(parts, StatusSwitching.Render("◐ connecting"))
	case domain.PhaseSwitching:
		parts = append(parts, StatusSwitching.Render("◐ switching"))
	default:
		parts = append(parts, StatusDisconnected.Render("○ disconnected"))
	}

	// Agent link status
	if m.agent.Connected {
		status := "agent"
		if m.agent.Latency > 0 {
			status = fmt.Sprintf("agent (%dms)", m.agent.Latency.Milliseconds())
		}
		parts = append(parts, StatusConnected.Render("● "+status))
	} else {
		parts = append(parts, StatusDisconnected.Render("○ agent (offline)"))
	}

	// Last update with activity indicator
	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		indicator := ""
		if ago < 2*time.Second {
			indicator = "▪"
		}
		parts = append(parts, MutedValue.Render(fmt.Sprintf("Updated: %s ago %s", ago, indicator)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules should start.
// This is set by main.go to signal when to begin loading modules.
var OnStartModules func()

// Wallet action callbacks, set by main.go before Run.
var (
	OnConnect        func()
	OnDisconnect     func()
	OnSwitchNetwork  func(networkID string)
	OnRefreshBalance func()
)

// Run starts the Bubble Tea program.
func Run() error {
	Program = tea.NewProgram(New(), tea.WithAltScreen())
	_, err := Program.Run()
	return err
}

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
	// Call OnStartModules callback when StartModulesMsg is sent
	if _, ok := msg.(StartModulesMsg); ok && OnStartModules != nil {
		OnStartModules()
	}
}
