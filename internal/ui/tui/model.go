package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/imamik/squadfleet/internal/fleet"
)

// Model is the Bubble Tea model for the upgrade dashboard.
type Model struct {
	Template      string
	TargetVersion string

	// Entries holds every planned tenant in plan order.
	Entries []fleet.Entry
	index   map[string]int

	StartTime    time.Time
	SpinnerFrame int

	Width  int
	Height int
	Err    error
	Done   bool
	Report *fleet.Report
}

// NewUpgradeModel creates a dashboard for plan.
func NewUpgradeModel(plan *fleet.Plan) Model {
	m := Model{
		Entries:   append([]fleet.Entry(nil), plan.Entries...),
		index:     make(map[string]int, len(plan.Entries)),
		StartTime: time.Now(),
	}
	if plan.Target != nil {
		m.Template = plan.Target.Name
		m.TargetVersion = plan.Target.Version
	}
	for i, e := range m.Entries {
		m.index[e.TenantID] = i
	}
	return m
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height

	case EntryMsg:
		if i, ok := m.index[msg.Entry.TenantID]; ok {
			m.Entries[i] = msg.Entry
		}

	case TickMsg:
		m.SpinnerFrame++
		return m, tickCmd()

	case ErrMsg:
		m.Err = msg.Err
		return m, tea.Quit

	case DoneMsg:
		m.Done = true
		m.Report = msg.Report
		if msg.Report != nil {
			m.Entries = append([]fleet.Entry(nil), msg.Report.Entries...)
		}
		return m, tea.Quit
	}

	return m, nil
}

// counts returns how many planned upgrades have finished and how many
// were planned.
func (m Model) counts() (finished, planned int) {
	for _, e := range m.Entries {
		switch e.Status {
		case fleet.StatusSkip:
		case fleet.StatusPending:
			planned++
		default:
			planned++
			finished++
		}
	}
	return finished, planned
}

func tickCmd() tea.Cmd {
	return tea.Tick(200*time.Millisecond, func(_ time.Time) tea.Msg {
		return TickMsg{}
	})
}

// View implements tea.Model.
func (m Model) View() string {
	return renderView(m)
}
