package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/jobgram/jobgram/internal/model"
	"github.com/jobgram/jobgram/internal/store"
)

var watchCmd = &cobra.Command{
	Use:   "watch <run-id>",
	Short: "Watch a run's live progress",
	Args:  cobra.ExactArgs(1),
	RunE:  runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

var (
	watchTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	watchLabelStyle = lipgloss.NewStyle().
			Bold(true).
			Width(12)

	watchErrStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("203"))

	watchDoneStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("42"))

	watchFailStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("203"))

	watchHintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

type progressMsg struct {
	rec *model.RunProgress
	err error
}

type watchTickMsg struct{}

type watchModel struct {
	runID string
	st    *store.Store

	frame int
	rec   *model.RunProgress
	err   error
}

func (m watchModel) Init() tea.Cmd {
	return tea.Batch(m.poll(), m.tick())
}

func (m watchModel) poll() tea.Cmd {
	return func() tea.Msg {
		rec, err := m.st.GetRunProgress(m.runID)
		return progressMsg{rec: rec, err: err}
	}
}

func (m watchModel) tick() tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg {
		return watchTickMsg{}
	})
}

func (m watchModel) pollLater() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(time.Time) tea.Msg {
		msg := m.poll()()
		return msg
	})
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		}
	case watchTickMsg:
		m.frame = (m.frame + 1) % len(spinnerFrames)
		return m, m.tick()
	case progressMsg:
		m.rec = msg.rec
		m.err = msg.err
		if msg.err == nil && msg.rec != nil && msg.rec.Status != model.RunStatusRunning {
			return m, tea.Quit
		}
		return m, m.pollLater()
	}
	return m, nil
}

func (m watchModel) View() string {
	if m.err != nil {
		return watchFailStyle.Render("error: "+m.err.Error()) + "\n"
	}
	if m.rec == nil {
		return spinnerFrames[m.frame] + " waiting for run " + m.runID + "...\n"
	}

	rec := m.rec
	s := watchTitleStyle.Render("Run "+rec.RunID) + "\n\n"

	status := spinnerFrames[m.frame] + " running"
	switch rec.Status {
	case model.RunStatusCompleted:
		status = watchDoneStyle.Render("✓ completed")
	case model.RunStatusFailed:
		status = watchFailStyle.Render("✗ failed")
	}
	s += watchLabelStyle.Render("Status") + status + "\n"
	s += watchLabelStyle.Render("Channels") + fmt.Sprintf("%d/%d", rec.ProcessedChannels, rec.TotalChannels) + "\n"
	if rec.CurrentChannel != "" {
		s += watchLabelStyle.Render("Current") + "@" + rec.CurrentChannel + "\n"
	}
	s += watchLabelStyle.Render("Messages") + fmt.Sprintf("%d", rec.TotalMessagesProcessed) + "\n"
	s += watchLabelStyle.Render("Jobs") + fmt.Sprintf("%d", rec.TotalJobsExtracted) + "\n"

	if n := len(rec.Errors); n > 0 {
		s += watchLabelStyle.Render("Errors") + watchErrStyle.Render(fmt.Sprintf("%d", n)) + "\n"
		last := rec.Errors[n-1]
		s += "  " + watchErrStyle.Render(fmt.Sprintf("last: [%s] %s", last.Channel, last.Message)) + "\n"
	}

	s += "\n" + watchHintStyle.Render("q quit")
	return s
}

func runWatch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	st, err := store.Open(cfg.Store.Path)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	m := watchModel{runID: args[0], st: st}
	p := tea.NewProgram(m)
	final, err := p.Run()
	if err != nil {
		return fmt.Errorf("watch tui: %w", err)
	}

	// Print a final plain-text snapshot after the TUI exits.
	if wm, ok := final.(watchModel); ok && wm.rec != nil && wm.rec.Status != model.RunStatusRunning {
		fmt.Printf("run %s %s: %d messages, %d jobs, %d errors\n",
			wm.rec.RunID, wm.rec.Status, wm.rec.TotalMessagesProcessed,
			wm.rec.TotalJobsExtracted, len(wm.rec.Errors))
	}
	return nil
}
