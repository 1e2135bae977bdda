package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/lox/holdem-mccfr/poker"
)

// refreshMsg asks the model to re-render from the driver's current state,
// sent over the tea.Program whenever a hand advances without direct
// keyboard input (e.g. fishbait acting, or a new street being dealt).
type refreshMsg struct{}

// model is the bubbletea view over a driver's shared, mutex-guarded game
// state; all game logic lives in the driver, the model only renders it and
// forwards typed commands.
type model struct {
	drv *driver

	logViewport viewport.Model
	actionInput textinput.Model

	quitting    bool
	focusedPane int // 0 = log, 1 = input
	width       int
	height      int
}

func newModel(drv *driver) *model {
	vp := viewport.New(10, 5)
	ti := textinput.New()
	ti.Placeholder = "fold, check, call, raise <amount>, allin, quit"
	ti.Focus()
	ti.CharLimit = 64
	ti.Width = 64
	ti.PromptStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575")).Bold(true)
	ti.Prompt = "> "

	return &model{
		drv:         drv,
		logViewport: vp,
		actionInput: ti,
		focusedPane: 1,
	}
}

func (m *model) Init() tea.Cmd {
	return textinput.Blink
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case refreshMsg:
		// No-op: View() below always reads the driver's latest state.

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			m.quitting = true
			m.drv.submit("quit")
			return m, tea.Sequence(tea.ClearScreen, tea.Quit)
		case "tab":
			if m.focusedPane == 0 {
				m.focusedPane = 1
				m.actionInput.Focus()
			} else {
				m.focusedPane = 0
				m.actionInput.Blur()
			}
		case "enter":
			if m.focusedPane == 1 {
				text := strings.TrimSpace(m.actionInput.Value())
				m.actionInput.SetValue("")
				if text != "" {
					m.drv.submit(text)
				}
			}
		case "up", "k":
			if m.focusedPane == 0 {
				m.logViewport.ScrollUp(1)
			}
		case "down", "j":
			if m.focusedPane == 0 {
				m.logViewport.ScrollDown(1)
			}
		}
	}

	var cmd tea.Cmd
	if m.focusedPane == 1 {
		m.actionInput, cmd = m.actionInput.Update(msg)
		cmds = append(cmds, cmd)
	}
	m.logViewport, cmd = m.logViewport.Update(msg)
	cmds = append(cmds, cmd)

	return m, tea.Batch(cmds...)
}

func (m *model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}

	actionContent := m.renderActionPane()
	actionHeight := lipgloss.Height(actionContent)
	actionStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#04B575")).
		Width(m.width - 2).
		Height(actionHeight - 2)
	actionPane := actionStyle.Render(actionContent)

	sidebarContent := m.renderSidebar()
	sidebarWidth := 28
	sidebarHeight := m.height - actionHeight - 4
	sidebarStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(sidebarWidth).
		Height(sidebarHeight)
	sidebarPane := sidebarStyle.Render(sidebarContent)

	m.logViewport.SetContent(strings.Join(m.drv.logLines(), "\n"))
	m.logViewport.Width = m.width - sidebarWidth - 4
	m.logViewport.Height = sidebarHeight
	logStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#626262")).
		Width(m.logViewport.Width).
		Height(m.logViewport.Height)
	if m.focusedPane == 0 {
		logStyle = logStyle.BorderForeground(lipgloss.Color("#04B575"))
	}
	logPane := logStyle.Render(m.logViewport.View())

	topRow := lipgloss.JoinHorizontal(lipgloss.Top, logPane, sidebarPane)
	return lipgloss.JoinVertical(lipgloss.Top, topRow, actionPane)
}

func (m *model) renderSidebar() string {
	var b strings.Builder
	snap, humanSeat := m.drv.snapshot()

	for seat := 0; seat < snap.NPlayers; seat++ {
		name := fmt.Sprintf("Fishbait %d", seat)
		if seat == humanSeat {
			name = "You"
		}

		var tags []string
		if seat == snap.Button {
			tags = append(tags, "D")
		}
		if snap.Folded[seat] {
			tags = append(tags, "FOLD")
		} else if snap.Stack[seat] == 0 {
			tags = append(tags, "ALL-IN")
		}

		prefix := "  "
		style := playerInfoStyle
		if snap.Folded[seat] {
			style = foldedPlayerStyle
		} else if seat == snap.ActingPlayer {
			prefix = "> "
			style = currentPlayerStyle
		}

		line := fmt.Sprintf("%s%s $%d", prefix, name, snap.Stack[seat])
		if len(tags) > 0 {
			line += " [" + strings.Join(tags, ",") + "]"
		}
		if snap.Bets[seat] > 0 {
			line += fmt.Sprintf(" (%d)", snap.Bets[seat])
		}
		b.WriteString(style.Render(line))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(potStyle.Render(fmt.Sprintf("Pot: %d", snap.Pot)))
	if snap.NeededToCall > 0 {
		b.WriteString("\n")
		b.WriteString(potStyle.Render(fmt.Sprintf("To call: %d", snap.NeededToCall)))
	}
	b.WriteString("\n\n")
	if snap.Board != 0 {
		b.WriteString(formatHand(poker.Hand(snap.Board)))
	}
	return b.String()
}

func (m *model) renderActionPane() string {
	var b strings.Builder
	snap, humanSeat := m.drv.snapshot()

	if snap.InProgress && len(snap.Hands) > humanSeat {
		hand := poker.Hand(snap.Hands[humanSeat])
		b.WriteString(handInfoStyle.Render(fmt.Sprintf("Hand: %s  Pot: %d", formatHand(hand), snap.Pot)))
		b.WriteString("\n")
	}

	if available := m.drv.availableActions(); len(available) > 0 {
		b.WriteString(actionsStyle.Render("Available: " + strings.Join(available, " ")))
		b.WriteString("\n")
	}

	if err := m.drv.lastError(); err != "" {
		b.WriteString(errorStyle.Render("Error: " + err))
		b.WriteString("\n")
	}

	b.WriteString(m.actionInput.View())
	b.WriteString("\n")
	b.WriteString(helpStyle.Render("Tab to scroll log • Enter to submit • Ctrl+C to quit"))
	return b.String()
}

func formatHand(h poker.Hand) string {
	if h.CountCards() == 0 {
		return ""
	}
	var out []string
	for i := 0; i < h.CountCards(); i++ {
		card := h.GetCard(i)
		s := card.String()
		if card.Suit() == poker.Diamonds || card.Suit() == poker.Hearts {
			out = append(out, redCardStyle.Render(s))
		} else {
			out = append(out, blackCardStyle.Render(s))
		}
	}
	return "[" + strings.Join(out, " ") + "]"
}
