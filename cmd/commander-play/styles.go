package main

import "github.com/charmbracelet/lipgloss"

var (
	handInfoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true)

	actionsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFD700")).
			Bold(true)

	redCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	blackCardStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Bold(true)

	playerInfoStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#FAFAFA"))

	currentPlayerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#96CEB4")).
				Bold(true)

	foldedPlayerStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#626262"))

	potStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFEAA7")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#626262"))
)
