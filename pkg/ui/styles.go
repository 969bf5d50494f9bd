package ui

import (
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

var (
	TitleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7D56F4"))
	InfoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#8A8A8A"))
	SuccessStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#04B575"))
	WarningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFB86C"))
	ErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF5F87"))
	HelpStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))
	SpinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))
)

func NewSpinner() spinner.Model {
	return spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(SpinnerStyle))
}
