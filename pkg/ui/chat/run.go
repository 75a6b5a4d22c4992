package chat

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"assistbot/pkg/bus"
)

// DispatchFunc handles one inbound event; replies land on the Console.
type DispatchFunc func(ctx context.Context, event bus.InboundEvent)

// Info is shown in the simulator header.
type Info struct {
	Sender  string
	Backend string
	State   string
}

func RunInteractive(ctx context.Context, console *Console, dispatch DispatchFunc, info Info) error {
	model := newModel(ctx, dispatch, console, modeInteractive, "", info)
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion())
	_, err := program.Run()
	if err != nil {
		return err
	}

	fmt.Println(renderGoodbyeBanner())
	return nil
}

func RunOneShot(ctx context.Context, console *Console, dispatch DispatchFunc, info Info, message string) error {
	model := newModel(ctx, dispatch, console, modeOneShot, message, info)
	program := tea.NewProgram(model)
	_, err := program.Run()
	return err
}

func renderGoodbyeBanner() string {
	style := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("230")).
		Background(lipgloss.Color("22")).
		Padding(1, 2)

	return style.Render("👋 À bientôt !")
}
