package chat

import "github.com/charmbracelet/lipgloss"

// theme groups reusable styles for chat UI regions.
type theme struct {
	header     lipgloss.Style
	headerMeta lipgloss.Style
	divider    lipgloss.Style
	bootLine   lipgloss.Style
	bootDone   lipgloss.Style
	userBox    lipgloss.Style
	userTitle  lipgloss.Style
	botBox     lipgloss.Style
	botTitle   lipgloss.Style
	errorBox   lipgloss.Style
	errorTitle lipgloss.Style
	status     lipgloss.Style
	statusBusy lipgloss.Style
	statusErr  lipgloss.Style
	hint       lipgloss.Style
	inputLabel lipgloss.Style
	input      lipgloss.Style
	viewport   lipgloss.Style
}

var (
	messengerGreen = lipgloss.Color("29")
	bubbleGreen    = lipgloss.Color("22")
	bubbleGrey     = lipgloss.Color("236")
	paper          = lipgloss.Color("255")
	alertRed       = lipgloss.Color("167")
	mutedGrey      = lipgloss.Color("245")
)

func titleStyle(bg lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().Bold(true).Foreground(paper).Background(bg).Padding(0, 1)
}

func bubbleStyle(border lipgloss.Color, bg lipgloss.Color) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Background(bg).
		Foreground(paper).
		Padding(0, 1)
}

// defaultTheme mimics a messenger: green bubbles for the user, grey for the bot.
func defaultTheme() theme {
	return theme{
		header:     titleStyle(messengerGreen),
		headerMeta: lipgloss.NewStyle().Foreground(mutedGrey).Italic(true),
		divider:    lipgloss.NewStyle().Foreground(messengerGreen),
		bootLine:   lipgloss.NewStyle().Foreground(mutedGrey),
		bootDone:   lipgloss.NewStyle().Foreground(lipgloss.Color("42")).Bold(true),
		userBox:    bubbleStyle(messengerGreen, bubbleGreen),
		userTitle:  titleStyle(messengerGreen),
		botBox:     bubbleStyle(mutedGrey, bubbleGrey),
		botTitle:   titleStyle(lipgloss.Color("240")),
		errorBox:   bubbleStyle(alertRed, lipgloss.Color("52")),
		errorTitle: titleStyle(alertRed),
		status:     lipgloss.NewStyle().Foreground(mutedGrey).Bold(true),
		statusBusy: lipgloss.NewStyle().Foreground(lipgloss.Color("221")).Bold(true),
		statusErr:  lipgloss.NewStyle().Foreground(alertRed).Bold(true),
		hint:       lipgloss.NewStyle().Foreground(mutedGrey),
		inputLabel: lipgloss.NewStyle().Bold(true).Foreground(messengerGreen),
		input: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(messengerGreen).
			Padding(0, 1),
		viewport: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false).
			BorderForeground(messengerGreen).
			Padding(0, 1),
	}
}
