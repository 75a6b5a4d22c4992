package chat

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"assistbot/pkg/bus"
	"assistbot/pkg/rich"
)

type mode int

const (
	modeInteractive mode = iota
	modeOneShot
)

const defaultSender = "local"

type chatMessage struct {
	role    string
	content string
}

type repliesMsg struct {
	replies []rich.Message
}

type bootTickMsg struct{}

type model struct {
	ctx          context.Context
	dispatch     DispatchFunc
	console      *Console
	mode         mode
	oneShotInput string

	theme     theme
	spinner   spinner.Model
	input     textinput.Model
	viewport  viewport.Model
	messages  []chatMessage
	options   []option
	width     int
	height    int
	isReady   bool
	isLoading bool
	lastErr   string
	booting   bool
	bootStep  int
	followLog bool
	info      Info
}

func newModel(ctx context.Context, dispatch DispatchFunc, console *Console, runMode mode, prompt string, info Info) *model {
	spin := spinner.New()
	spin.Spinner = spinner.Points
	spin.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))

	in := textinput.New()
	in.Prompt = ""
	in.Placeholder = "Écrivez un message ou /1 pour choisir une option..."
	in.Focus()
	in.CharLimit = 0

	vp := viewport.New(80, 12)

	if console == nil {
		console = NewConsole()
	}
	if strings.TrimSpace(info.Sender) == "" {
		info.Sender = defaultSender
	}

	return &model{
		ctx:          ctx,
		dispatch:     dispatch,
		console:      console,
		mode:         runMode,
		oneShotInput: strings.TrimSpace(prompt),
		theme:        defaultTheme(),
		spinner:      spin,
		input:        in,
		viewport:     vp,
		width:        100,
		height:       28,
		booting:      runMode == modeInteractive,
		followLog:    true,
		info:         info,
	}
}

func (m *model) Init() tea.Cmd {
	if m.mode == modeOneShot && m.oneShotInput != "" {
		return m.submit(m.oneShotInput)
	}

	return bootTickCmd()
}

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch typed := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = typed.Width
		m.height = typed.Height
		m.resizeComponents()
		m.refreshViewport(false)
		m.isReady = true
		return m, nil
	case bootTickMsg:
		if !m.booting {
			return m, nil
		}

		m.bootStep++
		if m.bootStep < len(bootScriptLines())+1 {
			return m, bootTickCmd()
		}

		m.booting = false
		return m, textinput.Blink
	case tea.MouseMsg:
		if m.mode == modeInteractive && !m.booting {
			m.handleViewportMouse(typed)
		}
		return m, nil
	case tea.KeyMsg:
		switch typed.String() {
		case "ctrl+c", "esc":
			return m, tea.Quit
		}

		if m.booting || m.mode == modeOneShot {
			return m, nil
		}

		if handled := m.handleViewportKey(typed); handled {
			return m, nil
		}

		if typed.String() == "enter" {
			if m.isLoading {
				return m, nil
			}

			input := strings.TrimSpace(m.input.Value())
			if input == "" {
				return m, nil
			}
			if isExitCommand(input) {
				return m, tea.Quit
			}

			m.input.SetValue("")
			return m, m.submit(input)
		}
	}

	if m.mode == modeInteractive {
		m.input, cmd = m.input.Update(msg)
	}

	switch typed := msg.(type) {
	case spinner.TickMsg:
		if !m.isLoading {
			return m, nil
		}
		m.spinner, cmd = m.spinner.Update(typed)
		return m, cmd
	case repliesMsg:
		m.isLoading = false
		m.receive(typed.replies)
		if m.mode == modeOneShot {
			return m, tea.Quit
		}
	}

	return m, cmd
}

// submit turns user input into an inbound event. "/N" presses option N of the
// most recent prompt; anything else is sent as text.
func (m *model) submit(input string) tea.Cmd {
	event := bus.TextEvent(ChannelName, m.info.Sender, input)
	shown := input

	if n, ok := parseSelection(input); ok {
		if n > len(m.options) {
			m.lastErr = fmt.Sprintf("option %d indisponible", n)
			m.messages = append(m.messages, chatMessage{role: "error", content: fmt.Sprintf("Aucune option %d. Options disponibles : %d.", n, len(m.options))})
			m.refreshViewport(true)
			return nil
		}

		selected := m.options[n-1]
		event = bus.InteractiveEvent(ChannelName, m.info.Sender, selected.kind, selected.id)
		shown = "▶ " + selected.label
	}

	m.lastErr = ""
	m.messages = append(m.messages, chatMessage{role: "user", content: shown})
	m.isLoading = true
	m.followLog = true
	m.refreshViewport(true)

	return tea.Batch(m.spinner.Tick, dispatchCmd(m.ctx, m.dispatch, m.console, event))
}

func (m *model) receive(replies []rich.Message) {
	if len(replies) == 0 {
		m.lastErr = "no reply"
		m.messages = append(m.messages, chatMessage{role: "error", content: "Aucune réponse reçue."})
		m.refreshViewport(false)
		return
	}

	m.lastErr = ""
	for _, reply := range replies {
		m.messages = append(m.messages, chatMessage{role: "bot", content: formatReply(reply)})
		if options := optionsOf(reply); len(options) > 0 {
			m.options = options
		}
	}
	m.refreshViewport(false)
}

func (m *model) View() string {
	if !m.isReady {
		m.resizeComponents()
		m.refreshViewport(false)
	}
	if m.mode == modeOneShot {
		return m.oneShotView()
	}
	if m.booting {
		return m.bootView()
	}

	header := m.theme.header.Width(m.width - 2).Render("📱 Assistant Simulator")
	meta := m.theme.headerMeta.Render(fmt.Sprintf(
		"channel:%s · sender:%s · backend:%s · state:%s · turns:%d · options:%d",
		ChannelName,
		displayOrNA(m.info.Sender),
		displayOrNA(m.info.Backend),
		displayOrNA(m.info.State),
		conversationTurns(m.messages),
		len(m.options),
	))
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	status := m.theme.status.Render("💡 Enter send  ·  /N choose option  ·  PgUp/PgDn scroll  ·  🛑 Ctrl+C/Esc quit")
	if m.isLoading {
		status = m.theme.statusBusy.Render(fmt.Sprintf("%s ⚡ waiting for reply...", m.spinner.View()))
	}
	if m.lastErr != "" {
		status = m.theme.statusErr.Render("🚨 " + m.lastErr)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		header,
		meta,
		line,
		m.theme.viewport.Width(m.width-2).Render(m.viewport.View()),
		status,
		m.theme.inputLabel.Render("👤 Vous")+" "+m.theme.hint.Render("(type /exit, quit, or :q)"),
		m.theme.input.Width(m.width-2).Render(m.input.View()),
	)
}

func (m *model) resizeComponents() {
	w := m.width - 6
	if w < 50 {
		w = 50
	}
	h := m.height - 10
	if m.mode == modeOneShot {
		h = m.height - 6
	}
	if h < 8 {
		h = 8
	}

	m.viewport.Width = w
	m.viewport.Height = h
	m.input.Width = w - 2
}

func (m *model) refreshViewport(forceBottom bool) {
	previousOffset := m.viewport.YOffset
	sections := make([]string, 0, len(m.messages))
	for _, item := range m.messages {
		sections = append(sections, m.renderMessage(item, m.viewport.Width))
	}

	m.viewport.SetContent(strings.Join(sections, "\n\n"))
	if m.followLog || forceBottom {
		m.viewport.GotoBottom()
		m.followLog = true
		return
	}

	maxOffset := m.viewport.TotalLineCount() - m.viewport.Height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if previousOffset > maxOffset {
		previousOffset = maxOffset
	}
	m.viewport.SetYOffset(previousOffset)
}

func (m *model) renderMessage(item chatMessage, width int) string {
	body := strings.TrimSpace(item.content)

	switch item.role {
	case "user":
		return m.renderCard(m.theme.userTitle.Render("▛▚ [ 👤 ] ▞▜"), m.theme.userBox.Width(width).Render(body))
	case "error":
		return m.renderCard(m.theme.errorTitle.Render("▛▚ [ERROR] ▞▜"), m.theme.errorBox.Width(width).Render(body))
	default:
		return m.renderCard(m.theme.botTitle.Render("▛▚ [ 🤖 ] ▞▜"), m.theme.botBox.Width(width).Render(body))
	}
}

func (m *model) renderCard(title string, body string) string {
	return lipgloss.JoinVertical(lipgloss.Left, title, body)
}

func (m *model) oneShotView() string {
	contentWidth := max(40, m.width-6)
	parts := make([]string, 0, len(m.messages)+1)
	for _, item := range m.messages {
		parts = append(parts, m.renderMessage(item, contentWidth))
	}

	if m.isLoading {
		parts = append(parts, m.theme.statusBusy.Render(fmt.Sprintf("%s ⚡ sending message and waiting for reply...", m.spinner.View())))
		return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n"
	}

	return lipgloss.JoinVertical(lipgloss.Left, parts...) + "\n\n"
}

func (m *model) bootView() string {
	header := m.theme.header.Width(m.width - 2).Render("📱 Assistant Simulator")
	meta := m.theme.headerMeta.Render("boot sequence")
	line := m.theme.divider.Width(m.width - 2).Render(strings.Repeat("═", max(8, m.width-2)))

	script := bootScriptLines()
	count := min(m.bootStep, len(script))
	visible := make([]string, 0, count+1)
	for i := 0; i < count; i++ {
		visible = append(visible, m.theme.bootLine.Render(script[i]))
	}
	if m.bootStep > len(script) {
		visible = append(visible, m.theme.bootDone.Render("✅ simulator online, say bonjour"))
	}

	body := m.theme.viewport.Width(m.width - 2).Render(strings.Join(visible, "\n"))
	return lipgloss.JoinVertical(lipgloss.Left, header, meta, line, body)
}

func bootTickCmd() tea.Cmd {
	return tea.Tick(80*time.Millisecond, func(_ time.Time) tea.Msg {
		return bootTickMsg{}
	})
}

func (m *model) handleViewportKey(msg tea.KeyMsg) bool {
	switch msg.String() {
	case "pgup", "ctrl+b", "alt+up", "ctrl+up":
		m.viewport.PageUp()
		m.followLog = false
		return true
	case "pgdown", "ctrl+f", "alt+down", "ctrl+down":
		m.viewport.PageDown()
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	case "home":
		m.viewport.GotoTop()
		m.followLog = false
		return true
	case "end":
		m.viewport.GotoBottom()
		m.followLog = true
		return true
	default:
		return false
	}
}

func (m *model) handleViewportMouse(msg tea.MouseMsg) bool {
	if msg.Action != tea.MouseActionPress {
		return false
	}

	switch msg.Button {
	case tea.MouseButtonWheelUp:
		m.viewport.ScrollUp(3)
		m.followLog = false
		return true
	case tea.MouseButtonWheelDown:
		m.viewport.ScrollDown(3)
		if m.viewport.AtBottom() {
			m.followLog = true
		}
		return true
	default:
		return false
	}
}

func bootScriptLines() []string {
	return []string{
		"[BOOT] loading intent rules",
		"[BOOT] opening conversation store",
		"[BOOT] wiring content providers",
		"[BOOT] attaching console transport",
	}
}

func dispatchCmd(ctx context.Context, dispatch DispatchFunc, console *Console, event bus.InboundEvent) tea.Cmd {
	return func() tea.Msg {
		if dispatch != nil {
			dispatch(ctx, event)
		}
		return repliesMsg{replies: console.Drain()}
	}
}

// formatReply renders a rich message as plain text with numbered options.
func formatReply(msg rich.Message) string {
	var b strings.Builder
	writeBlock := func(text string) {
		text = strings.TrimSpace(text)
		if text == "" {
			return
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}

	switch typed := msg.(type) {
	case rich.Text:
		writeBlock(typed.Body)
	case rich.ButtonPrompt:
		writeBlock(typed.Header)
		writeBlock(typed.Body)
		lines := make([]string, 0, len(typed.Buttons))
		for i, button := range typed.Buttons {
			lines = append(lines, fmt.Sprintf("[%d] %s", i+1, button.Label))
		}
		writeBlock(strings.Join(lines, "\n"))
		writeBlock(typed.Footer)
	case rich.ListPrompt:
		writeBlock(typed.Header)
		writeBlock(typed.Body)
		n := 0
		for _, section := range typed.Sections {
			lines := []string{"── " + section.Title}
			for _, row := range section.Rows {
				n++
				line := fmt.Sprintf("[%d] %s", n, row.Label)
				if row.Description != "" {
					line += " · " + row.Description
				}
				lines = append(lines, line)
			}
			writeBlock(strings.Join(lines, "\n"))
		}
		writeBlock(typed.Footer)
	}

	return b.String()
}

func displayOrNA(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return "n/a"
	}

	return trimmed
}

func conversationTurns(messages []chatMessage) int {
	count := 0
	for _, message := range messages {
		if message.role == "user" {
			count++
		}
	}

	return count
}

func isExitCommand(input string) bool {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "exit", "/exit", "quit", ":q":
		return true
	default:
		return false
	}
}
