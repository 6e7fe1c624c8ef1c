// Логика - обрабатывает клавиши и события хода.

package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/ilkoid/bellhop/pkg/agent"
	"github.com/ilkoid/bellhop/pkg/events"
	"github.com/ilkoid/bellhop/pkg/usage"
)

func (m MainModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var (
		tiCmd tea.Cmd
		vpCmd tea.Cmd
	)

	m.textarea, tiCmd = m.textarea.Update(msg)
	m.viewport, vpCmd = m.viewport.Update(msg)

	switch msg := msg.(type) {

	case tea.WindowSizeMsg:
		headerHeight := 1
		footerHeight := m.textarea.Height() + 2 // статус + граница

		vpHeight := msg.Height - headerHeight - footerHeight
		if vpHeight < 1 {
			vpHeight = 1
		}
		m.viewport.Width = msg.Width
		m.viewport.Height = vpHeight
		m.textarea.SetWidth(msg.Width)
		m.ready = true
		m.refresh()

	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit

		case tea.KeyEnter:
			input := strings.TrimSpace(m.textarea.Value())
			m.textarea.Reset()
			if input == "" {
				return m, nil
			}
			return m.submit(input)
		}

	case spinner.TickMsg:
		if !m.processing {
			return m, tea.Batch(tiCmd, vpCmd)
		}
		var spCmd tea.Cmd
		m.spinner, spCmd = m.spinner.Update(msg)
		return m, tea.Batch(tiCmd, vpCmd, spCmd)

	case eventMsg:
		m.handleEvent(events.Event(msg))
		return m, tea.Batch(tiCmd, vpCmd, waitForEvent(m.sub))

	case turnClosedMsg:
		m.processing = false
		m.sub = nil
		m.partial = ""
		m.refresh()
		m.textarea.Focus()
	}

	return m, tea.Batch(tiCmd, vpCmd)
}

// submit обрабатывает команду чата или запускает ход агента.
func (m MainModel) submit(input string) (tea.Model, tea.Cmd) {
	switch input {
	case "/quit", "/exit":
		return m, tea.Quit
	case "/reset":
		m.conversationID = ""
		m.conversation = usage.Usage{}
		m.appendLog(systemMsgStyle("New conversation started."))
		return m, nil
	}

	if m.processing {
		m.appendLog(errorMsgStyle("Bellhop is still working on the previous request."))
		return m, nil
	}

	m.appendLog(userMsgStyle("YOU > ") + input)
	if m.opts.Recognizer != nil {
		if hint, actions := m.opts.Recognizer.QuickActions(input); hint != nil {
			line := fmt.Sprintf("Hint: %s (%.0f%%)", hint.Message, hint.Confidence*100)
			if len(actions) > 0 {
				line += " | try: " + strings.Join(actions, ", ")
			}
			m.appendLog(hintMsgStyle(line))
		}
	}

	m.processing = true
	m.sub = startTurn(m.runner, agent.Request{
		ConversationID: m.conversationID,
		Input:          input,
	}, m.opts.TurnTimeout)
	return m, tea.Batch(waitForEvent(m.sub), m.spinner.Tick)
}

// handleEvent выводит событие хода в лог.
func (m *MainModel) handleEvent(ev events.Event) {
	switch d := ev.Data.(type) {
	case events.ToolCallData:
		m.appendLog(toolMsgStyle(fmt.Sprintf("  → %s %s", d.ToolName, compact(d.Args))))

	case events.ToolResultData:
		line := fmt.Sprintf("  ← %s (%dms)", d.ToolName, d.Duration.Milliseconds())
		if d.IsError {
			m.appendLog(errorMsgStyle(line + " failed: " + compact(d.Result)))
			return
		}
		m.appendLog(toolMsgStyle(line))

	case events.ChunkData:
		m.partial = d.Accumulated
		m.refresh()

	case events.MessageData:
		m.partial = ""
		if d.Content == nil {
			m.appendLog(botMsgStyle("BELLHOP > ") + "(no reply)")
		} else {
			m.appendLog(botMsgStyle("BELLHOP > ") + *d.Content)
		}
		if d.RoundLimitReached {
			m.appendLog(systemMsgStyle("Stopped after the maximum number of tool rounds."))
		}

	case events.UsageData:
		m.conversation = d.Conversation

	case events.ErrorData:
		m.partial = ""
		m.appendLog(errorMsgStyle("ERROR: ") + d.Err.Error())

	case events.DoneData:
		if d.ConversationID != "" {
			m.conversationID = d.ConversationID
		}
	}
}

// appendLog добавляет строку в лог и прокручивает вниз.
func (m *MainModel) appendLog(line string) {
	m.lines = append(m.lines, line)
	m.refresh()
}

func (m *MainModel) refresh() {
	lines := m.lines
	if m.partial != "" {
		lines = append(lines[:len(lines):len(lines)], botMsgStyle("BELLHOP > ")+m.partial)
	}
	m.viewport.SetContent(renderLog(lines, m.viewport.Width))
	m.viewport.GotoBottom()
}

// compact обрезает аргументы и результаты инструментов для лога.
func compact(s string) string {
	const limit = 120
	s = strings.Join(strings.Fields(s), " ")
	if r := []rune(s); len(r) > limit {
		return string(r[:limit]) + "…"
	}
	return s
}
