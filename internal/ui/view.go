// Рендер
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"

	"github.com/ilkoid/bellhop/pkg/usage"
)

func (m MainModel) View() string {
	if !m.ready {
		return "Initializing UI..."
	}

	header := headerStyle.
		Width(m.viewport.Width).
		Render(headerLine(m.opts.HotelName, m.opts.ModelName, m.conversationID))

	border := lipgloss.NewStyle().
		Foreground(grayColor).
		Width(m.viewport.Width).
		Render(strings.Repeat("─", max(m.viewport.Width, 1)))

	return fmt.Sprintf("%s\n%s\n%s\n%s\n%s",
		header,
		m.viewport.View(),
		statusLine(m.processing, m.spinner.View(), m.conversation),
		border,
		m.textarea.View(),
	)
}

func headerLine(hotel, model, conversationID string) string {
	if hotel == "" {
		hotel = "Bellhop"
	}
	conv := "new"
	if conversationID != "" {
		conv = conversationID
		if len(conv) > 8 {
			conv = conv[:8]
		}
	}
	return fmt.Sprintf(" %s | MODEL: %s | CONV: %s ", hotel, model, conv)
}

func statusLine(processing bool, spin string, conv usage.Usage) string {
	state := "✓ Ready"
	if processing {
		state = spin + " Working..."
	}
	tokens := fmt.Sprintf("tokens: %d", conv.TotalTokens)
	if conv.Cost != nil {
		tokens += fmt.Sprintf(" | cost: $%.4f", *conv.Cost)
	}
	return statusStyle.Render(state) + statusStyle.Render(tokens)
}

// renderLog переносит строки лога по словам, а слишком длинные слова режет.
func renderLog(lines []string, width int) string {
	if width < 20 {
		width = 20
	}
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		out = append(out, wrap.String(wordwrap.String(line, width), width))
	}
	return strings.Join(out, "\n")
}
