// Package ui — терминальный чат Bellhop на Bubble Tea.
//
// Ход агента запускается через agent.RunStream, события читаются
// из events.ChanEmitter по одному через tea.Cmd, поэтому UI не блокируется.
package ui

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ilkoid/bellhop/pkg/agent"
	"github.com/ilkoid/bellhop/pkg/events"
	"github.com/ilkoid/bellhop/pkg/taskeval"
	"github.com/ilkoid/bellhop/pkg/usage"
)

// eventBuffer — буфер событий одного хода.
const eventBuffer = 32

// Runner выполняет ход агента с событиями (agent.Agent).
type Runner interface {
	RunStream(ctx context.Context, req agent.Request, emitter events.Emitter) (agent.Reply, error)
}

// eventMsg — очередное событие хода.
type eventMsg events.Event

// turnClosedMsg — канал событий хода закрыт.
type turnClosedMsg struct{}

// Options — параметры чата.
type Options struct {
	HotelName string
	ModelName string

	// TurnTimeout ограничивает один ход; 0 — без ограничения.
	TurnTimeout time.Duration

	// Recognizer подсказывает быстрые действия по вводу; nil — без подсказок.
	Recognizer *taskeval.Recognizer
}

// MainModel — модель чата (Bubble Tea Model).
//
// lines хранит строки лога без переноса: перенос по ширине
// делается заново при каждом изменении размера окна.
type MainModel struct {
	viewport viewport.Model
	textarea textarea.Model
	spinner  spinner.Model

	runner Runner
	opts   Options

	lines   []string
	partial string // текст потокового ответа, ещё не ставший сообщением

	conversationID string
	conversation   usage.Usage
	processing     bool
	sub            events.Subscriber

	ready bool
}

// InitialModel создаёт чат.
func InitialModel(runner Runner, opts Options) MainModel {
	ta := textarea.New()
	ta.Placeholder = "Ask Bellhop (e.g. show occupancy for next weekend)..."
	ta.Focus()
	ta.Prompt = "┃ "
	ta.CharLimit = 2000
	ta.SetHeight(3)
	ta.ShowLineNumbers = false

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("86"))

	m := MainModel{
		viewport: viewport.New(0, 0),
		textarea: ta,
		spinner:  sp,
		runner:   runner,
		opts:     opts,
	}
	m.appendLog(systemMsgStyle("Bellhop ready. Type /reset for a new conversation, Esc to quit."))
	return m
}

// Init запускает мигание курсора.
func (m MainModel) Init() tea.Cmd {
	return textarea.Blink
}

// startTurn запускает ход в отдельной горутине и возвращает подписчика на его события.
func startTurn(runner Runner, req agent.Request, timeout time.Duration) events.Subscriber {
	em := events.NewChanEmitter(eventBuffer)
	go func() {
		defer em.Close()
		ctx := context.Background()
		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}
		// Ошибка уже пришла событием EventError
		_, _ = runner.RunStream(ctx, req, em)
	}()
	return em.Subscribe()
}

// waitForEvent читает следующее событие хода.
func waitForEvent(sub events.Subscriber) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-sub.Events()
		if !ok {
			return turnClosedMsg{}
		}
		return eventMsg(ev)
	}
}
