package ui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"llm_dealer/pkg/chat"
	"llm_dealer/pkg/logs"
	"llm_dealer/pkg/system"
	"llm_dealer/pkg/types"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

const (
	Title         = "LLM Dealer (v1.0)"
	refreshPeriod = 100 * time.Millisecond
)

type UI struct {
	app         *tview.Application
	inputArea   *tview.TextArea
	sendButton  *tview.Button
	outputView  *tview.TextView
	quitButton  *tview.Button
	statusView  *tview.TextView
	keybindView *tview.TextView
	focusOrder  []tview.Primitive
	keybinds    []types.KeyBinding

	session *chat.Session
	metrics *system.Metrics
	ctx     context.Context

	spinnerFrames       []string
	currentSpinnerFrame int
	shown               string
	refresh             chan struct{}
	done                chan struct{}
}

// New builds the window. Completed requests only signal the render loop,
// which reads the session's response slot on the UI goroutine.
func New(completer chat.Completer, instructions string, metrics *system.Metrics) *UI {
	ui := &UI{
		app:           tview.NewApplication(),
		metrics:       metrics,
		ctx:           context.Background(),
		spinnerFrames: []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		refresh:       make(chan struct{}, 1),
		done:          make(chan struct{}),
		keybinds: []types.KeyBinding{
			{Key: "Ctrl+S", Description: "send question"},
			{Key: "Tab", Description: "next field"},
			{Key: "Shift+Tab", Description: "previous field"},
			{Key: "Ctrl+Q", Description: "quit"},
		},
	}

	ui.session = chat.NewSession(completer, instructions, ui.onComplete)

	ui.setupViews()
	ui.setupHandlers()
	return ui
}

func (ui *UI) setupViews() {
	ui.inputArea = tview.NewTextArea().
		SetPlaceholder("Type your question here...")
	ui.inputArea.SetBorder(true).
		SetTitle("Question").
		SetTitleAlign(tview.AlignLeft)

	ui.sendButton = tview.NewButton("Send").SetSelectedFunc(ui.send)

	// Output is escaped before display, so model text never turns into color tags.
	ui.outputView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWordWrap(true)
	ui.outputView.SetBorder(true).
		SetTitle("Answer").
		SetTitleAlign(tview.AlignLeft)

	ui.quitButton = tview.NewButton("Quit").SetSelectedFunc(ui.quit)

	ui.statusView = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)

	ui.keybindView = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft).
		SetWordWrap(true)

	ui.focusOrder = []tview.Primitive{ui.inputArea, ui.sendButton, ui.outputView, ui.quitButton}
}

func (ui *UI) setupHandlers() {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlS:
			ui.send()
			return nil
		case tcell.KeyCtrlQ:
			ui.quit()
			return nil
		case tcell.KeyTab:
			ui.cycleFocus(1)
			return nil
		case tcell.KeyBacktab:
			ui.cycleFocus(-1)
			return nil
		}
		return event
	})
}

// send runs on the UI goroutine.
func (ui *UI) send() {
	text := ui.inputArea.GetText()
	if strings.TrimSpace(text) == "" {
		return
	}

	id := ui.session.Send(ui.ctx, text)
	logs.Info("question sent", zap.String("id", id))
	ui.render()
}

func (ui *UI) quit() {
	logs.Info("quit requested")
	ui.app.Stop()
}

func (ui *UI) onComplete(result chat.Result) {
	if ui.metrics != nil {
		ui.metrics.RecordRequest(result.Elapsed, result.Err != nil)
	}

	select {
	case ui.refresh <- struct{}{}:
	default:
	}
}

func (ui *UI) cycleFocus(step int) {
	current := ui.app.GetFocus()
	idx := 0
	for i, p := range ui.focusOrder {
		if p == current {
			idx = i
			break
		}
	}
	n := len(ui.focusOrder)
	ui.app.SetFocus(ui.focusOrder[((idx+step)%n+n)%n])
}

// render copies shared state into the widgets. Call only on the UI goroutine.
func (ui *UI) render() {
	last := ui.session.Last()
	text := tview.Escape(last.Display())
	if last.Err != nil {
		text = "[red]" + text + "[white]"
	}
	// Rewriting unchanged text would reset the scroll position.
	if text != ui.shown {
		ui.shown = text
		ui.outputView.SetText(text).ScrollToBeginning()
	}

	ui.statusView.Clear()
	fmt.Fprintf(ui.statusView, "%s\n", ui.getStatusText())
	if ui.metrics != nil {
		fmt.Fprintf(ui.statusView, "%s", ui.metrics.GetFormattedMetrics())
	}
}

func (ui *UI) getStatusText() string {
	if pending := ui.session.Pending(); pending > 0 {
		return fmt.Sprintf("[yellow]Waiting for answer %s (%d in flight)[white]",
			ui.spinnerFrames[ui.currentSpinnerFrame], pending)
	}
	return "[green]Ready[white]"
}

func (ui *UI) updateKeybindDisplay() {
	ui.keybindView.Clear()

	binds := ui.keybinds
	bindsPerRow := 2

	maxKeyWidth := 0
	maxDescWidth := 0
	for _, bind := range binds {
		if len(bind.Key) > maxKeyWidth {
			maxKeyWidth = len(bind.Key)
		}
		if len(bind.Description) > maxDescWidth {
			maxDescWidth = len(bind.Description)
		}
	}

	for i := 0; i < len(binds); i += bindsPerRow {
		for j := 0; j < bindsPerRow && i+j < len(binds); j++ {
			bind := binds[i+j]
			keyPadding := strings.Repeat(" ", maxKeyWidth-len(bind.Key))
			descPadding := strings.Repeat(" ", maxDescWidth-len(bind.Description))

			fmt.Fprintf(ui.keybindView, "[green]%s%s[white]:%s%s",
				bind.Key,
				keyPadding,
				bind.Description,
				descPadding,
			)

			if j < bindsPerRow-1 && i+j < len(binds)-1 {
				fmt.Fprintf(ui.keybindView, "        ")
			}
		}
		fmt.Fprintf(ui.keybindView, "\n")
	}
}

func (ui *UI) layout() tview.Primitive {
	sendRow := tview.NewFlex().
		AddItem(ui.sendButton, 10, 0, false).
		AddItem(nil, 0, 1, false)

	quitRow := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(ui.quitButton, 10, 0, false)

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(ui.inputArea, 0, 1, true).
		AddItem(sendRow, 1, 0, false).
		AddItem(ui.outputView, 0, 2, false).
		AddItem(quitRow, 1, 0, false).
		AddItem(ui.statusView, 3, 0, false).
		AddItem(ui.keybindView, 2, 0, false)
	flex.SetBorder(true).
		SetTitle(Title)

	// Center the entire flex container
	return tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(
			tview.NewFlex().
				SetDirection(tview.FlexRow).
				AddItem(nil, 0, 1, false).
				AddItem(flex, 0, 8, true).
				AddItem(nil, 0, 1, false),
			0, 6, true,
		).
		AddItem(nil, 0, 1, false)
}

// renderLoop redraws on every completion and on a short tick for the spinner.
func (ui *UI) renderLoop() {
	ticker := time.NewTicker(refreshPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ui.done:
			return
		case <-ui.refresh:
		case <-ticker.C:
		}

		ui.app.QueueUpdateDraw(func() {
			ui.currentSpinnerFrame = (ui.currentSpinnerFrame + 1) % len(ui.spinnerFrames)
			ui.render()
		})
	}
}

// Run blocks until the window is closed or ctx is cancelled. Requests
// still in flight are not cancelled by closing the window.
func (ui *UI) Run(ctx context.Context) error {
	ui.ctx = ctx
	defer close(ui.done)

	if err := ctx.Err(); err != nil {
		return err
	}

	if ui.metrics != nil {
		ui.metrics.Start()
		defer ui.metrics.Stop()
	}

	stop := context.AfterFunc(ctx, ui.app.Stop)
	defer stop()

	ui.updateKeybindDisplay()
	ui.render()
	go ui.renderLoop()

	logs.Info("window opened")
	return ui.app.SetRoot(ui.layout(), true).EnableMouse(true).Run()
}
