package ui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"llm_dealer/pkg/chat"
	"llm_dealer/pkg/system"

	"github.com/gdamore/tcell/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const waitFor = 2 * time.Second

// startUI runs the window on a simulation screen and returns a function that
// waits for Run to return.
func startUI(t *testing.T, completer chat.Completer) (*UI, func() error) {
	t.Helper()

	screen := tcell.NewSimulationScreen("UTF-8")
	ui := New(completer, "Analyze the following data:", system.New("gpt-4"))
	ui.app.SetScreen(screen)
	screen.SetSize(120, 40)

	errCh := make(chan error, 1)
	go func() { errCh <- ui.Run(context.Background()) }()
	wait := sync.OnceValue(func() error { return <-errCh })

	// Returns once the event loop is running.
	ui.app.QueueUpdate(func() {})

	t.Cleanup(func() {
		ui.app.Stop()
		_ = wait()
		ui.session.Wait()
	})
	return ui, wait
}

func (ui *UI) onLoop(f func()) {
	ui.app.QueueUpdate(f)
}

func (ui *UI) outputText() string {
	var text string
	ui.onLoop(func() { text = ui.outputView.GetText(true) })
	return text
}

func (ui *UI) typeQuestion(text string) {
	ui.onLoop(func() { ui.inputArea.SetText(text, true) })
}

func (ui *UI) press(key tcell.Key) {
	ui.app.QueueEvent(tcell.NewEventKey(key, 0, tcell.ModNone))
}

func TestUI_SendShowsAnswer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"This is a mock response from GPT-4."}}]}`))
	}))
	t.Cleanup(server.Close)

	client := chat.NewClient("mock_api_key", chat.WithEndpoint(server.URL))
	ui, _ := startUI(t, client)

	ui.typeQuestion(`{"key":"value"}`)
	ui.press(tcell.KeyCtrlS)

	assert.Eventually(t, func() bool {
		return ui.outputText() == "This is a mock response from GPT-4."
	}, waitFor, 10*time.Millisecond)
}

func TestUI_SendButtonShowsError(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := chat.NewMockCompleter(ctrl)
	completer.EXPECT().
		Complete(gomock.Any(), "Analyze the following data:", "question").
		Return("", chat.ErrNoChoices)

	ui, _ := startUI(t, completer)
	ui.typeQuestion("question")
	ui.onLoop(func() {
		ui.sendButton.InputHandler()(tcell.NewEventKey(tcell.KeyEnter, 0, tcell.ModNone), nil)
	})

	assert.Eventually(t, func() bool {
		return ui.outputText() == "Error: "+chat.ErrNoChoices.Error()
	}, waitFor, 10*time.Millisecond)
}

func TestUI_BlankQuestionIsIgnored(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := chat.NewMockCompleter(ctrl)

	ui, _ := startUI(t, completer)
	ui.typeQuestion("  \n ")
	ui.onLoop(ui.send)

	assert.Equal(t, 0, ui.session.Pending())
	assert.Empty(t, ui.outputText())
}

func TestUI_PendingShowsSpinner(t *testing.T) {
	ctrl := gomock.NewController(t)
	completer := chat.NewMockCompleter(ctrl)
	release := make(chan struct{})
	completer.EXPECT().
		Complete(gomock.Any(), gomock.Any(), "slow").
		DoAndReturn(func(ctx context.Context, instructions, userText string) (string, error) {
			<-release
			return "done", nil
		})

	ui, _ := startUI(t, completer)
	releaseOnce := sync.OnceFunc(func() { close(release) })
	t.Cleanup(releaseOnce)
	ui.typeQuestion("slow")
	ui.onLoop(ui.send)

	var status string
	ui.onLoop(func() { status = ui.statusView.GetText(true) })
	assert.Contains(t, status, "Waiting for answer")
	assert.Contains(t, status, "1 in flight")

	releaseOnce()
	assert.Eventually(t, func() bool {
		var s string
		ui.onLoop(func() { s = ui.statusView.GetText(true) })
		return ui.outputText() == "done" && strings.HasPrefix(s, "Ready")
	}, waitFor, 10*time.Millisecond)
	assert.Eventually(t, func() bool {
		return ui.metrics.Snapshot().Requests == 1
	}, waitFor, 10*time.Millisecond)
}

func TestUI_TabCyclesFocus(t *testing.T) {
	ui, _ := startUI(t, chat.NewMockCompleter(gomock.NewController(t)))

	focused := func() any {
		var p any
		ui.onLoop(func() { p = ui.app.GetFocus() })
		return p
	}
	require.Equal(t, any(ui.inputArea), focused())

	ui.press(tcell.KeyTab)
	assert.Eventually(t, func() bool { return focused() == any(ui.sendButton) }, waitFor, 10*time.Millisecond)

	ui.press(tcell.KeyBacktab)
	ui.press(tcell.KeyBacktab)
	assert.Eventually(t, func() bool { return focused() == any(ui.quitButton) }, waitFor, 10*time.Millisecond)
}

func TestUI_CtrlQStops(t *testing.T) {
	ui, wait := startUI(t, chat.NewMockCompleter(gomock.NewController(t)))

	ui.press(tcell.KeyCtrlQ)

	done := make(chan error, 1)
	go func() { done <- wait() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("window did not close")
	}
}

func TestUI_RunWithCancelledContextReturns(t *testing.T) {
	screen := tcell.NewSimulationScreen("UTF-8")
	ui := New(chat.NewMockCompleter(gomock.NewController(t)), "", system.New("gpt-4"))
	ui.app.SetScreen(screen)
	t.Cleanup(screen.Fini)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- ui.Run(ctx) }()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(waitFor):
		ui.app.Stop()
		t.Fatal("window did not close")
	}
}

func TestUI_KeybindDisplay(t *testing.T) {
	ui := New(chat.NewMockCompleter(gomock.NewController(t)), "", nil)
	ui.updateKeybindDisplay()

	text := ui.keybindView.GetText(true)
	assert.Contains(t, text, "Ctrl+S")
	assert.Contains(t, text, "send question")
	assert.Contains(t, text, "Ctrl+Q")
}
