package chat

import (
	"context"
	"sync"
	"time"

	"llm_dealer/pkg/logs"

	"github.com/segmentio/ksuid"
	"go.uber.org/zap"
)

const errorPrefix = "Error: "

type Result struct {
	ID      string
	Text    string
	Err     error
	Elapsed time.Duration
}

// Display is what the output area shows for this result.
func (r Result) Display() string {
	if r.Err != nil {
		return errorPrefix + r.Err.Error()
	}
	return r.Text
}

// Session runs each Send on its own goroutine and publishes the outcome into
// a single slot. Whichever call finishes last owns the slot.
type Session struct {
	completer    Completer
	instructions string
	onComplete   func(Result)

	mu      sync.Mutex
	last    Result
	pending int
	wg      sync.WaitGroup
}

// NewSession builds a Session. onComplete may be nil; it runs on the worker
// goroutine after the slot has been written.
func NewSession(completer Completer, instructions string, onComplete func(Result)) *Session {
	return &Session{
		completer:    completer,
		instructions: instructions,
		onComplete:   onComplete,
	}
}

// Send starts a request for userText and returns immediately.
func (s *Session) Send(ctx context.Context, userText string) string {
	id := ksuid.New().String()

	s.mu.Lock()
	s.pending++
	s.mu.Unlock()

	s.wg.Add(1)
	go s.run(ctx, id, s.instructions, userText)
	return id
}

func (s *Session) run(ctx context.Context, id, instructions, userText string) {
	defer s.wg.Done()

	logs.Info("chat request started", zap.String("id", id), zap.Int("input_len", len(userText)))
	start := time.Now()
	text, err := s.completer.Complete(ctx, instructions, userText)
	result := Result{ID: id, Text: text, Err: err, Elapsed: time.Since(start)}

	if err != nil {
		logs.Warn("chat request failed", zap.String("id", id), zap.Duration("elapsed", result.Elapsed), zap.Error(err))
	} else {
		logs.Info("chat request completed", zap.String("id", id), zap.Duration("elapsed", result.Elapsed), zap.Int("output_len", len(text)))
	}

	s.mu.Lock()
	s.last = result
	s.pending--
	s.mu.Unlock()

	if s.onComplete != nil {
		s.onComplete(result)
	}
}

// Response is the text the output area should show.
func (s *Session) Response() string {
	return s.Last().Display()
}

// Last returns the most recently completed result.
func (s *Session) Last() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

func (s *Session) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// Wait blocks until every in-flight Send has published its result.
func (s *Session) Wait() {
	s.wg.Wait()
}
