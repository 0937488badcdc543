package middleware

import (
	"context"
	"sync"
)

type logLine struct {
	level  string
	msg    string
	fields map[string]interface{}
}

type recordingLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (l *recordingLogger) record(level, msg string, fields []map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	line := logLine{level: level, msg: msg}
	if len(fields) > 0 {
		line.fields = fields[0]
	}
	l.lines = append(l.lines, line)
}

func (l *recordingLogger) Debug(msg string, fields ...map[string]interface{}) {
	l.record("debug", msg, fields)
}
func (l *recordingLogger) Info(msg string, fields ...map[string]interface{}) {
	l.record("info", msg, fields)
}
func (l *recordingLogger) Warn(msg string, fields ...map[string]interface{}) {
	l.record("warn", msg, fields)
}
func (l *recordingLogger) Error(msg string, fields ...map[string]interface{}) {
	l.record("error", msg, fields)
}

func (l *recordingLogger) snapshot() []logLine {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]logLine, len(l.lines))
	copy(out, l.lines)
	return out
}

func (l *recordingLogger) count(level string) int {
	n := 0
	for _, line := range l.snapshot() {
		if line.level == level {
			n++
		}
	}
	return n
}

// syncRunner runs detached work inline so tests can assert on it.
type syncRunner struct{}

func (syncRunner) Submit(task func()) error {
	task()
	return nil
}

// tracer records an ordered trace of chain events.
type tracer struct {
	mu     sync.Mutex
	events []string
}

func (tr *tracer) add(e string) {
	tr.mu.Lock()
	tr.events = append(tr.events, e)
	tr.mu.Unlock()
}

func (tr *tracer) mw(name string) Middleware {
	return func(ctx context.Context, mc *Context, next Next) (any, error) {
		tr.add(name + "-before")
		res, err := next(ctx)
		tr.add(name + "-after")
		return res, err
	}
}

// countingTerminal returns result and counts its calls.
type countingTerminal struct {
	mu    sync.Mutex
	calls int
	fn    func(call int) (any, error)
}

func (c *countingTerminal) next(context.Context) (any, error) {
	c.mu.Lock()
	c.calls++
	call := c.calls
	c.mu.Unlock()
	return c.fn(call)
}

func (c *countingTerminal) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
