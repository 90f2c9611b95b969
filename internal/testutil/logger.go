package testutil

import "sync"

// LogLine is one call captured by RecordingLogger
type LogLine struct {
	Level   string
	Module  string
	Message string
	Details map[string]interface{}
}

// RecordingLogger captures log calls for assertions
type RecordingLogger struct {
	mu    sync.Mutex
	Lines []LogLine
}

func (l *RecordingLogger) record(level, module, message string, details map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Lines = append(l.Lines, LogLine{Level: level, Module: module, Message: message, Details: details})
}

func (l *RecordingLogger) Debug(module, message string, details map[string]interface{}) {
	l.record("debug", module, message, details)
}

func (l *RecordingLogger) Info(module, message string, details map[string]interface{}) {
	l.record("info", module, message, details)
}

func (l *RecordingLogger) Warn(module, message string, details map[string]interface{}) {
	l.record("warn", module, message, details)
}

func (l *RecordingLogger) Error(module, message string, details map[string]interface{}) {
	l.record("error", module, message, details)
}

func (l *RecordingLogger) Critical(module, message string, details map[string]interface{}) {
	l.record("critical", module, message, details)
}

func (l *RecordingLogger) Sync() error { return nil }

// Levels returns the level of every captured line in order
func (l *RecordingLogger) Levels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.Lines))
	for _, line := range l.Lines {
		out = append(out, line.Level)
	}
	return out
}

// Has reports whether a line with level and message was captured
func (l *RecordingLogger) Has(level, message string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, line := range l.Lines {
		if line.Level == level && line.Message == message {
			return true
		}
	}
	return false
}
