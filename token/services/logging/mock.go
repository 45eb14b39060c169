/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package logging

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap/zapcore"
)

// Ensure MockLogger satisfies the Logger interface
var _ Logger = (*MockLogger)(nil)

// MockLogger records formatted entries so tests can assert on them.
type MockLogger struct {
	mu      sync.Mutex
	entries []string
}

func (m *MockLogger) record(level string, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, level+": "+msg)
}

// Entries returns a copy of everything logged so far.
func (m *MockLogger) Entries() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.entries))
	copy(out, m.entries)
	return out
}

// Contains reports whether any entry contains substr.
func (m *MockLogger) Contains(substr string) bool {
	for _, e := range m.Entries() {
		if strings.Contains(e, substr) {
			return true
		}
	}
	return false
}

func (m *MockLogger) Named(string) Logger             { return m }
func (m *MockLogger) With(...interface{}) Logger      { return m }
func (m *MockLogger) IsEnabledFor(zapcore.Level) bool { return true }

func (m *MockLogger) Debug(args ...interface{}) { m.record("DEBUG", fmt.Sprint(args...)) }
func (m *MockLogger) Debugf(format string, args ...interface{}) {
	m.record("DEBUG", fmt.Sprintf(format, args...))
}
func (m *MockLogger) Error(args ...interface{}) { m.record("ERROR", fmt.Sprint(args...)) }
func (m *MockLogger) Errorf(format string, args ...interface{}) {
	m.record("ERROR", fmt.Sprintf(format, args...))
}
func (m *MockLogger) Fatal(args ...interface{}) { m.record("FATAL", fmt.Sprint(args...)) }
func (m *MockLogger) Fatalf(format string, args ...interface{}) {
	m.record("FATAL", fmt.Sprintf(format, args...))
}
func (m *MockLogger) Info(args ...interface{}) { m.record("INFO", fmt.Sprint(args...)) }
func (m *MockLogger) Infof(format string, args ...interface{}) {
	m.record("INFO", fmt.Sprintf(format, args...))
}
func (m *MockLogger) Infow(msg string, kvPairs ...interface{}) {
	m.record("INFO", msg+" "+fmt.Sprint(kvPairs...))
}
func (m *MockLogger) Panic(args ...interface{}) { m.record("PANIC", fmt.Sprint(args...)) }
func (m *MockLogger) Panicf(format string, args ...interface{}) {
	m.record("PANIC", fmt.Sprintf(format, args...))
}
func (m *MockLogger) Warn(args ...interface{}) { m.record("WARN", fmt.Sprint(args...)) }
func (m *MockLogger) Warnf(format string, args ...interface{}) {
	m.record("WARN", fmt.Sprintf(format, args...))
}
