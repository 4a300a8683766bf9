package testutils

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Chichichkin/vigilant-go/internal/telemetry"
)

// MockSender records every batch it is given. It satisfies
// telemetry.Sender[T] for any T.
type MockSender[T any] struct {
	SentBatches [][]T
	mu          sync.Mutex
	ShouldFail  bool
	ShouldPanic bool
	Delay       time.Duration
	calls       int
}

func (m *MockSender[T]) SendBatch(_ context.Context, batch []T) error {
	if m.Delay > 0 {
		time.Sleep(m.Delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if m.ShouldPanic {
		panic("mock send panicked")
	}
	if m.ShouldFail {
		return fmt.Errorf("mock send failed")
	}

	m.SentBatches = append(m.SentBatches, batch)
	return nil
}

func (m *MockSender[T]) GetSentBatches() [][]T {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]T(nil), m.SentBatches...)
}

// GetSentItems returns every delivered item in send order.
func (m *MockSender[T]) GetSentItems() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	var items []T
	for _, batch := range m.SentBatches {
		items = append(items, batch...)
	}
	return items
}

// Calls counts SendBatch invocations, failed ones included.
func (m *MockSender[T]) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

var _ telemetry.Sender[int] = (*MockSender[int])(nil)

type Line struct {
	Level      telemetry.Level
	Message    string
	Attributes telemetry.Attributes
}

type MockLineSink struct {
	lines []Line
	mu    sync.Mutex
}

func (m *MockLineSink) Log(level telemetry.Level, message string, attrs telemetry.Attributes) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lines = append(m.lines, Line{Level: level, Message: message, Attributes: attrs})
}

func (m *MockLineSink) GetLines() []Line {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]Line(nil), m.lines...)
}

type MockMetricEmitter struct {
	names []string
	mu    sync.Mutex
}

func (m *MockMetricEmitter) Emit(name string, _ float64, _ telemetry.Attributes) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.names = append(m.names, name)
}

func (m *MockMetricEmitter) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.names...)
}

func CreateTempLogStructure(t *testing.T) string {
	tempDir := t.TempDir()

	structure := map[string]string{
		"default_pod-1_uid123/container-1/app.log":          "log content 1\nline 2\n",
		"default_pod-1_uid123/container-2/app.log":          "log content 2\nerror log\n",
		"kube-system_pod-2_uid456/container/app.log":        "log content 3\ninfo message\n",
		"default_pod-3_uid789/container/app.log":            "log content 4\n",
		"monitoring_pod-4_uid101/grafana/grafana.log":       "grafana starting\n",
		"monitoring_pod-4_uid101/prometheus/prometheus.log": "prometheus ready\n",
	}

	for path, content := range structure {
		fullPath := filepath.Join(tempDir, path)
		dir := filepath.Dir(fullPath)

		if err := os.MkdirAll(dir, 0755); err != nil {
			t.Fatalf("Failed to create directory %s: %v", dir, err)
		}

		if err := os.WriteFile(fullPath, []byte(content), 0644); err != nil {
			t.Fatalf("Failed to write file %s: %v", fullPath, err)
		}
	}

	return tempDir
}
