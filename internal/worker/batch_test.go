package worker

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ppiankov/rulelens/internal/model"
)

type mockExporter struct {
	mu       sync.Mutex
	fail     map[string]bool
	delay    time.Duration
	exported []string
}

func (m *mockExporter) ExportView(ctx context.Context, sel model.Selection) (string, *model.RuleView, error) {
	delay := m.delay
	if delay == 0 {
		delay = 5 * time.Millisecond
	}
	time.Sleep(delay)

	m.mu.Lock()
	m.exported = append(m.exported, sel.Primary)
	m.mu.Unlock()

	if m.fail[sel.Primary] {
		return "", nil, errors.New("export error")
	}
	return filepath.Join("out", sel.Primary+".md"), &model.RuleView{Selection: sel}, nil
}

func TestBatchProcessor_ProcessPrimaries(t *testing.T) {
	exporter := &mockExporter{}
	processor := NewBatchProcessor(exporter, 2)

	primaries := []string{"All", "Click", "View", "Scroll"}
	results := processor.ProcessPrimaries(context.Background(), primaries)

	if len(results) != len(primaries) {
		t.Fatalf("expected %d results, got %d", len(primaries), len(results))
	}
	for i, res := range results {
		if res.Primary != primaries[i] {
			t.Errorf("result %d: expected %s, got %s (order not preserved)", i, primaries[i], res.Primary)
		}
		if res.Error != nil {
			t.Errorf("unexpected error for %s: %v", res.Primary, res.Error)
		}
		if res.View == nil || res.View.Selection.Primary != primaries[i] {
			t.Errorf("expected view for %s", primaries[i])
		}
	}
}

func TestBatchProcessor_ProcessPrimaries_Error(t *testing.T) {
	exporter := &mockExporter{fail: map[string]bool{"View": true}}
	processor := NewBatchProcessor(exporter, 3)

	results := processor.ProcessPrimaries(context.Background(), []string{"Click", "View"})

	if results[0].GetError() != nil {
		t.Errorf("expected Click to succeed, got %v", results[0].GetError())
	}
	if results[1].GetError() == nil {
		t.Error("expected View to fail")
	}
}

func TestBatchProcessor_ProcessPrimaries_Empty(t *testing.T) {
	processor := NewBatchProcessor(&mockExporter{}, 2)

	results := processor.ProcessPrimaries(context.Background(), nil)
	if results == nil || len(results) != 0 {
		t.Errorf("expected empty non-nil results, got %v", results)
	}
}

func TestBatchProcessor_ManyJobsDoNotDeadlock(t *testing.T) {
	exporter := &mockExporter{}
	processor := NewBatchProcessor(exporter, 1)

	primaries := make([]string, 40)
	for i := range primaries {
		primaries[i] = string(rune('A' + i))
	}

	done := make(chan []*ExportResult)
	go func() { done <- processor.ProcessPrimaries(context.Background(), primaries) }()

	select {
	case results := <-done:
		if len(results) != len(primaries) {
			t.Errorf("expected %d results, got %d", len(primaries), len(results))
		}
	case <-time.After(5 * time.Second):
		t.Fatal("batch export deadlocked")
	}
}

func TestBatchProcessor_TimeoutReportsEveryPrimary(t *testing.T) {
	exporter := &mockExporter{delay: 30 * time.Millisecond}
	processor := NewBatchProcessor(exporter, 1)

	primaries := make([]string, 10)
	for i := range primaries {
		primaries[i] = string(rune('A' + i))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	results := processor.ProcessPrimaries(ctx, primaries)

	if len(results) != len(primaries) {
		t.Fatalf("expected %d results, got %d", len(primaries), len(results))
	}
	failed := 0
	for i, res := range results {
		if res.Primary != primaries[i] {
			t.Errorf("result %d: expected %s, got %s", i, primaries[i], res.Primary)
		}
		if res.Error != nil {
			failed++
			if !errors.Is(res.Error, context.DeadlineExceeded) {
				t.Errorf("unexpected error for %s: %v", res.Primary, res.Error)
			}
		}
	}
	if failed == 0 {
		t.Error("expected unfinished exports to be reported as failed")
	}
	if !errors.Is(results[len(results)-1].Error, context.DeadlineExceeded) {
		t.Errorf("expected last primary to fail with deadline, got %v", results[len(results)-1].Error)
	}
}

func TestReadListFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.txt")
	content := "# events to export\nClick\n\n  View  \nClick\n# trailing\nScroll\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	values, err := ReadListFile(path)
	if err != nil {
		t.Fatalf("ReadListFile failed: %v", err)
	}

	expected := []string{"Click", "View", "Scroll"}
	if len(values) != len(expected) {
		t.Fatalf("expected %v, got %v", expected, values)
	}
	for i := range expected {
		if values[i] != expected[i] {
			t.Errorf("expected %s at %d, got %s", expected[i], i, values[i])
		}
	}
}

func TestReadListFile_NonExistent(t *testing.T) {
	if _, err := ReadListFile(filepath.Join(t.TempDir(), "missing.txt")); err == nil {
		t.Error("expected error for non-existent file")
	}
}

func TestBatchProcessor_ProcessFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.txt")
	if err := os.WriteFile(path, []byte("Click\n\"\"\nView\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	results, err := NewBatchProcessor(&mockExporter{}, 2).ProcessFile(context.Background(), path)
	if err != nil {
		t.Fatalf("ProcessFile failed: %v", err)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	if results[1].Primary != "" || results[1].View.Selection.Primary != "" {
		t.Errorf("expected the blank event to be exported, got %q", results[1].Primary)
	}

	if _, err := NewBatchProcessor(&mockExporter{}, 2).ProcessFile(context.Background(), path+".missing"); err == nil {
		t.Error("expected error for missing file")
	}
}
