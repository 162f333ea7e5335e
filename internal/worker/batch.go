package worker

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/rulelens/internal/log"
	"github.com/ppiankov/rulelens/internal/model"
)

var errExportIncomplete = errors.New("export did not complete")

// Exporter renders the view for one selection to durable output
type Exporter interface {
	ExportView(ctx context.Context, sel model.Selection) (path string, view *model.RuleView, err error)
}

// ExportJob exports the view of one primary selector value
type ExportJob struct {
	Index    int
	Primary  string
	Exporter Exporter
}

// Execute executes the export job
func (j *ExportJob) Execute(ctx context.Context) Result {
	path, view, err := j.Exporter.ExportView(ctx, model.NewSelection(j.Primary))
	return &ExportResult{
		Index:   j.Index,
		Primary: j.Primary,
		Path:    path,
		View:    view,
		Error:   err,
	}
}

// ExportResult represents the outcome of one export job
type ExportResult struct {
	Index   int
	Primary string
	Path    string
	View    *model.RuleView
	Error   error
}

// GetError returns the error from the export result
func (r *ExportResult) GetError() error {
	return r.Error
}

// BatchProcessor exports many selections concurrently
type BatchProcessor struct {
	exporter    Exporter
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(exporter Exporter, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		exporter:    exporter,
		concurrency: concurrency,
	}
}

// ProcessPrimaries exports one view per primary value. Results keep the input
// order and there is exactly one per primary: jobs that never ran or whose
// result was lost to cancellation report the context error.
func (b *BatchProcessor) ProcessPrimaries(ctx context.Context, primaries []string) []*ExportResult {
	if len(primaries) == 0 {
		return []*ExportResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	defer pool.Shutdown()
	pool.Start()

	go func() {
		defer pool.Close()
		for i, primary := range primaries {
			if err := pool.Submit(&ExportJob{Index: i, Primary: primary, Exporter: b.exporter}); err != nil {
				return
			}
		}
	}()

	logger := log.WithContext(ctx)
	results := make([]*ExportResult, len(primaries))
	for r := range pool.Results() {
		res := r.(*ExportResult)
		if res.Error != nil {
			logger.Warn("export failed", "primary", res.Primary, "error", res.Error)
		} else {
			logger.Debug("exported view", "primary", res.Primary, "path", res.Path)
		}
		results[res.Index] = res
	}

	for i, res := range results {
		if res != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = errExportIncomplete
		}
		results[i] = &ExportResult{Index: i, Primary: primaries[i], Error: fmt.Errorf("not exported: %w", err)}
	}
	return results
}

// ProcessFile reads primary values from a file and exports them
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*ExportResult, error) {
	primaries, err := ReadListFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read selections: %w", err)
	}
	for i, v := range primaries {
		primaries[i] = model.ParsePrimary(v)
	}
	return b.ProcessPrimaries(ctx, primaries), nil
}

// ReadListFile reads one value per line, skipping blank lines and # comments.
// Duplicates are dropped; first occurrence order is kept.
func ReadListFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var values []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			values = append(values, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return values, nil
}
