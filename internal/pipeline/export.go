package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ppiankov/rulelens/internal/llm"
	"github.com/ppiankov/rulelens/internal/log"
	"github.com/ppiankov/rulelens/internal/model"
)

// Exporter writes a JSON and a Markdown report per selection into a directory
type Exporter struct {
	pipeline *Pipeline
	dir      string
	withLLM  bool
}

// NewExporter creates an exporter writing into dir
func NewExporter(p *Pipeline, dir string, withLLM bool) *Exporter {
	return &Exporter{pipeline: p, dir: dir, withLLM: withLLM}
}

// ExportView computes the view for sel and writes <slug>.json and <slug>.md.
// The returned path is the Markdown report.
func (e *Exporter) ExportView(ctx context.Context, sel model.Selection) (string, *model.RuleView, error) {
	view, err := e.pipeline.View(ctx, sel)
	if err != nil {
		return "", nil, err
	}

	if e.withLLM {
		if err := e.pipeline.Summarize(ctx, view); err != nil {
			log.WithContext(ctx).Warn("summary failed", "primary", sel.Primary, "error", err)
		}
	}

	base := filepath.Join(e.dir, Slug(view.Selection.Primary))
	renderer := e.pipeline.Renderer()

	if err := renderer.WriteFile(base+".json", view, FormatJSON); err != nil {
		return "", view, fmt.Errorf("write JSON: %w", err)
	}
	mdPath := base + ".md"
	if err := renderer.WriteFile(mdPath, view, FormatMarkdown); err != nil {
		return "", view, fmt.Errorf("write markdown: %w", err)
	}

	if md := llm.RenderSeparateMarkdown(view.LLM); md != "" {
		if err := renderer.WriteLLMMarkdown(base+".llm.md", md); err != nil {
			return mdPath, view, fmt.Errorf("write LLM summary: %w", err)
		}
	}

	return mdPath, view, nil
}

var slugPattern = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// Slug makes a file-name-safe identifier for a primary value. Values that
// need rewriting get a short hash suffix so distinct values never share a file.
func Slug(primary string) string {
	s := strings.Trim(slugPattern.ReplaceAllString(primary, "-"), "-.")
	if s == primary && s != "" {
		return s
	}

	sum := sha256.Sum256([]byte(primary))
	suffix := hex.EncodeToString(sum[:4])
	if s == "" {
		return "_" + suffix
	}
	return s + "-" + suffix
}
