// Package pipeline ties the loader, normalizer, filter and grouping engines
// together and memoizes the resulting rule views.
package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/ppiankov/rulelens/internal/cache"
	"github.com/ppiankov/rulelens/internal/diagnose"
	"github.com/ppiankov/rulelens/internal/filter"
	"github.com/ppiankov/rulelens/internal/group"
	"github.com/ppiankov/rulelens/internal/llm"
	"github.com/ppiankov/rulelens/internal/log"
	"github.com/ppiankov/rulelens/internal/model"
	"github.com/ppiankov/rulelens/internal/normalize"
	"github.com/ppiankov/rulelens/internal/source"
	"github.com/ppiankov/rulelens/internal/worker"
)

// ErrNotLoaded is returned by queries issued before a table was loaded
var ErrNotLoaded = errors.New("rule table not loaded")

// Pipeline holds the loaded rule table and answers selection queries against it.
// Queries are pure functions of (table, selection); a reload swaps the table atomically.
type Pipeline struct {
	config     *model.Config
	loader     *source.Loader
	diagnoser  *diagnose.Diagnoser
	renderer   *Renderer
	summarizer *llm.Summarizer // nil when no provider is configured
	views      cache.Cache     // nil when memoization is disabled

	mu    sync.RWMutex
	table *model.RuleTable
}

// NewPipeline creates a pipeline from configuration. No I/O happens until Load.
func NewPipeline(cfg *model.Config) (*Pipeline, error) {
	var summarizer *llm.Summarizer
	if cfg.LLM.Provider != "" {
		s, err := llm.NewSummarizer(llm.ConfigFromModel(cfg.LLM, cfg.HTTP))
		if err != nil {
			return nil, fmt.Errorf("initialize LLM provider: %w", err)
		}
		s.SetThrottle(worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize))
		summarizer = s
	}

	p := &Pipeline{
		config:     cfg,
		loader:     source.NewLoader(cfg.Source, cfg.HTTP),
		diagnoser:  diagnose.NewDiagnoser(),
		renderer:   NewRenderer(RenderOptions{IncludeFooter: cfg.Output.IncludeFooter, Color: cfg.Output.Color, Verbose: cfg.Output.Verbose}),
		summarizer: summarizer,
	}
	if cfg.Cache.Enabled {
		p.views = cache.NewMemoryCache(cfg.Cache.TTL, cfg.Cache.CleanupInterval)
	}
	return p, nil
}

// Load reads, parses and normalizes the configured source. It replaces any
// previously loaded table only on success.
func (p *Pipeline) Load(ctx context.Context) error {
	logger := log.WithContext(ctx)
	location := p.config.Source.Path

	doc, err := p.loader.Load(ctx, location)
	if err != nil {
		return err
	}

	table, err := normalize.Normalize(ctx, doc.Table, normalize.Options{
		Source:      doc.Location,
		Pivot:       p.config.Source.Pivot,
		DropColumns: p.config.Source.DropColumns,
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	previous := p.table
	p.table = table
	p.mu.Unlock()

	if previous != nil && previous.Fingerprint != table.Fingerprint && p.views != nil {
		// entries are keyed by fingerprint; dropping them only frees memory
		_ = p.views.Clear()
	}

	logger.Info("rule table loaded",
		"source", doc.Location,
		"format", doc.Format,
		"rows", table.Len(),
		"inputs", len(table.Schema.InputColumns),
		"outputs", len(table.Schema.OutputColumns),
	)
	return nil
}

// Reload loads the source again, fully replacing the current table
func (p *Pipeline) Reload(ctx context.Context) error {
	return p.Load(ctx)
}

// Table returns the loaded table, or nil before the first successful load
func (p *Pipeline) Table() *model.RuleTable {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.table
}

// Config returns the pipeline configuration
func (p *Pipeline) Config() *model.Config {
	return p.config
}

// Renderer returns the configured renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// Summarizer returns the LLM summarizer, or nil when disabled
func (p *Pipeline) Summarizer() *llm.Summarizer {
	return p.summarizer
}

// PrimaryOptions lists the primary selector choices, All first
func (p *Pipeline) PrimaryOptions() ([]string, error) {
	table := p.Table()
	if table == nil {
		return nil, ErrNotLoaded
	}
	return filter.PrimaryOptions(table), nil
}

// Candidates lists the secondary attribute choices for a primary value
func (p *Pipeline) Candidates(primary string) ([]string, error) {
	table := p.Table()
	if table == nil {
		return nil, ErrNotLoaded
	}
	return filter.Candidates(filter.ApplyPrimary(table, primary), table.Schema, primary), nil
}

// View computes the merged rules for a selection. Results are memoized by
// (table fingerprint, selection) so logically equal selections share an entry.
// Every call returns an independent copy decoded from JSON, cached or not, so
// numbers in Signal.Data are always float64.
func (p *Pipeline) View(ctx context.Context, sel model.Selection) (*model.RuleView, error) {
	table := p.Table()
	if table == nil {
		return nil, ErrNotLoaded
	}
	sel = sel.Normalized()

	logger := log.WithContext(ctx)
	key := cache.Key(table.Fingerprint, sel.Key())

	if p.views != nil {
		if data, ok := p.views.Get(key); ok {
			var view model.RuleView
			if err := json.Unmarshal(data, &view); err == nil {
				logger.Debug("view cache hit", "primary", sel.Primary, "attributes", len(sel.Attributes))
				return &view, nil
			}
		}
	}

	data, err := json.Marshal(p.compute(table, sel))
	if err != nil {
		return nil, fmt.Errorf("encode view: %w", err)
	}
	if p.views != nil {
		if err := p.views.Set(key, data, 0); err != nil {
			logger.Warn("view cache write failed", "error", err)
		}
	}

	var view model.RuleView
	if err := json.Unmarshal(data, &view); err != nil {
		return nil, fmt.Errorf("decode view: %w", err)
	}
	return &view, nil
}

func (p *Pipeline) compute(table *model.RuleTable, sel model.Selection) *model.RuleView {
	rows := filter.Apply(table, sel)
	rules := group.Group(rows, table.Schema)

	return &model.RuleView{
		Source:        table.Source,
		Pivot:         table.Schema.Pivot,
		InputColumns:  table.Schema.InputColumns,
		OutputColumns: table.Schema.OutputColumns,
		Selection:     sel,
		TotalRows:     table.Len(),
		MatchedRows:   len(rows),
		Rules:         rules,
		RuleCount:     len(rules),
		Signals:       p.diagnoser.Diagnose(table.Schema, sel, rows, rules),
	}
}

// Summarize attaches an LLM summary to view when a provider is configured.
// Provider problems become warnings on the summary; rules are never modified.
func (p *Pipeline) Summarize(ctx context.Context, view *model.RuleView) error {
	if view == nil || !p.summarizer.IsEnabled() {
		return nil
	}

	summary, err := p.summarizer.GenerateSummary(ctx, *view)
	if err != nil {
		return fmt.Errorf("summarize: %w", err)
	}
	view.LLM = summary
	return nil
}
