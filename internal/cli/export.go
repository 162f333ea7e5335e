package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rulelens/internal/model"
	"github.com/ppiankov/rulelens/internal/pipeline"
	"github.com/ppiankov/rulelens/internal/worker"
)

var (
	outputDir     string
	eventsFile    string
	concurrency   int
	exportTimeout time.Duration
)

// exportCmd represents the export command
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export one report per event in parallel",
	Long: `Export writes <event>.json and <event>.md into the output directory for
every primary option (All included), or for the events listed in a file.
Views are computed concurrently with a bounded worker pool.

Example:
  rulelens export --output-dir ./rulelens-reports
  rulelens export --events-file events.txt --concurrency 8
  rulelens export --llm --llm-provider ollama`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)

	exportCmd.Flags().StringVar(&outputDir, "output-dir", "./rulelens-reports", "output directory for reports")
	exportCmd.Flags().StringVar(&eventsFile, "events-file", "", "file with one event per line (default: every event)")
	exportCmd.Flags().IntVar(&concurrency, "concurrency", 0, "number of concurrent workers (default from config)")
	exportCmd.Flags().DurationVar(&exportTimeout, "timeout", 10*time.Minute, "total timeout for the export")
	exportCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	addLLMFlags(exportCmd)
}

func runExport(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), exportTimeout)
	defer cancel()

	var workers int
	p, err := openPipeline(ctx, func(cfg *model.Config) {
		cfg.Output.Color = false
		if noFooter {
			cfg.Output.IncludeFooter = false
		}
		if concurrency > 0 {
			cfg.Concurrency.Workers = concurrency
		}
		workers = cfg.Concurrency.Workers
		applyLLMFlags(cfg)
	})
	if err != nil {
		return err
	}
	if workers < 1 {
		workers = 1
	}

	stderr := cmd.ErrOrStderr()
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "  rulelens export\n")
	fmt.Fprintf(stderr, "═══════════════════════════════════════════════════════════\n")
	fmt.Fprintf(stderr, "\n")
	fmt.Fprintf(stderr, "  Source:       %s\n", p.Table().Source)
	fmt.Fprintf(stderr, "  Workers:      %d\n", workers)
	fmt.Fprintf(stderr, "  Output dir:   %s\n", outputDir)
	fmt.Fprintf(stderr, "\n")

	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	processor := worker.NewBatchProcessor(pipeline.NewExporter(p, outputDir, llmEnabled), workers)

	start := time.Now()
	var results []*worker.ExportResult
	if eventsFile != "" {
		results, err = processor.ProcessFile(ctx, eventsFile)
		if err != nil {
			return err
		}
	} else {
		primaries, err := p.PrimaryOptions()
		if err != nil {
			return err
		}
		results = processor.ProcessPrimaries(ctx, primaries)
	}

	failed := 0
	for _, res := range results {
		if res.Error != nil {
			failed++
			fmt.Fprintf(stderr, "  ✗ %-24s %v\n", res.Primary, res.Error)
			continue
		}
		fmt.Fprintf(stderr, "  ✓ %-24s %d rule(s) → %s\n", res.Primary, res.View.RuleCount, res.Path)
	}

	fmt.Fprintf(stderr, "\n  Exported %d of %d views in %v\n\n", len(results)-failed, len(results), time.Since(start).Round(time.Millisecond))

	if failed > 0 {
		return fmt.Errorf("%d of %d exports failed", failed, len(results))
	}
	return nil
}
