package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ppiankov/rulelens/internal/llm"
	"github.com/ppiankov/rulelens/internal/log"
	"github.com/ppiankov/rulelens/internal/model"
	"github.com/ppiankov/rulelens/internal/pipeline"
)

var (
	showEvent    string
	showAttrs    []string
	showFormat   string
	showOut      string
	noColor      bool
	noFooter     bool
	llmEnabled   bool
	llmProvider  string
	llmModel     string
	llmNonStrict bool
)

// showCmd represents the show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the consolidated rules for an event and attributes",
	Long: `Show filters the rule table by a primary event (or All) and a set of
secondary attributes, then prints one rule per distinct output tuple.

Every selected attribute must appear among a row's output values (AND).
An empty result is not an error: "No rules found for the selected criteria."

Example:
  rulelens show --event Click
  rulelens show --event Click --attr Red --attr L --format table
  rulelens show --event All --format markdown --out click.md
  rulelens show --event Click --llm --llm-provider openai`,
	Args: cobra.NoArgs,
	RunE: runShow,
}

func init() {
	rootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVarP(&showEvent, "event", "e", model.AllSelector, `primary event value, All, or "" for blank events`)
	showCmd.Flags().StringArrayVarP(&showAttrs, "attr", "a", nil, "secondary attribute (repeatable, all must match)")
	showCmd.Flags().StringVarP(&showFormat, "format", "f", "", "output format (text, table, json, markdown)")
	showCmd.Flags().StringVarP(&showOut, "out", "o", "", "write to file instead of stdout")
	showCmd.Flags().BoolVar(&noColor, "no-color", false, "disable colored text output")
	showCmd.Flags().BoolVar(&noFooter, "no-footer", false, "disable footer in Markdown reports")
	addLLMFlags(showCmd)
}

func addLLMFlags(cmd *cobra.Command) {
	cmd.Flags().BoolVar(&llmEnabled, "llm", false, "generate an LLM summary of the view (separate output)")
	cmd.Flags().StringVar(&llmProvider, "llm-provider", "", "LLM provider (openai, anthropic, ollama; default from config)")
	cmd.Flags().StringVar(&llmModel, "llm-model", "", "LLM model name")
	cmd.Flags().BoolVar(&llmNonStrict, "llm-non-strict", false, "allow the summary to quote values not present in the view")
}

// applyLLMFlags enables or disables the summary provider according to the flags
func applyLLMFlags(cfg *model.Config) {
	if !llmEnabled {
		cfg.LLM.Provider = ""
		return
	}
	if llmProvider != "" {
		cfg.LLM.Provider = llmProvider
	}
	if cfg.LLM.Provider == "" {
		cfg.LLM.Provider = "openai"
	}
	if llmModel != "" {
		cfg.LLM.Model = llmModel
	}
	if llmNonStrict {
		cfg.LLM.StrictValues = false
	}
	applyProviderEnv(&cfg.LLM)
}

func runShow(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := log.WithContext(ctx)

	format := showFormat
	p, err := openPipeline(ctx, func(cfg *model.Config) {
		if format == "" {
			format = formatFor(showOut, cfg.Output.Format)
		}
		if noColor || showOut != "" {
			cfg.Output.Color = false
		}
		if noFooter {
			cfg.Output.IncludeFooter = false
		}
		applyLLMFlags(cfg)
	})
	if err != nil {
		return err
	}

	view, err := p.View(ctx, model.NewSelection(model.ParsePrimary(showEvent), showAttrs...))
	if err != nil {
		return err
	}
	logger.Info("view computed", "primary", view.Selection.Primary, "rows", view.MatchedRows, "rules", view.RuleCount)

	if llmEnabled {
		if err := p.Summarize(ctx, view); err != nil {
			logger.Warn("summary failed", "error", err)
		}
	}

	if showOut != "" {
		if err := p.Renderer().WriteFile(showOut, view, format); err != nil {
			return fmt.Errorf("write %s: %w", showOut, err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", showOut)

		if md := llm.RenderSeparateMarkdown(view.LLM); md != "" {
			llmPath := llmPathFor(showOut)
			if err := p.Renderer().WriteLLMMarkdown(llmPath, md); err != nil {
				return fmt.Errorf("write %s: %w", llmPath, err)
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "✓ Wrote %s\n", llmPath)
		}
		return nil
	}

	out := cmd.OutOrStdout()
	if err := p.Renderer().Render(out, view, format); err != nil {
		return err
	}
	return printSummary(out, view)
}

func printSummary(w io.Writer, view *model.RuleView) error {
	md := llm.RenderSeparateMarkdown(view.LLM)
	if md == "" {
		return nil
	}
	_, err := fmt.Fprintf(w, "\n%s", md)
	return err
}

// formatFor infers the output format from the file extension, falling back
// to the configured format.
func formatFor(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return pipeline.FormatJSON
	case ".md", ".markdown":
		return pipeline.FormatMarkdown
	case ".txt":
		return pipeline.FormatText
	}
	if fallback == "" {
		return pipeline.FormatText
	}
	return fallback
}

// llmPathFor returns report.llm.md for report.md
func llmPathFor(path string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".llm.md"
}

